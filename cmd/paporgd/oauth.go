package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/iperka/paporg-sub001/internal/config"
	imapdiscovery "github.com/iperka/paporg-sub001/internal/discovery/imap"
	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/store"
)

var oauthCmd = &cobra.Command{
	Use:   "oauth",
	Short: "OAuth2 credential management for IMAP sources",
}

var oauthAuthorizeCmd = &cobra.Command{
	Use:   "authorize <source>",
	Short: "Run the OAuth2 device-authorization flow for an IMAP source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		sourceName := args[0]

		cfg, err := config.Load(configDir())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		var imapCfg *config.IMAPSourceConfig
		for _, src := range cfg.Sources {
			if src.Name() == sourceName && src.Spec.Type == config.SourceTypeIMAP {
				imapCfg = src.Spec.IMAP
				break
			}
		}
		if imapCfg == nil {
			return fmt.Errorf("no imap source named %q", sourceName)
		}
		if imapCfg.OAuth2 == nil {
			return fmt.Errorf("source %q has no oauth2 client configured", sourceName)
		}

		resp, instructions, err := imapdiscovery.StartDeviceAuth(ctx, imapCfg.OAuth2)
		if err != nil {
			return fmt.Errorf("starting device authorization: %w", err)
		}

		fmt.Printf("Visit %s and enter code: %s\n", instructions.VerificationURI, instructions.UserCode)
		if instructions.VerificationURIComplete != "" {
			fmt.Printf("Or open: %s\n", instructions.VerificationURIComplete)
		}

		proceed := true
		confirm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Continue once you've authorized in the browser?").
					Affirmative("Yes, poll for the token").
					Negative("Cancel").
					Value(&proceed),
			),
		)
		if err := confirm.Run(); err != nil {
			return fmt.Errorf("confirmation prompt: %w", err)
		}
		if !proceed {
			return fmt.Errorf("authorization cancelled")
		}

		token, err := imapdiscovery.PollDeviceToken(ctx, imapCfg.OAuth2, resp)
		if err != nil {
			return fmt.Errorf("waiting for authorization: %w", err)
		}

		st, err := store.Open(dbPath())
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		expiresAt := token.Expiry
		if expiresAt.IsZero() {
			expiresAt = time.Now().Add(time.Hour)
		}
		if err := st.OAuthTokens.Upsert(ctx, model.OAuthToken{
			Source:       sourceName,
			Provider:     "oauth2",
			AccessToken:  token.AccessToken,
			RefreshToken: stringPtr(token.RefreshToken),
			ExpiresAt:    expiresAt,
		}); err != nil {
			return fmt.Errorf("storing token: %w", err)
		}

		fmt.Printf("source %q authorized, token expires %s\n", sourceName, expiresAt.Format(time.RFC3339))
		return nil
	},
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func init() {
	oauthCmd.AddCommand(oauthAuthorizeCmd)
	rootCmd.AddCommand(oauthCmd)
}
