package imap

import (
	"context"
	"fmt"
	"os"

	"github.com/iperka/paporg-sub001/internal/config"
	"github.com/iperka/paporg-sub001/internal/model"
	"golang.org/x/oauth2"
)

// DeviceAuthorization is the user-facing instruction returned by
// StartDeviceAuth: visit the URL and enter the code.
type DeviceAuthorization struct {
	VerificationURI         string
	VerificationURIComplete string
	UserCode                string
	ExpiresIn               int
}

// oauthConfig builds the oauth2.Config for cfg's provider endpoints.
func oauthConfig(cfg *config.OAuth2ClientConfig) *oauth2.Config {
	var clientSecret string
	if cfg.ClientSecretEnv != "" {
		clientSecret = os.Getenv(cfg.ClientSecretEnv)
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:       cfg.DeviceAuthURL,
			TokenURL:      cfg.TokenURL,
			DeviceAuthURL: cfg.DeviceAuthURL,
		},
		Scopes: cfg.Scopes,
	}
}

// StartDeviceAuth begins the device-authorization flow and returns the
// instructions to present to the operator.
func StartDeviceAuth(ctx context.Context, cfg *config.OAuth2ClientConfig) (*oauth2.DeviceAuthResponse, DeviceAuthorization, error) {
	conf := oauthConfig(cfg)
	resp, err := conf.DeviceAuth(ctx)
	if err != nil {
		return nil, DeviceAuthorization{}, fmt.Errorf("starting device authorization: %w", err)
	}
	return resp, DeviceAuthorization{
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		UserCode:                resp.UserCode,
		ExpiresIn:               int(resp.ExpiresIn),
	}, nil
}

// PollDeviceToken blocks until the operator completes the device-auth
// flow (or it expires) and returns the resulting access token.
func PollDeviceToken(ctx context.Context, cfg *config.OAuth2ClientConfig, resp *oauth2.DeviceAuthResponse) (*oauth2.Token, error) {
	conf := oauthConfig(cfg)
	token, err := conf.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("waiting for device authorization: %w", err)
	}
	return token, nil
}

// RefreshToken exchanges stored's refresh token for a new access
// token. oauth2.Config's TokenSource performs the refresh only when
// the supplied token reports itself expired, which resolveCredential
// has already checked before calling this.
func RefreshToken(ctx context.Context, cfg *config.OAuth2ClientConfig, stored *model.OAuthToken) (*model.OAuthToken, error) {
	conf := oauthConfig(cfg)
	current := &oauth2.Token{AccessToken: stored.AccessToken, Expiry: stored.ExpiresAt}
	if stored.RefreshToken != nil {
		current.RefreshToken = *stored.RefreshToken
	}

	refreshed, err := conf.TokenSource(ctx, current).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	out := &model.OAuthToken{
		Source:      stored.Source,
		Provider:    stored.Provider,
		AccessToken: refreshed.AccessToken,
		ExpiresAt:   refreshed.Expiry,
	}
	if refreshed.RefreshToken != "" {
		out.RefreshToken = &refreshed.RefreshToken
	} else {
		out.RefreshToken = stored.RefreshToken
	}
	return out, nil
}
