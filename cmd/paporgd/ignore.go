package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/store"
)

var ignoreCmd = &cobra.Command{
	Use:   "ignore <job-id>",
	Short: "Mark a job ignored so it is excluded from future reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id := args[0]

		st, err := store.Open(dbPath())
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		if _, err := st.Jobs.Get(ctx, id); err != nil {
			return fmt.Errorf("job %s: %w", id, err)
		}

		if err := st.Jobs.Update(ctx, id, map[string]any{"status": string(model.StatusIgnored)}); err != nil {
			return fmt.Errorf("ignoring job %s: %w", id, err)
		}

		fmt.Printf("job %s ignored\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ignoreCmd)
}
