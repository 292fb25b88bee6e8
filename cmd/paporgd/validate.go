package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iperka/paporg-sub001/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config-dir]",
	Short: "Load and validate a configuration directory without starting the daemon",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := configDir()
		if len(args) == 1 {
			dir = args[0]
		}

		cfg, err := config.Load(dir)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		fmt.Printf("%s: valid\n", dir)
		fmt.Printf("  settings:      %s\n", cfg.Settings.Path)
		fmt.Printf("  variables:     %d\n", len(cfg.Variables))
		fmt.Printf("  rules:         %d\n", len(cfg.Rules))
		fmt.Printf("  import sources: %d\n", len(cfg.Sources))
		for _, src := range cfg.Sources {
			fmt.Printf("    - %s (%s)\n", src.Name(), src.Spec.Type)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
