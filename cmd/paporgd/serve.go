package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iperka/paporg-sub001/internal/daemon"
	"github.com/iperka/paporg-sub001/internal/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon in the foreground",
	Long: `Opens the store, loads the configuration directory, starts every
discovery source and the worker pool, and blocks until interrupted.
On SIGINT/SIGTERM it drains in-flight jobs before exiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workerCount, _ := cmd.Flags().GetInt("workers")

		bc := tracker.NewLogBroadcaster()
		log, err := newLogger(logPath(), logLevel(), bc)
		if err != nil {
			return err
		}

		d, err := daemon.New(daemon.Options{
			DBPath:      dbPath(),
			ConfigDir:   configDir(),
			TempDir:     tempDir(),
			WorkerCount: workerCount,
			Log:         log,
			Logs:        bc,
		})
		if err != nil {
			return fmt.Errorf("starting daemon: %w", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		fmt.Fprintf(os.Stdout, "paporgd: serving config %s (db %s)\n", configDir(), dbPath())
		return d.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().Int("workers", 4, "number of worker goroutines processing jobs concurrently")
	rootCmd.AddCommand(serveCmd)
}
