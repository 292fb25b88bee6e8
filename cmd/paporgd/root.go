package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "paporgd",
	Short: "Document ingestion and organization daemon",
	Long: `paporgd watches one or more local directories and IMAP mailboxes for
incoming documents, runs each one through OCR/text extraction, matches
it against a configured rule set, and files it into a categorized
output tree.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().String("config-dir", "", "manifest configuration directory (default \"~/.config/paporg/config\")")
	rootCmd.PersistentFlags().String("db-path", "", "SQLite database path (default \"~/.local/share/paporg/paporg.db\")")
	rootCmd.PersistentFlags().String("log-path", "", "log file path (default \"<db-dir>/paporgd.log\")")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("temp-dir", "", "scratch directory for downloaded attachments (default \"<db-dir>/tmp\")")

	for _, name := range []string{"config-dir", "db-path", "log-path", "log-level", "temp-dir"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initViper wires the defaults -> config file -> PAPORG_* env ->
// flags precedence chain, the way the teacher's daemon config layer
// does for "bd".
func initViper() {
	viper.SetEnvPrefix("paporg")
	viper.AutomaticEnv()

	viper.SetConfigName("paporg")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "paporg"))
	}
	_ = viper.ReadInConfig() // absent config file is not an error; defaults + env + flags still apply

	home, _ := os.UserHomeDir()
	viper.SetDefault("config-dir", filepath.Join(home, ".config", "paporg", "config"))
	viper.SetDefault("db-path", filepath.Join(home, ".local", "share", "paporg", "paporg.db"))
	viper.SetDefault("log-level", "info")
}

// Execute runs the command tree, printing a single-line error and
// exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "paporgd:", err)
		os.Exit(1)
	}
}

func configDir() string { return viper.GetString("config-dir") }
func dbPath() string    { return viper.GetString("db-path") }
func logLevel() string  { return viper.GetString("log-level") }

func dbDir() string { return filepath.Dir(dbPath()) }

func logPath() string {
	if p := viper.GetString("log-path"); p != "" {
		return p
	}
	return filepath.Join(dbDir(), "paporgd.log")
}

func tempDir() string {
	if p := viper.GetString("temp-dir"); p != "" {
		return p
	}
	return filepath.Join(dbDir(), "tmp")
}
