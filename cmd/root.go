package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/config"
)

var (
	showHidden bool
	envFile    string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&showHidden, "show-hidden", false, "Include hidden files and directories")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load (default: .env when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

var rootCmd = &cobra.Command{
	Use:   "nexusview",
	Short: "NexusView: explore the reference and tag graphs of a note vault",
	Long: `NexusView scans a directory of notes for markdown references, wiki links,
and #tags, builds reference and tag graphs from them, and serves a live
force-directed layout over WebSocket. Snapshots export to SQLite; an MCP
server exposes the same graph to agents.`,
}

// newLogger builds the process logger. Production JSON by default,
// development console at debug level with --verbose.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig resolves env-backed settings, then lets explicitly-set flags
// win over them.
func loadConfig(cmd *cobra.Command, logger *zap.Logger) (*config.Config, error) {
	cfg, err := config.Load(envFile, logger)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("show-hidden") {
		cfg.ShowHidden = showHidden
	}
	return cfg, nil
}

// vaultRoot resolves the optional [dir] argument, defaulting to the
// working directory. The scanner makes it absolute.
func vaultRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
