package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/agent"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/scan"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/session"
)

func init() {
	rootCmd.AddCommand(agentCmd)
}

var agentCmd = &cobra.Command{
	Use:   "agent [dir]",
	Short: "Scan a vault and serve its graph to MCP clients on stdio",
	Long: `Scans the vault once, then speaks the Model Context Protocol on
stdin/stdout. Logs go to stderr; stdout carries only protocol frames.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		cfg, err := loadConfig(cmd, logger)
		if err != nil {
			return err
		}

		sess, err := session.NewSession(vaultRoot(args), logger,
			session.WithScanOptions(scan.WithShowHidden(cfg.ShowHidden)))
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.Start(""); err != nil {
			return err
		}
		sess.Wait()
		if err := sess.Err(); err != nil {
			return err
		}

		return server.ServeStdio(agent.NewServer(sess, version))
	},
}
