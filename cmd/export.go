package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/scan"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/session"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/snapshot"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "vault.db", "Output SQLite file")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Scan a vault and write its facts and graph views to SQLite",
	Args:  cobra.MaximumNArgs(1),
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

		start := time.Now()
		fmt.Printf("Exporting %s to %s...\n", sess.Root(), exportOut)
		if err := sess.Start(""); err != nil {
			return err
		}
		sess.Wait()
		if err := sess.Err(); err != nil {
			return err
		}

		facts := sess.Snapshot()
		if err := snapshot.Export(exportOut, sess.Root(), facts, logger); err != nil {
			return err
		}

		st := facts.Stats()
		fmt.Printf("Done in %v: %d files, %d images, %d references, %d distinct tags.\n",
			time.Since(start).Round(time.Millisecond),
			st.Files, st.Images, st.References, st.DistinctTags)
		return nil
	},
}
