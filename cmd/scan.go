package cmd

import (
	"fmt"
	"time"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/scan"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/session"
)

var scanJSON bool

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Emit the scanned facts as JSON on stdout")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Scan a vault once and print summary statistics",
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
		if err := sess.Start(""); err != nil {
			return err
		}
		drainProgress(sess, logger)
		if err := sess.Err(); err != nil {
			return err
		}

		facts := sess.Snapshot()
		if scanJSON {
			fmt.Println(oj.JSON(factsDocument(sess.Root(), facts), &ojg.Options{Sort: true, Indent: 2}))
			return nil
		}

		st := facts.Stats()
		fmt.Printf("Scanned %s in %v.\n", sess.Root(), time.Since(start).Round(time.Millisecond))
		fmt.Printf("  files:         %d\n", st.Files)
		fmt.Printf("  images:        %d\n", st.Images)
		fmt.Printf("  tagged files:  %d\n", st.TaggedFiles)
		fmt.Printf("  references:    %d\n", st.References)
		fmt.Printf("  distinct tags: %d\n", st.DistinctTags)
		return nil
	},
}

// drainProgress logs progress at debug until the running scan finishes.
func drainProgress(sess *session.Session, logger *zap.Logger) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.Wait()
	}()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if p, ok := sess.Poll(); ok {
				logger.Debug("Scan progress",
					zap.Float64("fraction", p.Fraction),
					zap.String("message", p.Message))
			}
		}
	}
}

// factsDocument shapes the facts for --json output.
func factsDocument(root string, facts *scan.Facts) map[string]any {
	st := facts.Stats()
	return map[string]any{
		"root":   root,
		"files":  facts.Files,
		"images": facts.Images,
		"tags":   facts.Tags,
		"stats": map[string]any{
			"files":         st.Files,
			"images":        st.Images,
			"tagged_files":  st.TaggedFiles,
			"references":    st.References,
			"distinct_tags": st.DistinctTags,
		},
	}
}
