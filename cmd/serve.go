package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harshit-Dhanwalkar/NexusView/internal/gateway"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/scan"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/session"
	"github.com/Harshit-Dhanwalkar/NexusView/internal/watch"
)

var (
	serveAddr  string
	serveTick  time.Duration
	serveWatch bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8750", "Listen address")
	serveCmd.Flags().DurationVar(&serveTick, "tick", 33*time.Millisecond, "Frame interval")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Rescan when vault files change")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Scan a vault and serve its live graph over WebSocket",
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
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveAddr
		}
		if cmd.Flags().Changed("tick") {
			cfg.Tick = serveTick
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

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hub := gateway.NewHub(sess, logger,
			gateway.WithInterval(cfg.Tick),
			gateway.WithParams(cfg.Physics))
		srv := &http.Server{Addr: cfg.Addr, Handler: hub.Handler()}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			hub.Run(ctx)
			return nil
		})
		g.Go(func() error {
			logger.Info("Gateway listening",
				zap.String("addr", cfg.Addr), zap.String("root", sess.Root()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if serveWatch {
			w, err := watch.New(sess.Root(), logger, watch.WithDebounce(cfg.Debounce))
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Start(ctx); err != nil {
				return err
			}
			g.Go(func() error {
				for {
					select {
					case <-ctx.Done():
						return nil
					case dir := <-w.Requests():
						// A request landing mid-scan is dropped.
						if err := sess.Start(dir); err != nil && !errors.Is(err, session.ErrScanInFlight) {
							return err
						}
					}
				}
			})
		}

		return g.Wait()
	},
}
