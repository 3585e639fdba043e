package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"turbo-delete/internal/disk"
	"turbo-delete/internal/logging"
	"turbo-delete/internal/metrics"
	"turbo-delete/internal/report"
	"turbo-delete/internal/runner"
	"turbo-delete/web/backend"
	"turbo-delete/web/backend/api"
	"turbo-delete/web/backend/websocket"
)

const (
	healthInterval = 30 * time.Second
	// below this the history database and log files stop growing
	minFreePercent = 1.0
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, event stream and metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := a.logger

			metrics.Init()
			if !noMetrics {
				metrics.StartServer(cfg.PrometheusAddress(), logging.Component(logger, "metrics"))
			}

			hc := metrics.NewHealthChecker(healthInterval)
			hc.RegisterComponent("disk", func() error {
				free, err := disk.GetFreePercent(cfg.Logging.Dir)
				if err != nil {
					return err
				}
				if free < minFreePercent {
					return fmt.Errorf("%.2f%% free on %s", free, cfg.Logging.Dir)
				}
				return nil
			}, 5*time.Second)

			runnerOpts := runner.Options{Logger: logging.Component(logger, "runner")}
			var history api.HistoryStore
			db, err := a.openHistory()
			if err != nil {
				logger.Warn().Err(err).Msg("serving without run history")
			} else {
				defer db.Close()
				runnerOpts.Store = db
				history = db
				hc.RegisterComponent("database", db.Ping, 5*time.Second)
			}
			hc.Start()
			metrics.SetHealthChecker(hc)

			hub := websocket.NewHub(logging.Component(logger, "websocket"))
			go hub.Run()
			defer hub.Stop()

			runnerOpts.Events = func(jobID string) report.Sink {
				return report.Multi(hub.Sink(jobID), report.NewLogSink(logger.With().Str("job_id", jobID).Logger(), "job"))
			}
			r := runner.New(a.newEngine(logger, 0, cfg.Engine.SkipOwnership), runnerOpts)

			srv, err := backend.New(backend.Options{
				Config:  cfg.Server,
				Runner:  r,
				History: history,
				Hub:     hub,
				Logger:  logging.Component(logger, "api"),
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err = <-errCh:
			case sig := <-quit:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			ctx, cancel := context.WithTimeout(context.Background(), backend.ShutdownTimeout)
			defer cancel()
			if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil && !errors.Is(shutdownErr, context.DeadlineExceeded) {
				logger.Error().Err(shutdownErr).Msg("api shutdown")
			}
			metrics.Shutdown(ctx, logger)

			// Deletions in flight are not interrupted
			r.Wait()
			logger.Info().Msg("server stopped")
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not start the Prometheus endpoint")
	return cmd
}
