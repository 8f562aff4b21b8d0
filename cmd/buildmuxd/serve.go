package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/buildmux/pkg/config"
	"github.com/cuemby/buildmux/pkg/log"
	"github.com/cuemby/buildmux/pkg/metrics"
	"github.com/cuemby/buildmux/pkg/mux"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bind the router to an in-process demo engine bus and serve metrics/health",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a YAML configuration file")
	serveCmd.Flags().String("env-file", ".env", "Path to an optional .env overlay")
	serveCmd.Flags().Bool("demo", false, "Emit a couple of synthetic submissions through the demo engine bus")
	serveCmd.Flags().Bool("watch-config", false, "Reload --config on change and log max_node_count changes (not applied to the bound router)")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	demo, _ := cmd.Flags().GetBool("demo")
	watchConfig, _ := cmd.Flags().GetBool("watch-config")

	if err := config.LoadDotEnv(envFile); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := config.Config{MaxNodeCount: 1, MetricsAddr: "127.0.0.1:9090"}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	logger := log.WithComponent("buildmuxd")
	metrics.SetVersion(Version)

	router := mux.NewRouter()
	bus := newDemoEngineBus()
	if err := router.Bind(bus, cfg.MaxNodeCount); err != nil {
		return fmt.Errorf("failed to bind router: %w", err)
	}
	logger.Info().Int("max_node_count", cfg.MaxNodeCount).Msg("router bound to demo engine bus")

	if watchConfig && configPath != "" {
		stop, err := config.Watch(configPath, func(newCfg config.Config) {
			logger.Warn().Int("max_node_count", newCfg.MaxNodeCount).
				Msg("max_node_count changed; the bound router keeps the node count it was bound with until restart")
		})
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		defer stop()
	}

	collector := metrics.NewCollector(router)
	collector.Start()
	defer collector.Stop()

	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", metrics.Handler())
	httpMux.HandleFunc("/healthz", metrics.HealthHandler())
	httpMux.HandleFunc("/readyz", metrics.ReadyHandler())
	httpMux.HandleFunc("/livez", metrics.LivenessHandler())
	server := &http.Server{Addr: cfg.MetricsAddr, Handler: httpMux}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics and health endpoints listening")

	scheduler, err := startStatsJob(router, logger)
	if err != nil {
		return fmt.Errorf("failed to start stats job: %w", err)
	}
	defer scheduler.Shutdown()

	if demo {
		go runDemoTraffic(bus, router, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("serve error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("metrics server did not shut down cleanly")
	}
	if err := router.Unbind(); err != nil {
		logger.Warn().Err(err).Msg("router did not unbind cleanly")
	}
	return nil
}

// startStatsJob schedules a periodic one-line stats snapshot, grounded
// on the retrieved pack's only declarative job scheduler rather than a
// hand-rolled time.Ticker loop.
func startStatsJob(router *mux.Router, logger zerolog.Logger) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			active, listeners := router.Stats()
			logger.Info().Int("active_submissions", active).Int("listeners_attached", listeners).Msg("stats snapshot")
		}),
	)
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	return scheduler, nil
}
