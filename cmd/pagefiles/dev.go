package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/pagefiles/internal/config"
	"github.com/vango-dev/pagefiles/internal/dev"
	pferrors "github.com/vango-dev/pagefiles/internal/errors"
	"github.com/vango-dev/pagefiles/internal/metrics"
)

func devCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Watch pagefiles and serve the routes",
		Long: `Watch pagefiles and regenerate the routes module on every change.

dev is lenient by default: a broken pagefile is reported and left out,
and the last good route table stays in place while a layout error is
fixed.

Endpoints:
  /routes.js    the generated routes module
  /routes.json  the route manifest
  /errors       current errors
  /ws           reload hub (see /client.js)
  /metrics      Prometheus metrics

Examples:
  pagefiles dev
  pagefiles dev --port=8080
  pagefiles dev --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")

	return cmd
}

func runDev(ctx context.Context, port int, host string) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if port > 0 {
		cfg.Dev.Port = port
	}
	if host != "" {
		cfg.Dev.Host = host
	}

	m := metrics.New(metrics.WithRegistry(prometheus.DefaultRegisterer))

	eng, err := newEngine(cfg, cfg.Strict(false), m)
	if err != nil {
		return err
	}

	watcher := dev.NewWatcher(dev.WatcherConfig{
		Root:     cfg.Dir(),
		Matcher:  eng.matcher,
		Ignore:   cfg.Dev.Ignore,
		Debounce: cfg.DebounceDuration(),
		Metrics:  m,
	})

	server := dev.NewServer(dev.ServerOptions{
		Config:     cfg,
		Controller: eng.controller,
		Watcher:    watcher,
		Reload:     dev.NewReloadServer(m),
		Gatherer:   prometheus.DefaultGatherer,
	})

	eng.controller.OnRoutesGenerated(func(gen dev.Generation) {
		success("Routes updated (%d pagefiles)", len(gen.Pagefiles))
	})
	eng.controller.OnDiagnostics(func(errs []*pferrors.Error) {
		for _, e := range errs {
			errorMsg("%s: %s", e.SourceFile(), e.Error())
		}
	})

	fmt.Println()
	fmt.Println("  pagefiles dev")
	info("Watching %s", cfg.Dir())
	info("Serving %s", cfg.DevURL())
	fmt.Println()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
