package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	reddit "github.com/jamesprial/go-reddit-posts"
	"github.com/jamesprial/go-reddit-posts/internal/config"
)

// app carries what every subcommand needs once the root flags are parsed.
type app struct {
	envFile     string
	configPath  string
	logLevel    string
	logFormat   string
	metricsAddr string

	logger   *slog.Logger
	client   *reddit.Client
	registry *prometheus.Registry
	metrics  *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "redditposts",
		Short:         "Search Reddit and load posts as documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.shutdown()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment (skipped when missing)")
	flags.StringVar(&a.configPath, "config", "", "YAML file overriding environment settings")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	cmd.AddCommand(
		newSearchCmd(a),
		newUserCmd(a),
		newLoadCmd(a),
		newServeMCPCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	settings, err := config.Load(a.envFile, a.configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "load settings")
	}

	level := settings.Level()
	if a.logLevel != "" {
		if level, err = config.ParseLogLevel(a.logLevel); err != nil {
			return pkgerrors.Wrap(err, "parse --log-level")
		}
	}
	if a.logger, err = newLogger(cmd.ErrOrStderr(), a.logFormat, level); err != nil {
		return err
	}

	var reg prometheus.Registerer
	if a.metricsAddr != "" {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		reg = a.registry
		if err := a.serveMetrics(); err != nil {
			return err
		}
	}

	a.client, err = reddit.NewClient(settings.ClientConfig(a.logger, reg))
	if err != nil {
		return pkgerrors.Wrap(err, "create client")
	}
	return nil
}

func (a *app) serveMetrics() error {
	ln, err := net.Listen("tcp", a.metricsAddr)
	if err != nil {
		return pkgerrors.Wrapf(err, "listen on %s", a.metricsAddr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	a.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func (a *app) shutdown() error {
	if a.metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.metrics.Shutdown(ctx)
}

func newLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, pkgerrors.Errorf("unknown --log-format %q, want text or json", format)
	}
}
