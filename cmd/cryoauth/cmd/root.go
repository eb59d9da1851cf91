// Package cmd implements the cryoauth command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/coredex-source/Cryovex-Launcher/config"
	"github.com/coredex-source/Cryovex-Launcher/internal/metrics"
	"github.com/coredex-source/Cryovex-Launcher/log"
	"github.com/coredex-source/Cryovex-Launcher/tracing"
)

const appName = "cryoauth"

// app is the state shared by subcommands, set up in PersistentPreRunE.
type app struct {
	cfgFile     string
	logLevel    string
	dumpMetrics bool
	trace       bool

	cfg      *config.Config
	logger   log.Logger
	registry *prometheus.Registry
	metrics  *metrics.PipelineMetrics
	tp       *sdktrace.TracerProvider
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "cryoauth signs a Microsoft account in to Minecraft services",
		Long:          `cryoauth redeems a Microsoft authorization code through Xbox Live and XSTS for a Minecraft access token and stores the resulting account for the launcher.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.cryovex/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.dumpMetrics, "metrics", false, "print pipeline metrics to stderr on exit")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "print OpenTelemetry spans to stderr")

	root.AddCommand(newAuthCommand(a), newFlowCommand())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	var opts []config.LoadOption
	if a.cfgFile != "" {
		opts = append(opts, config.WithConfigFile(a.cfgFile))
	}
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg)

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewPipelineMetrics(a.registry)

	if a.trace || cfg.TracingEnabled {
		tp, err := tracing.InitTracerProvider(cfg.OtelServiceName, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.tp = tp
	}

	a.logger.Debug(cmd.Context(), "cryoauth starting", map[string]interface{}{
		"command":      cmd.CommandPath(),
		"store_driver": cfg.StoreDriver,
	})
	return nil
}

func (a *app) teardown(cmd *cobra.Command) error {
	if a.dumpMetrics && a.registry != nil {
		if err := metrics.WriteText(cmd.ErrOrStderr(), a.registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if a.tp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tp.Shutdown(ctx); err != nil {
			a.logger.Warn(cmd.Context(), "failed to shut down tracer provider", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

func newLogger(w io.Writer, cfg *config.Config) log.Logger {
	level := log.ParseLevel(cfg.LogLevel)
	if cfg.LogPretty {
		return log.NewZerologAdapterWriter(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}, level)
	}
	return log.NewZerologAdapterWriter(w, level)
}
