// Package cmd implements the correlate command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/correlate/internal/adapters/report"
	"github.com/okian/correlate/internal/adapters/source"
	service "github.com/okian/correlate/internal/app"
	"github.com/okian/correlate/internal/config"
	"github.com/okian/correlate/pkg/logger"
	"github.com/okian/correlate/pkg/metrics"
)

// globals holds flags shared by every subcommand and the config they load.
type globals struct {
	cfgFile   string
	logLevel  string
	threshold float64
	query     string

	cfg *config.Config
}

// Execute runs the root command with signal-aware context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "correlate",
		Short: "Group related monitoring events by weighted similarity",
		Long: `correlate fetches events from Datadog or an events file and groups the
ones that describe the same incident. Events are compared on title, text and
tags; each event joins the first group whose founding event it scores at least
the threshold against.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&g.cfgFile, "config", "",
		"config file (default: $"+config.EnvConfigPath+")")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	root.PersistentFlags().Float64Var(&g.threshold, "threshold", 0,
		"minimum score to join a group (overrides config)")
	root.PersistentFlags().StringVar(&g.query, "query", "",
		"source filter (overrides config)")

	root.AddCommand(
		newRunCmd(g),
		newGroupCmd(g),
		newBackfillCmd(g),
		newServeCmd(g),
		newGenerateCmd(g),
	)
	return root
}

func (g *globals) init(cmd *cobra.Command) error {
	if err := logger.InitWith(cmd.ErrOrStderr(), logger.FormatText); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	path := g.cfgFile
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("threshold") {
		cfg.Threshold = g.threshold
	}
	if flags.Changed("query") {
		cfg.Query = g.query
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.InitWith(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Configure(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithConstLabels(cfg.MetricsLabels),
		metrics.WithLatencyBuckets(cfg.MetricsLatencyBuckets),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
	)

	g.cfg = cfg
	return nil
}

// newService builds a service reporting to out. The configured source is
// attached only when withSource is set, so commands that bring their own
// events do not need source credentials.
func (g *globals) newService(out io.Writer, withSource bool) (*service.Service, error) {
	rep, err := report.NewFromConfig(g.cfg, out)
	if err != nil {
		return nil, err
	}
	opts := []service.Option{
		service.WithConfig(g.cfg),
		service.WithReporter(rep),
		service.WithLogger(logger.Named("service")),
	}
	if withSource {
		src, err := source.NewFromConfig(g.cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithSource(src))
	}
	return service.New(opts...)
}
