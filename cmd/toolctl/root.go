package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ag-ui/agent-tools/internal/config"
	"github.com/ag-ui/agent-tools/pkg/telemetry"
	"github.com/ag-ui/agent-tools/pkg/tools"
)

// app holds the state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *logrus.Logger
	out    io.Writer

	registry *tools.Registry
	engine   *tools.Engine
	stats    *telemetry.StatsCollector

	showStats bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{
		v:      config.New(),
		logger: logrus.New(),
		out:    out,
	}
	a.logger.SetOutput(errOut)

	root := &cobra.Command{
		Use:          "toolctl",
		Short:        "toolctl lists and runs agent tools",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	// BindFlags only fails on an unknown flag name, which would be a
	// programming error here.
	if err := config.BindFlags(a.v, root.PersistentFlags()); err != nil {
		panic(err)
	}
	root.PersistentFlags().BoolVar(&a.showStats, "stats", false, "print per-tool execution stats to stderr when done")

	root.AddCommand(
		newListCmd(a),
		newRunCmd(a),
		newStreamCmd(a),
		newBatchCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if err := cfg.ConfigureLogger(a.logger); err != nil {
		return err
	}

	a.registry = tools.NewRegistry(tools.WithRegistryLogger(a.logger.WithField("component", "tools.registry")))
	if err := tools.RegisterBuiltinTools(a.registry); err != nil {
		return err
	}

	engineLog := a.logger.WithField("component", "tools.engine")
	recorders := tools.MultiRecorder{tools.NewLogRecorder(engineLog)}
	if a.showStats {
		a.stats = telemetry.NewStatsCollector()
		rec, err := telemetry.NewRecorder(telemetry.WithMeterProvider(a.stats.MeterProvider()))
		if err != nil {
			return err
		}
		recorders = append(recorders, rec)
	}

	opts := append(cfg.EngineOptions(), tools.WithLogger(engineLog), tools.WithRecorder(recorders))
	a.engine = tools.NewEngine(a.registry, opts...)
	a.logger.WithFields(logrus.Fields{
		"tools":   a.registry.Count(),
		"env":     cfg.Env,
		"timeout": cfg.Timeout,
	}).Debug("toolctl initialized")
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.stats == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	snapshot, err := a.stats.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, s := range snapshot {
		a.logger.WithFields(logrus.Fields{
			"tool":       s.Tool,
			"executions": s.Executions,
			"by_status":  s.ByStatus,
			"total_ms":   s.TotalMs,
		}).Info("tool stats")
	}
	return a.stats.Shutdown(ctx)
}

// writeJSON prints v as indented JSON.
func (a *app) writeJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
