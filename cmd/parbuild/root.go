package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/parbuild/dag"
	"github.com/kbukum/parbuild/logger"
	"github.com/kbukum/parbuild/observability"
	"github.com/kbukum/parbuild/process"
	"github.com/kbukum/parbuild/scheduler"
	"github.com/kbukum/parbuild/validation"
	"github.com/kbukum/parbuild/version"
)

type rootOptions struct {
	configFile  string
	logLevel    string
	graphDirs   []string
	parallelism int
	immediate   bool
	runID       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Run build graphs with bounded parallelism",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to the config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringSliceVarP(&opts.graphDirs, "graph-dir", "d", nil, "Directories searched for graph definitions")

	cmd.AddCommand(
		newRunCmd(opts),
		newPlanCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// setup loads the configuration and applies flag overrides.
func (o *rootOptions) setup() (*Config, error) {
	cfg, err := loadConfig(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if len(o.graphDirs) > 0 {
		cfg.GraphDirs = o.graphDirs
	}
	if o.parallelism > 0 {
		cfg.Scheduler.Parallelism = o.parallelism
	}
	if o.immediate {
		cfg.Scheduler.InterruptPolicy = scheduler.InterruptImmediate
	}
	if o.runID != "" {
		cfg.RunID = o.runID
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Init(&cfg.Logging)
	logger.RegisterDefaults()
	return cfg, nil
}

// resolveGraph loads a graph by name, or from a path ending in .yaml/.yml.
func resolveGraph(cfg *Config, name string) (*dag.Graph, error) {
	loader := dag.NewFileLoader(cfg.GraphDirs...)

	var def *dag.Definition
	var err error
	if ext := filepath.Ext(name); ext == ".yaml" || ext == ".yml" {
		def, err = dag.LoadFile(name)
		loader = dag.NewFileLoader(append([]string{filepath.Dir(name)}, cfg.GraphDirs...)...)
	} else {
		def, err = loader.Load(name)
	}
	if err != nil {
		return nil, err
	}

	runner := process.NewRunner(cfg.Process)
	return dag.Resolve(def, builtinRegistry(), loader, dag.WithCommands(process.NewBuilder(runner)))
}

// builtinRegistry holds the components graph definitions can name with "uses".
func builtinRegistry() *dag.Registry {
	reg := dag.NewRegistry()
	reg.Register("noop", func(context.Context, *dag.Inputs) (dag.Artifact, error) {
		return nil, nil
	})
	return reg
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <graph>",
		Short: "Execute a build graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.setup()
			if err != nil {
				return err
			}
			g, err := resolveGraph(cfg, args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			schedOpts, shutdown, err := telemetry(ctx, cfg)
			if err != nil {
				return err
			}
			defer shutdown()

			s, err := scheduler.New(&cfg.Scheduler, schedOpts...)
			if err != nil {
				return err
			}
			res, err := s.Run(ctx, g)
			if res != nil {
				printSummary(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&opts.parallelism, "parallelism", "j", 0, "Number of workers (default from config, 0 = number of CPUs)")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "Run id (UUID) to use instead of a generated one")
	cmd.Flags().BoolVar(&opts.immediate, "interrupt-immediate", false, "Return on interrupt without waiting for running actions")
	return cmd
}

// telemetry starts the configured exporters and returns the matching
// scheduler options and a shutdown func that flushes them.
func telemetry(ctx context.Context, cfg *Config) ([]scheduler.Option, func(), error) {
	opts := []scheduler.Option{scheduler.WithLogger(logger.Get("scheduler"))}
	if cfg.RunID != "" {
		id, err := validation.ValidateUUID("run_id", cfg.RunID)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, scheduler.WithRunID(id.String()))
	}
	var shutdowns []func(context.Context) error

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, &cfg.Tracing.TracerConfig)
		if err != nil {
			return nil, nil, err
		}
		shutdowns = append(shutdowns, tp.Shutdown)
		opts = append(opts, scheduler.WithTracing())
	}
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, &cfg.Metrics.MeterConfig)
		if err != nil {
			return nil, nil, err
		}
		shutdowns = append(shutdowns, mp.Shutdown)
		metrics, err := observability.NewMetrics(observability.Meter(appName))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, scheduler.WithMetrics(metrics))
	}

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil {
				logger.Get("cli").Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
			}
		}
	}
	return opts, shutdown, nil
}

func printSummary(w io.Writer, res *scheduler.Result) {
	status := "ok"
	if !res.Succeeded() {
		status = "FAILED"
	}
	fmt.Fprintf(w, "%s %s: %d/%d actions done in %s (P=%d, run %s)\n",
		status, res.Graph, res.Count(dag.StatusDone), len(res.Statuses),
		res.Duration.Round(time.Millisecond), res.Parallelism, res.RunID)
	if failed := res.WithStatus(dag.StatusFailed); len(failed) > 0 {
		fmt.Fprintf(w, "failed: %s\n", joinIDs(failed))
	}
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <graph>",
		Short: "Show the actions of a graph grouped into parallel levels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.setup()
			if err != nil {
				return err
			}
			g, err := resolveGraph(cfg, args[0])
			if err != nil {
				return err
			}
			levels, err := g.Levels()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "graph %s: %d actions in %d levels\n", g.Name, g.Len(), len(levels))
			for i, level := range levels {
				fmt.Fprintf(w, "level %d:\n", i)
				for _, id := range level {
					a, _ := g.Action(id)
					line := "  " + string(id)
					if deps := a.Deps(); len(deps) > 0 {
						line += " <- " + joinIDs(deps)
					}
					if a.Description != "" {
						line += "  # " + a.Description
					}
					fmt.Fprintln(w, line)
				}
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}

func joinIDs(ids []dag.ActionID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return strings.Join(s, ", ")
}
