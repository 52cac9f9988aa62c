package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"snake-rl/ai"
	"snake-rl/game"
	"snake-rl/game/types"
	"snake-rl/qlearning"
	"snake-rl/stats"
	"snake-rl/training"
	"snake-rl/ui"

	"github.com/google/uuid"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
)

func runTrain(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	cfg := DefaultConfig()
	if err := parseConfig(fs, args, &cfg); err != nil {
		return err
	}
	return runPool(ctx, cfg, stats.Train, out)
}

func runEval(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	cfg := DefaultConfig()
	cfg.Episodes = 100
	cfg.Metrics.Path = "data/eval.tsv"
	if err := parseConfig(fs, args, &cfg); err != nil {
		return err
	}
	// Evaluation never explores, so a hyperparameter trace says nothing.
	cfg.Metrics.HyperparamsPath = ""
	return runPool(ctx, cfg, stats.Eval, out)
}

// runPool plays cfg.Workers independent learners, each on its own table,
// metrics file and seed.
func runPool(ctx context.Context, cfg Config, mode stats.Mode, out io.Writer) error {
	scheme, err := ai.Lookup(cfg.Scheme)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	var sinks stats.MultiSink
	defer func() {
		if err := sinks.Close(); err != nil {
			fmt.Fprintln(os.Stderr, aurora.Yellow("closing metrics: "+err.Error()))
		}
	}()

	pool, err := training.NewPool(cfg.Workers, func(i int) (*training.Runner, error) {
		sink, err := openSink(ctx, cfg.Metrics, i, cfg.Workers)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
		return newRunner(cfg, scheme, mode, workerRunID(runID, i, cfg.Workers), i, training.WithSink(sink))
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %d episodes, scheme %s (%d states), %d worker(s)\n",
		aurora.Bold(string(mode)), cfg.Episodes, scheme.Name(), scheme.Size(), pool.Size())

	summaries, err := pool.Run(ctx)
	for i, s := range summaries {
		if s.RunID == "" {
			continue
		}
		printSummary(out, s, training.WorkerPath(cfg.TablePath, i, cfg.Workers))
	}
	return err
}

func runWatch(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	scale := fs.Int("scale", 4, "screen pixels per board pixel")
	fps := fs.Int("fps", 30, "frames per second")
	cfg := DefaultConfig()
	cfg.Episodes = 10
	cfg.Metrics.Backend = "none"
	if err := parseConfig(fs, args, &cfg); err != nil {
		return err
	}
	if *scale <= 0 || *fps <= 0 {
		return errors.New("scale and fps must be positive")
	}
	cfg.Workers = 1

	scheme, err := ai.Lookup(cfg.Scheme)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	grid := types.Grid{Width: cfg.Game.Width, Height: cfg.Game.Height, CellSize: cfg.Game.CellSize}
	renderer := ui.Open(grid, *scale, *fps, cancel)
	defer renderer.Close()

	sink, err := openSink(ctx, cfg.Metrics, 0, 1)
	if err != nil {
		return err
	}
	defer sink.Close()

	runner, err := newRunner(cfg, scheme, stats.Eval, "", 0,
		training.WithObserver(renderer),
		training.WithSink(stats.MultiSink{sink, renderer}),
	)
	if err != nil {
		return err
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	printSummary(out, summary, cfg.TablePath)
	return nil
}

func runPolicy(_ context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("policy", flag.ContinueOnError)
	all := fs.Bool("all", false, "also list states that were never updated")
	noColor := fs.Bool("no-color", false, "disable colored output")
	cfg := DefaultConfig()
	if err := parseConfig(fs, args, &cfg); err != nil {
		return err
	}

	scheme, err := ai.Lookup(cfg.Scheme)
	if err != nil {
		return err
	}
	table, err := qlearning.LoadValueTable(cfg.TablePath, scheme.Size(), types.NumDirections)
	if err != nil {
		return err
	}
	entries, err := ai.DescribePolicy(scheme, table)
	if err != nil {
		return err
	}

	au := aurora.NewAurora(!*noColor)
	visited, blocked := 0, 0
	for _, e := range entries {
		if e.Visited {
			visited++
		}
		if !e.Visited && !*all {
			continue
		}

		best := make([]string, len(e.Best))
		for i, d := range e.Best {
			best[i] = d.String()
		}
		action := au.Green(strings.Join(best, "/"))
		if !e.Visited {
			action = au.Yellow("unvisited")
		}
		fmt.Fprintf(out, "%4d  %-36s  %s  %s\n", e.Index, e.State, formatValues(e.Values), action)

		if e.Blocked && e.Visited {
			blocked++
			fmt.Fprintf(out, "      %s\n", au.Red("action is blocked"))
		}
	}

	fmt.Fprintf(out, "%s %s: %d states, %d visited, %d blocked\n",
		au.Bold("policy"), cfg.TablePath, len(entries), visited, blocked)
	return nil
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%9.3f", v)
	}
	return strings.Join(parts, " ")
}

func runPlot(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	backend := fs.String("metrics", "tsv", "metrics backend: tsv or sqlite")
	path := fs.String("metrics-path", "data/metrics.tsv", "metrics file or database")
	runID := fs.String("run", "", "run id to plot, empty for every run (sqlite only)")
	mode := fs.String("mode", string(stats.Train), "episodes to plot: train or eval (sqlite only)")
	size := fs.Int("group", stats.GroupSize, "episodes averaged into one point")
	outPath := fs.String("out", "data/plot.html", "HTML output file")
	title := fs.String("title", "Snake Q-learning", "chart title")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var records []stats.EpisodeRecord
	switch *backend {
	case "tsv":
		recs, err := stats.ReadTSVFile(*path)
		if err != nil {
			return err
		}
		records = recs
	case "sqlite":
		store := stats.NewSQLiteSink(*path)
		if err := store.Init(ctx); err != nil {
			return err
		}
		defer store.Close()
		recs, err := store.Episodes(ctx, *runID, stats.Mode(*mode))
		if err != nil {
			return err
		}
		records = recs
	default:
		return errors.Errorf("unsupported metrics backend: %s", *backend)
	}
	if len(records) == 0 {
		return errors.Errorf("no episodes found in %s", *path)
	}

	groups := stats.Group(records, *size)
	if err := os.MkdirAll(filepath.Dir(*outPath), 0755); err != nil {
		return errors.Wrap(err, "create plot directory")
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return errors.Wrap(err, "create plot file")
	}
	if err := stats.Plot(f, *title, groups); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close plot file")
	}

	fmt.Fprintf(out, "%s %d episodes in %d groups to %s\n", aurora.Bold("plotted"), len(records), len(groups), *outPath)
	return nil
}

func runSchemes(_ context.Context, _ []string, out io.Writer) error {
	for _, name := range ai.Schemes() {
		s, err := ai.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-10s %4d states\n", s.Name(), s.Size())
	}
	return nil
}

// newRunner wires a game, a value table and an agent for one worker. In
// training mode the table is saved back after every episode; the saved
// exploration rate is only picked up again when cfg.Resume is set.
func newRunner(cfg Config, scheme ai.Scheme, mode stats.Mode, runID string, worker int, opts ...training.Option) (*training.Runner, error) {
	env, err := game.NewGame(cfg.GameConfigFor(worker))
	if err != nil {
		return nil, err
	}

	tablePath := training.WorkerPath(cfg.TablePath, worker, cfg.Workers)
	table, err := qlearning.LoadValueTable(tablePath, scheme.Size(), types.NumDirections)
	if err != nil {
		return nil, err
	}
	agent, err := qlearning.NewAgent(table, cfg.AgentConfigFor(worker))
	if err != nil {
		return nil, err
	}

	runCfg := training.Config{
		Mode:     mode,
		Episodes: cfg.Episodes,
		MaxSteps: cfg.MaxSteps,
		RunID:    runID,
		LogEvery: cfg.LogEvery,
	}
	if mode == stats.Train {
		if cfg.Resume {
			if err := agent.LoadState(training.StatePath(tablePath)); err != nil {
				return nil, err
			}
		}
		runCfg.TablePath = tablePath
	}
	return training.NewRunner(env, scheme, agent, runCfg, opts...)
}

// openSink opens the metrics backend of one worker, plus the hyperparameter
// log when one is configured.
func openSink(ctx context.Context, m MetricsConfig, worker, workers int) (stats.Sink, error) {
	sink, err := stats.NewSink(ctx, m.Backend, training.WorkerPath(m.Path, worker, workers))
	if err != nil {
		return nil, err
	}
	if m.HyperparamsPath == "" {
		return sink, nil
	}

	hp, err := stats.NewHyperparamLog(training.WorkerPath(m.HyperparamsPath, worker, workers))
	if err != nil {
		sink.Close()
		return nil, err
	}
	return stats.MultiSink{sink, hp}, nil
}

func workerRunID(runID string, worker, workers int) string {
	if workers <= 1 {
		return runID
	}
	return fmt.Sprintf("%s-%d", runID, worker)
}

func printSummary(out io.Writer, s training.Summary, tablePath string) {
	fmt.Fprintf(out, "%s %s: %d episodes in %s\n",
		aurora.Green(string(s.Mode)), aurora.Cyan(s.RunID), s.Episodes, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  score mean %.2f median %.1f max %d | reward mean %.2f | length mean %.1f max %d\n",
		s.Stats.AverageScore, s.Stats.MedianScore, s.Stats.MaxScore,
		s.Stats.AverageReward, s.Stats.AverageLength, s.Stats.MaxLength)
	if s.Mode == stats.Train && tablePath != "" {
		fmt.Fprintf(out, "  table saved to %s\n", tablePath)
	}
}
