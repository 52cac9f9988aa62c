package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snake-rl/ai"
	"snake-rl/game/manager"
	"snake-rl/qlearning"
	"snake-rl/training"
)

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return len(strings.Split(strings.TrimSpace(string(data)), "\n"))
}

func smallBoard(dir string, extra ...string) []string {
	args := []string{
		"-width", "100", "-height", "100",
		"-max-steps", "50",
		"-log-every", "0",
		"-table", filepath.Join(dir, "q.txt"),
	}
	return append(args, extra...)
}

func TestParseConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"episodes": 7, "scheme": "2of4", "agent": {"alpha": 0.5}, "game": {"respawn_border_bias": 0.5}}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if err := parseConfig(fs, []string{"-config", path, "-episodes", "3"}, &cfg); err != nil {
		t.Fatalf("parseConfig: %v", err)
	}

	if cfg.Episodes != 3 {
		t.Errorf("episodes = %d, the flag should win over the file", cfg.Episodes)
	}
	if cfg.Scheme != ai.TwoOfFour {
		t.Errorf("scheme = %q, want it from the file", cfg.Scheme)
	}
	if cfg.Agent.Alpha != 0.5 || cfg.Agent.Gamma != 0.9 {
		t.Errorf("agent = %+v, want alpha from the file and default gamma", cfg.Agent)
	}
	if _, ok := cfg.GameConfigFor(0).RespawnPlacement.(manager.BorderBiased); !ok {
		t.Errorf("respawn placement should be border biased")
	}
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	tests := [][]string{
		{"-scheme", "5of4"},
		{"-episodes", "0"},
		{"-alpha", "2"},
		{"-width", "105"},
		{"-workers", "0"},
		{"-reset-border-bias", "1.5"},
	}
	for _, args := range tests {
		cfg := DefaultConfig()
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(new(bytes.Buffer))
		if err := parseConfig(fs, args, &cfg); err == nil {
			t.Errorf("parseConfig(%v) should fail", args)
		}
	}
}

func TestWorkerSeedsDiffer(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GameConfigFor(0).Seed == cfg.GameConfigFor(1).Seed {
		t.Error("workers should get different food seeds")
	}
	if cfg.AgentConfigFor(0).Seed == cfg.AgentConfigFor(1).Seed {
		t.Error("workers should get different exploration seeds")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), nil, &out); err == nil {
		t.Fatal("missing command should fail")
	}
	err := run(context.Background(), []string{"fly"}, &out)
	if err == nil || !strings.Contains(err.Error(), "unknown command: fly") {
		t.Fatalf("err = %v", err)
	}
}

func TestTrainEvalPolicyPlot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	var out bytes.Buffer

	trainArgs := smallBoard(dir,
		"-episodes", "3",
		"-metrics-path", filepath.Join(dir, "train.tsv"),
		"-hyperparams-path", filepath.Join(dir, "hp.tsv"),
	)
	if err := run(ctx, append([]string{"train"}, trainArgs...), &out); err != nil {
		t.Fatalf("train: %v", err)
	}
	for _, name := range []string{"q.txt", "q.txt.state.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("train should write %s: %v", name, err)
		}
	}
	if n := countLines(t, filepath.Join(dir, "train.tsv")); n != 3 {
		t.Errorf("train metrics have %d lines, want 3", n)
	}
	if n := countLines(t, filepath.Join(dir, "hp.tsv")); n != 3 {
		t.Errorf("hyperparameter log has %d lines, want 3", n)
	}

	before, err := os.ReadFile(filepath.Join(dir, "q.txt"))
	if err != nil {
		t.Fatal(err)
	}
	evalArgs := smallBoard(dir, "-episodes", "2", "-metrics-path", filepath.Join(dir, "eval.tsv"))
	if err := run(ctx, append([]string{"eval"}, evalArgs...), &out); err != nil {
		t.Fatalf("eval: %v", err)
	}
	after, err := os.ReadFile(filepath.Join(dir, "q.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("eval must not modify the table")
	}
	data, err := os.ReadFile(filepath.Join(dir, "eval.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if got := len(strings.Split(line, "\t")); got != 3 {
			t.Errorf("eval line %q has %d fields, want 3", line, got)
		}
	}

	out.Reset()
	if err := run(ctx, []string{"policy", "-no-color", "-all", "-table", filepath.Join(dir, "q.txt")}, &out); err != nil {
		t.Fatalf("policy: %v", err)
	}
	if !strings.Contains(out.String(), "policy "+filepath.Join(dir, "q.txt")+": 320 states") {
		t.Errorf("policy output missing summary:\n%s", out.String())
	}

	html := filepath.Join(dir, "plot.html")
	args := []string{"plot", "-metrics-path", filepath.Join(dir, "train.tsv"), "-group", "2", "-out", html}
	if err := run(ctx, args, &out); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if info, err := os.Stat(html); err != nil || info.Size() == 0 {
		t.Errorf("plot should write a non-empty page: %v", err)
	}
}

func savedEpsilon(t *testing.T, tablePath string) float64 {
	t.Helper()
	data, err := os.ReadFile(training.StatePath(tablePath))
	if err != nil {
		t.Fatalf("read agent state: %v", err)
	}
	var state qlearning.AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("parse agent state: %v", err)
	}
	return state.Epsilon
}

func TestTrainEpsilonIsExplicit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	table := filepath.Join(dir, "q.txt")
	var out bytes.Buffer

	train := func(extra ...string) {
		t.Helper()
		args := append([]string{"train"}, smallBoard(dir, "-metrics", "none", "-episodes", "2")...)
		if err := run(ctx, append(args, extra...), &out); err != nil {
			t.Fatalf("train %v: %v", extra, err)
		}
	}

	train("-epsilon", "0.9", "-epsilon-decay", "0.5")
	if got := savedEpsilon(t, table); got >= 0.9 {
		t.Fatalf("expected a decayed epsilon after the first run, got %v", got)
	}

	// A new run starts from the configured rate, not the saved one.
	train("-epsilon", "0.8", "-epsilon-decay", "1")
	if got := savedEpsilon(t, table); got != 0.8 {
		t.Fatalf("expected epsilon 0.8, got %v", got)
	}

	// Resuming picks up the saved rate even though -epsilon defaults to 0.1.
	train("-resume", "-epsilon-decay", "1")
	if got := savedEpsilon(t, table); got != 0.8 {
		t.Fatalf("expected the resumed epsilon 0.8, got %v", got)
	}
}

func TestTrainWorkersUseOwnFiles(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	args := smallBoard(dir,
		"-episodes", "2",
		"-workers", "2",
		"-metrics", "sqlite",
		"-metrics-path", filepath.Join(dir, "metrics.db"),
	)
	if err := run(context.Background(), append([]string{"train"}, args...), &out); err != nil {
		t.Fatalf("train: %v", err)
	}
	for _, name := range []string{"q.worker0.txt", "q.worker1.txt", "metrics.worker0.db", "metrics.worker1.db"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRunSchemes(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"schemes"}, &out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], ai.FoodOnly) {
		t.Errorf("schemes output:\n%s", out.String())
	}
}
