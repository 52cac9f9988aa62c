package qlearning

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snake-rl/game/types"

	"github.com/pkg/errors"
)

func newTestAgent(t *testing.T, mutate func(*Config)) *Agent {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	agent, err := NewAgent(NewValueTable(8, 4), cfg)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return agent
}

func TestUpdateBootstraps(t *testing.T) {
	agent := newTestAgent(t, func(c *Config) { c.Alpha, c.Gamma = 0.1, 0.9 })
	table := agent.Table()
	table.Set(3, 0, 5)
	table.Set(3, 2, -1)

	agent.Update(1, types.Right, 100, 3, false)
	if got := table.Get(1, int(types.Right)); math.Abs(got-10.45) > 1e-9 {
		t.Fatalf("expected 10.45, got %v", got)
	}
}

func TestUpdateTerminalIgnoresNext(t *testing.T) {
	agent := newTestAgent(t, nil)
	table := agent.Table()
	table.Set(3, 0, 1000)
	table.Set(1, int(types.Up), 20)

	agent.Update(1, types.Up, -75, 3, true)
	want := 0.9*20 + 0.1*-75
	if got := table.Get(1, int(types.Up)); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGreedyTieBreaksToFirst(t *testing.T) {
	agent := newTestAgent(t, func(c *Config) { c.Epsilon, c.EpsilonMin = 0, 0 })
	if got := agent.ChooseAction(0, nil); got != types.Up {
		t.Fatalf("expected UP on an all-zero row, got %v", got)
	}

	agent.Table().Set(2, int(types.Left), 3)
	agent.Table().Set(2, int(types.Right), 3)
	if got := agent.ChooseAction(2, nil); got != types.Left {
		t.Fatalf("expected the first of the tied actions, got %v", got)
	}
}

func TestEpsilonDecaysToFloor(t *testing.T) {
	agent := newTestAgent(t, func(c *Config) {
		c.Epsilon, c.EpsilonMin, c.EpsilonDecay = 1, 0.05, 0.5
	})

	agent.ChooseAction(0, nil)
	if agent.Epsilon() != 0.5 {
		t.Fatalf("expected 0.5 after one decay, got %v", agent.Epsilon())
	}
	for i := 0; i < 20; i++ {
		agent.ChooseAction(0, nil)
	}
	if agent.Epsilon() != 0.05 {
		t.Fatalf("expected the floor 0.05, got %v", agent.Epsilon())
	}

	agent.Greedy()
	agent.ChooseAction(0, nil)
	if agent.Epsilon() != 0 {
		t.Fatalf("expected greedy epsilon 0, got %v", agent.Epsilon())
	}
}

func TestExplorationStaysInAllowed(t *testing.T) {
	agent := newTestAgent(t, func(c *Config) { c.Epsilon, c.EpsilonMin, c.EpsilonDecay = 1, 1, 1 })
	allowed := []types.Direction{types.Down, types.Right}
	seen := map[types.Direction]int{}

	for i := 0; i < 1000; i++ {
		a := agent.ChooseAction(0, allowed)
		if a != types.Down && a != types.Right {
			t.Fatalf("action %v not allowed", a)
		}
		seen[a]++
	}
	if seen[types.Down] == 0 || seen[types.Right] == 0 {
		t.Fatalf("expected both actions to be explored, got %v", seen)
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Alpha = 0 },
		func(c *Config) { c.Gamma = 1.5 },
		func(c *Config) { c.Epsilon = -0.1 },
		func(c *Config) { c.EpsilonDecay = 0 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := NewAgent(NewValueTable(8, 4), cfg); err == nil {
			t.Errorf("case %d: expected an error", i)
		}
	}
	if _, err := NewAgent(NewValueTable(8, 3), DefaultConfig()); err == nil {
		t.Errorf("expected an error for a 3 action table")
	}
}

func TestTableSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables", "qtable.txt")
	table := NewValueTable(32, 4)
	table.Set(0, 0, 10.5)
	table.Set(31, 3, -75)
	table.Set(7, 1, 1e-12)

	if err := table.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 32 {
		t.Fatalf("expected 32 lines, got %d", len(lines))
	}
	if fields := strings.Fields(lines[0]); len(fields) != 4 || fields[0] != "1.050000000000000000e+01" {
		t.Fatalf("unexpected first line %q", lines[0])
	}

	loaded, err := LoadValueTable(path, 32, 4)
	if err != nil {
		t.Fatalf("LoadValueTable: %v", err)
	}
	if !loaded.Equal(table) {
		t.Fatalf("loaded table differs from the saved one")
	}
}

func TestLoadFallsBackToZero(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content *string
	}{
		{"missing", nil},
		{"garbage", ptr("not a number at all\n")},
		{"wrong rows", ptr("0 0 0 0\n1 1 1 1\n")},
		{"wrong columns", ptr(strings.Repeat("0 0 0\n", 8))},
		{"empty", ptr("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".txt")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0644); err != nil {
					t.Fatalf("WriteFile: %v", err)
				}
			}

			table, err := LoadValueTable(path, 8, 4)
			if err != nil {
				t.Fatalf("LoadValueTable: %v", err)
			}
			if table.States() != 8 || table.Actions() != 4 {
				t.Fatalf("expected an 8x4 table, got %dx%d", table.States(), table.Actions())
			}
			if !table.Equal(NewValueTable(8, 4)) {
				t.Fatalf("expected a zero table")
			}
		})
	}
}

func TestReadValueTableErrors(t *testing.T) {
	_, err := ReadValueTable(strings.NewReader("1 2 x 4\n"), 1, 4)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	_, err = ReadValueTable(strings.NewReader("1 2 3 4\n1 2 3 4\n"), 1, 4)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestWriteToLayout(t *testing.T) {
	table := NewValueTable(2, 4)
	table.Set(1, 2, -0.5)

	var buf bytes.Buffer
	if _, err := table.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := "0.000000000000000000e+00 0.000000000000000000e+00 0.000000000000000000e+00 0.000000000000000000e+00\n" +
		"0.000000000000000000e+00 0.000000000000000000e+00 -5.000000000000000000e-01 0.000000000000000000e+00\n"
	if buf.String() != want {
		t.Fatalf("unexpected layout:\n%s", buf.String())
	}
}

func TestTableBoundsPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an out of range state")
		}
	}()
	NewValueTable(8, 4).Get(8, 0)
}

func TestAgentStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.json")
	agent := newTestAgent(t, func(c *Config) { c.Epsilon, c.EpsilonDecay = 0.5, 0.5 })
	agent.ChooseAction(0, nil)
	agent.IncrementEpisode()
	if err := agent.SaveState(path); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	other := newTestAgent(t, nil)
	if err := other.LoadState(path); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if other.Epsilon() != 0.25 || other.TrainingEpisode != 1 {
		t.Fatalf("unexpected restored state: epsilon=%v episode=%d", other.Epsilon(), other.TrainingEpisode)
	}
	if err := other.LoadState(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("a missing state file is not an error: %v", err)
	}
}

func ptr(s string) *string { return &s }
