package game

import (
	"testing"

	"snake-rl/game/manager"
	"snake-rl/game/types"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

func newTestGame(t *testing.T, mutate func(*Config)) *Game {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := NewGame(cfg)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return g
}

func TestResetStartsFromFixedBody(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.ResetPlacement = &manager.Fixed{Cells: []types.Point{{X: 50, Y: 30}}}
	})

	obs := g.Reset()
	body := g.Snake()
	want := []types.Point{{X: 50, Y: 50}, {X: 60, Y: 50}, {X: 70, Y: 50}}
	if len(body) != len(want) {
		t.Fatalf("expected %d cells, got %d", len(want), len(body))
	}
	for i := range want {
		if body[i] != want[i] {
			t.Fatalf("cell %d: expected %v, got %v", i, want[i], body[i])
		}
	}
	if g.Heading() != types.Right {
		t.Fatalf("expected heading RIGHT, got %v", g.Heading())
	}
	if g.Score() != 0 {
		t.Fatalf("expected score 0, got %d", g.Score())
	}
	if obs.Food != types.FoodUp {
		t.Fatalf("expected food UP, got %v", obs.Food)
	}
	wantDanger := [4]bool{false, false, true, true}
	if obs.Danger != wantDanger {
		t.Fatalf("expected dangers %v, got %v", wantDanger, obs.Danger)
	}
	if obs.Forced() != types.Left {
		t.Fatalf("expected forced LEFT, got %v", obs.Forced())
	}
}

// The initial heading points into the body, so moving on runs into it.
func TestFirstStepRightHitsBody(t *testing.T) {
	g := newTestGame(t, nil)
	g.Reset()

	_, reward, terminal, err := g.Step(types.Right)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !terminal {
		t.Fatalf("expected a terminal step")
	}
	if reward != -75 {
		t.Fatalf("expected reward -75, got %v", reward)
	}
}

func TestReversalIsIgnored(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.StartBody = []types.Point{{X: 70, Y: 50}, {X: 60, Y: 50}, {X: 50, Y: 50}}
		c.ResetPlacement = &manager.Fixed{Cells: []types.Point{{X: 140, Y: 140}}}
	})
	g.Reset()

	_, _, terminal, err := g.Step(types.Left)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if terminal {
		t.Fatalf("reversal must not kill the snake")
	}
	if g.Heading() != types.Right {
		t.Fatalf("expected heading RIGHT, got %v", g.Heading())
	}
	if head := g.Snake()[0]; head != (types.Point{X: 80, Y: 50}) {
		t.Fatalf("expected head (80,50), got %v", head)
	}
}

// Scenario on the default 150x150 board with a scripted food position.
func TestEatFoodScenario(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.ResetPlacement = &manager.Fixed{Cells: []types.Point{{X: 50, Y: 30}}}
		c.RespawnPlacement = &manager.Fixed{Cells: []types.Point{{X: 140, Y: 140}}}
	})
	g.Reset()

	obs, reward, terminal, err := g.Step(types.Up)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if terminal || reward != 15 {
		t.Fatalf("expected shaping reward 15, got %v (terminal=%v)", reward, terminal)
	}
	if obs.Food != types.FoodUp {
		t.Fatalf("expected food UP, got %v", obs.Food)
	}

	obs, reward, terminal, err = g.Step(types.Up)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if terminal || reward != 100 {
		t.Fatalf("expected food reward 100, got %v (terminal=%v)", reward, terminal)
	}
	if g.Score() != ScorePerFood {
		t.Fatalf("expected score %d, got %d", ScorePerFood, g.Score())
	}
	if g.Length() != 4 {
		t.Fatalf("expected length 4 after eating, got %d", g.Length())
	}
	if g.Food() != (types.Point{X: 140, Y: 140}) {
		t.Fatalf("expected respawned food at (140,140), got %v", g.Food())
	}
	if obs.Food != types.FoodRightDown {
		t.Fatalf("expected food RIGHT-DOWN, got %v", obs.Food)
	}

	// Moving away from the food is penalised.
	_, reward, _, err = g.Step(types.Up)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if reward != -15 {
		t.Fatalf("expected reward -15, got %v", reward)
	}
}

func TestNoGrowthKeepsLength(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.Grow = false
		c.ResetPlacement = &manager.Fixed{Cells: []types.Point{{X: 50, Y: 40}}}
	})
	g.Reset()

	_, reward, _, err := g.Step(types.Up)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if reward != 100 {
		t.Fatalf("expected food reward, got %v", reward)
	}
	if g.Length() != 3 {
		t.Fatalf("expected length 3 with growth disabled, got %d", g.Length())
	}
}

func TestWallIsTerminal(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.StartBody = []types.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}}
		c.StartDirection = types.Left
		c.ResetPlacement = &manager.Fixed{Cells: []types.Point{{X: 140, Y: 140}}}
	})
	obs := g.Reset()
	if !obs.Danger[types.Left] || !obs.Danger[types.Up] || !obs.Danger[types.Right] {
		t.Fatalf("expected LEFT, UP and RIGHT dangerous in the corner, got %v", obs.Danger)
	}
	if obs.Danger[types.Down] {
		t.Fatalf("expected DOWN to be free")
	}

	_, reward, terminal, err := g.Step(types.Left)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !terminal || reward != -75 {
		t.Fatalf("expected terminal -75, got %v (terminal=%v)", reward, terminal)
	}

	if _, _, _, err := g.Step(types.Down); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if !g.Done() || g.Won() {
		t.Fatalf("expected a lost game, got done=%v won=%v", g.Done(), g.Won())
	}
}

func TestBorderPenalty(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.BorderPenalty = 20
		c.StartBody = []types.Point{{X: 50, Y: 10}, {X: 60, Y: 10}, {X: 70, Y: 10}}
		c.ResetPlacement = &manager.Fixed{Cells: []types.Point{{X: 140, Y: 140}}}
	})
	g.Reset()

	_, reward, terminal, err := g.Step(types.Up)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if terminal {
		t.Fatalf("(50,0) is inside the grid")
	}
	if reward != -35 {
		t.Fatalf("expected -15 shaping and -20 border penalty, got %v", reward)
	}
}

func TestInvalidAction(t *testing.T) {
	g := newTestGame(t, nil)
	for _, a := range []types.Direction{types.NoDirection, 4, 17} {
		if _, _, _, err := g.Step(a); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("action %d: expected ErrInvalidAction, got %v", a, err)
		}
	}
}

func TestFullBoardEndsEpisode(t *testing.T) {
	g := newTestGame(t, func(c *Config) {
		c.Width = 40
		c.Height = 10
		c.StartBody = []types.Point{{X: 20, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	})
	if g.Food() != (types.Point{X: 30, Y: 0}) {
		t.Fatalf("expected the only free cell (30,0), got %v", g.Food())
	}

	_, reward, terminal, err := g.Step(types.Right)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !terminal || !g.Won() {
		t.Fatalf("expected a won terminal state")
	}
	if reward != 100 {
		t.Fatalf("expected food reward, got %v", reward)
	}
}

// Over random play the food never overlaps the body, the body grows only on
// food and terminal states are exactly wall or body hits.
func TestRandomPlayInvariants(t *testing.T) {
	g := newTestGame(t, func(c *Config) { c.Seed = 42 })
	rng := rand.New(rand.NewSource(7))

	g.Reset()
	for i := 0; i < 5000; i++ {
		before := g.Length()
		action := types.Directions[rng.Intn(types.NumDirections)]

		_, reward, terminal, err := g.Step(action)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}

		body := g.Snake()
		head := body[0]
		switch {
		case reward == 100:
			if g.Length() != before+1 {
				t.Fatalf("step %d: expected growth after eating", i)
			}
		default:
			if g.Length() != before {
				t.Fatalf("step %d: length changed without food", i)
			}
		}

		hit := !g.Grid.Contains(head)
		for _, p := range body[1:] {
			if p == head {
				hit = true
			}
		}
		if terminal != (hit || g.Won()) {
			t.Fatalf("step %d: terminal=%v but collision=%v", i, terminal, hit)
		}

		if terminal {
			g.Reset()
			continue
		}
		for _, p := range body {
			if p == g.Food() {
				t.Fatalf("step %d: food %v on the body", i, g.Food())
			}
		}
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cell", func(c *Config) { c.CellSize = 0 }},
		{"not a multiple", func(c *Config) { c.Width = 155 }},
		{"negative height", func(c *Config) { c.Height = -10 }},
		{"start off grid", func(c *Config) { c.Width = 60 }},
		{"no placement", func(c *Config) { c.RespawnPlacement = nil }},
		{"bad heading", func(c *Config) { c.StartDirection = types.NoDirection }},
		{"no room", func(c *Config) {
			c.Width, c.Height = 30, 10
			c.StartBody = []types.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := NewGame(cfg); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
