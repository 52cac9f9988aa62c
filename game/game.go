package game

import (
	"snake-rl/game/entity"
	"snake-rl/game/manager"
	"snake-rl/game/types"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

var (
	// ErrInvalidAction is returned by Step for an action outside the four directions.
	ErrInvalidAction = errors.New("invalid action")
	// ErrGameOver is returned by Step after the episode reached a terminal state.
	ErrGameOver = errors.New("game is over, call Reset")
)

const (
	// ScorePerFood is added to the score each time the snake eats.
	ScorePerFood = 10
)

// DefaultStartBody is the head-first body every episode starts from.
var DefaultStartBody = []types.Point{{X: 50, Y: 50}, {X: 60, Y: 50}, {X: 70, Y: 50}}

// Config holds the environment parameters.
type Config struct {
	Width    int
	Height   int
	CellSize int

	// Grow keeps the tail when food is eaten.
	Grow bool

	FoodReward    float64
	DeathReward   float64
	ShapingReward float64
	// BorderPenalty is subtracted from the shaping reward when the head lands on a border cell.
	BorderPenalty float64

	StartBody      []types.Point
	StartDirection types.Direction

	ResetPlacement   manager.Placement
	RespawnPlacement manager.Placement

	Seed uint64
}

// DefaultConfig returns the 150x150 environment with a 10 pixel cell.
func DefaultConfig() Config {
	return Config{
		Width:            150,
		Height:           150,
		CellSize:         10,
		Grow:             true,
		FoodReward:       100,
		DeathReward:      -75,
		ShapingReward:    15,
		BorderPenalty:    0,
		StartBody:        DefaultStartBody,
		StartDirection:   types.Right,
		ResetPlacement:   manager.BorderBiased{Probability: 0.25},
		RespawnPlacement: manager.Uniform{},
		Seed:             1,
	}
}

// Validate checks the geometry and the collaborators of the configuration.
func (c Config) Validate() error {
	if c.CellSize <= 0 {
		return errors.Errorf("cell size must be positive, got %d", c.CellSize)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("grid must have a positive size, got %dx%d", c.Width, c.Height)
	}
	if c.Width%c.CellSize != 0 || c.Height%c.CellSize != 0 {
		return errors.Errorf("grid %dx%d is not a multiple of the cell size %d", c.Width, c.Height, c.CellSize)
	}
	if len(c.StartBody) == 0 {
		return errors.New("start body is empty")
	}
	if !c.StartDirection.Valid() {
		return errors.Errorf("invalid start direction %v", c.StartDirection)
	}

	grid := c.grid()
	for _, p := range c.StartBody {
		if !grid.Contains(p) || p.X%c.CellSize != 0 || p.Y%c.CellSize != 0 {
			return errors.Errorf("start cell %v is not a cell of the %dx%d grid", p, c.Width, c.Height)
		}
	}
	if grid.Cells() <= len(c.StartBody) {
		return errors.Errorf("grid has no room for food next to a %d cell snake", len(c.StartBody))
	}
	if c.ResetPlacement == nil || c.RespawnPlacement == nil {
		return errors.New("food placement strategies must be set")
	}
	return nil
}

func (c Config) grid() types.Grid {
	return types.Grid{Width: c.Width, Height: c.Height, CellSize: c.CellSize}
}

// Game is a single-snake grid environment. It is not safe for concurrent use.
type Game struct {
	Grid types.Grid

	config       Config
	snake        *entity.Snake
	food         types.Point
	score        int
	done         bool
	won          bool
	collisionMgr *manager.CollisionManager
	foodMgr      *manager.FoodManager
	stateMgr     *manager.StateManager
}

// NewGame validates cfg and returns a game already reset.
func NewGame(cfg Config) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid game config")
	}

	grid := cfg.grid()
	rng := rand.New(rand.NewSource(cfg.Seed))
	collisionMgr := manager.NewCollisionManager(grid)

	g := &Game{
		Grid:         grid,
		config:       cfg,
		collisionMgr: collisionMgr,
		foodMgr:      manager.NewFoodManager(grid, rng, collisionMgr),
		stateMgr:     manager.NewStateManager(grid, collisionMgr),
	}
	g.Reset()
	return g, nil
}

// Reset starts a new episode and returns its first observation.
func (g *Game) Reset() types.Observation {
	g.snake = entity.NewSnake(g.config.StartBody, g.config.StartDirection)
	g.score = 0
	g.done = false
	g.won = false

	food, err := g.foodMgr.GenerateFood(g.snake, g.config.ResetPlacement)
	if err != nil {
		// Validate guarantees at least one free cell around the start body.
		panic(err)
	}
	g.food = food

	return g.stateMgr.Observe(g.snake, g.food)
}

// Step applies one action and returns the next observation, the reward and
// whether the episode ended.
func (g *Game) Step(action types.Direction) (types.Observation, float64, bool, error) {
	if g.done {
		return types.Observation{}, 0, true, ErrGameOver
	}
	if !action.Valid() {
		return types.Observation{}, 0, false, errors.Wrapf(ErrInvalidAction, "action %d", int(action))
	}

	oldDistance := types.ManhattanDistance(g.snake.GetHead(), g.food)

	// Move: a reversal keeps the current heading.
	g.snake.SetDirection(action)
	newHead := g.snake.NextHead(g.Grid.CellSize)
	g.snake.Move(newHead)

	ate := g.collisionMgr.IsFoodCollision(newHead, g.food)
	if ate {
		g.score += ScorePerFood
		if !g.config.Grow {
			g.snake.RemoveTail()
		}
	} else {
		g.snake.RemoveTail()
	}

	terminal := g.collisionMgr.CheckCollision(g.snake)

	// Reward
	var reward float64
	switch {
	case ate:
		reward = g.config.FoodReward
	case terminal:
		reward = g.config.DeathReward
	default:
		if types.ManhattanDistance(newHead, g.food) < oldDistance {
			reward = g.config.ShapingReward
		} else {
			reward = -g.config.ShapingReward
		}
		if g.config.BorderPenalty != 0 && g.Grid.OnBorder(newHead) {
			reward -= g.config.BorderPenalty
		}
	}

	if ate {
		food, err := g.foodMgr.GenerateFood(g.snake, g.config.RespawnPlacement)
		switch {
		case errors.Is(err, manager.ErrBoardFull):
			// Nothing left to eat: the snake fills the board.
			g.won = true
			terminal = true
		case err != nil:
			return types.Observation{}, 0, false, errors.Wrap(err, "respawn food")
		default:
			g.food = food
		}
	}

	if terminal {
		g.done = true
	}

	return g.stateMgr.Observe(g.snake, g.food), reward, terminal, nil
}

// Snake returns a copy of the body, head first.
func (g *Game) Snake() []types.Point {
	return g.snake.Cells()
}

// Food returns the current food cell.
func (g *Game) Food() types.Point {
	return g.food
}

// Heading returns the current direction of travel.
func (g *Game) Heading() types.Direction {
	return g.snake.Direction
}

// Score returns ScorePerFood times the food eaten this episode.
func (g *Game) Score() int {
	return g.score
}

// Length returns the number of body cells.
func (g *Game) Length() int {
	return g.snake.Len()
}


// Done reports whether the episode reached a terminal state.
func (g *Game) Done() bool {
	return g.done
}

// Won reports whether the episode ended because the board was full.
func (g *Game) Won() bool {
	return g.won
}



