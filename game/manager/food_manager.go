package manager

import (
	"snake-rl/game/entity"
	"snake-rl/game/types"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// ErrBoardFull is returned when the snake covers every cell and no food can be placed.
var ErrBoardFull = errors.New("no free cell left for food")

// maxPlacementTries bounds the retry loop before falling back to an
// explicit scan of the free cells.
const maxPlacementTries = 1000

// Placement proposes a food cell. Proposals may land on the snake; the
// FoodManager retries until one does not.
type Placement interface {
	Place(rng *rand.Rand, grid types.Grid) types.Point
}

// Uniform picks any cell with equal probability.
type Uniform struct{}

func (Uniform) Place(rng *rand.Rand, grid types.Grid) types.Point {
	return randomCell(rng, grid)
}

// BorderBiased picks a border cell with the given probability, otherwise
// any cell uniformly.
type BorderBiased struct {
	Probability float64
}

func (b BorderBiased) Place(rng *rand.Rand, grid types.Grid) types.Point {
	if rng.Float64() >= b.Probability {
		return randomCell(rng, grid)
	}

	lastX := grid.Width - grid.CellSize
	lastY := grid.Height - grid.CellSize
	switch rng.Intn(4) {
	case 0: // top
		return types.Point{X: rng.Intn(grid.Columns()) * grid.CellSize, Y: 0}
	case 1: // bottom
		return types.Point{X: rng.Intn(grid.Columns()) * grid.CellSize, Y: lastY}
	case 2: // left
		return types.Point{X: 0, Y: rng.Intn(grid.Rows()) * grid.CellSize}
	default: // right
		return types.Point{X: lastX, Y: rng.Intn(grid.Rows()) * grid.CellSize}
	}
}

// Fixed replays a list of cells in order and then repeats the last one.
// Useful to script deterministic scenarios.
type Fixed struct {
	Cells []types.Point
	next  int
}

func (f *Fixed) Place(rng *rand.Rand, grid types.Grid) types.Point {
	if len(f.Cells) == 0 {
		return randomCell(rng, grid)
	}
	p := f.Cells[f.next]
	if f.next < len(f.Cells)-1 {
		f.next++
	}
	return p
}

func randomCell(rng *rand.Rand, grid types.Grid) types.Point {
	return types.Point{
		X: rng.Intn(grid.Columns()) * grid.CellSize,
		Y: rng.Intn(grid.Rows()) * grid.CellSize,
	}
}

type FoodManager struct {
	grid         types.Grid
	rng          *rand.Rand
	collisionMgr *CollisionManager
}

func NewFoodManager(grid types.Grid, rng *rand.Rand, collisionMgr *CollisionManager) *FoodManager {
	return &FoodManager{
		grid:         grid,
		rng:          rng,
		collisionMgr: collisionMgr,
	}
}

// GenerateFood asks placement for cells until one is off the snake.
func (fm *FoodManager) GenerateFood(snake *entity.Snake, placement Placement) (types.Point, error) {
	for i := 0; i < maxPlacementTries; i++ {
		food := placement.Place(fm.rng, fm.grid)
		if fm.collisionMgr.ValidateSpawnPosition(food, snake) {
			return food, nil
		}
	}

	// The board is nearly full: pick among the remaining cells directly.
	free := fm.freeCells(snake)
	if len(free) == 0 {
		return types.Point{}, ErrBoardFull
	}
	return free[fm.rng.Intn(len(free))], nil
}

func (fm *FoodManager) freeCells(snake *entity.Snake) []types.Point {
	free := make([]types.Point, 0, max(0, fm.grid.Cells()-snake.Len()))
	for y := 0; y < fm.grid.Height; y += fm.grid.CellSize {
		for x := 0; x < fm.grid.Width; x += fm.grid.CellSize {
			p := types.Point{X: x, Y: y}
			if !snake.Contains(p) {
				free = append(free, p)
			}
		}
	}
	return free
}
