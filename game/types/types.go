package types

import "fmt"

// Point is a cell position in pixel coordinates, aligned to the grid's cell size.
type Point struct {
	X, Y int
}

// Add returns p shifted by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Grid represents the playing field dimensions in pixels.
type Grid struct {
	Width    int
	Height   int
	CellSize int
}

// Contains reports whether p lies inside the grid.
func (g Grid) Contains(p Point) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// OnBorder reports whether p is one of the outermost cells.
func (g Grid) OnBorder(p Point) bool {
	return p.X == 0 || p.Y == 0 || p.X == g.Width-g.CellSize || p.Y == g.Height-g.CellSize
}

// Columns returns the number of cells along the x axis.
func (g Grid) Columns() int {
	return g.Width / g.CellSize
}

// Rows returns the number of cells along the y axis.
func (g Grid) Rows() int {
	return g.Height / g.CellSize
}

// Cells returns the total number of cells.
func (g Grid) Cells() int {
	return g.Columns() * g.Rows()
}

// Direction is a cardinal direction. Its value doubles as the action index
// and as the danger priority (top > bottom > left > right).
type Direction int

const (
	NoDirection Direction = iota - 1
	Up
	Down
	Left
	Right
)

// NumDirections is the size of the action space.
const NumDirections = 4

// Directions lists the four directions in canonical order.
var Directions = [NumDirections]Direction{Up, Down, Left, Right}

// Valid reports whether d is one of the four cardinal directions.
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return NoDirection
	}
}

// Delta converts d into a displacement of one cell. Up decreases Y.
func (d Direction) Delta(cellSize int) Point {
	switch d {
	case Up:
		return Point{X: 0, Y: -cellSize}
	case Down:
		return Point{X: 0, Y: cellSize}
	case Left:
		return Point{X: -cellSize, Y: 0}
	case Right:
		return Point{X: cellSize, Y: 0}
	default:
		return Point{}
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case NoDirection:
		return "NONE"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// FoodDirection is the relative position of the food seen from the head.
type FoodDirection int

const (
	FoodNone FoodDirection = iota - 1
	FoodUp
	FoodDown
	FoodLeft
	FoodRight
	FoodLeftUp
	FoodRightUp
	FoodLeftDown
	FoodRightDown
)

// NumFoodDirections is the number of valid food categories.
const NumFoodDirections = 8

// Valid reports whether f is one of the eight categories.
func (f FoodDirection) Valid() bool {
	return f >= FoodUp && f <= FoodRightDown
}

func (f FoodDirection) String() string {
	switch f {
	case FoodUp:
		return "UP"
	case FoodDown:
		return "DOWN"
	case FoodLeft:
		return "LEFT"
	case FoodRight:
		return "RIGHT"
	case FoodLeftUp:
		return "LEFT-UP"
	case FoodRightUp:
		return "RIGHT-UP"
	case FoodLeftDown:
		return "LEFT-DOWN"
	case FoodRightDown:
		return "RIGHT-DOWN"
	case FoodNone:
		return "NONE"
	default:
		return fmt.Sprintf("FoodDirection(%d)", int(f))
	}
}

// FoodDirectionOf categorises food relative to head. Axis-aligned categories
// are used only when the two points share exactly one coordinate; FoodNone is
// returned when they coincide.
func FoodDirectionOf(head, food Point) FoodDirection {
	switch {
	case head == food:
		return FoodNone
	case head.X == food.X:
		if food.Y < head.Y {
			return FoodUp
		}
		return FoodDown
	case head.Y == food.Y:
		if food.X < head.X {
			return FoodLeft
		}
		return FoodRight
	}

	left := food.X < head.X
	up := food.Y < head.Y
	switch {
	case left && up:
		return FoodLeftUp
	case !left && up:
		return FoodRightUp
	case left && !up:
		return FoodLeftDown
	default:
		return FoodRightDown
	}
}

// Observation is what the environment reports after a reset or a step.
type Observation struct {
	Food    FoodDirection
	Heading Direction
	// Danger is indexed by Direction. The opposite of Heading is always set.
	Danger [NumDirections]bool
}

// Forced returns the danger that is always reported: the reverse of the heading.
func (o Observation) Forced() Direction {
	return o.Heading.Opposite()
}

// ExtraDangers returns the dangerous directions other than the forced one,
// in priority order.
func (o Observation) ExtraDangers() []Direction {
	forced := o.Forced()
	var extra []Direction
	for _, d := range Directions {
		if d != forced && o.Danger[d] {
			extra = append(extra, d)
		}
	}
	return extra
}

// Abs returns the absolute value of x.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ManhattanDistance returns |dx| + |dy| between two points.
func ManhattanDistance(p1, p2 Point) int {
	return Abs(p2.X-p1.X) + Abs(p2.Y-p1.Y)
}
