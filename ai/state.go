package ai

import (
	"fmt"
	"strings"

	"snake-rl/game/types"
)

// MaxDangers is the largest number of danger directions a State carries:
// the forced one plus two extras.
const MaxDangers = 3

// State is an observation reduced to what an encoding scheme keeps.
//
// Danger[0] is the forced danger (the reverse of the heading), Danger[1] and
// Danger[2] are further dangers in priority order. Unused slots hold
// types.NoDirection; the food-only scheme leaves all three unused.
type State struct {
	Food   types.FoodDirection
	Danger [MaxDangers]types.Direction
}

func noDangers() [MaxDangers]types.Direction {
	return [MaxDangers]types.Direction{types.NoDirection, types.NoDirection, types.NoDirection}
}

// Dangers returns the set slots of Danger.
func (s State) Dangers() []types.Direction {
	var out []types.Direction
	for _, d := range s.Danger {
		if d != types.NoDirection {
			out = append(out, d)
		}
	}
	return out
}

// IsDanger reports whether d is one of the state's dangers.
func (s State) IsDanger(d types.Direction) bool {
	for _, x := range s.Danger {
		if x != types.NoDirection && x == d {
			return true
		}
	}
	return false
}

func (s State) String() string {
	names := make([]string, 0, MaxDangers)
	for _, d := range s.Dangers() {
		names = append(names, d.String())
	}
	return fmt.Sprintf("food=%v danger=[%s]", s.Food, strings.Join(names, " "))
}

// candidates lists the directions other than forced, in priority order.
func candidates(forced types.Direction) []types.Direction {
	out := make([]types.Direction, 0, types.NumDirections-1)
	for _, d := range types.Directions {
		if d != forced {
			out = append(out, d)
		}
	}
	return out
}

// indexOf returns the position of d in list, or -1.
func indexOf(list []types.Direction, d types.Direction) int {
	for i, x := range list {
		if x == d {
			return i
		}
	}
	return -1
}

// without returns list minus d.
func without(list []types.Direction, d types.Direction) []types.Direction {
	out := make([]types.Direction, 0, len(list))
	for _, x := range list {
		if x != d {
			out = append(out, x)
		}
	}
	return out
}
