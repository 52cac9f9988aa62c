package ai

import (
	"snake-rl/game/types"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// tieTolerance is how close two action values must be to count as equally good.
const tieTolerance = 1e-6

// ValueSource is the read side of a value table.
type ValueSource interface {
	States() int
	Actions() int
	Row(state int) []float64
}

// PolicyEntry describes the greedy choice in one encoded state.
type PolicyEntry struct {
	Index  int
	State  State
	Values []float64
	// Best holds every action within tieTolerance of the row maximum.
	Best []types.Direction
	// Blocked is set when a best action heads into one of the state's dangers.
	Blocked bool
	// Visited is false for rows that were never updated.
	Visited bool
}

// DescribePolicy decodes every row of table and lists its best actions.
func DescribePolicy(scheme Scheme, table ValueSource) ([]PolicyEntry, error) {
	if table.States() != scheme.Size() || table.Actions() != types.NumDirections {
		return nil, errors.Errorf("table is %dx%d, scheme %s needs %dx%d",
			table.States(), table.Actions(), scheme.Name(), scheme.Size(), types.NumDirections)
	}

	entries := make([]PolicyEntry, 0, scheme.Size())
	for i := 0; i < scheme.Size(); i++ {
		st, err := scheme.Decode(i)
		if err != nil {
			return nil, err
		}

		row := table.Row(i)
		best := floats.Max(row)
		entry := PolicyEntry{Index: i, State: st, Values: row}
		for a, v := range row {
			if v != 0 {
				entry.Visited = true
			}
			if scalar.EqualWithinAbs(v, best, tieTolerance) {
				dir := types.Direction(a)
				entry.Best = append(entry.Best, dir)
				if st.IsDanger(dir) {
					entry.Blocked = true
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
