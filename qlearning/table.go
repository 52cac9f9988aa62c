package qlearning

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrMalformed is returned when a value table file cannot be parsed.
	ErrMalformed = errors.New("malformed value table")
	// ErrShapeMismatch is returned when a parsed table has the wrong dimensions.
	ErrShapeMismatch = errors.New("value table shape mismatch")
)

// ValueTable stores one estimated return per (state, action) pair.
// Rows are encoded states, columns are actions in canonical order.
type ValueTable struct {
	data *mat.Dense
}

// NewValueTable returns a zero table. Both dimensions must be positive.
func NewValueTable(states, actions int) *ValueTable {
	if states <= 0 || actions <= 0 {
		panic(fmt.Sprintf("qlearning: invalid table shape %dx%d", states, actions))
	}
	return &ValueTable{data: mat.NewDense(states, actions, nil)}
}

// States returns the number of rows.
func (t *ValueTable) States() int {
	r, _ := t.data.Dims()
	return r
}

// Actions returns the number of columns.
func (t *ValueTable) Actions() int {
	_, c := t.data.Dims()
	return c
}

func (t *ValueTable) check(state, action int) {
	r, c := t.data.Dims()
	if state < 0 || state >= r {
		panic(fmt.Sprintf("qlearning: state %d out of range [0, %d)", state, r))
	}
	if action < 0 || action >= c {
		panic(fmt.Sprintf("qlearning: action %d out of range [0, %d)", action, c))
	}
}

func (t *ValueTable) Get(state, action int) float64 {
	t.check(state, action)
	return t.data.At(state, action)
}

func (t *ValueTable) Set(state, action int, v float64) {
	t.check(state, action)
	t.data.Set(state, action, v)
}

// Row returns a copy of the action values of state.
func (t *ValueTable) Row(state int) []float64 {
	t.check(state, 0)
	return mat.Row(nil, state, t.data)
}

// Max returns the largest action value of state.
func (t *ValueTable) Max(state int) float64 {
	t.check(state, 0)
	return floats.Max(t.data.RawRowView(state))
}

// ArgMax returns the first action with the largest value.
func (t *ValueTable) ArgMax(state int) int {
	t.check(state, 0)
	return floats.MaxIdx(t.data.RawRowView(state))
}

// Equal reports whether both tables have the same shape and values.
func (t *ValueTable) Equal(other *ValueTable) bool {
	return mat.Equal(t.data, other.data)
}

// WriteTo writes one line per state with the action values separated by
// spaces, in the same layout numpy's savetxt produces.
func (t *ValueTable) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	fields := make([]string, t.Actions())

	for s := 0; s < t.States(); s++ {
		for a, v := range t.data.RawRowView(s) {
			fields[a] = strconv.FormatFloat(v, 'e', 18, 64)
		}
		written, err := bw.WriteString(strings.Join(fields, " ") + "\n")
		n += int64(written)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Save writes the table to path through a temporary file, so a crash never
// leaves a truncated table behind.
func (t *ValueTable) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create table directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary table file")
	}
	defer os.Remove(tmp.Name())

	if _, err := t.WriteTo(tmp); err != nil {
		tmp.Close()
		return errors.Wrap(err, "error writing value table")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "error writing value table")
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.Wrap(err, "error writing value table")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "error replacing value table")
}

// ReadValueTable parses a table written by WriteTo. The table must have
// exactly states rows of actions values each.
func ReadValueTable(r io.Reader, states, actions int) (*ValueTable, error) {
	t := NewValueTable(states, actions)
	scanner := bufio.NewScanner(r)

	row := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != actions {
			return nil, errors.Wrapf(ErrShapeMismatch, "line %d has %d values, expected %d", row+1, len(fields), actions)
		}
		if row >= states {
			return nil, errors.Wrapf(ErrShapeMismatch, "more than %d rows", states)
		}
		for a, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformed, "line %d: %v", row+1, err)
			}
			t.data.Set(row, a, v)
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading value table")
	}
	if row != states {
		return nil, errors.Wrapf(ErrShapeMismatch, "got %d rows, expected %d", row, states)
	}
	return t, nil
}

// LoadValueTable reads the table at path. A missing file yields a zero
// table. A malformed table or one of another shape is reported and replaced
// by a zero table of the requested shape; it is never reshaped.
func LoadValueTable(path string, states, actions int) (*ValueTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewValueTable(states, actions), nil
		}
		return nil, errors.Wrap(err, "error opening value table")
	}
	defer f.Close()

	t, err := ReadValueTable(f, states, actions)
	switch {
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrShapeMismatch):
		log.Printf("Warning: ignoring value table %s: %v", path, err)
		return NewValueTable(states, actions), nil
	case err != nil:
		return nil, err
	}
	return t, nil
}
