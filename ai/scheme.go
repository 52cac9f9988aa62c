package ai

import (
	"sort"

	"snake-rl/game/types"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfDomain is returned for a state the scheme cannot represent.
	ErrOutOfDomain = errors.New("state outside the encoding domain")
	// ErrIndexOutOfRange is returned by Decode for an index outside [0, Size).
	ErrIndexOutOfRange = errors.New("state index out of range")
	// ErrUnknownScheme is returned by Lookup.
	ErrUnknownScheme = errors.New("unknown encoding scheme")
)

// Scheme names.
const (
	FoodOnly    = "food-only"
	OneOfFour   = "1of4"
	TwoOfFour   = "2of4"
	ThreeOfFour = "3of4"
)

// Scheme maps observations to dense row indices of a value table and back.
// Decode and EncodeState are inverse on [0, Size).
type Scheme interface {
	Name() string
	// Size is the number of distinct states, i.e. the table row count.
	Size() int
	// Project keeps the parts of obs the scheme encodes.
	Project(obs types.Observation) State
	Encode(obs types.Observation) (int, error)
	EncodeState(s State) (int, error)
	Decode(index int) (State, error)
}

// dangerCodec numbers the danger part of a state.
type dangerCodec interface {
	size() int
	project(obs types.Observation) [MaxDangers]types.Direction
	encode(d [MaxDangers]types.Direction) (int, error)
	decode(code int) [MaxDangers]types.Direction
}

// scheme combines the food category with a danger code:
// index = food*codes + dangerCode.
type scheme struct {
	name  string
	codec dangerCodec
}

func (s *scheme) Name() string {
	return s.name
}

func (s *scheme) Size() int {
	return types.NumFoodDirections * s.codec.size()
}

func (s *scheme) Project(obs types.Observation) State {
	return State{Food: obs.Food, Danger: s.codec.project(obs)}
}

func (s *scheme) Encode(obs types.Observation) (int, error) {
	return s.EncodeState(s.Project(obs))
}

func (s *scheme) EncodeState(st State) (int, error) {
	if !st.Food.Valid() {
		return 0, errors.Wrapf(ErrOutOfDomain, "%s: food category %v", s.name, st.Food)
	}
	code, err := s.codec.encode(st.Danger)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: %v", s.name, st)
	}
	return int(st.Food)*s.codec.size() + code, nil
}

func (s *scheme) Decode(index int) (State, error) {
	if index < 0 || index >= s.Size() {
		return State{}, errors.Wrapf(ErrIndexOutOfRange, "%s: %d not in [0, %d)", s.name, index, s.Size())
	}
	codes := s.codec.size()
	return State{
		Food:   types.FoodDirection(index / codes),
		Danger: s.codec.decode(index % codes),
	}, nil
}

var registry = map[string]func() Scheme{
	FoodOnly:    func() Scheme { return &scheme{name: FoodOnly, codec: foodOnlyCodec{}} },
	OneOfFour:   func() Scheme { return &scheme{name: OneOfFour, codec: forcedCodec{}} },
	TwoOfFour:   func() Scheme { return &scheme{name: TwoOfFour, codec: pairCodec{}} },
	ThreeOfFour: func() Scheme { return &scheme{name: ThreeOfFour, codec: tripleCodec{}} },
}

// Lookup returns the scheme registered under name.
func Lookup(name string) (Scheme, error) {
	newScheme, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownScheme, "%q (known: %v)", name, Schemes())
	}
	return newScheme(), nil
}

// Schemes lists the registered names, smallest state space first.
func Schemes() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, _ := Lookup(names[i])
		b, _ := Lookup(names[j])
		return a.Size() < b.Size()
	})
	return names
}

// foodOnlyCodec ignores dangers.
type foodOnlyCodec struct{}

func (foodOnlyCodec) size() int { return 1 }

func (foodOnlyCodec) project(types.Observation) [MaxDangers]types.Direction {
	return noDangers()
}

func (foodOnlyCodec) encode(d [MaxDangers]types.Direction) (int, error) {
	if d != noDangers() {
		return 0, errors.Wrap(ErrOutOfDomain, "no danger expected")
	}
	return 0, nil
}

func (foodOnlyCodec) decode(int) [MaxDangers]types.Direction {
	return noDangers()
}

// forcedCodec keeps the forced danger only: code = forced.
type forcedCodec struct{}

func (forcedCodec) size() int { return types.NumDirections }

func (forcedCodec) project(obs types.Observation) [MaxDangers]types.Direction {
	d := noDangers()
	d[0] = obs.Forced()
	return d
}

func (forcedCodec) encode(d [MaxDangers]types.Direction) (int, error) {
	if !d[0].Valid() {
		return 0, errors.Wrapf(ErrOutOfDomain, "forced danger %v", d[0])
	}
	if d[1] != types.NoDirection || d[2] != types.NoDirection {
		return 0, errors.Wrap(ErrOutOfDomain, "only the forced danger is encoded")
	}
	return int(d[0]), nil
}

func (forcedCodec) decode(code int) [MaxDangers]types.Direction {
	d := noDangers()
	d[0] = types.Direction(code)
	return d
}

// pairCodec keeps the forced danger and the first extra one:
// code = forced*4 + slot, slot 0 meaning no extra danger and slots 1..3 the
// candidates in priority order.
type pairCodec struct{}

func (pairCodec) size() int { return types.NumDirections * types.NumDirections }

func (pairCodec) project(obs types.Observation) [MaxDangers]types.Direction {
	d := noDangers()
	d[0] = obs.Forced()
	if extra := obs.ExtraDangers(); len(extra) > 0 {
		d[1] = extra[0]
	}
	return d
}

func (pairCodec) encode(d [MaxDangers]types.Direction) (int, error) {
	if !d[0].Valid() {
		return 0, errors.Wrapf(ErrOutOfDomain, "forced danger %v", d[0])
	}
	if d[2] != types.NoDirection {
		return 0, errors.Wrap(ErrOutOfDomain, "at most one extra danger is encoded")
	}
	base := int(d[0]) * types.NumDirections
	if d[1] == types.NoDirection {
		return base, nil
	}
	pos := indexOf(candidates(d[0]), d[1])
	if pos < 0 {
		return 0, errors.Wrapf(ErrOutOfDomain, "extra danger %v", d[1])
	}
	return base + pos + 1, nil
}

func (pairCodec) decode(code int) [MaxDangers]types.Direction {
	d := noDangers()
	forced := types.Direction(code / types.NumDirections)
	d[0] = forced
	if slot := code % types.NumDirections; slot > 0 {
		d[1] = candidates(forced)[slot-1]
	}
	return d
}

// tripleCodec keeps the forced danger and up to two extras, grouped by
// danger count:
//
//	 0..3   forced only            code = forced
//	 4..15  forced + one extra     code = 4 + forced*3 + pos
//	16..39  forced + two extras    code = 16 + forced*6 + pos1*2 + pos2
//
// pos and pos1 index the candidates of forced; pos2 indexes those
// candidates minus the first extra.
type tripleCodec struct{}

const (
	tripleOneBase = types.NumDirections
	tripleTwoBase = tripleOneBase + types.NumDirections*3
	tripleCodes   = tripleTwoBase + types.NumDirections*6
)

func (tripleCodec) size() int { return tripleCodes }

func (tripleCodec) project(obs types.Observation) [MaxDangers]types.Direction {
	d := noDangers()
	d[0] = obs.Forced()
	extra := obs.ExtraDangers()
	for i := 0; i < len(extra) && i < MaxDangers-1; i++ {
		d[i+1] = extra[i]
	}
	return d
}

func (tripleCodec) encode(d [MaxDangers]types.Direction) (int, error) {
	forced := d[0]
	if !forced.Valid() {
		return 0, errors.Wrapf(ErrOutOfDomain, "forced danger %v", forced)
	}
	if d[1] == types.NoDirection {
		if d[2] != types.NoDirection {
			return 0, errors.Wrap(ErrOutOfDomain, "second extra danger without a first")
		}
		return int(forced), nil
	}

	cand := candidates(forced)
	pos1 := indexOf(cand, d[1])
	if pos1 < 0 {
		return 0, errors.Wrapf(ErrOutOfDomain, "extra danger %v", d[1])
	}
	if d[2] == types.NoDirection {
		return tripleOneBase + int(forced)*3 + pos1, nil
	}

	pos2 := indexOf(without(cand, d[1]), d[2])
	if pos2 < 0 {
		return 0, errors.Wrapf(ErrOutOfDomain, "extra danger %v", d[2])
	}
	return tripleTwoBase + int(forced)*6 + pos1*2 + pos2, nil
}

func (tripleCodec) decode(code int) [MaxDangers]types.Direction {
	d := noDangers()
	switch {
	case code < tripleOneBase:
		d[0] = types.Direction(code)
	case code < tripleTwoBase:
		c := code - tripleOneBase
		d[0] = types.Direction(c / 3)
		d[1] = candidates(d[0])[c%3]
	default:
		c := code - tripleTwoBase
		d[0] = types.Direction(c / 6)
		r := c % 6
		cand := candidates(d[0])
		d[1] = cand[r/2]
		d[2] = without(cand, d[1])[r%2]
	}
	return d
}
