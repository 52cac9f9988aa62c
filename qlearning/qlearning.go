package qlearning

import (
	"encoding/json"
	"math"
	"os"

	"snake-rl/game/types"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Config holds the learning hyperparameters.
type Config struct {
	Alpha        float64 `json:"alpha"`
	Gamma        float64 `json:"gamma"`
	Epsilon      float64 `json:"epsilon"`
	EpsilonMin   float64 `json:"epsilon_min"`
	EpsilonDecay float64 `json:"epsilon_decay"`
	Seed         uint64  `json:"seed"`
}

func DefaultConfig() Config {
	return Config{
		Alpha:        0.1,
		Gamma:        0.9,
		Epsilon:      0.1,
		EpsilonMin:   0.01,
		EpsilonDecay: 0.999,
		Seed:         1,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Alpha <= 0 || c.Alpha > 1:
		return errors.Errorf("alpha must be in (0, 1], got %v", c.Alpha)
	case c.Gamma < 0 || c.Gamma > 1:
		return errors.Errorf("gamma must be in [0, 1], got %v", c.Gamma)
	case c.Epsilon < 0 || c.Epsilon > 1:
		return errors.Errorf("epsilon must be in [0, 1], got %v", c.Epsilon)
	case c.EpsilonMin < 0 || c.EpsilonMin > 1:
		return errors.Errorf("epsilon floor must be in [0, 1], got %v", c.EpsilonMin)
	case c.EpsilonDecay <= 0 || c.EpsilonDecay > 1:
		return errors.Errorf("epsilon decay must be in (0, 1], got %v", c.EpsilonDecay)
	}
	return nil
}

// Agent is an epsilon-greedy tabular Q-learning agent.
type Agent struct {
	table           *ValueTable
	config          Config
	epsilon         float64
	epsilonMin      float64
	epsilonDecay    float64
	rng             *rand.Rand
	TrainingEpisode int
}

// NewAgent wraps table, which must have one column per direction.
func NewAgent(table *ValueTable, cfg Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table.Actions() != types.NumDirections {
		return nil, errors.Errorf("value table has %d actions, expected %d", table.Actions(), types.NumDirections)
	}
	return &Agent{
		table:        table,
		config:       cfg,
		epsilon:      cfg.Epsilon,
		epsilonMin:   cfg.EpsilonMin,
		epsilonDecay: cfg.EpsilonDecay,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// ChooseAction picks a uniformly random action from allowed with probability
// epsilon and the first best action of the row otherwise. An empty allowed
// list means all four directions. Epsilon decays after every call.
func (a *Agent) ChooseAction(state int, allowed []types.Direction) types.Direction {
	var action types.Direction
	if a.rng.Float64() < a.epsilon {
		if len(allowed) == 0 {
			allowed = types.Directions[:]
		}
		action = allowed[a.rng.Intn(len(allowed))]
	} else {
		action = types.Direction(a.table.ArgMax(state))
	}

	a.epsilon = math.Max(a.epsilonMin, a.epsilonDecay*a.epsilon)
	return action
}

// Update applies one Q-learning step. A terminal transition does not
// bootstrap from next.
//
//	Q(s,a) = (1-alpha) Q(s,a) + alpha (r + gamma max Q(s',.))
func (a *Agent) Update(state int, action types.Direction, reward float64, next int, terminal bool) {
	target := reward
	if !terminal {
		target += a.config.Gamma * a.table.Max(next)
	}
	q := a.table.Get(state, int(action))
	a.table.Set(state, int(action), (1-a.config.Alpha)*q+a.config.Alpha*target)
}

// Epsilon returns the current exploration rate.
func (a *Agent) Epsilon() float64 {
	return a.epsilon
}

// SetExploration replaces the exploration schedule.
func (a *Agent) SetExploration(epsilon, epsilonMin, epsilonDecay float64) {
	a.epsilon = epsilon
	a.epsilonMin = epsilonMin
	a.epsilonDecay = epsilonDecay
}

// Greedy disables exploration for evaluation.
func (a *Agent) Greedy() {
	a.SetExploration(0, 0, 1)
}

func (a *Agent) Table() *ValueTable {
	return a.table
}

func (a *Agent) Config() Config {
	return a.config
}

// IncrementEpisode counts a finished training episode.
func (a *Agent) IncrementEpisode() {
	a.TrainingEpisode++
}

// AgentState is the part of the agent saved next to its value table so that
// training can resume with the decayed exploration rate.
type AgentState struct {
	Epsilon         float64 `json:"epsilon"`
	TrainingEpisode int     `json:"training_episode"`
}

// SaveState writes the exploration rate and episode counter as JSON.
func (a *Agent) SaveState(filename string) error {
	state := AgentState{
		Epsilon:         a.epsilon,
		TrainingEpisode: a.TrainingEpisode,
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error marshaling agent state")
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.Wrap(err, "error writing agent state")
	}
	return nil
}

// LoadState restores what SaveState wrote. A missing file leaves the agent untouched.
func (a *Agent) LoadState(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "error reading agent state")
	}

	var state AgentState
	if err := json.Unmarshal(data, &state); err != nil {
		return errors.Wrap(err, "error unmarshaling agent state")
	}
	a.epsilon = math.Max(a.epsilonMin, state.Epsilon)
	a.TrainingEpisode = state.TrainingEpisode
	return nil
}
