package training

import (
	"context"
	"log"
	"time"

	"snake-rl/ai"
	"snake-rl/game/types"
	"snake-rl/qlearning"
	"snake-rl/stats"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Environment is the part of the game the runner drives.
type Environment interface {
	Reset() types.Observation
	Step(action types.Direction) (types.Observation, float64, bool, error)
	Snake() []types.Point
	Food() types.Point
	Score() int
	Length() int
}

// Observer is notified after every step, e.g. to draw the board. It must
// not modify the slice.
type Observer interface {
	Observe(body []types.Point, food types.Point)
}

// Config controls a run.
type Config struct {
	Mode     stats.Mode
	Episodes int
	// MaxSteps ends an episode early without a terminal transition; 0 means no limit.
	MaxSteps int
	// TablePath, when set, is where the value table is saved after every
	// training episode. The agent state goes next to it with a ".state.json" suffix.
	TablePath string
	RunID     string
	// LogEvery prints a progress line every LogEvery episodes; 0 disables it.
	LogEvery int
}

func (c Config) Validate() error {
	if c.Mode != stats.Train && c.Mode != stats.Eval {
		return errors.Errorf("unknown run mode %q", c.Mode)
	}
	if c.Episodes <= 0 {
		return errors.Errorf("episodes must be positive, got %d", c.Episodes)
	}
	if c.MaxSteps < 0 {
		return errors.Errorf("max steps must not be negative, got %d", c.MaxSteps)
	}
	return nil
}

// EpisodeResult is the outcome of one episode.
type EpisodeResult struct {
	Episode     int
	Score       int
	TotalReward float64
	Length      int
	Steps       int
	Terminal    bool
}

// Summary aggregates the episodes of a run.
type Summary struct {
	RunID    string
	Mode     stats.Mode
	Episodes int
	Stats    stats.GroupRecord
	Duration time.Duration
}

// Runner plays episodes of an environment with an agent, learning from them
// in training mode. It is single threaded.
type Runner struct {
	env      Environment
	scheme   ai.Scheme
	agent    *qlearning.Agent
	config   Config
	sink     stats.Sink
	observer Observer
	logger   *log.Logger
}

// Option customises a Runner.
type Option func(*Runner)

// WithSink sets where episode records go.
func WithSink(s stats.Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithObserver sets a per-step observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner checks that the scheme and the agent's table agree before
// anything runs.
func NewRunner(env Environment, scheme ai.Scheme, agent *qlearning.Agent, cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rows := agent.Table().States(); rows != scheme.Size() {
		return nil, errors.Errorf("value table has %d states, scheme %s needs %d", rows, scheme.Name(), scheme.Size())
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}

	r := &Runner{
		env:    env,
		scheme: scheme,
		agent:  agent,
		config: cfg,
		sink:   stats.Discard{},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunID identifies the run in the metrics.
func (r *Runner) RunID() string {
	return r.config.RunID
}

func (r *Runner) training() bool {
	return r.config.Mode == stats.Train
}

// RunEpisode plays one episode from reset to a terminal state (or MaxSteps).
// A cancelled context interrupts it before the next step with ctx.Err().
func (r *Runner) RunEpisode(ctx context.Context, episode int) (EpisodeResult, error) {
	result := EpisodeResult{Episode: episode}

	obs := r.env.Reset()
	state, err := r.scheme.Encode(obs)
	if err != nil {
		return result, errors.Wrap(err, "encode initial state")
	}

	for r.config.MaxSteps == 0 || result.Steps < r.config.MaxSteps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		action := r.agent.ChooseAction(state, types.Directions[:])

		next, reward, terminal, err := r.env.Step(action)
		if err != nil {
			return result, errors.Wrapf(err, "episode %d step %d", episode, result.Steps+1)
		}
		result.Steps++
		result.TotalReward += reward

		// The next state is only encoded when the episode continues: a
		// terminal observation may sit outside the grid or on the food.
		nextState := 0
		if !terminal {
			nextState, err = r.scheme.Encode(next)
			if err != nil {
				return result, errors.Wrapf(err, "episode %d step %d", episode, result.Steps)
			}
		}

		if r.training() {
			r.agent.Update(state, action, reward, nextState, terminal)
		}
		if r.observer != nil {
			r.observer.Observe(r.env.Snake(), r.env.Food())
		}

		if terminal {
			result.Terminal = true
			break
		}
		state = nextState
	}

	result.Score = r.env.Score()
	result.Length = r.env.Length()
	return result, nil
}

// Run plays the configured number of episodes. An episode interrupted by
// the context is dropped: it is neither recorded nor persisted. In
// evaluation mode the agent is made greedy first and its table is left
// untouched.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: r.config.RunID, Mode: r.config.Mode}

	if !r.training() {
		r.agent.Greedy()
	}

	var records []stats.EpisodeRecord
	for episode := 1; episode <= r.config.Episodes; episode++ {
		if err := ctx.Err(); err != nil {
			r.logger.Printf("run %s stopped after %d episodes: %v", r.config.RunID, episode-1, err)
			break
		}

		result, err := r.RunEpisode(ctx, episode)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Printf("run %s stopped during episode %d: %v", r.config.RunID, episode, ctx.Err())
				break
			}
			return summary, err
		}

		if r.training() {
			r.agent.IncrementEpisode()
			if err := r.persist(); err != nil {
				return summary, err
			}
		}

		rec := stats.EpisodeRecord{
			RunID:       r.config.RunID,
			Mode:        r.config.Mode,
			Episode:     episode,
			Score:       result.Score,
			TotalReward: result.TotalReward,
			Length:      result.Length,
			Steps:       result.Steps,
			Alpha:       r.agent.Config().Alpha,
			Gamma:       r.agent.Config().Gamma,
			Epsilon:     r.agent.Epsilon(),
			FinishedAt:  time.Now(),
		}
		if err := r.sink.Record(ctx, rec); err != nil {
			return summary, errors.Wrapf(err, "record episode %d", episode)
		}
		records = append(records, rec)

		if r.config.LogEvery > 0 && episode%r.config.LogEvery == 0 {
			recent := stats.Summarize(records[max(0, len(records)-r.config.LogEvery):])
			r.logger.Printf("%s episode %d: mean reward %.1f, mean length %.1f, max score %d, epsilon %.4f",
				r.config.Mode, episode, recent.AverageReward, recent.AverageLength, recent.MaxScore, r.agent.Epsilon())
		}
	}

	summary.Episodes = len(records)
	summary.Stats = stats.Summarize(records)
	summary.Duration = time.Since(start)
	return summary, nil
}

// persist saves the table and the agent state when a table path is set.
func (r *Runner) persist() error {
	if r.config.TablePath == "" {
		return nil
	}
	if err := r.agent.Table().Save(r.config.TablePath); err != nil {
		return errors.Wrap(err, "persist value table")
	}
	if err := r.agent.SaveState(StatePath(r.config.TablePath)); err != nil {
		return errors.Wrap(err, "persist agent state")
	}
	return nil
}

// StatePath is where the agent state of the table at tablePath is kept.
func StatePath(tablePath string) string {
	return tablePath + ".state.json"
}
