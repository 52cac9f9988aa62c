package main

import (
	"encoding/json"
	"flag"
	"os"

	"snake-rl/ai"
	"snake-rl/game"
	"snake-rl/game/manager"
	"snake-rl/qlearning"

	"github.com/pkg/errors"
)

// GameConfig is the JSON form of game.Config.
type GameConfig struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	CellSize          int     `json:"cell_size"`
	Grow              bool    `json:"grow"`
	FoodReward        float64 `json:"food_reward"`
	DeathReward       float64 `json:"death_reward"`
	ShapingReward     float64 `json:"shaping_reward"`
	BorderPenalty     float64 `json:"border_penalty"`
	ResetBorderBias   float64 `json:"reset_border_bias"`
	RespawnBorderBias float64 `json:"respawn_border_bias"`
	Seed              uint64  `json:"seed"`
}

// MetricsConfig selects where episode metrics go.
type MetricsConfig struct {
	Backend         string `json:"backend"`
	Path            string `json:"path"`
	HyperparamsPath string `json:"hyperparams_path"`
}

// Config is everything a command needs. It is read from an optional JSON
// file and then overridden by flags given on the command line.
type Config struct {
	Game      GameConfig       `json:"game"`
	Agent     qlearning.Config `json:"agent"`
	Scheme    string           `json:"scheme"`
	Episodes  int              `json:"episodes"`
	MaxSteps  int              `json:"max_steps"`
	Workers   int              `json:"workers"`
	TablePath string           `json:"table_path"`
	// Resume restores the exploration rate saved next to the table instead
	// of starting from Agent.Epsilon.
	Resume   bool          `json:"resume"`
	LogEvery int           `json:"log_every"`
	Metrics  MetricsConfig `json:"metrics"`
}

func DefaultConfig() Config {
	g := game.DefaultConfig()
	return Config{
		Game: GameConfig{
			Width:             g.Width,
			Height:            g.Height,
			CellSize:          g.CellSize,
			Grow:              g.Grow,
			FoodReward:        g.FoodReward,
			DeathReward:       g.DeathReward,
			ShapingReward:     g.ShapingReward,
			BorderPenalty:     g.BorderPenalty,
			ResetBorderBias:   0.25,
			RespawnBorderBias: 0,
			Seed:              g.Seed,
		},
		Agent:     qlearning.DefaultConfig(),
		Scheme:    ai.ThreeOfFour,
		Episodes:  1000,
		MaxSteps:  10000,
		Workers:   1,
		TablePath: "data/qtable.txt",
		LogEvery:  100,
		Metrics: MetricsConfig{
			Backend: "tsv",
			Path:    "data/metrics.tsv",
		},
	}
}

// GameConfigFor converts to the environment configuration, offsetting the
// seed so that parallel workers see different food sequences.
func (c Config) GameConfigFor(worker int) game.Config {
	g := game.DefaultConfig()
	g.Width = c.Game.Width
	g.Height = c.Game.Height
	g.CellSize = c.Game.CellSize
	g.Grow = c.Game.Grow
	g.FoodReward = c.Game.FoodReward
	g.DeathReward = c.Game.DeathReward
	g.ShapingReward = c.Game.ShapingReward
	g.BorderPenalty = c.Game.BorderPenalty
	g.ResetPlacement = placementFor(c.Game.ResetBorderBias)
	g.RespawnPlacement = placementFor(c.Game.RespawnBorderBias)
	g.Seed = c.Game.Seed + uint64(worker)
	return g
}

func placementFor(bias float64) manager.Placement {
	if bias <= 0 {
		return manager.Uniform{}
	}
	return manager.BorderBiased{Probability: bias}
}

// AgentConfigFor offsets the exploration seed per worker.
func (c Config) AgentConfigFor(worker int) qlearning.Config {
	a := c.Agent
	a.Seed += uint64(worker)
	return a
}

func (c Config) Validate() error {
	if _, err := ai.Lookup(c.Scheme); err != nil {
		return err
	}
	if err := c.GameConfigFor(0).Validate(); err != nil {
		return err
	}
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	switch {
	case c.Episodes <= 0:
		return errors.Errorf("episodes must be positive, got %d", c.Episodes)
	case c.MaxSteps < 0:
		return errors.Errorf("max steps must not be negative, got %d", c.MaxSteps)
	case c.Workers <= 0:
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	case c.Game.ResetBorderBias < 0 || c.Game.ResetBorderBias > 1,
		c.Game.RespawnBorderBias < 0 || c.Game.RespawnBorderBias > 1:
		return errors.New("border bias must be in [0, 1]")
	}
	return nil
}

// LoadConfigFile merges a JSON file into cfg.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

// bindFlags registers the shared flags of every command on fs.
func bindFlags(fs *flag.FlagSet, cfg *Config, configPath *string) {
	fs.StringVar(configPath, "config", "", "JSON config file; flags given on the command line override it")

	fs.IntVar(&cfg.Game.Width, "width", cfg.Game.Width, "board width in pixels")
	fs.IntVar(&cfg.Game.Height, "height", cfg.Game.Height, "board height in pixels")
	fs.IntVar(&cfg.Game.CellSize, "cell", cfg.Game.CellSize, "cell size in pixels")
	fs.BoolVar(&cfg.Game.Grow, "grow", cfg.Game.Grow, "grow the snake when it eats")
	fs.Float64Var(&cfg.Game.BorderPenalty, "border-penalty", cfg.Game.BorderPenalty, "penalty for moving onto a border cell")
	fs.Float64Var(&cfg.Game.ResetBorderBias, "reset-border-bias", cfg.Game.ResetBorderBias, "probability of placing the first food on the border")
	fs.Float64Var(&cfg.Game.RespawnBorderBias, "respawn-border-bias", cfg.Game.RespawnBorderBias, "probability of respawning food on the border")
	fs.Uint64Var(&cfg.Game.Seed, "seed", cfg.Game.Seed, "food placement seed")

	fs.Float64Var(&cfg.Agent.Alpha, "alpha", cfg.Agent.Alpha, "learning rate")
	fs.Float64Var(&cfg.Agent.Gamma, "gamma", cfg.Agent.Gamma, "discount factor")
	fs.Float64Var(&cfg.Agent.Epsilon, "epsilon", cfg.Agent.Epsilon, "initial exploration rate")
	fs.Float64Var(&cfg.Agent.EpsilonMin, "epsilon-min", cfg.Agent.EpsilonMin, "exploration floor")
	fs.Float64Var(&cfg.Agent.EpsilonDecay, "epsilon-decay", cfg.Agent.EpsilonDecay, "exploration decay per action")
	fs.Uint64Var(&cfg.Agent.Seed, "agent-seed", cfg.Agent.Seed, "exploration seed")

	fs.StringVar(&cfg.Scheme, "scheme", cfg.Scheme, "state encoding: food-only, 1of4, 2of4 or 3of4")
	fs.IntVar(&cfg.Episodes, "episodes", cfg.Episodes, "number of episodes")
	fs.IntVar(&cfg.MaxSteps, "max-steps", cfg.MaxSteps, "step limit per episode, 0 for none")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "independent parallel learners (train only)")
	fs.StringVar(&cfg.TablePath, "table", cfg.TablePath, "value table file")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "continue training with the saved exploration rate instead of -epsilon")
	fs.IntVar(&cfg.LogEvery, "log-every", cfg.LogEvery, "progress line every N episodes, 0 to disable")

	fs.StringVar(&cfg.Metrics.Backend, "metrics", cfg.Metrics.Backend, "metrics backend: tsv, sqlite, memory or none")
	fs.StringVar(&cfg.Metrics.Path, "metrics-path", cfg.Metrics.Path, "metrics file or database")
	fs.StringVar(&cfg.Metrics.HyperparamsPath, "hyperparams-path", cfg.Metrics.HyperparamsPath, "hyperparameter log, empty to disable")
}

// parseConfig parses args onto defaults, merges the -config file and then
// parses args again so explicit flags win over the file.
func parseConfig(fs *flag.FlagSet, args []string, cfg *Config) error {
	var configPath string
	bindFlags(fs, cfg, &configPath)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if configPath != "" {
		if err := LoadConfigFile(configPath, cfg); err != nil {
			return err
		}
		if err := fs.Parse(args); err != nil {
			return err
		}
	}
	return cfg.Validate()
}
