package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"qnav/grid_world"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every parameter validation error.
var ErrInvalidConfig = errors.New("invalid training config")

type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TrainingConfig encodes the algorithmic and training parameters outside of code.
// Note that viper lowercases every key it reads, so the yaml tags are lowercase even
// though config.yaml uses camelCase.
type TrainingConfig struct {
	// HyperParams is a key-val list of param names and their value: alpha, gamma, etc.
	HyperParams []HyperParameter `yaml:"hyperparams"`
	// Rewards is a key-val list of the goal, step and blocked rewards.
	Rewards []HyperParameter `yaml:"rewards"`
	// Algorithm holds non-numeric selectors: the action set and the epsilon schedule.
	Algorithm map[string]string `yaml:"algorithm"`
	// TrainingDeadline is a duration describing when to terminate training.
	TrainingDeadline map[string]string `yaml:"trainingdeadline"`
	// Track is an optional map, one string per row.
	Track []string `yaml:"track"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

func getOrDefault(params []HyperParameter, key string, defaultVal float64) float64 {
	for _, kvp := range params {
		if strings.EqualFold(kvp.Key, key) {
			return kvp.Val
		}
	}
	return defaultVal
}

func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	return getOrDefault(cfg.HyperParams, param, defaultVal)
}

func (cfg *TrainingConfig) getAlgorithmOrDefault(key, defaultVal string) string {
	if val, ok := cfg.Algorithm[strings.ToLower(key)]; ok && val != "" {
		return val
	}
	return defaultVal
}

// Params resolves the hyper parameters, falling back to DefaultParams for missing keys.
func (cfg *TrainingConfig) Params() Params {
	def := DefaultParams()
	return Params{
		NumEpisodes:        int(cfg.GetHyperParamOrDefault("numEpisodes", float64(def.NumEpisodes))),
		MaxStepsPerEpisode: int(cfg.GetHyperParamOrDefault("maxStepsPerEpisode", float64(def.MaxStepsPerEpisode))),
		Alpha:              cfg.GetHyperParamOrDefault("alpha", def.Alpha),
		Gamma:              cfg.GetHyperParamOrDefault("gamma", def.Gamma),
		EpsilonStart:       cfg.GetHyperParamOrDefault("epsilonStart", def.EpsilonStart),
		EpsilonDecay:       cfg.GetHyperParamOrDefault("epsilonDecay", def.EpsilonDecay),
		EpsilonMin:         cfg.GetHyperParamOrDefault("epsilonMin", def.EpsilonMin),
		Schedule:           DecaySchedule(cfg.getAlgorithmOrDefault("epsilonSchedule", string(def.Schedule))),
		InitialValue:       cfg.GetHyperParamOrDefault("initialValue", def.InitialValue),
		Seed:               int64(cfg.GetHyperParamOrDefault("seed", float64(def.Seed))),
	}
}

// EnvRewards resolves the environment rewards, falling back to the defaults.
func (cfg *TrainingConfig) EnvRewards() grid_world.Rewards {
	def := grid_world.DefaultRewards
	return grid_world.Rewards{
		Goal:    getOrDefault(cfg.Rewards, "goal", def.Goal),
		Step:    getOrDefault(cfg.Rewards, "step", def.Step),
		Blocked: getOrDefault(cfg.Rewards, "blocked", def.Blocked),
	}
}

// Environment builds the environment described by the config for the passed map.
// Slip randomness is drawn from its own source, seeded from the run seed, so that
// the policy's random stream does not depend on whether the environment slips.
func (cfg *TrainingConfig) Environment(grid *grid_world.GridMap) (*grid_world.Environment, error) {
	actions, err := grid_world.ActionSet(cfg.getAlgorithmOrDefault("actions", "four"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	slip := cfg.GetHyperParamOrDefault("slip", 0)
	if slip < 0 || slip > 1 {
		return nil, fmt.Errorf("%w: slip %v not in [0,1]", ErrInvalidConfig, slip)
	}

	seed := cfg.Params().Seed
	return grid_world.NewEnvironment(
		grid,
		actions,
		cfg.EnvRewards(),
		grid_world.WithSlip(slip, rand.New(rand.NewSource(seed+1))),
	), nil
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: training deadline: %v", ErrInvalidConfig, err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads a training config from a yaml file whose 'def' section holds the TrainingConfig.
// Viper reads the outer envelope; the inner definition is re-serialized and decoded by yaml.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := &TrainingConfig{}
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, fmt.Errorf("decode %s definition: %w", outerConfig.Kind, err)
	}

	return innerConfig, nil
}
