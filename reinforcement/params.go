package reinforcement

import (
	"errors"
	"fmt"
	"math"
)

// DecaySchedule determines how epsilon shrinks between episodes.
type DecaySchedule string

const (
	// Exponential multiplies epsilon by the decay rate: eps = max(min, eps*decay).
	Exponential DecaySchedule = "exponential"
	// Linear subtracts the decay rate from epsilon: eps = max(min, eps-decay).
	Linear DecaySchedule = "linear"
)

// Next returns the epsilon for the following episode. It never exceeds the passed epsilon.
func (ds DecaySchedule) Next(epsilon, decay, epsilonMin float64) float64 {
	var next float64
	switch ds {
	case Linear:
		next = epsilon - decay
	default:
		next = epsilon * decay
	}
	return math.Min(epsilon, math.Max(epsilonMin, next))
}

// Params are the scalar parameters of a training run.
type Params struct {
	NumEpisodes        int
	MaxStepsPerEpisode int
	// Alpha is the learning rate, in (0,1].
	Alpha float64
	// Gamma is the discount factor, in [0,1].
	Gamma float64
	// Epsilon starts at EpsilonStart and decays per Schedule down to EpsilonMin.
	EpsilonStart float64
	EpsilonDecay float64
	EpsilonMin   float64
	Schedule     DecaySchedule
	// InitialValue is the estimate of every unvisited state-action pair.
	InitialValue float64
	Seed         int64
}

// DefaultParams are the parameters used for keys missing from the config.
func DefaultParams() Params {
	return Params{
		NumEpisodes:        500,
		MaxStepsPerEpisode: 200,
		Alpha:              0.5,
		Gamma:              0.9,
		EpsilonStart:       1.0,
		EpsilonDecay:       0.99,
		EpsilonMin:         0.05,
		Schedule:           Exponential,
		InitialValue:       0,
		Seed:               1,
	}
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// Validate reports every out of range parameter, each wrapping ErrInvalidConfig.
func (p Params) Validate() error {
	var errs []error
	invalid := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
	}

	if p.NumEpisodes <= 0 {
		invalid("numEpisodes %d must be positive", p.NumEpisodes)
	}
	if p.MaxStepsPerEpisode <= 0 {
		invalid("maxStepsPerEpisode %d must be positive", p.MaxStepsPerEpisode)
	}
	if p.Alpha <= 0 || p.Alpha > 1 {
		invalid("alpha %v not in (0,1]", p.Alpha)
	}
	if !inUnit(p.Gamma) {
		invalid("gamma %v not in [0,1]", p.Gamma)
	}
	if !inUnit(p.EpsilonStart) {
		invalid("epsilonStart %v not in [0,1]", p.EpsilonStart)
	}
	if !inUnit(p.EpsilonMin) {
		invalid("epsilonMin %v not in [0,1]", p.EpsilonMin)
	}
	if p.EpsilonMin > p.EpsilonStart {
		invalid("epsilonMin %v exceeds epsilonStart %v", p.EpsilonMin, p.EpsilonStart)
	}
	if !inUnit(p.EpsilonDecay) {
		invalid("epsilonDecay %v not in [0,1]", p.EpsilonDecay)
	}
	switch p.Schedule {
	case Exponential, Linear:
	default:
		invalid("unknown epsilon schedule %q", p.Schedule)
	}

	return errors.Join(errs...)
}
