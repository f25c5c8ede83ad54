package grid_world

import (
	"math/rand"
)

// Rewards are the reward values returned by the environment.
type Rewards struct {
	// Goal is returned for the move that reaches the goal.
	Goal float64
	// Step is returned for every other legal move, usually a small cost to favor short paths.
	Step float64
	// Blocked is returned when the agent attempts to move off the grid or into a wall.
	Blocked float64
}

// DefaultRewards punish every move by one, and blocked moves equally, as the
// agent does not move at all.
var DefaultRewards = Rewards{
	Goal:    10,
	Step:    -1,
	Blocked: -1,
}

// Environment wraps a GridMap with a transition and a reward function.
// The environment holds no per-episode state: Step is a function of (state, action).
type Environment struct {
	grid    *GridMap
	actions []Action
	rewards Rewards
	slip    float64
	rng     *rand.Rand
}

// EnvOption configures optional environment behavior.
type EnvOption func(*Environment)

// WithSlip makes the environment stochastic: with probability p the executed action is
// replaced by one of its two perpendicular actions, each with probability p/2.
// The environment remains deterministic when p is zero.
func WithSlip(p float64, rng *rand.Rand) EnvOption {
	return func(env *Environment) {
		env.slip = p
		env.rng = rng
	}
}

// NewEnvironment returns an environment for the passed map, action set and rewards.
func NewEnvironment(
	grid *GridMap,
	actions []Action,
	rewards Rewards,
	opts ...EnvOption,
) *Environment {
	env := &Environment{
		grid:    grid,
		actions: actions,
		rewards: rewards,
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

func (env *Environment) Grid() *GridMap { return env.grid }

func (env *Environment) Actions() []Action { return env.actions }

func (env *Environment) Rewards() Rewards { return env.rewards }

// Reset returns the start state. It must be called before each episode.
func (env *Environment) Reset() State {
	return env.grid.Start()
}

// IsTerminal reports whether the state ends an episode.
func (env *Environment) IsTerminal(s State) bool {
	return s == env.grid.Goal()
}

// Step applies the action to the state and returns the reward, the successor and whether
// the successor is terminal. Moves off the grid or into a wall leave the agent in place
// and are penalized; neither is an error.
func (env *Environment) Step(state State, action Action) (reward float64, next State, terminal bool) {
	if env.IsTerminal(state) {
		return 0, state, true
	}

	target := env.execute(action).Apply(state)
	if !env.grid.InBounds(target) || env.grid.IsBlocked(target) {
		return env.rewards.Blocked, state, false
	}
	if env.IsTerminal(target) {
		return env.rewards.Goal, target, true
	}
	return env.rewards.Step, target, false
}

// execute returns the action actually taken, which differs from the chosen one only
// when the environment slips.
func (env *Environment) execute(action Action) Action {
	if env.slip <= 0 || env.rng == nil {
		return action
	}

	r := env.rng.Float64()
	left, right := action.Perpendicular()
	switch {
	case r < env.slip/2:
		return left
	case r < env.slip:
		return right
	}
	return action
}
