package reinforcement

import (
	"math/rand"

	. "qnav/grid_world"
)

// EpsilonGreedy selects actions by exploring uniformly with probability epsilon
// and otherwise exploiting the table's greedy action.
type EpsilonGreedy struct {
	table *QTable
	rng   *rand.Rand
}

// NewEpsilonGreedy returns a policy over the passed table. The rng should be seeded
// for reproducible runs.
func NewEpsilonGreedy(table *QTable, rng *rand.Rand) *EpsilonGreedy {
	return &EpsilonGreedy{
		table: table,
		rng:   rng,
	}
}

// Select returns an action for the state. With epsilon <= 0 the random source is not
// consulted, so selection is a pure function of the state and the table.
func (p *EpsilonGreedy) Select(state State, epsilon float64) Action {
	if epsilon > 0 && p.rng.Float64() < epsilon {
		// Exploration: do something random
		actions := p.table.Actions()
		return actions[p.rng.Intn(len(actions))]
	}
	// Exploitation
	return p.table.BestAction(state)
}
