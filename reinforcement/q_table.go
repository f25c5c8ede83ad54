package reinforcement

import (
	. "qnav/grid_world"
)

type stateAction struct {
	state  State
	action Action
}

// QTable maps (state, action) pairs to estimated returns. It is sparse: pairs are only
// materialized when first updated, all others read as the initial value. Update is the only
// mutator; a table handed to collaborators should be a Clone.
type QTable struct {
	values     map[stateAction]float64
	actions    []Action
	initial    float64
	isTerminal func(State) bool
}

// NewQTable returns an empty table over the passed action set. The isTerminal predicate
// identifies states past which Update does not bootstrap.
func NewQTable(actions []Action, initial float64, isTerminal func(State) bool) *QTable {
	return &QTable{
		values:     map[stateAction]float64{},
		actions:    actions,
		initial:    initial,
		isTerminal: isTerminal,
	}
}

func (qt *QTable) Actions() []Action { return qt.actions }

// Len returns the number of materialized entries.
func (qt *QTable) Len() int { return len(qt.values) }

// Value returns the current estimate for the pair, or the initial value if it was never updated.
func (qt *QTable) Value(state State, action Action) float64 {
	if val, ok := qt.values[stateAction{state, action}]; ok {
		return val
	}
	return qt.initial
}

// BestAction returns the action with the maximum value in the passed state. Ties go to the
// action that comes first in the action set.
func (qt *QTable) BestAction(state State) (best Action) {
	maxVal := 0.0
	for i, action := range qt.actions {
		val := qt.Value(state, action)
		if i == 0 || val > maxVal {
			best, maxVal = action, val
		}
	}
	return
}

// MaxValue returns max_a Q(state, a), or zero for terminal states.
func (qt *QTable) MaxValue(state State) float64 {
	if qt.isTerminal != nil && qt.isTerminal(state) {
		return 0
	}
	return qt.Value(state, qt.BestAction(state))
}

// Update applies the one-step Q-learning rule:
//
//	Q(s,a) <- Q(s,a) + alpha * (reward + gamma * max_a' Q(s',a') - Q(s,a))
//
// where the max term is zero when next is terminal.
func (qt *QTable) Update(state State, action Action, reward float64, next State, alpha, gamma float64) {
	key := stateAction{state, action}
	val := qt.Value(state, action)
	target := reward + gamma*qt.MaxValue(next)
	newVal := val + alpha*(target-val)
	// Keep the table sparse when an update does not move an unmaterialized pair.
	if _, ok := qt.values[key]; !ok && newVal == val {
		return
	}
	qt.values[key] = newVal
}

// Clone returns a deep copy of the table, safe to hand to other goroutines.
func (qt *QTable) Clone() *QTable {
	values := make(map[stateAction]float64, len(qt.values))
	for k, v := range qt.values {
		values[k] = v
	}
	return &QTable{
		values:     values,
		actions:    qt.actions,
		initial:    qt.initial,
		isTerminal: qt.isTerminal,
	}
}
