package reinforcement

import (
	. "qnav/grid_world"
)

// Rollout follows the greedy policy from the start state until a terminal state or until
// maxSteps actions have been taken. The returned path begins with the start state, so a
// path reaching the goal in n moves has n+1 states.
func Rollout(env *Environment, table *QTable, maxSteps int) (path []State, reachedGoal bool) {
	state := env.Reset()
	path = append(path, state)
	for step := 0; step < maxSteps; step++ {
		_, next, terminal := env.Step(state, table.BestAction(state))
		path = append(path, next)
		if terminal {
			return path, true
		}
		state = next
	}
	return path, false
}

// Snapshot is a read-only copy of a training run at some episode, for collaborators
// (views, printers) that must not touch the trainer's table.
type Snapshot struct {
	RunID       string
	Episode     int
	Grid        *GridMap
	Table       *QTable
	Path        []State
	ReachedGoal bool
}

// NewSnapshot clones the table and rolls out its greedy path.
func NewSnapshot(runID string, episode int, env *Environment, table *QTable, maxSteps int) Snapshot {
	clone := table.Clone()
	path, reached := Rollout(env, clone, maxSteps)
	return Snapshot{
		RunID:       runID,
		Episode:     episode,
		Grid:        env.Grid(),
		Table:       clone,
		Path:        path,
		ReachedGoal: reached,
	}
}
