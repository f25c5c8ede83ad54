package reinforcement

import (
	"sync"
	"sync/atomic"

	"qnav/atomic_float"
)

// Telemetry publishes training progress for concurrent readers, such as the server,
// while the trainer runs. Gauges are atomic; the episode history is guarded by a mutex.
type Telemetry struct {
	Epsilon    *atomic_float.AtomicFloat64
	LastReward *atomic_float.AtomicFloat64
	episodes   atomic.Int64
	goals      atomic.Int64

	mu      sync.RWMutex
	history []EpisodeStats
}

func NewTelemetry() *Telemetry {
	return &Telemetry{
		Epsilon:    atomic_float.NewAtomicFloat64(0),
		LastReward: atomic_float.NewAtomicFloat64(0),
	}
}

// Record publishes the stats of a completed episode.
func (tm *Telemetry) Record(stats EpisodeStats) {
	tm.Epsilon.AtomicSet(stats.Epsilon)
	tm.LastReward.AtomicSet(stats.TotalReward)
	tm.episodes.Add(1)
	if stats.Outcome == ReachedGoal {
		tm.goals.Add(1)
	}

	tm.mu.Lock()
	tm.history = append(tm.history, stats)
	tm.mu.Unlock()
}

// Episodes returns the number of recorded episodes.
func (tm *Telemetry) Episodes() int64 { return tm.episodes.Load() }

// Goals returns the number of recorded episodes which reached the goal.
func (tm *Telemetry) Goals() int64 { return tm.goals.Load() }

// History returns a copy of the recorded episode stats.
func (tm *Telemetry) History() []EpisodeStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	history := make([]EpisodeStats, len(tm.history))
	copy(history, tm.history)
	return history
}
