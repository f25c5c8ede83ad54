package reinforcement

/*
One-step Q-learning with an epsilon-greedy behavior policy. The agent's experience is generated
and consumed in the same loop: every transition is applied to the table before the next action
is chosen, so no coordination is needed between generating episodes and updating values, unlike
Monte Carlo methods where the values must be quiescent while episodes are generated.
Since Q-learning is off-policy, the greedy target policy is learned regardless of how much the
behavior policy explores; exploration only determines which pairs get visited and how often.
*/

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"

	. "qnav/grid_world"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Outcome is how an episode ended.
type Outcome int

const (
	// ReachedGoal takes precedence: reaching the goal on the last allowed step is still ReachedGoal.
	ReachedGoal Outcome = iota
	HitStepCap
)

func (o Outcome) String() string {
	if o == ReachedGoal {
		return "goal"
	}
	return "step-cap"
}

// EpisodeStats summarizes an episode for diagnostics and plotting.
type EpisodeStats struct {
	Episode     int
	Steps       int
	TotalReward float64
	// Epsilon is the exploration rate used during the episode.
	Epsilon float64
	Outcome Outcome
}

// ProgressFunc is a callback by which the training method can lend progress details.
// It is called synchronously after every episode and should complete quickly. The table is the
// trainer's live table: callers must Clone it (or build a Snapshot) before retaining it.
type ProgressFunc func(ctx context.Context, stats EpisodeStats, table *QTable)

// Trainer drives repeated episodes against an environment, updating its QTable after every
// transition and decaying exploration between episodes. The table is owned by the trainer
// until Train returns.
type Trainer struct {
	runID      string
	env        *Environment
	params     Params
	table      *QTable
	policy     *EpsilonGreedy
	progressFn ProgressFunc
	telemetry  *Telemetry
	logger     *log.Logger
}

type TrainerOption func(*Trainer)

// WithProgress sets a hook called after every episode.
func WithProgress(fn ProgressFunc) TrainerOption {
	return func(t *Trainer) { t.progressFn = fn }
}

// WithTelemetry publishes every episode's stats to the passed telemetry.
func WithTelemetry(tm *Telemetry) TrainerOption {
	return func(t *Trainer) { t.telemetry = tm }
}

// WithRand replaces the policy's random source, which is otherwise seeded from Params.Seed.
func WithRand(rng *rand.Rand) TrainerOption {
	return func(t *Trainer) { t.policy = NewEpsilonGreedy(t.table, rng) }
}

// WithLogger replaces the default logger. Pass a logger over io.Discard to silence training.
func WithLogger(logger *log.Logger) TrainerOption {
	return func(t *Trainer) { t.logger = logger }
}

// NewTrainer validates the parameters and returns a trainer with an empty table. Invalid
// parameters are fatal to the run: no training can start with them.
func NewTrainer(env *Environment, params Params, opts ...TrainerOption) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	table := NewQTable(env.Actions(), params.InitialValue, env.IsTerminal)
	t := &Trainer{
		runID:  uuid.NewString(),
		env:    env,
		params: params,
		table:  table,
		policy: NewEpsilonGreedy(table, rand.New(rand.NewSource(params.Seed))),
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// RunID identifies this training run in logs and views.
func (t *Trainer) RunID() string { return t.runID }

func (t *Trainer) Params() Params { return t.params }

// Train runs the configured number of episodes sequentially and returns the table and the
// per-episode stats. Cancelling the context stops training between episodes, returning the
// table trained so far along with the context's error.
func (t *Trainer) Train(ctx context.Context) (*QTable, []EpisodeStats, error) {
	epsilon := t.params.EpsilonStart
	history := make([]EpisodeStats, 0, t.params.NumEpisodes)

	for ep := 0; ep < t.params.NumEpisodes; ep++ {
		// done-guard
		select {
		case <-ctx.Done():
			t.logger.Printf("run %s: stopped after %d episodes: %v", t.runID, ep, ctx.Err())
			return t.table, history, ctx.Err()
		default:
		}

		episode, outcome := t.runEpisode(epsilon)
		stats := EpisodeStats{
			Episode:     ep,
			Steps:       len(episode),
			TotalReward: episode.TotalReward(),
			Epsilon:     epsilon,
			Outcome:     outcome,
		}
		history = append(history, stats)

		if outcome == HitStepCap {
			t.logger.Printf("run %s: episode %d hit the step cap of %d", t.runID, ep, t.params.MaxStepsPerEpisode)
		}
		if t.telemetry != nil {
			t.telemetry.Record(stats)
		}
		if t.progressFn != nil {
			t.progressFn(ctx, stats, t.table)
		}

		epsilon = t.params.Schedule.Next(epsilon, t.params.EpsilonDecay, t.params.EpsilonMin)
	}

	t.logger.Println(Summarize(t.runID, history))
	return t.table, history, nil
}

// runEpisode runs a single episode from the start state, updating the table after every step.
// The episode ends when a terminal state is reached or the step cap is exhausted; a terminal
// final step counts as reaching the goal.
func (t *Trainer) runEpisode(epsilon float64) (episode Episode, outcome Outcome) {
	state := t.env.Reset()
	for step := 0; step < t.params.MaxStepsPerEpisode; step++ {
		action := t.policy.Select(state, epsilon)
		reward, next, terminal := t.env.Step(state, action)
		t.table.Update(state, action, reward, next, t.params.Alpha, t.params.Gamma)
		episode = append(
			episode,
			Step{
				State:     state,
				Action:    action,
				Reward:    reward,
				Successor: next,
			})
		if terminal {
			return episode, ReachedGoal
		}
		state = next
	}
	return episode, HitStepCap
}

// Summarize describes a run's history in a single line: goal rate, and the mean reward and
// steps over the last tenth of the episodes.
func Summarize(runID string, history []EpisodeStats) string {
	if len(history) == 0 {
		return fmt.Sprintf("run %s: no episodes", runID)
	}

	goals := 0
	for _, stats := range history {
		if stats.Outcome == ReachedGoal {
			goals++
		}
	}

	tail := history[len(history)-max(1, len(history)/10):]
	rewards := make([]float64, len(tail))
	steps := make([]float64, len(tail))
	for i, stats := range tail {
		rewards[i] = stats.TotalReward
		steps[i] = float64(stats.Steps)
	}

	return fmt.Sprintf(
		"run %s: %d episodes, %d reached goal, %d hit step cap; last %d: mean reward %.2f, mean steps %.2f",
		runID,
		len(history),
		goals,
		len(history)-goals,
		len(tail),
		stat.Mean(rewards, nil),
		stat.Mean(steps, nil))
}
