package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"os"

	"qnav/grid_world"
	"qnav/plotting"
	"qnav/reinforcement"
	"qnav/server"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// run is a configured training run: the environment, the validated trainer, and the config it
// was built from.
type run struct {
	cfg     *reinforcement.TrainingConfig
	env     *grid_world.Environment
	params  reinforcement.Params
	trainer *reinforcement.Trainer
}

// loadConfig reads the training config. A missing config file is not an error: every
// parameter has a default.
func loadConfig(path string) (*reinforcement.TrainingConfig, error) {
	cfg, err := reinforcement.FromYaml(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("no config at %s, using defaults", path)
		return &reinforcement.TrainingConfig{}, nil
	}
	return cfg, err
}

// selectMap chooses the map by precedence: image, debug mode, config track, named map.
func selectMap(vp *viper.Viper, cfg *reinforcement.TrainingConfig) (*grid_world.GridMap, error) {
	if imagePath := vp.GetString(flagMapImage); imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return grid_world.FromImage(f)
	}

	if vp.GetBool(flagDebug) {
		return grid_world.Convert(grid_world.DebugTrack)
	}

	if len(cfg.Track) > 0 {
		return grid_world.Convert(cfg.Track)
	}

	name := vp.GetString(flagMap)
	track, ok := grid_world.Tracks[name]
	if !ok {
		return nil, fmt.Errorf("%w: no built-in map %q", grid_world.ErrInvalidMap, name)
	}
	return grid_world.Convert(track)
}

// loadRun builds the environment and parameters of a run, failing fast on any configuration error.
func loadRun(vp *viper.Viper) (*run, error) {
	cfg, err := loadConfig(vp.GetString(flagConfig))
	if err != nil {
		return nil, err
	}

	grid, err := selectMap(vp, cfg)
	if err != nil {
		return nil, err
	}

	env, err := cfg.Environment(grid)
	if err != nil {
		return nil, err
	}

	params := cfg.Params()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &run{
		cfg:    cfg,
		env:    env,
		params: params,
	}, nil
}

func (r *run) newTrainer(vp *viper.Viper, opts ...reinforcement.TrainerOption) (err error) {
	if vp.GetBool(flagDebug) {
		opts = append(opts, reinforcement.WithLogger(log.Default()))
	}
	r.trainer, err = reinforcement.NewTrainer(r.env, r.params, opts...)
	return
}

// train runs the trainer under the config's training deadline. Reaching the deadline is not
// an error: training stops early and its partial table is used.
func (r *run) train(ctx context.Context) (*reinforcement.QTable, []reinforcement.EpisodeStats, error) {
	trainingCtx, cancel, err := r.cfg.WithTrainingDeadline(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer cancel()

	table, history, err := r.trainer.Train(trainingCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		log.Printf("training deadline reached after %d episodes", len(history))
		err = nil
	}
	return table, history, err
}

func runTrain(ctx context.Context, vp *viper.Viper, out io.Writer) error {
	r, err := loadRun(vp)
	if err != nil {
		return err
	}
	if err := r.newTrainer(vp); err != nil {
		return err
	}

	grid := r.env.Grid()
	grid_world.ShowGrid(out, grid)

	table, history, err := r.train(ctx)
	if err != nil {
		return err
	}

	path, reached := reinforcement.Rollout(r.env, table, r.params.MaxStepsPerEpisode)
	fmt.Fprintln(out, reinforcement.Summarize(r.trainer.RunID(), history))
	fmt.Fprintln(out, "Policy:")
	grid_world.ShowPolicy(out, grid, table.BestAction, path)
	grid_world.ShowMaxValues(out, grid, table.MaxValue)
	if reached {
		fmt.Fprintf(out, "Greedy rollout reaches the goal in %d steps\n", len(path)-1)
	} else {
		fmt.Fprintf(out, "Greedy rollout stopped after %d steps without reaching the goal\n", len(path)-1)
	}

	window := vp.GetInt(flagPlotWindow)
	if plotPath := vp.GetString(flagPlot); plotPath != "" {
		if err := plotting.SaveLearningCurves(plotPath, history, window); err != nil {
			return err
		}
		log.Printf("wrote learning curves to %s", plotPath)
	}
	if pathPlot := vp.GetString(flagPathPlot); pathPlot != "" {
		if err := plotting.SavePath(pathPlot, grid, path); err != nil {
			return err
		}
		log.Printf("wrote rollout path to %s", pathPlot)
	}
	return nil
}

// exportSnapshots returns a progress hook which publishes a snapshot every n episodes.
// Publication is lossy: when the views are busy the snapshot is dropped rather than
// blocking training, since a later snapshot supersedes it.
func (r *run) exportSnapshots(every int, snapshots chan<- reinforcement.Snapshot) reinforcement.ProgressFunc {
	return func(ctx context.Context, stats reinforcement.EpisodeStats, table *reinforcement.QTable) {
		if every <= 0 || stats.Episode%every != 0 {
			return
		}
		select {
		case snapshots <- r.snapshot(stats.Episode, table):
		default:
		}
	}
}

func (r *run) snapshot(episode int, table *reinforcement.QTable) reinforcement.Snapshot {
	return reinforcement.NewSnapshot(r.trainer.RunID(), episode, r.env, table, r.params.MaxStepsPerEpisode)
}

func runServe(ctx context.Context, vp *viper.Viper) error {
	r, err := loadRun(vp)
	if err != nil {
		return err
	}

	snapshots := make(chan reinforcement.Snapshot)
	telemetry := reinforcement.NewTelemetry()
	if err := r.newTrainer(
		vp,
		reinforcement.WithTelemetry(telemetry),
		reinforcement.WithProgress(r.exportSnapshots(vp.GetInt(flagExportEvery), snapshots)),
	); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)

	initialTable := reinforcement.NewQTable(r.env.Actions(), r.params.InitialValue, r.env.IsTerminal)
	addr := net.JoinHostPort(vp.GetString(flagHost), vp.GetString(flagPort))
	srv, err := server.NewServer(groupCtx, addr, r.snapshot(0, initialTable), snapshots, telemetry)
	if err != nil {
		return err
	}

	group.Go(func() error {
		return srv.Serve(groupCtx)
	})

	group.Go(func() error {
		table, history, err := r.train(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		log.Println(reinforcement.Summarize(r.trainer.RunID(), history))

		// The final snapshot must not be dropped; serving continues until interrupted.
		select {
		case snapshots <- r.snapshot(len(history)-1, table):
		case <-groupCtx.Done():
		}
		return nil
	})

	return group.Wait()
}
