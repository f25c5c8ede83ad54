package reinforcement

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "qnav/grid_world"

	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `kind: qlearning
def:
  hyperParams:
    - key: numEpisodes
      val: 300
    - key: alpha
      val: 0.25
    - key: epsilonDecay
      val: 0.01
    - key: seed
      val: 42
    - key: slip
      val: 0.1
  rewards:
    - key: goal
      val: 20
    - key: blocked
      val: -5
  algorithm:
    actions: eight
    epsilonSchedule: linear
  trainingDeadline:
    duration: 2s
  track:
    - "-oW"
    - "oo+"
`

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromYaml(t *testing.T) {
	Convey("When a config file is read", t, func() {
		Convey("When the file is valid", func() {
			cfg, err := FromYaml(writeConfig(t, testConfig))
			So(err, ShouldBeNil)

			params := cfg.Params()
			So(params.NumEpisodes, ShouldEqual, 300)
			So(params.Alpha, ShouldEqual, 0.25)
			So(params.Seed, ShouldEqual, 42)
			So(params.Schedule, ShouldEqual, Linear)
			// missing keys fall back to the defaults
			So(params.Gamma, ShouldEqual, DefaultParams().Gamma)
			So(params.Validate(), ShouldBeNil)

			So(cfg.EnvRewards(), ShouldResemble, Rewards{Goal: 20, Step: -1, Blocked: -5})
			So(cfg.Track, ShouldResemble, []string{"-oW", "oo+"})

			grid, err := Convert(cfg.Track)
			So(err, ShouldBeNil)
			env, err := cfg.Environment(grid)
			So(err, ShouldBeNil)
			So(env.Actions(), ShouldResemble, EightWay)

			ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			deadline, ok := ctx.Deadline()
			So(ok, ShouldBeTrue)
			So(time.Until(deadline), ShouldBeLessThanOrEqualTo, 2*time.Second)
		})

		Convey("When the file does not exist", func() {
			_, err := FromYaml(filepath.Join(t.TempDir(), "missing.yaml"))
			So(err, ShouldNotBeNil)
		})

		Convey("When the config is empty", func() {
			cfg, err := FromYaml(writeConfig(t, "kind: qlearning\ndef: {}\n"))
			So(err, ShouldBeNil)
			So(cfg.Params(), ShouldResemble, DefaultParams())
			So(cfg.EnvRewards(), ShouldResemble, DefaultRewards)

			ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			_, ok := ctx.Deadline()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("When a config has invalid values", t, func() {
		grid, _ := Convert(DebugTrack)

		Convey("When the action set is unknown", func() {
			cfg := &TrainingConfig{Algorithm: map[string]string{"actions": "six"}}
			_, err := cfg.Environment(grid)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the slip is out of range", func() {
			cfg := &TrainingConfig{HyperParams: []HyperParameter{{Key: "slip", Val: 1.5}}}
			_, err := cfg.Environment(grid)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When the deadline is malformed", func() {
			cfg := &TrainingConfig{TrainingDeadline: map[string]string{"duration": "soon"}}
			_, _, err := cfg.WithTrainingDeadline(context.Background())
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestParams(t *testing.T) {
	Convey("When params are validated", t, func() {
		So(DefaultParams().Validate(), ShouldBeNil)

		cases := map[string]func(p *Params){
			"maxStepsPerEpisode": func(p *Params) { p.MaxStepsPerEpisode = 0 },
			"gamma":              func(p *Params) { p.Gamma = 1.1 },
			"epsilonStart":       func(p *Params) { p.EpsilonStart = -0.1 },
			"exceeds":            func(p *Params) { p.EpsilonMin = 0.5; p.EpsilonStart = 0.2 },
			"epsilonDecay":       func(p *Params) { p.EpsilonDecay = 2 },
			"schedule":           func(p *Params) { p.Schedule = "cosine" },
		}
		for want, mutate := range cases {
			params := DefaultParams()
			mutate(&params)
			err := params.Validate()
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, want)
		}
	})

	Convey("When epsilon decays", t, func() {
		So(Exponential.Next(1, 0.5, 0.1), ShouldEqual, 0.5)
		So(Exponential.Next(0.15, 0.5, 0.1), ShouldEqual, 0.1)
		So(Linear.Next(1, 0.25, 0.1), ShouldEqual, 0.75)
		So(Linear.Next(0.2, 0.25, 0.1), ShouldEqual, 0.1)
		// never increases, even when already under the minimum
		So(Exponential.Next(0.01, 0.9, 0.05), ShouldEqual, 0.01)
	})
}
