package plotting

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"qnav/grid_world"
	"qnav/reinforcement"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMovingMean(t *testing.T) {
	Convey("When a moving mean is taken", t, func() {
		vals := []float64{1, 3, 5, 7}
		So(MovingMean(vals, 2), ShouldResemble, []float64{1, 2, 4, 6})
		So(MovingMean(vals, 10), ShouldResemble, []float64{1, 2, 3, 4})
		So(MovingMean(vals, 0), ShouldResemble, vals)
		So(MovingMean(nil, 3), ShouldBeEmpty)
	})
}

func TestSaveLearningCurves(t *testing.T) {
	Convey("When learning curves are saved", t, func() {
		dir := t.TempDir()

		Convey("When there is a history", func() {
			history := []reinforcement.EpisodeStats{
				{Episode: 0, Steps: 20, TotalReward: -10},
				{Episode: 1, Steps: 8, TotalReward: 3},
				{Episode: 2, Steps: 4, TotalReward: 7},
			}
			path := filepath.Join(dir, "rewards.png")
			So(SaveLearningCurves(path, history, 2), ShouldBeNil)

			for _, file := range []string{path, filepath.Join(dir, "rewards-steps.png")} {
				info, err := os.Stat(file)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldBeGreaterThan, 0)
			}
		})

		Convey("When there is no history", func() {
			err := SaveLearningCurves(filepath.Join(dir, "empty.png"), nil, 2)
			So(errors.Is(err, ErrNoEpisodes), ShouldBeTrue)
		})
	})
}

func TestSavePath(t *testing.T) {
	Convey("When a rollout path is saved", t, func() {
		grid, err := grid_world.Convert(grid_world.Corridor)
		So(err, ShouldBeNil)
		path := []grid_world.State{
			{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2},
			{Row: 1, Col: 2}, {Row: 2, Col: 2}, {Row: 2, Col: 1}, {Row: 2, Col: 0},
		}

		file := filepath.Join(t.TempDir(), "path.png")
		So(SavePath(file, grid, path), ShouldBeNil)
		info, err := os.Stat(file)
		So(err, ShouldBeNil)
		So(info.Size(), ShouldBeGreaterThan, 0)
	})

	Convey("When a file name is suffixed", t, func() {
		So(withSuffix("out/plot.png", "-steps"), ShouldEqual, "out/plot-steps.png")
		So(withSuffix("plot", "-steps"), ShouldEqual, "plot-steps")
	})
}
