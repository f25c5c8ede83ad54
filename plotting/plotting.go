// Package plotting renders training diagnostics to image files.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"qnav/grid_world"
	"qnav/reinforcement"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var ErrNoEpisodes = errors.New("no episodes to plot")

var (
	rawColor  = color.RGBA{R: 158, G: 158, B: 158, A: 255}
	meanColor = color.RGBA{R: 255, G: 82, B: 82, A: 255}
	wallColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	pathColor = color.RGBA{R: 30, G: 136, B: 229, A: 255}
)

// MovingMean returns the trailing mean of vals over the passed window; the first
// window-1 entries average over however many values precede them.
func MovingMean(vals []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	means := make([]float64, len(vals))
	for i := range vals {
		lo := max(0, i-window+1)
		means[i] = stat.Mean(vals[lo:i+1], nil)
	}
	return means
}

// LearningCurves builds two stacked plots of the per-episode total reward and step count,
// each with its moving mean over the passed window.
func LearningCurves(history []reinforcement.EpisodeStats, window int) (rewards, steps *plot.Plot, err error) {
	if len(history) == 0 {
		return nil, nil, ErrNoEpisodes
	}

	rewardVals := make([]float64, len(history))
	stepVals := make([]float64, len(history))
	for i, stats := range history {
		rewardVals[i] = stats.TotalReward
		stepVals[i] = float64(stats.Steps)
	}

	if rewards, err = curve("Total reward", "reward", rewardVals, window); err != nil {
		return nil, nil, err
	}
	if steps, err = curve("Episode length", "steps", stepVals, window); err != nil {
		return nil, nil, err
	}
	return rewards, steps, nil
}

func curve(title, yLabel string, vals []float64, window int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "episode"
	p.Y.Label.Text = yLabel

	raw := make(plotter.XYs, len(vals))
	smooth := make(plotter.XYs, len(vals))
	for i, mean := range MovingMean(vals, window) {
		raw[i] = plotter.XY{X: float64(i), Y: vals[i]}
		smooth[i] = plotter.XY{X: float64(i), Y: mean}
	}

	rawLine, err := plotter.NewLine(raw)
	if err != nil {
		return nil, fmt.Errorf("%s line: %w", yLabel, err)
	}
	rawLine.Color = rawColor
	rawLine.Width = vg.Points(0.5)

	meanLine, err := plotter.NewLine(smooth)
	if err != nil {
		return nil, fmt.Errorf("%s mean line: %w", yLabel, err)
	}
	meanLine.Color = meanColor
	meanLine.Width = vg.Points(1.5)

	p.Add(rawLine, meanLine)
	p.Legend.Add(yLabel, rawLine)
	p.Legend.Add(fmt.Sprintf("mean of %d", window), meanLine)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SaveLearningCurves writes the reward curve to path, and the episode length curve to the
// same path with a "-steps" suffix before the extension.
func SaveLearningCurves(path string, history []reinforcement.EpisodeStats, window int) error {
	rewards, steps, err := LearningCurves(history, window)
	if err != nil {
		return err
	}
	if err := rewards.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	stepsPath := withSuffix(path, "-steps")
	if err := steps.Save(10*vg.Inch, 5*vg.Inch, stepsPath); err != nil {
		return fmt.Errorf("save %s: %w", stepsPath, err)
	}
	return nil
}

// PathPlot draws the grid's blocked cells and the passed rollout path. Rows grow downward,
// so row r is plotted at y = -r to keep the map's orientation.
func PathPlot(grid *grid_world.GridMap, path []grid_world.State) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Greedy rollout"
	p.X.Min, p.X.Max = -0.5, float64(grid.Cols())-0.5
	p.Y.Min, p.Y.Max = -float64(grid.Rows())+0.5, 0.5
	p.HideAxes()

	var walls plotter.XYs
	grid.Visit(func(cell grid_world.Cell) {
		if cell.Blocked() {
			walls = append(walls, toXY(cell.State))
		}
	})
	if len(walls) > 0 {
		wallPts, err := plotter.NewScatter(walls)
		if err != nil {
			return nil, fmt.Errorf("walls: %w", err)
		}
		wallPts.Shape = draw.BoxGlyph{}
		wallPts.Color = wallColor
		wallPts.Radius = vg.Points(8)
		p.Add(wallPts)
	}

	endpoints, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{toXY(grid.Start()), toXY(grid.Goal())},
		Labels: []string{string(grid_world.START), string(grid_world.GOAL)},
	})
	if err != nil {
		return nil, fmt.Errorf("endpoints: %w", err)
	}
	p.Add(endpoints)

	if len(path) > 1 {
		pts := make(plotter.XYs, len(path))
		for i, state := range path {
			pts[i] = toXY(state)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		line.Color = pathColor
		line.Width = vg.Points(2)
		p.Add(line)
	}
	return p, nil
}

// SavePath writes the PathPlot to the passed file, sized by the grid's dimensions.
func SavePath(file string, grid *grid_world.GridMap, path []grid_world.State) error {
	p, err := PathPlot(grid, path)
	if err != nil {
		return err
	}
	cell := vg.Points(36)
	if err := p.Save(vg.Length(grid.Cols())*cell+vg.Inch, vg.Length(grid.Rows())*cell+vg.Inch, file); err != nil {
		return fmt.Errorf("save %s: %w", file, err)
	}
	return nil
}

func toXY(s grid_world.State) plotter.XY {
	return plotter.XY{X: float64(s.Col), Y: -float64(s.Row)}
}

func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
