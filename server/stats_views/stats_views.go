// stats_views renders charts of per-episode training statistics.
package stats_views

import (
	"fmt"
	"io"
	"strconv"

	"qnav/plotting"
	"qnav/reinforcement"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Render writes an html page charting total reward, steps and epsilon per episode.
// Reward and steps include their moving mean over the passed window.
func Render(w io.Writer, runID string, history []reinforcement.EpisodeStats, window int) error {
	episodes := make([]string, len(history))
	rewards := make([]float64, len(history))
	steps := make([]float64, len(history))
	epsilons := make([]opts.LineData, len(history))
	for i, stats := range history {
		episodes[i] = strconv.Itoa(stats.Episode)
		rewards[i] = stats.TotalReward
		steps[i] = float64(stats.Steps)
		epsilons[i] = opts.LineData{Value: stats.Epsilon}
	}

	subtitle := fmt.Sprintf("run=%s episodes=%d", runID, len(history))
	rewardChart := seriesChart("Total reward", subtitle, episodes, rewards, window)
	stepsChart := seriesChart("Episode length", subtitle, episodes, steps, window)

	epsilonChart := newLine("Exploration rate", subtitle)
	epsilonChart.SetXAxis(episodes).AddSeries("epsilon", epsilons)

	page := components.NewPage()
	page.AddCharts(rewardChart, stepsChart, epsilonChart)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render stats: %w", err)
	}
	return nil
}

func newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode", NameLocation: "middle", NameGap: 25}),
	)
	return line
}

func seriesChart(title, subtitle string, episodes []string, vals []float64, window int) *charts.Line {
	raw := make([]opts.LineData, len(vals))
	for i, val := range vals {
		raw[i] = opts.LineData{Value: val}
	}
	means := plotting.MovingMean(vals, window)
	smooth := make([]opts.LineData, len(means))
	for i, mean := range means {
		smooth[i] = opts.LineData{Value: mean}
	}

	line := newLine(title, subtitle)
	line.SetXAxis(episodes).
		AddSeries(title, raw).
		AddSeries(fmt.Sprintf("mean of %d", window), smooth,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}
