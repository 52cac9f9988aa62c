package stats

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

// Plot renders an HTML page with the grouped mean reward and mean snake
// length of a run, each with its least squares trend line.
func Plot(w io.Writer, title string, groups []GroupRecord) error {
	if len(groups) == 0 {
		return errors.New("nothing to plot")
	}

	xs := make([]float64, len(groups))
	labels := make([]string, len(groups))
	rewards := make([]float64, len(groups))
	lengths := make([]float64, len(groups))
	for i, g := range groups {
		xs[i] = float64(i)
		labels[i] = fmt.Sprintf("%d-%d", g.FirstEpisode, g.LastEpisode)
		rewards[i] = g.AverageReward
		lengths[i] = g.AverageLength
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		trendChart(title+": mean reward", "reward", labels, xs, rewards),
		trendChart(title+": mean length", "length", labels, xs, lengths),
	)
	return errors.Wrap(page.Render(w), "render plot")
}

func trendChart(title, series string, labels []string, xs, ys []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episodes"}),
	)

	intercept, slope := Trend(xs, ys)
	values := make([]opts.LineData, 0, len(ys))
	trend := make([]opts.LineData, 0, len(ys))
	for i, y := range ys {
		values = append(values, opts.LineData{Value: y})
		trend = append(trend, opts.LineData{Value: intercept + slope*xs[i]})
	}

	line.SetXAxis(labels).
		AddSeries(series, values).
		AddSeries("trend", trend)
	return line
}
