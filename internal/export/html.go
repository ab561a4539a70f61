package export

import (
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// SaveHTML writes a page with interactive lateral error and steering
// charts, one line per series.
func SaveHTML(w io.Writer, title string, series []Series) error {
	if err := validate(series); err != nil {
		return err
	}

	errChart := newLineChart(title, "lateral error (m)")
	steerChart := newLineChart("steering", "steering (rad)")
	for _, s := range series {
		errChart.AddSeries(s.Label, lineData(s.lateral()))
		steerChart.AddSeries(s.Label, lineData(s.steering()))
	}

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(errChart, steerChart)
	return page.Render(w)
}

// SaveHTMLFile is SaveHTML to a file.
func SaveHTMLFile(path, title string, series []Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := SaveHTML(f, title, series); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newLineChart(title, ylabel string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: ylabel}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	return line
}

func lineData(xs, ys []float64) []opts.LineData {
	data := make([]opts.LineData, len(xs))
	for i := range xs {
		data[i] = opts.LineData{Value: []interface{}{xs[i], ys[i]}}
	}
	return data
}
