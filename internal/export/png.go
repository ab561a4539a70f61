package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	pngWidth  = 8 * vg.Inch
	pngHeight = 6 * vg.Inch
	pngDPI    = 150
)

// SavePNG draws the lateral error and steering command of every series as
// two stacked panels sharing the time axis.
func SavePNG(path, title string, series []Series) error {
	if err := validate(series); err != nil {
		return err
	}

	errPlot := newPanel(title, "lateral error (m)")
	steerPlot := newPanel("", "steering (rad)")
	steerPlot.X.Label.Text = "time (s)"

	for i, s := range series {
		if err := addLine(errPlot, s.Label, i, s.lateral); err != nil {
			return err
		}
		if err := addLine(steerPlot, s.Label, i, s.steering); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}

	img := vgimg.NewWith(vgimg.UseWH(pngWidth, pngHeight), vgimg.UseDPI(pngDPI))
	dc := draw.New(img)
	plots := [][]*plot.Plot{{errPlot}, {steerPlot}}
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadY:      vg.Points(8),
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(8),
	}
	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		plots[row][0].Draw(canvases[row][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

func newPanel(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, label string, i int, data func() ([]float64, []float64)) error {
	xs, ys := data()
	if len(xs) == 0 {
		return nil
	}
	pts := make(plotter.XYs, len(xs))
	for j := range xs {
		pts[j].X, pts[j].Y = xs[j], ys[j]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = plotutil.Color(i)
	p.Add(line)
	if label != "" {
		p.Legend.Add(label, line)
	}
	return nil
}
