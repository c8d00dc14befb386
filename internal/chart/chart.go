// Package chart renders scatterplots of horsepower against MPG and line
// charts of training metrics.
package chart

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Point is one (x, y) sample.
type Point struct {
	X float64
	Y float64
}

// Series is a named set of points drawn with one glyph style.
type Series struct {
	Name   string
	Points []Point
}

// Len, XY implement plotter.XYer.
func (s Series) Len() int { return len(s.Points) }

func (s Series) XY(i int) (x, y float64) { return s.Points[i].X, s.Points[i].Y }

// Options configures a rendered chart.
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions labels the axes "Horsepower" and "MPG".
func DefaultOptions(title string) Options {
	return Options{
		Title:  title,
		XLabel: "Horsepower",
		YLabel: "MPG",
		Width:  6 * vg.Inch,
		Height: 4 * vg.Inch,
	}
}

// HistoryOptions labels the axes "Epoch" and "Value".
func HistoryOptions(title string) Options {
	opts := DefaultOptions(title)
	opts.XLabel = "Epoch"
	opts.YLabel = "Value"
	return opts
}

func newPlot(opts Options) *plot.Plot {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p
}

// New builds a scatterplot of every non-empty series.
func New(opts Options, series ...Series) (*plot.Plot, error) {
	p := newPlot(opts)
	for i, s := range series {
		if s.Len() == 0 {
			continue
		}
		sc, err := plotter.NewScatter(s)
		if err != nil {
			return nil, fmt.Errorf("chart: series %q: %w", s.Name, err)
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = plotutil.Shape(i)
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		if s.Name != "" {
			p.Legend.Add(s.Name, sc)
		}
	}
	return p, nil
}

// NewLines builds a line chart of every non-empty series.
func NewLines(opts Options, series ...Series) (*plot.Plot, error) {
	p := newPlot(opts)
	for i, s := range series {
		if s.Len() == 0 {
			continue
		}
		l, err := plotter.NewLine(s)
		if err != nil {
			return nil, fmt.Errorf("chart: series %q: %w", s.Name, err)
		}
		l.LineStyle.Color = plotutil.Color(i)
		l.LineStyle.Dashes = plotutil.Dashes(i)
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		if s.Name != "" {
			p.Legend.Add(s.Name, l)
		}
	}
	return p, nil
}

// Scatter renders series to path. The image format follows the file
// extension (png, svg, pdf, ...).
func Scatter(path string, opts Options, series ...Series) error {
	p, err := New(opts, series...)
	if err != nil {
		return err
	}
	return save(p, path, opts)
}

// Lines renders series as connected lines to path.
func Lines(path string, opts Options, series ...Series) error {
	p, err := NewLines(opts, series...)
	if err != nil {
		return err
	}
	return save(p, path, opts)
}

func save(p *plot.Plot, path string, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 6*vg.Inch, 4*vg.Inch
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("chart: save %s: %w", path, err)
	}
	return nil
}
