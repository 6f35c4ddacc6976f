// Package render draws flag grids as heatmaps: interactive HTML via
// go-echarts and static PNG via gonum/plot.
package render

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/flaggrid/internal/grid"
	"github.com/banshee-data/flaggrid/internal/overlay"
)

// ErrEmpty is returned for grids without cells.
var ErrEmpty = errors.New("nothing to render: grid has no cells")

// echartsAssetsPrefix is left empty so the default CDN is used.
const echartsAssetsPrefix = ""

var viridis = []string{"#440154", "#31688e", "#35b779", "#fde725"}

// HeatmapHTML writes a standalone HTML page with one heatmap cell per flag.
// Row 0 is drawn at the top.
func HeatmapHTML(w io.Writer, g *grid.Grid, title string) error {
	if g.Len() == 0 {
		return ErrEmpty
	}
	xs := make([]string, g.Cols())
	for c := range xs {
		xs[c] = strconv.Itoa(c)
	}
	ys := make([]string, g.Rows())
	for r := range ys {
		ys[r] = strconv.Itoa(g.Rows() - 1 - r)
	}

	snap := g.Snapshot()
	data := make([]opts.HeatMapData, 0, len(snap))
	for i, v := range snap {
		r, c := i/g.Cols(), i%g.Cols()
		z := 0
		if v {
			z = 1
		}
		data = append(data, opts.HeatMapData{Value: [3]interface{}{c, g.Rows() - 1 - r, z}})
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%dx%d set=%d", g.Rows(), g.Cols(), g.Count())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xs, Name: "col"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "row"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:    opts.Bool(true),
			Min:     0,
			Max:     1,
			InRange: &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(xs).AddSeries("flags", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("render heatmap html: %w", err)
	}
	return nil
}

// denseGrid adapts a 0/1 matrix to plotter.GridXYZ with row 0 at the top.
type denseGrid struct {
	m *mat.Dense
}

func (d denseGrid) Dims() (c, r int) {
	rows, cols := d.m.Dims()
	return cols, rows
}

func (d denseGrid) Z(c, r int) float64 {
	rows, _ := d.m.Dims()
	return d.m.At(rows-1-r, c)
}

func (d denseGrid) X(c int) float64 { return float64(c) }
func (d denseGrid) Y(r int) float64 { return float64(r) }

// HeatmapPNG writes a square PNG heatmap of g with sides of length size.
func HeatmapPNG(w io.Writer, g *grid.Grid, title string, size vg.Length) error {
	d := overlay.Dense(g)
	if d == nil {
		return ErrEmpty
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "col"
	p.Y.Label.Text = "row (from bottom)"

	hm := plotter.NewHeatMap(denseGrid{m: d}, palette.Heat(8, 1))
	// fixed range so an all-clear or all-set grid still has a colour scale
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	wt, err := p.WriterTo(size, size, "png")
	if err != nil {
		return fmt.Errorf("render heatmap png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write heatmap png: %w", err)
	}
	return nil
}
