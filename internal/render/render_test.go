package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/flaggrid/internal/grid"
	"github.com/banshee-data/flaggrid/internal/testutil"
)

func TestHeatmapHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HeatmapHTML(&buf, testutil.Grid(t, "1000", "0100", "0010", "0001"), "diagonal"))

	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "diagonal")
	assert.Contains(t, out, "heatmap")
	assert.Contains(t, out, "4x4 set=4")
}

func TestHeatmapPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HeatmapPNG(&buf, testutil.Grid(t, "10000", "01000", "00100", "00010", "00001"), "diagonal", 3*vg.Inch))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestHeatmapPNGUniformGrid(t *testing.T) {
	g, err := grid.New(1, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, HeatmapPNG(&buf, g, "empty", 2*vg.Inch))
	assert.NotZero(t, buf.Len())
}

func TestEmptyGrid(t *testing.T) {
	g, err := grid.New(0, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.ErrorIs(t, HeatmapHTML(&buf, g, "x"), ErrEmpty)
	assert.ErrorIs(t, HeatmapPNG(&buf, g, "x", vg.Inch), ErrEmpty)
}

func TestDenseGridOrientation(t *testing.T) {
	d := denseGrid{m: mat.NewDense(2, 3, []float64{
		1, 0, 0,
		0, 0, 1,
	})}
	c, r := d.Dims()
	assert.Equal(t, 3, c)
	assert.Equal(t, 2, r)
	assert.Equal(t, 1.0, d.Z(0, 1), "row 0 is drawn at the top")
	assert.Equal(t, 1.0, d.Z(2, 0))
}
