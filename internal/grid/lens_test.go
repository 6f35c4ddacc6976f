package grid

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flaggrid/internal/tags"
)

func TestRegion(t *testing.T) {
	t.Parallel()
	g, err := New(3, 4)
	require.NoError(t, err)

	tests := []struct {
		lens Lens
		want []Coord
	}{
		{RowLens(1), []Coord{{1, 0}, {1, 1}, {1, 2}, {1, 3}}},
		{ColumnLens(2), []Coord{{0, 2}, {1, 2}, {2, 2}}},
		{SubmatrixLens(Coord{0, 1}, Coord{1, 2}), []Coord{{0, 1}, {0, 2}, {1, 1}, {1, 2}}},
		{DiagonalLens(), []Coord{{0, 0}, {1, 1}, {2, 2}}},
		{BandLens(0), []Coord{{0, 0}, {1, 1}, {2, 2}}},
		{BandLens(1), []Coord{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {1, 2}, {2, 1}, {2, 2}, {2, 3}}},
		{UpperTriangularLens(), []Coord{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}},
		{LowerTriangularLens(), []Coord{{1, 0}, {2, 0}, {2, 1}}},
	}
	for _, tt := range tests {
		got, err := g.Region(tt.lens)
		require.NoError(t, err, tt.lens.String())
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s region mismatch (-want +got):\n%s", tt.lens, diff)
		}
	}
}

func TestBandWiderThanGridCoversEverything(t *testing.T) {
	t.Parallel()
	for _, w := range []int{2, 3, 1 << 40, math.MaxInt - 1, math.MaxInt} {
		g, err := New(3, 3)
		require.NoError(t, err)

		got, err := g.Region(BandLens(w))
		require.NoError(t, err)
		assert.Len(t, got, 9, "band(%d)", w)

		require.NoError(t, g.ApplyLens(BandLens(w), OpSet, boolPtr(true)))
		assert.Equal(t, 9, g.Count(), "band(%d)", w)

		require.NoError(t, g.Mask(BandLens(w)))
		assert.Equal(t, 9, g.Count(), "mask keeps what the region covers")
	}
}

func TestSparseRegionTracksLiveGrid(t *testing.T) {
	t.Parallel()
	g := mustGrid(t,
		"100",
		"001",
	)
	got, err := g.Region(SparseLens())
	require.NoError(t, err)
	assert.Equal(t, []Coord{{0, 0}, {1, 2}}, got)

	require.NoError(t, g.Set(1, 0, true))
	got, err = g.Region(SparseLens())
	require.NoError(t, err)
	assert.Equal(t, []Coord{{0, 0}, {1, 0}, {1, 2}}, got)
}

func TestLensBoundsCheckedAtUse(t *testing.T) {
	t.Parallel()
	lens := RowLens(3) // valid for a 4-row grid, not for a 3-row grid

	big, err := New(4, 4)
	require.NoError(t, err)
	_, err = big.Region(lens)
	assert.NoError(t, err)

	small, err := New(3, 3)
	require.NoError(t, err)
	_, err = small.Region(lens)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)

	bad := []Lens{
		RowLens(-1),
		ColumnLens(3),
		SubmatrixLens(Coord{0, 0}, Coord{3, 0}),
		SubmatrixLens(Coord{2, 2}, Coord{1, 1}),
		BandLens(-1),
	}
	for _, l := range bad {
		_, err := small.View(l)
		assert.ErrorIs(t, err, ErrIndexOutOfBounds, l.String())
	}
}

func TestApplyLens(t *testing.T) {
	t.Parallel()
	g, err := New(3, 3)
	require.NoError(t, err)

	require.NoError(t, g.ApplyLens(RowLens(0), OpSet, boolPtr(true)))
	require.NoError(t, g.ApplyLens(ColumnLens(0), OpXor, boolPtr(true)))
	require.NoError(t, g.ApplyLens(DiagonalLens(), OpNot, nil))

	want := mustGrid(t,
		"111",
		"110",
		"101",
	)
	assert.True(t, want.Equal(g), "got\n%s", g)

	assert.ErrorIs(t, g.ApplyLens(RowLens(0), OpAnd, nil), ErrMissingOperand)
	assert.ErrorIs(t, g.ApplyLens(RowLens(0), OpGet, nil), ErrUnknownOp)
}

func TestApplyLensIsAllOrNothing(t *testing.T) {
	t.Parallel()
	rejectCorner := ValidatorFunc(func(c Coord, v bool) bool {
		return !(c.Row == 2 && c.Col == 2)
	})
	g, err := New(3, 3, WithValidator(rejectCorner))
	require.NoError(t, err)

	err = g.ApplyLens(SubmatrixLens(Coord{1, 1}, Coord{2, 2}), OpSet, boolPtr(true))
	assert.ErrorIs(t, err, ErrValidationRejected)
	assert.Equal(t, 0, g.Count(), "rejected region write must leave grid unchanged")

	err = g.ApplyLens(SubmatrixLens(Coord{0, 0}, Coord{3, 3}), OpNot, nil)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
	assert.Equal(t, 0, g.Count())
}

func TestApplyUpperTriangular(t *testing.T) {
	t.Parallel()
	g := mustGrid(t,
		"111",
		"111",
		"111",
	)
	require.NoError(t, ApplyUpperTriangular(g))

	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			v, err := g.Get(r, c)
			require.NoError(t, err)
			assert.Equal(t, r <= c, v, "cell (%d,%d)", r, c)
		}
	}
}

func TestApplyLowerTriangularNonSquare(t *testing.T) {
	t.Parallel()
	g := mustGrid(t,
		"1111",
		"1111",
	)
	require.NoError(t, ApplyLowerTriangular(g))
	want := mustGrid(t,
		"1000",
		"1100",
	)
	assert.True(t, want.Equal(g), "got\n%s", g)
}

func TestMask(t *testing.T) {
	t.Parallel()
	g := mustGrid(t,
		"111",
		"111",
		"111",
	)
	require.NoError(t, g.Mask(SubmatrixLens(Coord{0, 1}, Coord{1, 2})))
	want := mustGrid(t,
		".11",
		".11",
		"...",
	)
	assert.True(t, want.Equal(g), "got\n%s", g)

	before := g.Snapshot()
	assert.ErrorIs(t, g.Mask(ColumnLens(7)), ErrIndexOutOfBounds)
	assert.Equal(t, before, g.Snapshot())

	require.NoError(t, g.Mask(SparseLens()))
	assert.Equal(t, before, g.Snapshot())
}

func TestLensStringRoundTrip(t *testing.T) {
	t.Parallel()
	lenses := []Lens{
		RowLens(4),
		ColumnLens(0),
		SubmatrixLens(Coord{1, 2}, Coord{3, 4}),
		DiagonalLens(),
		BandLens(2),
		UpperTriangularLens(),
		LowerTriangularLens(),
		SparseLens(),
	}
	for _, l := range lenses {
		parsed, err := ParseLens(l.String())
		require.NoError(t, err, l.String())
		assert.Equal(t, l, parsed)
	}
	_, err := ParseLens("hexagon(3)")
	assert.Error(t, err)
	_, err = ParseLens("row(x)")
	assert.Error(t, err)
}

func TestTags(t *testing.T) {
	t.Parallel()
	g, err := New(3, 3, WithTags(tags.NewMemory()))
	require.NoError(t, err)

	require.NoError(t, g.Tag(RowLens(1), []byte("hot")))
	payload, ok, err := g.Tags(RowLens(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("hot"), payload)

	assert.ErrorIs(t, g.Tag(RowLens(3), []byte("x")), ErrIndexOutOfBounds)

	assert.ErrorIs(t, g.Untag(RowLens(3)), ErrIndexOutOfBounds)
	require.NoError(t, g.Untag(RowLens(1)))
	_, ok, err = g.Tags(RowLens(1))
	require.NoError(t, err)
	assert.False(t, ok)

	bare, err := New(1, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, bare.Tag(DiagonalLens(), nil), ErrNoTagStore)
}
