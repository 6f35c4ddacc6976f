package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flaggrid/internal/grid"
	"github.com/banshee-data/flaggrid/internal/layout"
	"github.com/banshee-data/flaggrid/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "flaggrid.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testLayout(t *testing.T, values ...bool) layout.Layout {
	t.Helper()
	g, err := grid.FromValues(1, len(values), values)
	require.NoError(t, err)
	return layout.FromGrid(g)
}

func TestOpenMigrates(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// running again is a no-op
	require.NoError(t, s.MigrateUp())
}

func TestSaveGetLatestList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	first := storage.NewSnapshot("lanes", "manual", testLayout(t, true, false, true), base)
	second := storage.NewSnapshot("lanes", "periodic", testLayout(t, false, false, true), base.Add(time.Minute))
	other := storage.NewSnapshot("zones", "manual", testLayout(t, true), base.Add(time.Hour))
	for _, snap := range []storage.Snapshot{first, second, other} {
		require.NoError(t, s.Save(ctx, snap))
	}

	got, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Name, got.Name)
	assert.Equal(t, 2, got.SetCount)
	assert.Equal(t, first.Layout.Flags, got.Layout.Flags)

	latest, err := s.Latest(ctx, "lanes")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	g, err := latest.Layout.Grid()
	require.NoError(t, err)
	assert.Equal(t, "..1", g.String())

	list, err := s.List(ctx, "lanes")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.Latest(ctx, "nothing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := s.List(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveDuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	snap := storage.NewSnapshot("lanes", "manual", testLayout(t, true), time.Now())

	require.NoError(t, s.Save(ctx, snap))
	assert.Error(t, s.Save(ctx, snap))
}

func TestTagTable(t *testing.T) {
	s := openTestStore(t)
	lanes := s.Tags("lanes")
	zones := s.Tags("zones")

	require.NoError(t, lanes.Put("row(1)", []byte("a")))
	require.NoError(t, lanes.Put("row(1)", []byte("b")))
	require.NoError(t, lanes.Put("diagonal", []byte("d")))
	require.NoError(t, zones.Put("row(1)", []byte("z")))

	got, ok, err := lanes.Get("row(1)")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("b"), got)

	keys, err := lanes.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"diagonal", "row(1)"}, keys)

	require.NoError(t, lanes.Delete("row(1)"))
	_, ok, err = lanes.Get("row(1)")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err = zones.Get("row(1)")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("z"), got)
}

func TestTagTableBacksGrid(t *testing.T) {
	s := openTestStore(t)
	g, err := grid.New(4, 4, grid.WithTags(s.Tags("lanes")))
	require.NoError(t, err)

	require.NoError(t, g.Tag(grid.BandLens(1), []byte("corridor")))
	payload, ok, err := g.Tags(grid.BandLens(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("corridor"), payload)
}
