// Package testutil provides shared test fixtures.
package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/flaggrid/internal/grid"
)

// Grid builds a grid from rows of '1' (set) and '0' or '.' (clear).
// Every row must have the same width.
func Grid(t testing.TB, rows ...string) *grid.Grid {
	t.Helper()
	if len(rows) == 0 {
		t.Fatal("testutil.Grid: no rows")
	}
	cols := len(rows[0])
	values := make([]bool, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			t.Fatalf("testutil.Grid: row %d has width %d, want %d", i, len(r), cols)
		}
		for _, ch := range r {
			switch ch {
			case '1':
				values = append(values, true)
			case '0', '.':
				values = append(values, false)
			default:
				t.Fatalf("testutil.Grid: row %d: unexpected %q", i, ch)
			}
		}
	}
	g, err := grid.FromValues(len(rows), cols, values)
	if err != nil {
		t.Fatalf("testutil.Grid: %v", err)
	}
	return g
}

// Rows renders g in the format accepted by Grid, using '1' and '.'.
func Rows(g *grid.Grid) []string {
	snap := g.Snapshot()
	out := make([]string, g.Rows())
	for r := range out {
		var b strings.Builder
		for c := 0; c < g.Cols(); c++ {
			if snap[r*g.Cols()+c] {
				b.WriteByte('1')
			} else {
				b.WriteByte('.')
			}
		}
		out[r] = b.String()
	}
	return out
}

// TempPath returns name inside a per-test temporary directory.
func TempPath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
