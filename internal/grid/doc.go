// Package grid owns the flag matrix: a fixed-size grid of independently
// mutable boolean cells.
//
// Responsibilities: per-cell reads and writes, atomic bitwise mutation,
// operation dispatch, lens (region) views and masks, structural transforms,
// and the deferred update queue bound to a grid.
// Key types: Grid, Coord, Op, Lens, Update.
//
// Concurrency rule: every cell is its own atomic slot. No operation in this
// package takes a whole-grid lock. Whole-grid reads (Transpose, Snapshot,
// Stack, ...) read cells one at a time and may observe a torn snapshot while
// writers are active.
//
// Collaborators (validator, tag store, metrics) are injected with Options
// at construction; there is no package-level registry.
package grid
