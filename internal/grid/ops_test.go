package grid

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flaggrid/internal/metrics"
)

func TestExecute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		op      Op
		coord   Coord
		operand *bool
		want    bool
		wantErr error
	}{
		{name: "get unset", op: OpGet, coord: Coord{0, 0}, want: false},
		{name: "set", op: OpSet, coord: Coord{0, 0}, operand: boolPtr(true), want: true},
		{name: "set missing operand", op: OpSet, coord: Coord{0, 0}, wantErr: ErrMissingOperand},
		{name: "set out of bounds", op: OpSet, coord: Coord{3, 0}, operand: boolPtr(true), wantErr: ErrIndexOutOfBounds},
		{name: "or", op: OpOr, coord: Coord{1, 1}, operand: boolPtr(true), want: true},
		{name: "and", op: OpAnd, coord: Coord{1, 1}, operand: boolPtr(true), want: false},
		{name: "xor", op: OpXor, coord: Coord{1, 1}, operand: boolPtr(true), want: true},
		{name: "xor missing operand", op: OpXor, coord: Coord{1, 1}, wantErr: ErrMissingOperand},
		{name: "not", op: OpNot, coord: Coord{2, 2}, want: true},
		{name: "not out of bounds", op: OpNot, coord: Coord{0, 9}, wantErr: ErrIndexOutOfBounds},
		{name: "view needs lens", op: OpView, coord: Coord{0, 0}, wantErr: ErrMissingOperand},
		{name: "unknown", op: Op(42), coord: Coord{0, 0}, wantErr: ErrUnknownOp},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := New(3, 3)
			require.NoError(t, err)

			got, err := g.Execute(tt.op, tt.coord, tt.operand)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, g.Count(), "failed op must not mutate")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecuteView(t *testing.T) {
	t.Parallel()
	g := mustGrid(t,
		"100",
		"010",
	)

	vals, err := g.ExecuteView(RowLens(1))
	require.NoError(t, err)
	assert.Equal(t, []CellValue{
		{Coord: Coord{1, 0}, Value: false},
		{Coord: Coord{1, 1}, Value: true},
		{Coord: Coord{1, 2}, Value: false},
	}, vals)

	_, err = g.ExecuteView(RowLens(2))
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestOpNames(t *testing.T) {
	t.Parallel()
	for op := OpGet; op <= OpView; op++ {
		parsed, err := ParseOp(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, parsed)
	}
	_, err := ParseOp("nand")
	assert.ErrorIs(t, err, ErrUnknownOp)
	assert.Equal(t, "op(99)", Op(99).String())
}

func TestExecuteRecordsMetrics(t *testing.T) {
	t.Parallel()
	m := metrics.New(nil)
	g, err := New(2, 2, WithMetrics(m), WithValidator(ValidatorFunc(func(Coord, bool) bool { return false })))
	require.NoError(t, err)

	_, _ = g.Execute(OpGet, Coord{0, 0}, nil)
	_, _ = g.Execute(OpGet, Coord{5, 0}, nil)
	_, _ = g.Execute(OpSet, Coord{0, 0}, boolPtr(true))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ops.WithLabelValues("get", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ops.WithLabelValues("get", "out_of_bounds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ops.WithLabelValues("set", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationRejections))
}

func TestEveryRejectionIsCounted(t *testing.T) {
	t.Parallel()
	m := metrics.New(nil)
	g, err := New(2, 2, WithMetrics(m), WithValidator(ValidatorFunc(func(c Coord, _ bool) bool { return c.Row == 0 })))
	require.NoError(t, err)

	assert.ErrorIs(t, g.Set(1, 0, true), ErrValidationRejected)
	require.NoError(t, g.Set(0, 0, true))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationRejections), "direct Set")

	assert.ErrorIs(t, g.ApplyLens(RowLens(1), OpSet, boolPtr(true)), ErrValidationRejected)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationRejections), "lens write stops at the first rejection")
}

func TestUpdateJSON(t *testing.T) {
	t.Parallel()
	u := BitwiseUpdate(OpXor, 1, 2, true)

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"op":"xor"`)

	var back Update
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, u, back)
}
