package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/banshee-data/flaggrid/internal/grid"
	"github.com/banshee-data/flaggrid/internal/overlay"
)

func TestPackUnpack(t *testing.T) {
	t.Parallel()
	values := []bool{true, false, false, true, false, false, false, false, true, true}
	packed := Pack(values)
	assert.Equal(t, []byte{0b00001001, 0b00000011}, packed)
	assert.Equal(t, values, Unpack(packed, len(values)))
	assert.Empty(t, Pack(nil))
}

func TestGridRoundTrip(t *testing.T) {
	t.Parallel()
	g, err := grid.FromValues(3, 3, []bool{
		true, false, false,
		false, true, false,
		true, true, true,
	})
	require.NoError(t, err)

	l := FromGrid(g)
	assert.Equal(t, 5, l.SetCount())
	assert.Len(t, l.Flags, 2)

	b, err := l.MarshalBinary()
	require.NoError(t, err)
	var back Layout
	require.NoError(t, back.UnmarshalBinary(b))

	out, err := back.Grid()
	require.NoError(t, err)
	assert.True(t, g.Equal(out), "got\n%s", out)
}

func TestOverlayRoundTrip(t *testing.T) {
	t.Parallel()
	type info struct {
		Priority int
		Owner    string
	}
	o, err := overlay.New[info](2, 2)
	require.NoError(t, err)
	require.NoError(t, o.Update(0, 1, true, info{Priority: 3, Owner: "ops"}))
	require.NoError(t, o.Update(1, 0, false, info{Priority: 1}))

	l, err := FromOverlay(o)
	require.NoError(t, err)
	assert.NotEmpty(t, l.Meta)

	b, err := l.MarshalBinary()
	require.NoError(t, err)
	var back Layout
	require.NoError(t, back.UnmarshalBinary(b))

	out, err := ToOverlay[info](back)
	require.NoError(t, err)
	assert.Equal(t, o.SaveAsMask(), out.SaveAsMask())
	assert.Equal(t, o.Metadata(), out.Metadata())
}

func TestToOverlayWithoutMetadata(t *testing.T) {
	t.Parallel()
	g, err := grid.FromValues(1, 2, []bool{true, true})
	require.NoError(t, err)

	out, err := ToOverlay[int](FromGrid(g))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, out.Metadata())
	assert.Equal(t, []bool{true, true}, out.SaveAsMask())
}

func TestCorruptLayouts(t *testing.T) {
	t.Parallel()

	_, err := Layout{Rows: 3, Cols: 3, Flags: []byte{0}}.Grid()
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Layout{Rows: -1, Cols: 1}.MarshalBinary()
	assert.ErrorIs(t, err, ErrCorrupt)

	var l Layout
	assert.ErrorIs(t, l.UnmarshalBinary([]byte{0xff}), ErrCorrupt)

	_, err = ToOverlay[int](Layout{Rows: 1, Cols: 1, Flags: []byte{1}, Meta: []byte("not gzip")})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOversizedLayoutRejected(t *testing.T) {
	t.Parallel()
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1<<31)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, 1<<31)

	var l Layout
	assert.ErrorIs(t, l.UnmarshalBinary(b), ErrCorrupt)

	_, err := Layout{Rows: 1 << 31, Cols: 1 << 31}.Grid()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	t.Parallel()
	l := Layout{Rows: 1, Cols: 3, Flags: Pack([]bool{true, false, true})}
	b, err := l.MarshalBinary()
	require.NoError(t, err)

	b = protowire.AppendTag(b, 15, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))

	var back Layout
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, l.Rows, back.Rows)
	assert.Equal(t, l.Cols, back.Cols)
	assert.Equal(t, l.Flags, back.Flags)
}

func TestEmptyGridRoundTrip(t *testing.T) {
	t.Parallel()
	g, err := grid.New(0, 4)
	require.NoError(t, err)

	b, err := FromGrid(g).MarshalBinary()
	require.NoError(t, err)
	var back Layout
	require.NoError(t, back.UnmarshalBinary(b))
	out, err := back.Grid()
	require.NoError(t, err)
	assert.Equal(t, 0, out.Rows())
	assert.Equal(t, 4, out.Cols())
}
