package layout

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the wire form. Unknown fields are skipped on decode.
const (
	fieldRows  protowire.Number = 1
	fieldCols  protowire.Number = 2
	fieldFlags protowire.Number = 3
	fieldMeta  protowire.Number = 4
)

// MarshalBinary encodes l as a protobuf-compatible message.
func (l Layout) MarshalBinary() ([]byte, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	var b []byte
	b = protowire.AppendTag(b, fieldRows, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.Rows))
	b = protowire.AppendTag(b, fieldCols, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.Cols))
	b = protowire.AppendTag(b, fieldFlags, protowire.BytesType)
	b = protowire.AppendBytes(b, l.Flags)
	if len(l.Meta) > 0 {
		b = protowire.AppendTag(b, fieldMeta, protowire.BytesType)
		b = protowire.AppendBytes(b, l.Meta)
	}
	return b, nil
}

// UnmarshalBinary decodes the form written by MarshalBinary.
func (l *Layout) UnmarshalBinary(b []byte) error {
	var out Layout
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case (num == fieldRows || num == fieldCols) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
			}
			if v > 1<<31 {
				return fmt.Errorf("%w: dimension %d too large", ErrCorrupt, v)
			}
			if num == fieldRows {
				out.Rows = int(v)
			} else {
				out.Cols = int(v)
			}
			b = b[n:]
		case (num == fieldFlags || num == fieldMeta) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
			}
			v = append([]byte(nil), v...)
			if num == fieldFlags {
				out.Flags = v
			} else {
				out.Meta = v
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if out.Flags == nil {
		out.Flags = []byte{}
	}
	if err := out.check(); err != nil {
		return err
	}
	*l = out
	return nil
}
