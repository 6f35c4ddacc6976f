package overlay

import "github.com/banshee-data/flaggrid/internal/grid"

// Stack places other below o. Column counts must match.
func (o *Overlay[T]) Stack(other *Overlay[T]) (*Overlay[T], error) {
	flags, err := o.flags.Stack(other.flags)
	if err != nil {
		return nil, err
	}
	out := wrap[T](flags)
	copyMeta(out, o, 0, 0)
	copyMeta(out, other, o.Rows(), 0)
	return out, nil
}

// Append places other to the right of o. Row counts must match.
func (o *Overlay[T]) Append(other *Overlay[T]) (*Overlay[T], error) {
	flags, err := o.flags.Append(other.flags)
	if err != nil {
		return nil, err
	}
	return o.joinColumns(flags, other), nil
}

// Merge joins other column-wise onto o, with the same rules as Append.
func (o *Overlay[T]) Merge(other *Overlay[T]) (*Overlay[T], error) {
	flags, err := o.flags.Merge(other.flags)
	if err != nil {
		return nil, err
	}
	return o.joinColumns(flags, other), nil
}

func (o *Overlay[T]) joinColumns(flags *grid.Grid, other *Overlay[T]) *Overlay[T] {
	out := wrap[T](flags)
	copyMeta(out, o, 0, 0)
	copyMeta(out, other, 0, o.Cols())
	return out
}

// Grow extends o with unset cells carrying zero metadata.
func (o *Overlay[T]) Grow(extraRows, extraCols int) (*Overlay[T], error) {
	flags, err := o.flags.Grow(extraRows, extraCols)
	if err != nil {
		return nil, err
	}
	out := wrap[T](flags)
	copyMeta(out, o, 0, 0)
	return out, nil
}

// Invert flips every flag. Metadata is carried over unchanged.
func (o *Overlay[T]) Invert() *Overlay[T] {
	out := wrap[T](o.flags.Invert())
	copyMeta(out, o, 0, 0)
	return out
}

// Transpose returns a cols×rows overlay; each cell keeps its metadata.
func (o *Overlay[T]) Transpose() *Overlay[T] {
	out := wrap[T](o.flags.Transpose())
	for r := 0; r < o.Rows(); r++ {
		for c := 0; c < o.Cols(); c++ {
			if p := o.meta[r*o.Cols()+c].Load(); p != nil {
				v := *p
				out.meta[c*out.Cols()+r].Store(&v)
			}
		}
	}
	return out
}

// copyMeta copies src's metadata into dst with src's (0,0) at (rowOff, colOff).
// Values are copied so dst never shares a cell with src.
func copyMeta[T any](dst, src *Overlay[T], rowOff, colOff int) {
	for r := 0; r < src.Rows(); r++ {
		for c := 0; c < src.Cols(); c++ {
			p := src.meta[r*src.Cols()+c].Load()
			if p == nil {
				continue
			}
			v := *p
			dst.meta[(r+rowOff)*dst.Cols()+c+colOff].Store(&v)
		}
	}
}
