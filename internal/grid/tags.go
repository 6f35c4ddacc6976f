package grid

import "fmt"

// TagStore is the region-keyed association table. The grid writes and reads
// payloads by lens key and never interprets them.
type TagStore interface {
	Put(key string, payload []byte) error
	Get(key string) ([]byte, bool, error)
	Delete(key string) error
	Keys() ([]string, error)
}

// Tag associates payload with the region l. The lens is validated against
// the grid before the store is touched.
func (g *Grid) Tag(l Lens, payload []byte) error {
	if g.tags == nil {
		return ErrNoTagStore
	}
	if err := l.check(g.rows, g.cols); err != nil {
		return err
	}
	if err := g.tags.Put(l.String(), payload); err != nil {
		return fmt.Errorf("tag %s: %w", l, err)
	}
	return nil
}

// Tags returns the payload associated with the region l, if any.
func (g *Grid) Tags(l Lens) ([]byte, bool, error) {
	if g.tags == nil {
		return nil, false, ErrNoTagStore
	}
	if err := l.check(g.rows, g.cols); err != nil {
		return nil, false, err
	}
	return g.tags.Get(l.String())
}

// Untag removes the payload associated with the region l.
func (g *Grid) Untag(l Lens) error {
	if g.tags == nil {
		return ErrNoTagStore
	}
	if err := l.check(g.rows, g.cols); err != nil {
		return err
	}
	return g.tags.Delete(l.String())
}
