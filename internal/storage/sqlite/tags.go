package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
)

// TagTable is a grid.TagStore backed by the region_tags table. Each grid
// gets its own key space.
type TagTable struct {
	db   *sql.DB
	grid string
}

// Tags returns the tag table of the named grid.
func (s *Store) Tags(gridName string) *TagTable {
	return &TagTable{db: s.db, grid: gridName}
}

// Put stores payload under key, replacing any previous value.
func (t *TagTable) Put(key string, payload []byte) error {
	_, err := t.db.Exec(`
		INSERT INTO region_tags (grid_name, lens_key, payload) VALUES (?, ?, ?)
		ON CONFLICT (grid_name, lens_key) DO UPDATE
		SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		t.grid, key, payload)
	if err != nil {
		return fmt.Errorf("put tag %s/%s: %w", t.grid, key, err)
	}
	return nil
}

// Get returns the payload stored under key.
func (t *TagTable) Get(key string) ([]byte, bool, error) {
	var payload []byte
	err := t.db.QueryRow(`SELECT payload FROM region_tags WHERE grid_name = ? AND lens_key = ?`,
		t.grid, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get tag %s/%s: %w", t.grid, key, err)
	}
	return payload, true, nil
}

// Delete removes key.
func (t *TagTable) Delete(key string) error {
	if _, err := t.db.Exec(`DELETE FROM region_tags WHERE grid_name = ? AND lens_key = ?`, t.grid, key); err != nil {
		return fmt.Errorf("delete tag %s/%s: %w", t.grid, key, err)
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (t *TagTable) Keys() ([]string, error) {
	rows, err := t.db.Query(`SELECT lens_key FROM region_tags WHERE grid_name = ? ORDER BY lens_key`, t.grid)
	if err != nil {
		return nil, fmt.Errorf("list tags %s: %w", t.grid, err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
