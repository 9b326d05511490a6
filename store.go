package viewstate

import (
	"context"
)

// Store is a key-value settings store. Save has partial-write semantics:
// only the top-level fields present in partial are touched. Both the whole
// settings partial and the column widths slice are written through the same
// Store against the same key.
type Store interface {
	Load(ctx context.Context, key string) (map[string]any, error)
	Save(ctx context.Context, key string, partial map[string]any) error
}

var _ Store = (*DB)(nil)

// Load implements Store. It returns nil, nil when nothing is stored.
func (db *DB) Load(ctx context.Context, key string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw map[string]any
	err := db.Tx(false, func(tx *Tx) error {
		raw = tx.Load(key)
		return nil
	})
	if err != nil {
		return nil, storeErrf(key, "", err, "load")
	}
	return raw, nil
}

// Save implements Store.
func (db *DB) Save(ctx context.Context, key string, partial map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(partial) == 0 {
		return nil
	}
	return db.Tx(true, func(tx *Tx) error {
		return tx.Save(key, partial)
	})
}

// Reset deletes all settings stored under key.
func (db *DB) Reset(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := db.Tx(true, func(tx *Tx) error {
		var err error
		found, err = tx.Reset(key)
		return err
	})
	return found, err
}

// Keys returns the stored settings keys starting with prefix.
func (db *DB) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := db.Tx(false, func(tx *Tx) error {
		keys = tx.Keys(prefix)
		return nil
	})
	return keys, err
}
