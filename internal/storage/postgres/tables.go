package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/storage"
)

var (
	_ storage.RoleTable = (*kvTable[string])(nil)
	_ storage.WageTable = (*kvTable[float64])(nil)
)

// kvTable is a two-column table used as a KeyValueStore.
type kvTable[V any] struct {
	db       *gorm.DB
	table    string
	keyCol   string
	valueCol string

	// validate, when set, checks every value before it is written.
	validate func(V) error
}

// Roles returns the identifier-to-role table.
func (s *PostgresStore) Roles() storage.RoleTable {
	return &kvTable[string]{db: s.db, table: "roles", keyCol: "identifier", valueCol: "role"}
}

// Wages returns the role-to-hourly-rate table.
func (s *PostgresStore) Wages() storage.WageTable {
	return &kvTable[float64]{
		db:       s.db,
		table:    "wages",
		keyCol:   "role",
		valueCol: "hourly_rate",
		validate: models.ValidateHourlyRate,
	}
}

func (t *kvTable[V]) check(value V) error {
	if t.validate == nil {
		return nil
	}
	return t.validate(value)
}

// Get returns the value stored for key.
func (t *kvTable[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var values []V
	err := t.db.WithContext(ctx).Table(t.table).Where(t.keyCol+" = ?", key).Limit(1).Pluck(t.valueCol, &values).Error
	if err != nil {
		var zero V
		return zero, false, fmt.Errorf("failed to get %s entry: %w", t.table, err)
	}
	if len(values) == 0 {
		var zero V
		return zero, false, nil
	}
	return values[0], true, nil
}

// GetOrInsert stores value under key unless key exists, and returns the
// stored value. inserted reports whether this call added the entry.
func (t *kvTable[V]) GetOrInsert(ctx context.Context, key string, value V) (V, bool, error) {
	if err := t.check(value); err != nil {
		var zero V
		return zero, false, err
	}
	res := t.db.WithContext(ctx).Exec(
		fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT (%s) DO NOTHING",
			t.table, t.keyCol, t.valueCol, t.keyCol),
		key, value,
	)
	if res.Error != nil {
		var zero V
		return zero, false, fmt.Errorf("failed to insert %s entry: %w", t.table, res.Error)
	}
	if res.RowsAffected == 1 {
		return value, true, nil
	}

	stored, _, err := t.Get(ctx, key)
	return stored, false, err
}

// Upsert stores value under key, replacing any previous value.
func (t *kvTable[V]) Upsert(ctx context.Context, key string, value V) error {
	if err := t.check(value); err != nil {
		return err
	}
	err := t.db.WithContext(ctx).Exec(
		fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s",
			t.table, t.keyCol, t.valueCol, t.keyCol, t.valueCol, t.valueCol),
		key, value,
	).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %s entry: %w", t.table, err)
	}
	return nil
}

// All returns a copy of every entry.
func (t *kvTable[V]) All(ctx context.Context) (map[string]V, error) {
	rows, err := t.db.WithContext(ctx).Table(t.table).Select(t.keyCol, t.valueCol).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.table, err)
	}
	defer rows.Close()

	entries := make(map[string]V)
	for rows.Next() {
		var key string
		var value V
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s entry: %w", t.table, err)
		}
		entries[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", t.table, err)
	}
	return entries, nil
}
