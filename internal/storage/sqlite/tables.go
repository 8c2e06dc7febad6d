package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/storage"
)

var (
	_ storage.RoleTable = (*kvTable[string])(nil)
	_ storage.WageTable = (*kvTable[float64])(nil)
)

// kvTable is a two-column table used as a KeyValueStore.
// V must be a type database/sql can scan into (string, float64).
type kvTable[V any] struct {
	db       *sql.DB
	table    string
	keyCol   string
	valueCol string

	// validate, when set, checks every value before it is written.
	validate func(V) error
}

// Roles returns the identifier-to-role table.
func (s *SQLiteStore) Roles() storage.RoleTable {
	return &kvTable[string]{db: s.db, table: "roles", keyCol: "identifier", valueCol: "role"}
}

// Wages returns the role-to-hourly-rate table.
func (s *SQLiteStore) Wages() storage.WageTable {
	return &kvTable[float64]{
		db:       s.db,
		table:    "wages",
		keyCol:   "role",
		valueCol: "hourly_rate",
		validate: models.ValidateHourlyRate,
	}
}

func (t *kvTable[V]) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", t.valueCol, t.table, t.keyCol)
}

func (t *kvTable[V]) check(value V) error {
	if t.validate == nil {
		return nil
	}
	return t.validate(value)
}

// Get returns the value stored for key.
func (t *kvTable[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var value V
	err := t.db.QueryRowContext(ctx, t.selectQuery(), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("failed to get %s entry: %w", t.table, err)
	}
	return value, true, nil
}

// GetOrInsert inserts value for key unless present, then returns the stored value.
func (t *kvTable[V]) GetOrInsert(ctx context.Context, key string, value V) (V, bool, error) {
	var stored V
	if err := t.check(value); err != nil {
		return stored, false, err
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return stored, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT (%s) DO NOTHING",
			t.table, t.keyCol, t.valueCol, t.keyCol),
		key, value,
	)
	if err != nil {
		return stored, false, fmt.Errorf("failed to insert %s entry: %w", t.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return stored, false, fmt.Errorf("failed to check %s entry: %w", t.table, err)
	}

	if err := tx.QueryRowContext(ctx, t.selectQuery(), key).Scan(&stored); err != nil {
		return stored, false, fmt.Errorf("failed to get %s entry: %w", t.table, err)
	}

	if err := tx.Commit(); err != nil {
		return stored, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stored, n == 1, nil
}

// Upsert sets key to value.
func (t *kvTable[V]) Upsert(ctx context.Context, key string, value V) error {
	if err := t.check(value); err != nil {
		return err
	}
	_, err := t.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s",
			t.table, t.keyCol, t.valueCol, t.keyCol, t.valueCol, t.valueCol),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s entry: %w", t.table, err)
	}
	return nil
}

// All returns every entry of the table.
func (t *kvTable[V]) All(ctx context.Context) (map[string]V, error) {
	rows, err := t.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s, %s FROM %s", t.keyCol, t.valueCol, t.table),
	)
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
