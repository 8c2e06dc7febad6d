// Package csvtable implements storage.KeyValueStore on a two-column,
// header-less delimited text file. Entries are cached in memory; a miss
// that registers a default value is appended to the file immediately.
package csvtable

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mmynk/meetcost/internal/models"
	"github.com/mmynk/meetcost/internal/storage"
)

var (
	_ storage.RoleTable = (*Table[string])(nil)
	_ storage.WageTable = (*Table[float64])(nil)
	_ storage.Refresher = (*Table[string])(nil)
)

// Codec converts a value to and from its column text. Validate, when set,
// is applied to every value read from the file or written to the table.
type Codec[V any] struct {
	Parse    func(string) (V, error)
	Format   func(V) string
	Validate func(V) error
}

// StringCodec stores values as-is.
var StringCodec = Codec[string]{
	Parse:  func(s string) (string, error) { return s, nil },
	Format: func(s string) string { return s },
}

// FloatCodec stores hourly rates as non-negative decimal numbers.
var FloatCodec = Codec[float64]{
	Parse:    func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
	Format:   func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
	Validate: models.ValidateHourlyRate,
}

// Table is a file-backed key/value table.
type Table[V any] struct {
	path  string
	codec Codec[V]

	mu      sync.Mutex
	entries map[string]V
}

// Open loads the table at path. A missing file is an empty table and is
// created on first write.
func Open[V any](path string, codec Codec[V]) (*Table[V], error) {
	t := &Table[V]{path: path, codec: codec}
	if err := t.Reload(context.Background()); err != nil {
		return nil, err
	}
	return t, nil
}

// OpenRoles opens an identifier,role table.
func OpenRoles(path string) (*Table[string], error) {
	return Open(path, StringCodec)
}

// OpenWages opens a role,hourly_rate table.
func OpenWages(path string) (*Table[float64], error) {
	return Open(path, FloatCodec)
}

// Reload re-reads the file, discarding the in-memory copy.
func (t *Table[V]) Reload(_ context.Context) error {
	entries, err := t.read()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
	return nil
}

func (t *Table[V]) read() (map[string]V, error) {
	entries := make(map[string]V)

	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", t.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read table %s: %w", t.path, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != 2 {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("table %s line %d: expected 2 columns, got %d", t.path, line, len(record))
		}

		key := strings.TrimSpace(record[0])
		value, err := t.codec.Parse(strings.TrimSpace(record[1]))
		if err == nil {
			err = t.validate(value)
		}
		if err != nil {
			line, _ := r.FieldPos(1)
			return nil, fmt.Errorf("table %s line %d: %w", t.path, line, err)
		}
		// Later lines win, matching append-then-upsert history.
		entries[key] = value
	}

	return entries, nil
}

func (t *Table[V]) validate(value V) error {
	if t.codec.Validate == nil {
		return nil
	}
	return t.codec.Validate(value)
}

// Get returns the cached value for key.
func (t *Table[V]) Get(_ context.Context, key string) (V, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.entries[key]
	return v, ok, nil
}

// GetOrInsert appends key,value to the file when key is absent.
func (t *Table[V]) GetOrInsert(_ context.Context, key string, value V) (V, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.entries[key]; ok {
		return v, false, nil
	}

	if err := t.validate(value); err != nil {
		var zero V
		return zero, false, err
	}
	if err := t.appendLine(key, value); err != nil {
		var zero V
		return zero, false, err
	}
	t.entries[key] = value
	return value, true, nil
}

func (t *Table[V]) appendLine(key string, value V) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open table %s: %w", t.path, err)
	}

	// Hand-edited files often lack the final newline.
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
			if _, err := f.Write([]byte("\n")); err != nil {
				f.Close()
				return fmt.Errorf("failed to append to table %s: %w", t.path, err)
			}
		}
	}

	w := csv.NewWriter(f)
	w.Write([]string{key, t.codec.Format(value)})
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to table %s: %w", t.path, err)
	}
	return f.Close()
}

// Upsert sets key to value and rewrites the file sorted by key.
func (t *Table[V]) Upsert(_ context.Context, key string, value V) error {
	if err := t.validate(value); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := make(map[string]V, len(t.entries)+1)
	for k, v := range t.entries {
		next[k] = v
	}
	next[key] = value

	if err := t.rewrite(next); err != nil {
		return err
	}
	t.entries = next
	return nil
}

func (t *Table[V]) rewrite(entries map[string]V) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}
	defer os.Remove(tmp.Name())

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := csv.NewWriter(tmp)
	for _, k := range keys {
		w.Write([]string{k, t.codec.Format(entries[k])})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write table %s: %w", t.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write table %s: %w", t.path, err)
	}

	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("failed to replace table %s: %w", t.path, err)
	}
	return nil
}

// All returns a copy of every entry.
func (t *Table[V]) All(_ context.Context) (map[string]V, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]V, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out, nil
}
