package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// keySeparator joins collection and document id into a badger key. Collection
// paths contain "/" (per-entity history streams), so the separator must be a
// byte that cannot appear in either part; NUL keeps prefix scans from leaking
// into subcollections.
const keySeparator = "\x00"

// BadgerConfig holds configuration for the embedded store backend.
type BadgerConfig struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in RAM; used by tests.
	InMemory bool
	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// BadgerStore implements DocumentStore on an embedded BadgerDB. Queries scan
// the collection prefix and evaluate filters, ordering and cursors in memory;
// collections in this domain are small enough for that to hold up.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens the embedded store with the given configuration.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func documentKey(collection, id string) []byte {
	return []byte(collection + keySeparator + id)
}

func (s *BadgerStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc map[string]any
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(collection, id))
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			return json.Unmarshal(raw, &doc)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *BadgerStore) Put(ctx context.Context, collection, id string, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, id, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(documentKey(collection, id), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to put document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *BadgerStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := documentKey(collection, id)
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		var doc map[string]any
		if err := item.Value(func(raw []byte) error {
			return json.Unmarshal(raw, &doc)
		}); err != nil {
			return err
		}

		for field, value := range partial {
			doc[field] = value
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return txn.Set(key, raw)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(documentKey(collection, id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *BadgerStore) Append(ctx context.Context, collection string, doc map[string]any) (string, error) {
	id := uuid.New().String()
	if err := s.Put(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *BadgerStore) Query(ctx context.Context, collection string, opts QueryOptions) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(collection + keySeparator)
	documents := []Document{}

	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), string(prefix))

			var data map[string]any
			if err := item.Value(func(raw []byte) error {
				return json.Unmarshal(raw, &data)
			}); err != nil {
				return fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
			}

			if !matchesFilters(data, opts.Filters) {
				continue
			}
			documents = append(documents, Document{ID: id, Data: data})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}

	if opts.OrderBy != "" {
		sort.SliceStable(documents, func(i, j int) bool {
			cmp := compareValues(lookupPath(documents[i].Data, opts.OrderBy), lookupPath(documents[j].Data, opts.OrderBy))
			if opts.Descending {
				return cmp > 0
			}
			return cmp < 0
		})

		if opts.StartAfter != nil {
			cut := 0
			for cut < len(documents) {
				cmp := compareValues(lookupPath(documents[cut].Data, opts.OrderBy), opts.StartAfter)
				if (opts.Descending && cmp < 0) || (!opts.Descending && cmp > 0) {
					break
				}
				cut++
			}
			documents = documents[cut:]
		}
	}

	if opts.Limit > 0 && len(documents) > opts.Limit {
		documents = documents[:opts.Limit]
	}
	return documents, nil
}

func (s *BadgerStore) Count(ctx context.Context, collection string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	prefix := []byte(collection + keySeparator)
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}
	return count, nil
}

func matchesFilters(data map[string]any, filters []Filter) bool {
	for _, filter := range filters {
		if !equalJSONValues(lookupPath(data, filter.Field), filter.Value) {
			return false
		}
	}
	return true
}

// lookupPath resolves a dotted field path against nested objects.
func lookupPath(data map[string]any, field string) any {
	parts := strings.Split(field, ".")
	var current any = data
	for _, part := range parts {
		object, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = object[part]
	}
	return current
}

// equalJSONValues compares two values by their canonical JSON encoding so an
// int64 filter matches the float64 a decoded document carries.
func equalJSONValues(a, b any) bool {
	rawA, errA := json.Marshal(a)
	rawB, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(rawA, rawB)
}

// compareValues orders two JSON-like values: numbers numerically, strings
// lexically (RFC 3339 timestamps order chronologically), anything else by its
// JSON encoding. nil sorts first.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if aNum, ok := asNumber(a); ok {
		if bNum, ok := asNumber(b); ok {
			switch {
			case aNum < bNum:
				return -1
			case aNum > bNum:
				return 1
			default:
				return 0
			}
		}
	}

	if aStr, ok := a.(string); ok {
		if bStr, ok := b.(string); ok {
			return strings.Compare(aStr, bStr)
		}
	}

	rawA, _ := json.Marshal(a)
	rawB, _ := json.Marshal(b)
	return bytes.Compare(rawA, rawB)
}

func asNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	}
	return 0, false
}
