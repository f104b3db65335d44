package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements DocumentStore on a single documents table keyed by
// (collection, id) with a JSONB body. Filters, ordering and cursors compile to
// JSONB expressions, so numeric fields (version) and timestamp strings
// (changedAt) both order correctly.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires a document store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var raw []byte
	err := s.pool.QueryRow(
		ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *PostgresStore) Put(ctx context.Context, collection, id string, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, id, err)
	}

	_, err = s.pool.Exec(
		ctx,
		`INSERT INTO documents (collection, id, doc, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to put document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	raw, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", collection, id, err)
	}

	tag, err := s.pool.Exec(
		ctx,
		`UPDATE documents SET doc = doc || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(
		ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, collection string, doc map[string]any) (string, error) {
	id := uuid.New().String()
	if err := s.Put(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, opts QueryOptions) ([]Document, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT id, doc FROM documents WHERE collection = $1`)
	args := []any{collection}

	for _, filter := range opts.Filters {
		value, err := json.Marshal(filter.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filter value for %s: %w", filter.Field, err)
		}
		args = append(args, string(value))
		fmt.Fprintf(&builder, " AND %s = $%d::jsonb", jsonbPath(filter.Field), len(args))
	}

	if opts.OrderBy != "" {
		path := jsonbPath(opts.OrderBy)
		if opts.StartAfter != nil {
			cursor, err := json.Marshal(opts.StartAfter)
			if err != nil {
				return nil, fmt.Errorf("failed to encode cursor value: %w", err)
			}
			args = append(args, string(cursor))
			operator := ">"
			if opts.Descending {
				operator = "<"
			}
			fmt.Fprintf(&builder, " AND %s %s $%d::jsonb", path, operator, len(args))
		}

		direction := "ASC"
		if opts.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&builder, " ORDER BY %s %s, id", path, direction)
	}

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&builder, " LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}
	defer rows.Close()

	documents := []Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if scanErr := rows.Scan(&id, &raw); scanErr != nil {
			return nil, fmt.Errorf("failed to scan document: %w", scanErr)
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
		}
		documents = append(documents, Document{ID: id, Data: data})
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate collection %s: %w", collection, rowsErr)
	}

	return documents, nil
}

func (s *PostgresStore) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(
		ctx,
		`SELECT count(*) FROM documents WHERE collection = $1`,
		collection,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}
	return count, nil
}

// jsonbPath renders a (possibly dotted) field name as a JSONB extraction
// expression. Field names come from code, not from request input.
func jsonbPath(field string) string {
	parts := strings.Split(field, ".")
	if len(parts) == 1 {
		return "doc->" + quoteLiteral(field)
	}
	return "doc#>" + quoteLiteral("{"+strings.Join(parts, ",")+"}")
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
