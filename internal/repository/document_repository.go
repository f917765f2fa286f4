package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"Mansoor88-6/coding-activity-agent/internal/database"
	"Mansoor88-6/coding-activity-agent/internal/store"

	"github.com/google/uuid"
)

// DocumentRepository is a store.DocumentStore kept in a SQLite database
type DocumentRepository struct {
	db *database.DB
}

func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Write(ctx context.Context, collection, id string, fields map[string]any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, fields)
		VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			fields = excluded.fields,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, collection, id, string(data)); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return id, nil
}

func (r *DocumentRepository) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	fields := map[string]any{}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return fields, nil
}

func (r *DocumentRepository) Query(ctx context.Context, collection string, filters ...store.Filter) ([]store.Document, error) {
	where := []string{"collection = ?"}
	args := []interface{}{collection}

	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		op := string(f.Op)
		if f.Op == store.OpEqual {
			op = "="
		}
		where = append(where, fmt.Sprintf("json_extract(fields, ?) %s ?", op))
		args = append(args, "$."+f.Field, f.Value)
	}

	query := fmt.Sprintf(`
		SELECT id, fields
		FROM documents
		WHERE %s
		ORDER BY seq ASC
	`, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields := map[string]any{}
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return docs, nil
}

func (r *DocumentRepository) Close() error {
	return r.db.Close()
}
