package docstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"memories-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ Store = (*PostgresStore)(nil)

// PostgresStore keeps every collection in one JSONB documents table
type PostgresStore struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresStore connects to PostgreSQL and applies migrations
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := Migrate(dsn); err != nil {
		return nil, err
	}

	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, now: time.Now}, nil
}

// Migrate applies the embedded goose migrations
func Migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Create inserts a new document
func (s *PostgresStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.New().String()
	}
	data, err := marshalFields(fields)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $4)
		ON CONFLICT (collection, id) DO NOTHING
		RETURNING id, data, created_at, updated_at
	`
	doc, err := scanDocument(s.db.QueryRow(ctx, query, collection, id, data, s.now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s/%s: %w", collection, id, models.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create document: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return doc, nil
}

// Get fetches one document by id
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`
	doc, err := scanDocument(s.db.QueryRow(ctx, query, collection, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s/%s: %w", collection, id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return doc, nil
}

// List returns documents matching all filters, oldest first
func (s *PostgresStore) List(ctx context.Context, collection string, filters ...Filter) ([]*Document, error) {
	where, args := buildWhere(filters, []any{collection})
	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1` + where + `
		ORDER BY created_at, id
	`
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w: %w", models.ErrRemoteUnavailable, err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w: %w", models.ErrRemoteUnavailable, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return docs, nil
}

// Update merges fields into a document matching the preconditions
func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any, preconditions ...Filter) (*Document, error) {
	data, err := marshalFields(fields)
	if err != nil {
		return nil, err
	}

	where, args := buildWhere(preconditions, []any{collection, id, data, s.now().UTC()})
	query := `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = $4
		WHERE collection = $1 AND id = $2` + where + `
		RETURNING id, data, created_at, updated_at
	`
	doc, err := scanDocument(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s/%s: %w", collection, id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update document: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return doc, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close(ctx context.Context) error {
	s.db.Close()
	return nil
}

// buildWhere renders filters as additional AND clauses. Field names are
// bound as parameters so they never reach the SQL text.
func buildWhere(filters []Filter, args []any) (string, []any) {
	var b strings.Builder
	for _, f := range filters {
		args = append(args, f.Field)
		field := fmt.Sprintf("data->>$%d", len(args))
		switch {
		case f.Op == OpEqual && f.Value == nil:
			fmt.Fprintf(&b, " AND %s IS NULL", field)
		case f.Op == OpEqual:
			args = append(args, fmt.Sprint(f.Value))
			fmt.Fprintf(&b, " AND %s = $%d", field, len(args))
		case f.Op == OpSearch:
			args = append(args, escapeLike(fmt.Sprint(f.Value)))
			fmt.Fprintf(&b, " AND %s ILIKE '%%' || $%d || '%%'", field, len(args))
		}
	}
	return b.String(), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func marshalFields(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(data), nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	var data []byte
	if err := row.Scan(&doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Fields = make(map[string]any)
	if err := json.Unmarshal(data, &doc.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode document data: %w", err)
	}
	return &doc, nil
}
