// Package store exposes the backing database as a transactional document
// store: JSON documents addressed by (collection, id), written either
// directly or through an optimistic-concurrency read-modify-write cycle.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/tutorlane/server/internal/apperrors"
)

// ErrNotFound is returned by reads of documents that do not exist.
var ErrNotFound = errors.New("document not found")

// errConflict signals a stale snapshot inside a transaction; the whole
// read-modify-write cycle is retried.
var errConflict = errors.New("document version conflict")

// DocTx is the handle a transactional function receives. All reads and
// writes through it are scoped to one atomic cycle.
type DocTx interface {
	Get(ctx context.Context, collection, id string, out any) error
	Set(ctx context.Context, collection, id string, value any) error
	Merge(ctx context.Context, collection, id string, patch any) error
	Delete(ctx context.Context, collection, id string) error
}

// Client is the store surface consumed by repositories.
type Client interface {
	Get(ctx context.Context, collection, id string, out any) error
	List(ctx context.Context, collection, field, value string) ([][]byte, error)
	Set(ctx context.Context, collection, id string, value any) error
	Merge(ctx context.Context, collection, id string, patch any) error
	WithTransaction(ctx context.Context, fn func(tx DocTx) error) error
}

// DB is the slice of *pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db          DB
	logger      *zap.Logger
	maxRetries  uint64
	baseBackoff time.Duration
}

type Option func(*Store)

// WithRetryPolicy overrides the transaction retry budget and the base
// of the exponential backoff between attempts.
func WithRetryPolicy(maxRetries uint64, baseBackoff time.Duration) Option {
	return func(s *Store) {
		s.maxRetries = maxRetries
		s.baseBackoff = baseBackoff
	}
}

func New(db DB, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		db:          db,
		logger:      logger,
		maxRetries:  5,
		baseBackoff: 20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get reads a document into out. Non-transactional: the result is a
// snapshot and may be stale by the time the caller uses it.
func (s *Store) Get(ctx context.Context, collection, id string, out any) error {
	return getDoc(ctx, s.db, collection, id, out)
}

// List returns the raw JSON of every document in collection whose
// top-level field equals value.
func (s *Store) List(ctx context.Context, collection, field, value string) ([][]byte, error) {
	query := `
		SELECT data
		FROM documents
		WHERE collection = $1 AND data->>$2 = $3
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, collection, field, value)
	if err != nil {
		return nil, apperrors.Persistence(err, "list %s by %s", collection, field)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, apperrors.Persistence(err, "scan %s document", collection)
		}
		docs = append(docs, data)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence(err, "list %s by %s", collection, field)
	}

	return docs, nil
}

// Set writes a full document, creating it if absent.
func (s *Store) Set(ctx context.Context, collection, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.Persistence(err, "encode %s/%s", collection, id)
	}

	query := `
		INSERT INTO documents (collection, id, data, version, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET data = excluded.data, version = documents.version + 1, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, collection, id, data); err != nil {
		return apperrors.Persistence(err, "set %s/%s", collection, id)
	}
	return nil
}

// Merge overlays patch onto an existing document, touching only the
// top-level fields the patch names.
func (s *Store) Merge(ctx context.Context, collection, id string, patch any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return apperrors.Persistence(err, "encode %s/%s patch", collection, id)
	}

	query := `
		UPDATE documents
		SET data = data || $3::jsonb, version = version + 1, updated_at = now()
		WHERE collection = $1 AND id = $2
	`
	tag, err := s.db.Exec(ctx, query, collection, id, data)
	if err != nil {
		return apperrors.Persistence(err, "merge %s/%s", collection, id)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Persistence(ErrNotFound, "merge %s/%s", collection, id)
	}
	return nil
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getDoc(ctx context.Context, q queryer, collection, id string, out any) error {
	var data []byte
	err := q.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return apperrors.Persistence(err, "get %s/%s", collection, id)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Persistence(err, "decode %s/%s", collection, id)
	}
	return nil
}
