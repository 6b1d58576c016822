package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sethvargo/go-retry"

	"github.com/tutorlane/server/internal/apperrors"
)

// Tx is one attempt of an optimistic read-modify-write cycle. Get records
// the version of every document it reads; Set only succeeds when the
// document still carries that version at write time. A concurrent writer
// bumps the version, the guarded write affects zero rows, and the whole
// cycle is retried from a fresh snapshot.
type Tx struct {
	tx       pgx.Tx
	versions map[string]int64
}

func docKey(collection, id string) string {
	return collection + "/" + id
}

func (t *Tx) Get(ctx context.Context, collection, id string, out any) error {
	var data []byte
	var version int64
	err := t.tx.QueryRow(ctx,
		`SELECT data, version FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			t.versions[docKey(collection, id)] = 0
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return apperrors.Persistence(err, "tx get %s/%s", collection, id)
	}

	t.versions[docKey(collection, id)] = version
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Persistence(err, "decode %s/%s", collection, id)
	}
	return nil
}

func (t *Tx) Set(ctx context.Context, collection, id string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.Persistence(err, "encode %s/%s", collection, id)
	}

	seen, read := t.versions[docKey(collection, id)]
	if !read {
		// Blind write of a document this cycle never read.
		query := `
			INSERT INTO documents (collection, id, data, version, updated_at)
			VALUES ($1, $2, $3, 1, now())
			ON CONFLICT (collection, id)
			DO UPDATE SET data = excluded.data, version = documents.version + 1, updated_at = now()
		`
		if _, err := t.tx.Exec(ctx, query, collection, id, data); err != nil {
			return apperrors.Persistence(err, "tx set %s/%s", collection, id)
		}
		return nil
	}

	if seen == 0 {
		// Read found nothing; create, but lose to a racing creator.
		query := `
			INSERT INTO documents (collection, id, data, version, updated_at)
			VALUES ($1, $2, $3, 1, now())
			ON CONFLICT (collection, id) DO NOTHING
		`
		tag, err := t.tx.Exec(ctx, query, collection, id, data)
		if err != nil {
			return apperrors.Persistence(err, "tx create %s/%s", collection, id)
		}
		if tag.RowsAffected() == 0 {
			return errConflict
		}
		return nil
	}

	query := `
		UPDATE documents
		SET data = $3, version = version + 1, updated_at = now()
		WHERE collection = $1 AND id = $2 AND version = $4
	`
	tag, err := t.tx.Exec(ctx, query, collection, id, data, seen)
	if err != nil {
		return apperrors.Persistence(err, "tx set %s/%s", collection, id)
	}
	if tag.RowsAffected() == 0 {
		return errConflict
	}
	return nil
}

func (t *Tx) Merge(ctx context.Context, collection, id string, patch any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return apperrors.Persistence(err, "encode %s/%s patch", collection, id)
	}

	seen, read := t.versions[docKey(collection, id)]
	query := `
		UPDATE documents
		SET data = data || $3::jsonb, version = version + 1, updated_at = now()
		WHERE collection = $1 AND id = $2
	`
	args := []any{collection, id, data}
	if read && seen > 0 {
		query += ` AND version = $4`
		args = append(args, seen)
	}

	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return apperrors.Persistence(err, "tx merge %s/%s", collection, id)
	}
	if tag.RowsAffected() == 0 {
		if read && seen > 0 {
			return errConflict
		}
		return apperrors.Persistence(ErrNotFound, "tx merge %s/%s", collection, id)
	}
	return nil
}

func (t *Tx) Delete(ctx context.Context, collection, id string) error {
	seen, read := t.versions[docKey(collection, id)]
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`
	args := []any{collection, id}
	if read && seen > 0 {
		query += ` AND version = $3`
		args = append(args, seen)
	}

	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return apperrors.Persistence(err, "tx delete %s/%s", collection, id)
	}
	if read && seen > 0 && tag.RowsAffected() == 0 {
		return errConflict
	}
	return nil
}

// WithTransaction runs fn as an atomic read-modify-write cycle. Stale
// snapshots are retried with exponential backoff up to the configured
// budget; once the budget is exhausted the caller receives a
// concurrency-kind error and may safely re-run the whole operation,
// since nothing was committed. Errors raised by fn itself abort the
// cycle without retrying and propagate unchanged.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx DocTx) error) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.baseBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		tx, err := s.db.Begin(ctx)
		if err != nil {
			return apperrors.Persistence(err, "begin transaction")
		}
		defer tx.Rollback(ctx)

		handle := &Tx{tx: tx, versions: make(map[string]int64)}
		if err := fn(handle); err != nil {
			if errors.Is(err, errConflict) {
				s.logger.Debug("transaction snapshot stale, retrying")
				return retry.RetryableError(err)
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return apperrors.Persistence(err, "commit transaction")
		}
		return nil
	})

	if err == nil {
		return nil
	}
	if errors.Is(err, errConflict) {
		return apperrors.Concurrency(err, "transaction retries exhausted")
	}
	if apperrors.KindOf(err) != "" {
		return err
	}
	return apperrors.Persistence(err, "transaction failed")
}
