package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/accentor/pkg/types"
)

// Ensure Postgres implements Store at compile time.
var _ Store = (*Postgres)(nil)

const ddlAttempts = `
CREATE TABLE IF NOT EXISTS attempts (
    id          TEXT              PRIMARY KEY,
    language    TEXT              NOT NULL,
    reference   TEXT              NOT NULL,
    transcript  TEXT              NOT NULL DEFAULT '',
    accuracy    DOUBLE PRECISION  NOT NULL,
    words       JSONB             NOT NULL DEFAULT '[]',
    created_at  TIMESTAMPTZ       NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_attempts_created_at
    ON attempts (created_at);

CREATE INDEX IF NOT EXISTS idx_attempts_language_created_at
    ON attempts (language, created_at);
`

// Postgres is a Store backed by a PostgreSQL attempts table.
//
// All methods are safe for concurrent use.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool to the database at dsn, verifies it
// with a ping, and runs Migrate so the attempts table exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the attempts table and its indexes. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlAttempts); err != nil {
		return fmt.Errorf("history migrate: %w", err)
	}
	return nil
}

// Save implements Store.
func (p *Postgres) Save(ctx context.Context, attempt Attempt) error {
	words, err := json.Marshal(attempt.Words)
	if err != nil {
		return fmt.Errorf("history: marshal words: %w", err)
	}

	const q = `
		INSERT INTO attempts (id, language, reference, transcript, accuracy, words, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = p.pool.Exec(ctx, q,
		attempt.ID,
		attempt.Language,
		attempt.Reference,
		attempt.Transcript,
		attempt.Accuracy,
		words,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("history: save attempt: %w", err)
	}
	return nil
}

// Recent implements Store. Attempts are ordered newest first; the ULID id
// breaks ties between rows sharing a timestamp.
func (p *Postgres) Recent(ctx context.Context, f Filter) ([]Attempt, error) {
	q := `
		SELECT id, language, reference, transcript, accuracy, words, created_at
		FROM   attempts`
	var args []any
	if f.Language != "" {
		args = append(args, f.Language)
		q += `
		WHERE  language = $1`
	}
	args = append(args, f.limit())
	q += fmt.Sprintf(`
		ORDER  BY created_at DESC, id DESC
		LIMIT  $%d`, len(args))

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	return collectAttempts(rows)
}

// Ping verifies the database is reachable. Used by readiness checks.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("history: ping: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// collectAttempts scans pgx rows into a slice of Attempt values.
func collectAttempts(rows pgx.Rows) ([]Attempt, error) {
	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Attempt, error) {
		var (
			a     Attempt
			words []byte
		)
		if err := row.Scan(
			&a.ID,
			&a.Language,
			&a.Reference,
			&a.Transcript,
			&a.Accuracy,
			&words,
			&a.CreatedAt,
		); err != nil {
			return Attempt{}, err
		}
		if err := json.Unmarshal(words, &a.Words); err != nil {
			return Attempt{}, err
		}
		if a.Words == nil {
			a.Words = []types.WordScore{}
		}
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: scan rows: %w", err)
	}
	if attempts == nil {
		attempts = []Attempt{}
	}
	return attempts, nil
}
