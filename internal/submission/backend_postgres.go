package submission

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresBackend stores each record as a JSONB document keyed by id, with
// team_id indexed for filtered reads. The schema lives in internal/db/migrations.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

var _ Backend = (*PostgresBackend)(nil)

// NewPostgresBackend takes ownership of pool; Close closes it.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) NextID(ctx context.Context) (int64, error) {
	var next int64
	if err := b.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM submissions`).Scan(&next); err != nil {
		return 0, storageErr("query max id", err)
	}
	return next, nil
}

func (b *PostgresBackend) Append(ctx context.Context, rec Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return storageErr("encode record", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	_, err = b.pool.Exec(ctx,
		`INSERT INTO submissions (id, team_id, doc, created_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.TeamID, string(doc), createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateID
		}
		return storageErr("insert record", err)
	}
	return nil
}

func (b *PostgresBackend) Query(ctx context.Context, teamID string) ([]Record, error) {
	query := `SELECT doc FROM submissions ORDER BY id`
	args := []interface{}{}
	if teamID != "" {
		query = `SELECT doc FROM submissions WHERE team_id = $1 ORDER BY id`
		args = append(args, teamID)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query records", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, storageErr("scan record", err)
		}
		var rec Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, storageErr("decode record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate records", err)
	}
	return records, nil
}

func (b *PostgresBackend) ResetAll(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `DELETE FROM submissions`)
	return storageErr("delete records", err)
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

// Ping checks the pool can reach the database.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}
