package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chess-coach/internal/domain"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS rating_profiles (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		rating      INTEGER NOT NULL,
		games       INTEGER NOT NULL DEFAULT 0,
		style       JSONB NOT NULL DEFAULT '{}'::jsonb,
		avg_loss_a  DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_loss_b  DOUBLE PRECISION NOT NULL DEFAULT 0,
		game_type   TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

const postgresColumns = `
	id,
	name,
	rating,
	games,
	style,
	avg_loss_a,
	avg_loss_b,
	game_type,
	created_at,
	updated_at`

// PostgresStore keeps one row per profile. Update holds a transaction-scoped
// advisory lock on the id so that first inserts are serialized as well.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create rating_profiles: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (r *PostgresStore) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.RatingProfile, error) {
	var (
		p         domain.RatingProfile
		styleJSON []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Rating,
		&p.Games,
		&styleJSON,
		&p.AvgLossA,
		&p.AvgLossB,
		&p.GameType,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(styleJSON, &p.Style); err != nil {
		return nil, fmt.Errorf("unmarshal style: %w", err)
	}
	return &p, nil
}

func (r *PostgresStore) Get(ctx context.Context, id string) (*domain.RatingProfile, error) {
	query := `SELECT` + postgresColumns + ` FROM rating_profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select rating profile: %w", err)
	}
	return p, nil
}

func (r *PostgresStore) Update(ctx context.Context, id string, fn UpdateFunc) (*domain.RatingProfile, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, id); err != nil {
		return nil, fmt.Errorf("lock rating profile: %w", err)
	}
	cur, err := scanProfile(tx.QueryRowContext(ctx,
		`SELECT`+postgresColumns+` FROM rating_profiles WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		cur, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select rating profile: %w", err)
	}

	next, err := fn(cur)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, errNilProfile
	}
	next = next.Clone()
	next.ID = id
	styleJSON, err := json.Marshal(next.Style)
	if err != nil {
		return nil, fmt.Errorf("marshal style: %w", err)
	}

	const upsert = `
		INSERT INTO rating_profiles (
			id,
			name,
			rating,
			games,
			style,
			avg_loss_a,
			avg_loss_b,
			game_type,
			created_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			rating = EXCLUDED.rating,
			games = EXCLUDED.games,
			style = EXCLUDED.style,
			avg_loss_a = EXCLUDED.avg_loss_a,
			avg_loss_b = EXCLUDED.avg_loss_b,
			game_type = EXCLUDED.game_type,
			updated_at = EXCLUDED.updated_at`
	_, err = tx.ExecContext(ctx, upsert,
		next.ID,
		next.Name,
		next.Rating,
		next.Games,
		styleJSON,
		next.AvgLossA,
		next.AvgLossB,
		next.GameType,
		next.CreatedAt,
		next.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert rating profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (r *PostgresStore) List(ctx context.Context) ([]*domain.RatingProfile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT`+postgresColumns+` FROM rating_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select rating profiles: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.RatingProfile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rating profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
