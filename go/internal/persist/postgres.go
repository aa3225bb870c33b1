package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chainball/scoreboard/go/internal/sqlutil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	createRecordsTable = `
CREATE TABLE IF NOT EXISTS game_records (
    id          TEXT PRIMARY KEY,
    internal_id INTEGER NOT NULL,
    game_state  TEXT NOT NULL,
    body        JSONB NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	createSeriesTable = `
CREATE TABLE IF NOT EXISTS game_series (
    singleton      BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
    current_series INTEGER NOT NULL
)`

	upsertRecord = `
INSERT INTO game_records (id, internal_id, game_state, body, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE
SET game_state = EXCLUDED.game_state,
    body = EXCLUDED.body,
    updated_at = now()`

	upsertSeries = `
INSERT INTO game_series (singleton, current_series)
VALUES (TRUE, $1)
ON CONFLICT (singleton) DO UPDATE
SET current_series = EXCLUDED.current_series`

	selectSeries = `SELECT current_series FROM game_series WHERE singleton`
)

// PostgresStore keeps game records as JSONB rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Str("component", "persist").Msg("connected to postgres game store")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	return sqlutil.Run(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range []string{createRecordsTable, createSeriesTable} {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate game store: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) SaveRecord(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal game record: %w", err)
	}
	if _, err := s.pool.Exec(ctx, upsertRecord, doc.ID, doc.GameData.InternalID, doc.GameState, string(body)); err != nil {
		return fmt.Errorf("upsert game record %s: %w", doc.ID, err)
	}
	return nil
}

func (s *PostgresStore) SaveSeries(ctx context.Context, series int) error {
	if _, err := s.pool.Exec(ctx, upsertSeries, series); err != nil {
		return fmt.Errorf("upsert game series: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadSeries(ctx context.Context) (int, error) {
	var series int
	err := s.pool.QueryRow(ctx, selectSeries).Scan(&series)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load game series: %w", err)
	}
	return series, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
