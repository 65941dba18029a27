package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/peterkuimelis/duelcore/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	match_id    TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	turn_number INTEGER NOT NULL,
	state       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores one JSONB snapshot per match. Mutations lock the row for
// the length of the transaction.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects to url and makes sure the schema exists.
func OpenPostgres(ctx context.Context, url string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	stats := pool.Stat()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()))
	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Create(ctx context.Context, gs *game.GameState) error {
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", gs.MatchID, err)
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO matches (match_id, status, turn_number, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id) DO NOTHING`,
		gs.MatchID, string(gs.Status), gs.TurnNumber, data)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", gs.MatchID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %s already exists", gs.MatchID)
	}
	return nil
}

func (p *Postgres) Read(ctx context.Context, matchID string) (*game.GameState, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT state FROM matches WHERE match_id = $1`, matchID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("read match %s: %w", matchID, err)
	}
	return decode(matchID, data)
}

func (p *Postgres) Patch(ctx context.Context, gs *game.GameState) error {
	return write(ctx, p.pool, gs)
}

func (p *Postgres) Mutate(ctx context.Context, matchID string, fn func(gs *game.GameState) error) (*game.GameState, error) {
	var out *game.GameState
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var data []byte
		err := tx.QueryRow(ctx, `SELECT state FROM matches WHERE match_id = $1 FOR UPDATE`, matchID).Scan(&data)
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound(matchID)
		}
		if err != nil {
			return fmt.Errorf("lock match %s: %w", matchID, err)
		}
		gs, err := decode(matchID, data)
		if err != nil {
			return err
		}
		if err := fn(gs); err != nil {
			return err
		}
		if err := write(ctx, tx, gs); err != nil {
			return err
		}
		out = gs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func write(ctx context.Context, db execer, gs *game.GameState) error {
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("encode match %s: %w", gs.MatchID, err)
	}
	tag, err := db.Exec(ctx, `
		UPDATE matches
		SET status = $2, turn_number = $3, state = $4, updated_at = now()
		WHERE match_id = $1`,
		gs.MatchID, string(gs.Status), gs.TurnNumber, data)
	if err != nil {
		return fmt.Errorf("write match %s: %w", gs.MatchID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(gs.MatchID)
	}
	return nil
}
