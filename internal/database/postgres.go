package database

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"praxis/internal/config"
	"praxis/internal/model"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS price_observations (
	id BIGSERIAL PRIMARY KEY,
	symbol VARCHAR(32) NOT NULL,
	level DOUBLE PRECISION NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS price_observations_symbol_time_idx
	ON price_observations (symbol, observed_at, id);`

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// ConnString builds a postgres URL from the database settings.
func ConnString(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.DBName,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(cfg.SSLMode)
	}
	return u.String()
}

// NewPostgresRepository connects to the configured database.
func NewPostgresRepository(ctx context.Context, cfg config.DatabaseConfig) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{Pool: pool}, nil
}

// Close releases the pool.
func (r *PostgresRepository) Close() {
	r.Pool.Close()
}

// Migrate creates the observation table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("migrate price_observations: %w", err)
	}
	return nil
}

// AppendObservations stores obs in order with a single COPY.
func (r *PostgresRepository) AppendObservations(ctx context.Context, obs []model.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	_, err := r.Pool.CopyFrom(ctx,
		pgx.Identifier{"price_observations"},
		[]string{"symbol", "level", "observed_at"},
		pgx.CopyFromSlice(len(obs), func(i int) ([]any, error) {
			o := obs[i]
			return []any{o.Symbol, o.Level, o.ObservedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy %d observations: %w", len(obs), err)
	}
	return nil
}

// LoadSeries returns the stored levels for symbol, oldest first.
func (r *PostgresRepository) LoadSeries(ctx context.Context, symbol string, limit int) (model.ReturnSeries, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT level FROM (
			SELECT id, observed_at, level
			FROM price_observations
			WHERE symbol = $1
			ORDER BY observed_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY observed_at ASC, id ASC`, symbol, lim)
	if err != nil {
		return nil, fmt.Errorf("query series %s: %w", symbol, err)
	}

	series, err := pgx.CollectRows(rows, pgx.RowTo[float64])
	if err != nil {
		return nil, fmt.Errorf("scan series %s: %w", symbol, err)
	}
	return series, nil
}
