package database

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"praxis/internal/config"
	"praxis/internal/model"
)

var (
	pool *pgxpool.Pool
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	// Define the PostgreSQL container request
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpassword",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	// Create and start the PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("could not stop postgres container: %s", err)
		}
	}()

	// Get the container's mapped port and host
	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %s", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("could not get mapped port: %s", err)
	}

	// Create a new connection pool
	pool, err = pgxpool.New(ctx, ConnString(config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpassword",
		DBName:   "testdb",
		SSLMode:  "disable",
	}))
	if err != nil {
		log.Fatalf("could not connect to database: %s", err)
	}
	defer pool.Close()

	repo := &PostgresRepository{Pool: pool}
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("could not migrate: %s", err)
	}

	// Run the tests
	return m.Run()
}

func TestPostgresRepository_Migrate(t *testing.T) {
	repo := &PostgresRepository{Pool: pool}
	assert.NoError(t, repo.Migrate(context.Background()), "migrate is idempotent")
}

func TestPostgresRepository_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := &PostgresRepository{Pool: pool}

	now := time.Now().UTC()
	obs := []model.PriceObservation{
		{Symbol: "SPX", Level: 100, ObservedAt: now},
		{Symbol: "SPX", Level: 110, ObservedAt: now},
		{Symbol: "SPX", Level: 121, ObservedAt: now},
		{Symbol: "NDX", Level: 5, ObservedAt: now},
	}
	require.NoError(t, repo.AppendObservations(ctx, obs))

	series, err := repo.LoadSeries(ctx, "SPX", 0)
	require.NoError(t, err)
	assert.Equal(t, model.ReturnSeries{100, 110, 121}, series)

	t.Run("limit keeps the most recent in order", func(t *testing.T) {
		series, err := repo.LoadSeries(ctx, "SPX", 2)
		require.NoError(t, err)
		assert.Equal(t, model.ReturnSeries{110, 121}, series)
	})

	t.Run("later observations sort after earlier ones", func(t *testing.T) {
		require.NoError(t, repo.AppendObservations(ctx, []model.PriceObservation{
			{Symbol: "SPX", Level: 90, ObservedAt: now.Add(time.Minute)},
		}))
		series, err := repo.LoadSeries(ctx, "SPX", 0)
		require.NoError(t, err)
		assert.Equal(t, model.ReturnSeries{100, 110, 121, 90}, series)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		series, err := repo.LoadSeries(ctx, "NONE", 0)
		require.NoError(t, err)
		assert.Empty(t, series)
	})

	t.Run("empty append is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.AppendObservations(ctx, nil))
	})
}

func TestConnString(t *testing.T) {
	got := ConnString(config.DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "risk", SSLMode: "disable",
	})
	assert.Equal(t, "postgres://u:p%40ss@db:5432/risk?sslmode=disable", got)
}
