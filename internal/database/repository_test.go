package database

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"cryptobot/internal/model"
)

var (
	pool *pgxpool.Pool
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

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

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %s", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("could not get mapped port: %s", err)
	}

	connStr := "postgres://testuser:testpassword@" + host + ":" + port.Port() + "/testdb"
	repo, err := NewPostgresRepository(ctx, connStr)
	if err != nil {
		log.Fatalf("could not connect to database: %s", err)
	}
	pool = repo.Pool

	code := m.Run()

	pool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Printf("could not stop postgres container: %s", err)
	}
	os.Exit(code)
}

func TestPostgresRepository_ArchiveSnapshot(t *testing.T) {
	if pool == nil {
		t.Skip("postgres container not started")
	}
	ctx := context.Background()
	repo := &PostgresRepository{Pool: pool}

	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate is idempotent")

	observed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	quotes := []model.ArchivedQuote{
		{
			Cycle:         1,
			Symbol:        "BTC",
			EURPrice:      decimal.RequireFromString("51000.123456789"),
			USDPrice:      decimal.RequireFromString("55000.5"),
			ChangeEUR:     decimal.RequireFromString("1000.123456789"),
			PercentChange: decimal.RequireFromString("2.0002"),
			ObservedAt:    observed,
		},
		{
			Cycle:         1,
			Symbol:        "XRP",
			EURPrice:      decimal.RequireFromString("0.5"),
			USDPrice:      decimal.RequireFromString("0.55"),
			ChangeEUR:     decimal.Zero,
			PercentChange: decimal.Zero,
			FirstSighting: true,
			ObservedAt:    observed,
		},
	}
	require.NoError(t, repo.ArchiveSnapshot(ctx, quotes))
	require.NoError(t, repo.ArchiveSnapshot(ctx, nil))

	var (
		count    int
		eurPrice string
		first    bool
		at       time.Time
	)
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM price_snapshots WHERE cycle = 1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	err = pool.QueryRow(ctx,
		"SELECT eur_price::text, first_sighting, observed_at FROM price_snapshots WHERE symbol = 'BTC'",
	).Scan(&eurPrice, &first, &at)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString(eurPrice).Equal(quotes[0].EURPrice))
	assert.False(t, first)
	assert.True(t, at.Equal(observed))
}
