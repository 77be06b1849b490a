package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wyrmwatch/worldserver/internal/storage/migrations"
)

var testPool *pgxpool.Pool

// TestMain boots a throwaway Postgres container once for the whole
// package's integration tests, following internal/db/testhelpers_test.go.
func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("starting postgres container: %v", err)
	}
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("getting container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("getting container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connecting to test db: %v", err)
	}
	defer testPool.Close()

	if err := runTestMigrations(testPool); err != nil {
		log.Fatalf("running migrations: %v", err)
	}

	os.Exit(m.Run())
}

func runTestMigrations(pool *pgxpool.Pool) error {
	connConfig := pool.Config().ConnConfig
	connStr := stdlib.RegisterConnConfig(connConfig)
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("opening sql.DB: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.Up(sqlDB, ".")
}

// newTestDB returns a *DB over the shared pool, truncating every table
// first so each test starts from a clean slate.
func newTestDB(tb testing.TB) *DB {
	tb.Helper()
	ctx := context.Background()
	tables := []string{
		"transactions", "online_list", "post_attachments", "post",
		"floor_items", "world_state_vars", "quest_vars",
		"guild_members", "guilds",
		"inventory", "quest_log", "char_abilities", "char_kill_count",
		"char_status_effects", "char_attributes", "characters", "accounts",
	}
	for _, tbl := range tables {
		if _, err := testPool.Exec(ctx, "TRUNCATE "+tbl+" CASCADE"); err != nil {
			tb.Fatalf("truncating %s: %v", tbl, err)
		}
	}
	return &DB{pool: testPool}
}
