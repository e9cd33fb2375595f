package testdb

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/bookshelf-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 30 * time.Second

const (
	embeddedUser     = "postgres"
	embeddedPassword = "postgres"
	embeddedDatabase = "bookshelf_test"
)

var (
	serverOnce sync.Once
	server     *embeddedpostgres.EmbeddedPostgres
	serverURL  string
	serverErr  error

	migrateOnce sync.Once
	migrateErr  error
)

// GetTestDatabaseURL returns the external database URL for tests, if any.
func GetTestDatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// Open returns a connection to a migrated test database. The connection is
// closed when the test finishes.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	dbURL, err := databaseURL()
	require.NoError(t, err, "failed to start test database")

	db, err := sqlx.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open database connection")
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "database ping failed")

	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, db.DB, postgres.MigrateUp, nil)
	})
	require.NoError(t, migrateErr, "failed to run migrations")

	return db
}

// Reset deletes every row from the application tables.
func Reset(t testing.TB, db *sqlx.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE books, users CASCADE")
	require.NoError(t, err, "failed to truncate tables")
}

// Stop shuts down the embedded server if one was started.
func Stop() {
	if server != nil {
		_ = server.Stop()
	}
}

func databaseURL() (string, error) {
	if url := GetTestDatabaseURL(); url != "" {
		return url, nil
	}
	serverOnce.Do(func() {
		serverURL, serverErr = startEmbedded()
	})
	return serverURL, serverErr
}

func startEmbedded() (string, error) {
	port, err := freePort()
	if err != nil {
		return "", err
	}

	baseDir, err := os.MkdirTemp("", "bookshelf-testdb-")
	if err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Username(embeddedUser).
		Password(embeddedPassword).
		Database(embeddedDatabase).
		Port(uint32(port)).
		DataPath(filepath.Join(baseDir, "data")).
		RuntimePath(filepath.Join(baseDir, "runtime")).
		StartTimeout(TestTimeout).
		Logger(io.Discard))

	if err := pg.Start(); err != nil {
		return "", fmt.Errorf("failed to start embedded postgres: %w", err)
	}
	server = pg

	return fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		embeddedUser, embeddedPassword, port, embeddedDatabase), nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to find a free port: %w", err)
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}
