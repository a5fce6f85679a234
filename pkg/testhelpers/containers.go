package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/database"
)

// PostgresImage is the image used for integration test databases.
const PostgresImage = "postgres:16-alpine"

// targetSeedStatements builds the miniature commerce schema that integration
// tests ask questions about. Statements run one at a time; pgx's extended
// protocol rejects multi-statement strings.
var targetSeedStatements = []string{
	`CREATE TABLE customers (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		country TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE orders (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		customer_id BIGINT NOT NULL REFERENCES customers(id),
		status TEXT NOT NULL DEFAULT 'pending',
		total NUMERIC(10,2) NOT NULL,
		ordered_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE order_items (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id),
		product TEXT NOT NULL,
		quantity INT NOT NULL,
		unit_price NUMERIC(10,2) NOT NULL
	)`,
	`CREATE INDEX idx_orders_customer_id ON orders(customer_id)`,
	`INSERT INTO customers (name, email, country) VALUES
		('Alice Chen', 'alice@example.com', 'TW'),
		('Bruno Costa', 'bruno@example.com', 'BR'),
		('Carla Diaz', 'carla@example.com', 'ES')`,
	`INSERT INTO orders (customer_id, status, total) VALUES
		(1, 'shipped', 120.50),
		(1, 'pending', 60.00),
		(2, 'shipped', 35.25),
		(3, 'cancelled', 210.00),
		(3, 'shipped', 99.99)`,
	`INSERT INTO order_items (order_id, product, quantity, unit_price) VALUES
		(1, 'keyboard', 1, 80.50),
		(1, 'mouse', 2, 20.00),
		(2, 'monitor stand', 1, 60.00),
		(3, 'usb cable', 3, 11.75),
		(4, 'laptop sleeve', 2, 45.00),
		(4, 'dock', 1, 120.00),
		(5, 'headset', 1, 99.99)`,
}

// TargetDB holds a seeded PostgreSQL container standing in for the database
// users ask questions about, plus a connection pool.
type TargetDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	sharedTargetDB     *TargetDB
	sharedTargetDBOnce sync.Once
	sharedTargetDBErr  error
)

// GetTargetDB returns a shared seeded PostgreSQL container for integration
// tests. The container is created once and reused across all tests in the run.
func GetTargetDB(t *testing.T) *TargetDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTargetDBOnce.Do(func() {
		sharedTargetDB, sharedTargetDBErr = setupTargetDB()
	})

	if sharedTargetDBErr != nil {
		t.Fatalf("Failed to setup target database: %v", sharedTargetDBErr)
	}

	return sharedTargetDB
}

func setupTargetDB() (*TargetDB, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase("target_data"),
		postgres.WithUsername("chatalyst"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start target container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	for _, stmt := range targetSeedStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to seed target database: %w", err)
		}
	}

	return &TargetDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
	}, nil
}

// AppDB holds the chatalyst application store with migrations applied.
// Use this for testing repositories and services against a real database.
type AppDB struct {
	DB      *database.DB
	ConnStr string
}

var (
	sharedAppDB     *AppDB
	sharedAppDBOnce sync.Once
	sharedAppDBErr  error
)

// GetAppDB returns a shared application database for integration tests.
// The database has migrations applied and is reused across all tests.
func GetAppDB(t *testing.T) *AppDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedAppDBOnce.Do(func() {
		sharedAppDB, sharedAppDBErr = setupAppDB()
	})

	if sharedAppDBErr != nil {
		t.Fatalf("Failed to setup app database: %v", sharedAppDBErr)
	}

	return sharedAppDB
}

func setupAppDB() (*AppDB, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase("chatalyst_test"),
		postgres.WithUsername("chatalyst"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start app store container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to app database: %w", err)
	}

	// Run migrations using database/sql (required by golang-migrate)
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, migrationsDir(), zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &AppDB{
		DB:      db,
		ConnStr: connStr,
	}, nil
}

// migrationsDir resolves the migrations directory relative to this source
// file, so integration tests work from any package directory.
func migrationsDir() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}
