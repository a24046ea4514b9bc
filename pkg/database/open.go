package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// openSQLDB opens and pings a pool for cfg. It also returns the ent dialect
// the pool speaks.
func openSQLDB(cfg Config) (*sql.DB, string, error) {
	var driverName, entDialect string
	switch cfg.driver() {
	case DriverPostgres:
		driverName, entDialect = "postgres", dialect.Postgres
	case DriverPgx:
		driverName, entDialect = "pgx", dialect.Postgres
	case DriverSQLite:
		driverName, entDialect = "sqlite", dialect.SQLite
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	if entDialect == dialect.SQLite {
		// one writer at a time, and :memory: is per connection
		conn.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			conn.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetimeMin > 0 {
			conn.SetConnMaxLifetime(cfg.ConnMaxLifetime())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, entDialect, nil
}
