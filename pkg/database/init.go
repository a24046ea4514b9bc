package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Alijeyrad/notifyhub/config"
)

// InitializeDatabases creates the configured databases if they don't exist.
// It connects to the default 'postgres' database to create the others.
// SQLite deployments have nothing to create.
func InitializeDatabases(cfg *config.Config) error {
	if FromCentralConfig(cfg.Database).driver() == DriverSQLite {
		return nil
	}
	if len(cfg.Server.Databases) == 0 {
		return fmt.Errorf("no database names provided")
	}

	maint := FromCentralConfig(cfg.Database)
	maint.DBName = "postgres"

	conn, _, err := openSQLDB(maint)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres database: %w", err)
	}
	defer conn.Close()

	for _, dbName := range cfg.Server.Databases {
		if err := createDatabaseIfNotExists(conn, dbName); err != nil {
			return fmt.Errorf("failed to create database %q: %w", dbName, err)
		}
	}

	return nil
}

func createDatabaseIfNotExists(conn *sql.DB, dbName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	if err := conn.QueryRowContext(ctx, query, dbName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	return nil
}
