package database

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/Alijeyrad/notifyhub/config"
	"github.com/Alijeyrad/notifyhub/internal/repo"
)

// NewEntClient creates a new repo client from central config
func NewEntClient(cfg config.DatabaseConfig) (*repo.Client, error) {
	return NewEntClientFromConfig(FromCentralConfig(cfg))
}

// NewEntClientFromConfig creates a new repo client from package Config
func NewEntClientFromConfig(cfg Config) (*repo.Client, error) {
	db, entDialect, err := openSQLDB(cfg)
	if err != nil {
		return nil, err
	}

	drv := entsql.OpenDB(entDialect, db)
	return repo.NewClient(repo.Driver(drv)), nil
}

func Migrate(ctx context.Context, client *repo.Client) error {
	return client.Schema.Create(ctx)
}
