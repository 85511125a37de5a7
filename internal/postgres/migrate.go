package postgres

import (
	"context"
	"embed"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

//go:embed schema/*.sql
var schemas embed.FS

const (
	SchemaCatalog = "catalog"
	SchemaOrders  = "orders"
)

// Migrate applies the idempotent DDL of one service.
func Migrate(ctx context.Context, db *pgxpool.Pool, name string) error {
	ddl, err := schemas.ReadFile("schema/" + name + ".sql")
	if err != nil {
		return errors.Wrapf(err, "schema %s", name)
	}
	if _, err := db.Exec(ctx, string(ddl)); err != nil {
		return errors.Wrapf(err, "apply schema %s", name)
	}
	return nil
}
