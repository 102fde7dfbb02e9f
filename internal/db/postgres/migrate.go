package postgres

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/autofilter/internal/db"
)

//go:embed migrations/000001_init.up.sql
var initMigrationUp string

//go:embed migrations/000001_init.down.sql
var initMigrationDown string

// Execer runs a statement. Satisfied by *pgx.Conn and *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// MigrateUp creates the schema. The statements are idempotent.
func MigrateUp(ctx context.Context, conn Execer) error {
	if _, err := conn.Exec(ctx, initMigrationUp); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	return nil
}

// MigrateDown drops the schema.
func MigrateDown(ctx context.Context, conn Execer) error {
	if _, err := conn.Exec(ctx, initMigrationDown); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	return nil
}
