// Package storage opens the Postgres pool the repositories run against
// and applies the embedded schema migrations on startup.
package storage

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/pollverse/connect/migrations"
)

// NewPool connects a pgx pool to the database at dsn and verifies the
// connection with a ping before handing it back.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[NewPool] pgxpool.ParseConfig")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "[NewPool] pgxpool.NewWithConfig")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "[NewPool] pool.Ping")
	}
	return pool, nil
}

// Migrate brings the schema up to date using the embedded goose
// migrations. It opens its own database/sql connection because goose
// does not speak the pgx pool interface.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return errors.Wrap(err, "[Migrate] sql.Open")
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return errors.Wrap(err, "[Migrate] goose.SetDialect")
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return errors.Wrap(err, "[Migrate] goose.UpContext")
	}
	return nil
}
