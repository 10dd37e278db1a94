// Package pg bootstraps PostgreSQL access on pgx/v5.
//
// Connect builds a *pgxpool.Pool from Config (populated from PG_* env
// variables) and retries until the server answers a ping. Stores in
// pkg/storage/postgres talk to the pool through database/sql via
// stdlib.OpenDBFromPool, which is also what Migrate hands to goose:
//
//	pool, err := pg.Connect(ctx, cfg.Postgres)
//	if err != nil {
//		return err
//	}
//	db := stdlib.OpenDBFromPool(pool)
//	if err := pg.Migrate(ctx, db, postgres.Migrations, postgres.MigrationsDir, cfg.Postgres, log); err != nil {
//		return err
//	}
//
// Errors are classified with IsNotFoundError, IsDuplicateKeyError and
// IsConnectionError. Stores map the latter to apierror.ErrUnavailable so
// the HTTP layer answers 503 instead of 500.
package pg
