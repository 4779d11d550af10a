// Package pg wires PostgreSQL through github.com/jackc/pgx/v5.
//
// Connect builds a pgxpool.Pool from Config (PG_* environment variables) and
// retries until the database answers a ping. Migrate applies embedded goose
// migrations, and Healthcheck adapts the pool to a readiness probe. The error
// helpers (IsNotFoundError, IsDuplicateKeyError, ...) classify driver errors
// so storage packages can map them to domain errors.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if _, err := pg.Migrate(ctx, pool, pgstore.Migrations(), cfg, log); err != nil {
//	    return err
//	}
package pg
