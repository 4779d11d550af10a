// Package pgstore implements notifications.Store on PostgreSQL with pgx.
//
// Status changes use a leased claim: Claim sets claim_token with a
// conditional UPDATE that only matches the expected status and retry count
// and no live claim, and Complete applies the change and inserts the log
// entry in one transaction guarded by that token.
//
// The schema ships as embedded goose migrations:
//
//	pool, _ := pg.Connect(ctx, cfg)
//	if _, err := pg.Migrate(ctx, pool, pgstore.Migrations(), cfg, log); err != nil {
//	    return err
//	}
//	store := pgstore.New(pool)
package pgstore
