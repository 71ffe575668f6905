package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// ConnectDB opens the MySQL pool and pings it, retrying while the database starts up.
func ConnectDB(ctx context.Context, cfg DBConfig, attempts int) (*sqlx.DB, error) {
	var err error
	for i := 0; i < attempts; i++ {
		var db *sqlx.DB
		db, err = sqlx.Open("mysql", cfg.DSN())
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				db.SetMaxOpenConns(25)
				db.SetMaxIdleConns(25)
				db.SetConnMaxLifetime(5 * time.Minute)
				log.Info().Str("db", cfg.Name).Msg("connected to database")
				return db, nil
			}
			db.Close()
		}
		log.Warn().Err(err).Msgf("retry %d: failed to connect to DB %s (%s:%s)", i+1, cfg.Name, cfg.Host, cfg.Port)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to DB %s at %s:%s after retries: %w", cfg.Name, cfg.Host, cfg.Port, err)
}
