package database

import (
	"context"
	"database/sql"
	"fmt"
	"ms-events/internal/config"
	"ms-events/internal/logger"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured store, retrying the initial ping, and wraps the
// connection in a bun.DB with the matching dialect.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	var (
		driverName string
		dsn        string
	)
	switch cfg.Driver {
	case DriverPostgres:
		driverName, dsn = "postgres", cfg.PostgresDSN
	case DriverSQLite:
		driverName, dsn = sqliteshim.ShimName, cfg.SQLiteDSN
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("no DSN configured for driver %s", cfg.Driver)
	}

	sqldb, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// every pooled connection to an in-memory database would otherwise see its own copy
		sqldb.SetMaxOpenConns(1)
	} else {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	if err := pingWithRetry(ctx, sqldb, cfg, log); err != nil {
		sqldb.Close()
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func pingWithRetry(ctx context.Context, sqldb *sql.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	attempts := cfg.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		log.Info("DATABASE", fmt.Sprintf("Connecting to %s (attempt %d/%d)", cfg.Driver, i+1, attempts))
		if err = sqldb.PingContext(ctx); err == nil {
			log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Driver))
			return nil
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.RetryDelay):
			}
		}
	}
	return fmt.Errorf("connect to %s after %d attempts: %w", cfg.Driver, attempts, err)
}
