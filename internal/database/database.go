package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// The ledgers take one short write per verification or generation, so the
// pool stays small and recycles connections ahead of MySQL's wait_timeout.
const (
	maxOpenConns    = 8
	maxIdleConns    = 4
	connMaxLifetime = 3 * time.Minute
	connMaxIdleTime = time.Minute

	dialTimeout = 5 * time.Second
	ioTimeout   = 10 * time.Second
)

// Connect opens the ledger database. Timestamps are always parsed into UTC
// time.Time values and unset I/O timeouts get bounded defaults.
func Connect(dsn string) (*sql.DB, error) {
	cfg, err := ledgerConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 2*dialTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql %s/%s: %w", cfg.Addr, cfg.DBName, err)
	}
	return db, nil
}

func ledgerConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.Timeout == 0 {
		cfg.Timeout = dialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = ioTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = ioTimeout
	}
	return cfg, nil
}

// Migrate applies the bootstrap schema; every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
