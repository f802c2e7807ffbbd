package database

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options describes how to reach MySQL.  LockWaitTimeoutSec is applied to
// every pooled connection so a booking blocked on a locked event row fails
// with a retryable error instead of waiting indefinitely.
type Options struct {
	User               string
	Pass               string
	Host               string
	Port               string
	Name               string
	LockWaitTimeoutSec int
}

const sqlMode = "STRICT_ALL_TABLES,NO_ZERO_IN_DATE,NO_ZERO_DATE,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION"

// DSN renders the driver connection string for the given options.
func DSN(o Options) string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Pass
	cfg.Net = "tcp"
	cfg.Addr = o.Host + ":" + o.Port
	cfg.DBName = o.Name
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// Report matched rather than changed rows so RowsAffected reflects
	// whether a guarded UPDATE or DELETE found its row.
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{
		"innodb_lock_wait_timeout": strconv.Itoa(max(o.LockWaitTimeoutSec, 1)),
		// Out-of-range and truncated values fail instead of being clamped.
		"sql_mode": "'" + sqlMode + "'",
	}
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(o))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
