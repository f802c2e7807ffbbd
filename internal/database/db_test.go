package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(Options{User: "app", Pass: "pw", Host: "db", Port: "3306", Name: "events", LockWaitTimeoutSec: 3})

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "pw", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "events", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, "3", cfg.Params["innodb_lock_wait_timeout"])
	assert.Equal(t, "'"+sqlMode+"'", cfg.Params["sql_mode"])
	assert.Contains(t, cfg.Params["sql_mode"], "STRICT_ALL_TABLES")
}

func TestDSNClampsLockWait(t *testing.T) {
	cfg, err := mysql.ParseDSN(DSN(Options{User: "app", Host: "db", Port: "3306", Name: "events"}))
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.Params["innodb_lock_wait_timeout"])
}

func TestMigrateSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT GET_LOCK`).WithArgs(migrationLockName).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, name := range []string{"0001_users.sql", "0002_refresh_tokens.sql", "0003_events.sql", "0004_bookings.sql"} {
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	}
	mock.ExpectExec(`SELECT RELEASE_LOCK`).WithArgs(migrationLockName).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateLockTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT GET_LOCK`).WithArgs(migrationLockName).
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(0))

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
