package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/bhandras/studyhall/internal/database/migrations"
	"github.com/bhandras/studyhall/internal/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type DB struct {
	*sqlx.DB
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to an in-memory SQLite database is a separate
	// database, and SQLite only has one writer anyway.
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := migrations.WrapLegacyNotificationData(ctx, db.DB); err != nil {
			logger.Warnf("Failed to wrap legacy notification data: %v", err)
		}
	}

	return &DB{db}, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_foreign_keys=on&_busy_timeout=5000"
}

// runMigrations applies the embedded schema for the driver's dialect.
func runMigrations(ctx context.Context, db *sqlx.DB, driver string) error {
	dir := "sqlite"
	dialect := "sqlite3"
	if driver == DriverPostgres {
		dir = "postgres"
		dialect = "pgx"
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.DB, dir)
}

// gooseLogger routes migration output through the server logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logger.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logger.Errorf(strings.TrimSuffix(format, "\n"), v...)
	panic(fmt.Sprintf(format, v...))
}
