// Package db provides the SQLite database used for composition history.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// BasePathEnv overrides the directory holding the storage database
const BasePathEnv = "SKILLCOMPOSER_BASE_PATH"

// DefaultDBPath returns the default path for the storage database.
func DefaultDBPath() (string, error) {
	if basePath := os.Getenv(BasePathEnv); basePath != "" {
		return filepath.Join(basePath, "storage.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".skillcomposer", "storage.db"), nil
}

// Open opens or creates a SQLite database at the given path in WAL mode.
func Open(ctx context.Context, dbPath string) (*sqlx.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if err := Configure(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to configure database")
	}

	return db, nil
}

// OpenMigrated opens the database at dbPath and applies every pending
// migration before returning it.
func OpenMigrated(ctx context.Context, dbPath string, migrations []Migration) (*sqlx.DB, error) {
	db, err := Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	migrator, err := NewMigrator(db, migrations)
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// pragma is a connection setting together with the value PRAGMA <name>
// reports once it is in force. An empty want is not checked.
type pragma struct {
	name  string
	value string
	want  string
}

var pragmas = []pragma{
	{name: "journal_mode", value: "WAL", want: "wal"},
	{name: "synchronous", value: "NORMAL", want: "1"},
	{name: "cache_size", value: "1000"},
	{name: "temp_store", value: "memory"},
	{name: "busy_timeout", value: "5000", want: "5000"},
	{name: "foreign_keys", value: "ON", want: "1"},
}

// Configure sets the SQLite pragmas the history store relies on and limits
// the pool to one connection so they stay in force.
func Configure(ctx context.Context, db *sqlx.DB) error {
	for _, p := range pragmas {
		stmt := fmt.Sprintf("PRAGMA %s=%s", p.name, p.value)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute %s", stmt)
		}
	}

	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)

	return VerifyConfiguration(db)
}

// VerifyConfiguration reads every checked pragma back
func VerifyConfiguration(db *sqlx.DB) error {
	for _, p := range pragmas {
		if p.want == "" {
			continue
		}
		var got string
		if err := db.Get(&got, "PRAGMA "+p.name); err != nil {
			return errors.Wrapf(err, "failed to query %s", p.name)
		}
		if !strings.EqualFold(got, p.want) {
			return errors.Errorf("expected %s=%s, got %s", p.name, p.want, got)
		}
	}
	return nil
}
