package db

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcomposer/pkg/logger"
)

// Migration is one schema change. Version is the creation timestamp
// (YYYYMMDDHHmmss) and orders migrations; Down is optional.
type Migration struct {
	Version     int64
	Description string
	Up          func(ctx context.Context, tx *sqlx.Tx) error
	Down        func(ctx context.Context, tx *sqlx.Tx) error
}

// AppliedMigration is a row of the schema_migrations bookkeeping table
type AppliedMigration struct {
	Version     int64     `db:"version"`
	AppliedAt   time.Time `db:"applied_at"`
	Description string    `db:"description"`
}

// Migrator applies and rolls back a fixed, version-ordered set of migrations
type Migrator struct {
	db         *sqlx.DB
	migrations []Migration
	now        func() time.Time
}

// NewMigrator validates migrations and sorts them by version. Versions must
// be positive and unique and every migration needs an Up step.
func NewMigrator(db *sqlx.DB, migrations []Migration) (*Migrator, error) {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for i, m := range sorted {
		switch {
		case m.Version <= 0:
			return nil, errors.Errorf("migration %q has no version", m.Description)
		case m.Up == nil:
			return nil, errors.Errorf("migration %d has no up step", m.Version)
		case i > 0 && sorted[i-1].Version == m.Version:
			return nil, errors.Errorf("duplicate migration version %d", m.Version)
		}
	}

	return &Migrator{db: db, migrations: sorted, now: time.Now}, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL,
			description TEXT
		)
	`)
	return errors.Wrap(err, "failed to create schema_migrations table")
}

// Applied lists the recorded migrations, oldest first
func (m *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	applied := []AppliedMigration{}
	if err := m.db.SelectContext(ctx, &applied,
		"SELECT version, applied_at, COALESCE(description, '') AS description FROM schema_migrations ORDER BY version"); err != nil {
		return nil, errors.Wrap(err, "failed to read applied migrations")
	}
	return applied, nil
}

// Pending returns the known migrations not yet applied, in version order
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}

	done := make(map[int64]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}

	var pending []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns the versions it applied. It stops at the first failure; earlier
// migrations stay applied.
func (m *Migrator) Up(ctx context.Context) ([]int64, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var versions []int64
	for _, mig := range pending {
		err := m.inTx(ctx, func(tx *sqlx.Tx) error {
			if err := mig.Up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
				mig.Version, m.now().UTC(), mig.Description)
			return errors.Wrap(err, "failed to record migration")
		})
		if err != nil {
			return versions, errors.Wrapf(err, "failed to apply migration %d: %s", mig.Version, mig.Description)
		}
		logger.G(ctx).WithField("version", mig.Version).Debug("applied migration: " + mig.Description)
		versions = append(versions, mig.Version)
	}
	return versions, nil
}

// Down rolls back the newest applied migration and returns its version, or
// 0 when nothing is applied.
func (m *Migrator) Down(ctx context.Context) (int64, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if len(applied) == 0 {
		return 0, nil
	}
	latest := applied[len(applied)-1].Version

	idx := sort.Search(len(m.migrations), func(i int) bool { return m.migrations[i].Version >= latest })
	if idx == len(m.migrations) || m.migrations[idx].Version != latest {
		return 0, errors.Errorf("applied migration %d is unknown", latest)
	}
	mig := m.migrations[idx]
	if mig.Down == nil {
		return 0, errors.Errorf("migration %d cannot be rolled back", latest)
	}

	err = m.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := mig.Down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", mig.Version)
		return errors.Wrap(err, "failed to remove migration record")
	})
	if err != nil {
		return 0, errors.Wrapf(err, "failed to roll back migration %d", mig.Version)
	}
	logger.G(ctx).WithField("version", mig.Version).Debug("rolled back migration: " + mig.Description)
	return mig.Version, nil
}

func (m *Migrator) inTx(ctx context.Context, f func(*sqlx.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := f(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit migration")
}
