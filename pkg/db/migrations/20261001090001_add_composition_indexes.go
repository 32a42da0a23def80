package migrations

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcomposer/pkg/db"
)

var compositionIndexes = map[string]string{
	"idx_compositions_created_at":   "compositions(created_at DESC)",
	"idx_compositions_project_type": "compositions(project_type)",
}

// Migration20261001090001AddCompositionIndexes indexes history listing by
// recency and project type.
func Migration20261001090001AddCompositionIndexes() db.Migration {
	return db.Migration{
		Version:     20261001090001,
		Description: "Add composition history indexes",
		Up: func(ctx context.Context, tx *sqlx.Tx) error {
			for name, target := range compositionIndexes {
				if _, err := tx.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS "+name+" ON "+target); err != nil {
					return errors.Wrapf(err, "failed to create index %s", name)
				}
			}
			return nil
		},
		Down: func(ctx context.Context, tx *sqlx.Tx) error {
			for name := range compositionIndexes {
				if _, err := tx.ExecContext(ctx, "DROP INDEX IF EXISTS "+name); err != nil {
					return errors.Wrapf(err, "failed to drop index %s", name)
				}
			}
			return nil
		},
	}
}
