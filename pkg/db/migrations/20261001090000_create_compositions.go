package migrations

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcomposer/pkg/db"
)

// Migration20261001090000CreateCompositions creates the compositions table.
// context and composition hold JSON documents.
func Migration20261001090000CreateCompositions() db.Migration {
	return db.Migration{
		Version:     20261001090000,
		Description: "Create compositions table",
		Up: func(ctx context.Context, tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS compositions (
					id TEXT PRIMARY KEY,
					project_idea TEXT NOT NULL,
					project_type TEXT NOT NULL,
					context TEXT NOT NULL,
					composition TEXT NOT NULL,
					used_fallback BOOLEAN NOT NULL DEFAULT 0,
					skill_count INTEGER NOT NULL,
					total_tokens INTEGER NOT NULL,
					catalog_version INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)
			`)
			return errors.Wrap(err, "failed to create compositions table")
		},
		Down: func(ctx context.Context, tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS compositions")
			return errors.Wrap(err, "failed to drop compositions table")
		},
	}
}
