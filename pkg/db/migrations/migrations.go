// Package migrations lists the schema migrations of the storage database.
// Versions are creation timestamps (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/jingkaihe/skillcomposer/pkg/db"
)

// All returns every migration. New migrations are appended here.
func All() []db.Migration {
	return []db.Migration{
		Migration20261001090000CreateCompositions(),
		Migration20261001090001AddCompositionIndexes(),
	}
}
