// Package history persists produced compositions in the SQLite storage
// database so that they can be listed, inspected and diffed later.
package history

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcomposer/pkg/db"
	"github.com/jingkaihe/skillcomposer/pkg/db/migrations"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// DefaultListLimit is used when List is called with a non-positive limit
const DefaultListLimit = 20

// ErrNotFound is returned when no record has the requested id
var ErrNotFound = errors.New("composition record not found")

// Record is one stored composition
type Record struct {
	ID             string                      `json:"id"`
	CreatedAt      time.Time                   `json:"created_at"`
	ProjectIdea    string                      `json:"project_idea"`
	ProjectType    string                      `json:"project_type"`
	Context        skilltypes.ProjectContext   `json:"context"`
	Composition    skilltypes.SkillComposition `json:"composition"`
	UsedFallback   bool                        `json:"used_fallback"`
	SkillCount     int                         `json:"skill_count"`
	TotalTokens    int                         `json:"total_tokens"`
	CatalogVersion uint64                      `json:"catalog_version"`
}

// Summary is the listing view of a record
type Summary struct {
	ID             string    `json:"id" db:"id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	ProjectIdea    string    `json:"project_idea" db:"project_idea"`
	ProjectType    string    `json:"project_type" db:"project_type"`
	UsedFallback   bool      `json:"used_fallback" db:"used_fallback"`
	SkillCount     int       `json:"skill_count" db:"skill_count"`
	TotalTokens    int       `json:"total_tokens" db:"total_tokens"`
	CatalogVersion uint64    `json:"catalog_version" db:"catalog_version"`
}

// Store reads and writes composition records. It is safe for concurrent use.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens the database at dbPath, migrating it when needed. An empty
// dbPath uses db.DefaultDBPath.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		var err error
		if dbPath, err = db.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	sqlDB, err := db.OpenMigrated(ctx, dbPath, migrations.All())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}
	return NewStore(sqlDB), nil
}

// NewStore wraps an already migrated database
func NewStore(sqlDB *sqlx.DB) *Store {
	return &Store{db: sqlDB, now: time.Now}
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores comp together with the context it was composed for
func (s *Store) Record(ctx context.Context, pc skilltypes.ProjectContext, comp *skilltypes.SkillComposition, catalogVersion uint64) (*Record, error) {
	if comp == nil {
		return nil, errors.New("composition is nil")
	}

	rec := &Record{
		ID:             uuid.New().String(),
		CreatedAt:      s.now().UTC(),
		ProjectIdea:    pc.ProjectIdea,
		ProjectType:    pc.ProjectType,
		Context:        pc,
		Composition:    *comp,
		UsedFallback:   comp.UsedFallback,
		SkillCount:     len(comp.Skills),
		TotalTokens:    comp.TotalTokenBudget,
		CatalogVersion: catalogVersion,
	}

	row, err := toRow(rec)
	if err != nil {
		return nil, err
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO compositions (
			id, project_idea, project_type, context, composition,
			used_fallback, skill_count, total_tokens, catalog_version, created_at
		) VALUES (
			:id, :project_idea, :project_type, :context, :composition,
			:used_fallback, :skill_count, :total_tokens, :catalog_version, :created_at
		)`, row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to record composition")
	}
	return rec, nil
}

// Get loads one record by id
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var row dbRecord
	err := s.db.GetContext(ctx, &row, `
		SELECT id, project_idea, project_type, context, composition,
			used_fallback, skill_count, total_tokens, catalog_version, created_at
		FROM compositions WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "id %s", id)
		}
		return nil, errors.Wrap(err, "failed to load composition record")
	}
	return row.toRecord(), nil
}

// List returns the most recent records first. projectType, when set,
// restricts the listing to one project type.
func (s *Store) List(ctx context.Context, limit int, projectType string) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, project_idea, project_type, used_fallback, skill_count,
		total_tokens, catalog_version, created_at FROM compositions`
	args := map[string]any{"limit": limit}
	if projectType = strings.TrimSpace(projectType); projectType != "" {
		query += " WHERE project_type = :project_type"
		args["project_type"] = projectType
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT :limit"

	bound, boundArgs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build list query")
	}

	summaries := []Summary{}
	if err := s.db.SelectContext(ctx, &summaries, bound, boundArgs...); err != nil {
		return nil, errors.Wrap(err, "failed to list composition records")
	}
	return summaries, nil
}

// Delete removes one record
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM compositions WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete composition record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}
