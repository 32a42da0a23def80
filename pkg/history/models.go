package history

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// jsonField stores a value as a JSON text column
type jsonField[T any] struct {
	Data T
}

func (j *jsonField[T]) Scan(value any) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.Errorf("cannot scan %T into jsonField", value)
		}
		bytes = []byte(str)
	}

	return json.Unmarshal(bytes, &j.Data)
}

func (j jsonField[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type dbRecord struct {
	ID             string                                 `db:"id"`
	ProjectIdea    string                                 `db:"project_idea"`
	ProjectType    string                                 `db:"project_type"`
	Context        jsonField[skilltypes.ProjectContext]   `db:"context"`
	Composition    jsonField[skilltypes.SkillComposition] `db:"composition"`
	UsedFallback   bool                                   `db:"used_fallback"`
	SkillCount     int                                    `db:"skill_count"`
	TotalTokens    int                                    `db:"total_tokens"`
	CatalogVersion uint64                                 `db:"catalog_version"`
	CreatedAt      time.Time                              `db:"created_at"`
}

func toRow(r *Record) (*dbRecord, error) {
	row := &dbRecord{
		ID:             r.ID,
		ProjectIdea:    r.ProjectIdea,
		ProjectType:    r.ProjectType,
		Context:        jsonField[skilltypes.ProjectContext]{Data: r.Context},
		Composition:    jsonField[skilltypes.SkillComposition]{Data: r.Composition},
		UsedFallback:   r.UsedFallback,
		SkillCount:     r.SkillCount,
		TotalTokens:    r.TotalTokens,
		CatalogVersion: r.CatalogVersion,
		CreatedAt:      r.CreatedAt,
	}
	// surface encoding errors before the insert rather than from the driver
	if _, err := row.Composition.Value(); err != nil {
		return nil, errors.Wrap(err, "failed to encode composition")
	}
	return row, nil
}

func (row *dbRecord) toRecord() *Record {
	return &Record{
		ID:             row.ID,
		CreatedAt:      row.CreatedAt,
		ProjectIdea:    row.ProjectIdea,
		ProjectType:    row.ProjectType,
		Context:        row.Context.Data,
		Composition:    row.Composition.Data,
		UsedFallback:   row.UsedFallback,
		SkillCount:     row.SkillCount,
		TotalTokens:    row.TotalTokens,
		CatalogVersion: row.CatalogVersion,
	}
}
