package catalog

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// Document is the on-disk shape of a catalog file
type Document struct {
	Skills []Record `json:"skills" yaml:"skills" mapstructure:"skills"`
}

// Record is one skill as written in a catalog file or SKILL.md frontmatter.
// Priority is kept as text so that both names and ordinals decode.
type Record struct {
	ID                   string            `json:"skill_id" yaml:"skill_id" mapstructure:"skill_id" jsonschema:"minLength=1"`
	Name                 string            `json:"name" yaml:"name" mapstructure:"name" jsonschema:"minLength=1"`
	Description          string            `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Kind                 string            `json:"skill_type" yaml:"skill_type" mapstructure:"skill_type" jsonschema:"enum=orchestration,enum=validation,enum=security,enum=deployment,enum=testing,enum=documentation,enum=crypto,enum=compliance,enum=fips"`
	Priority             string            `json:"priority" yaml:"priority" mapstructure:"priority"`
	Triggers             []string          `json:"triggers,omitempty" yaml:"triggers,omitempty" mapstructure:"triggers"`
	Dependencies         []string          `json:"dependencies,omitempty" yaml:"dependencies,omitempty" mapstructure:"dependencies"`
	Conflicts            []string          `json:"conflicts,omitempty" yaml:"conflicts,omitempty" mapstructure:"conflicts"`
	TokenBudget          int               `json:"token_budget,omitempty" yaml:"token_budget,omitempty" mapstructure:"token_budget" jsonschema:"minimum=1"`
	ExecutionTimeout     int               `json:"execution_timeout,omitempty" yaml:"execution_timeout,omitempty" mapstructure:"execution_timeout" jsonschema:"minimum=1"`
	Version              string            `json:"version,omitempty" yaml:"version,omitempty" mapstructure:"version"`
	Author               string            `json:"author,omitempty" yaml:"author,omitempty" mapstructure:"author"`
	Tags                 []string          `json:"tags,omitempty" yaml:"tags,omitempty" mapstructure:"tags"`
	ProgressiveFiles     map[string]string `json:"progressive_files,omitempty" yaml:"progressive_files,omitempty" mapstructure:"progressive_files"`
	VerificationRequired bool              `json:"verification_required,omitempty" yaml:"verification_required,omitempty" mapstructure:"verification_required"`
	AutoCompose          *bool             `json:"auto_compose,omitempty" yaml:"auto_compose,omitempty" mapstructure:"auto_compose"`
}

// Skill converts the record into a catalog skill, applying defaults
func (r Record) Skill() (*skilltypes.Skill, error) {
	kind, err := skilltypes.ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}
	priority, err := skilltypes.ParsePriority(r.Priority)
	if err != nil {
		return nil, err
	}

	s := &skilltypes.Skill{
		ID:                      r.ID,
		Name:                    r.Name,
		Description:             r.Description,
		Kind:                    kind,
		Priority:                priority,
		Triggers:                r.Triggers,
		Dependencies:            r.Dependencies,
		Conflicts:               r.Conflicts,
		TokenBudget:             r.TokenBudget,
		ExecutionTimeoutSeconds: r.ExecutionTimeout,
		Version:                 r.Version,
		Author:                  r.Author,
		Tags:                    r.Tags,
		Payload:                 r.ProgressiveFiles,
		VerificationRequired:    r.VerificationRequired,
		AutoCompose:             true,
	}
	if r.AutoCompose != nil {
		s.AutoCompose = *r.AutoCompose
	}
	if s.TokenBudget == 0 {
		s.TokenBudget = defaultTokenBudget
	}
	if s.ExecutionTimeoutSeconds == 0 {
		s.ExecutionTimeoutSeconds = defaultExecutionTimeout
	}
	if s.Version == "" {
		s.Version = defaultVersion
	}
	if s.Author == "" {
		s.Author = defaultAuthor
	}
	return s, nil
}

// RecordFromSkill is the inverse of Record.Skill, used when exporting a catalog
func RecordFromSkill(s *skilltypes.Skill) Record {
	autoCompose := s.AutoCompose
	return Record{
		ID:                   s.ID,
		Name:                 s.Name,
		Description:          s.Description,
		Kind:                 string(s.Kind),
		Priority:             s.Priority.String(),
		Triggers:             s.Triggers,
		Dependencies:         s.Dependencies,
		Conflicts:            s.Conflicts,
		TokenBudget:          s.TokenBudget,
		ExecutionTimeout:     s.ExecutionTimeoutSeconds,
		Version:              s.Version,
		Author:               s.Author,
		Tags:                 s.Tags,
		ProgressiveFiles:     s.Payload,
		VerificationRequired: s.VerificationRequired,
		AutoCompose:          &autoCompose,
	}
}

// decodeRecord decodes a loosely typed map (parsed JSON, YAML or frontmatter)
// into a Record. Integers in the priority field are accepted.
func decodeRecord(raw map[string]any) (Record, error) {
	var r Record
	if p, ok := raw["priority"]; ok && p != nil {
		raw["priority"] = fmt.Sprint(p)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &r,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return r, errors.Wrap(err, "failed to create record decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return r, errors.Wrap(err, "failed to decode skill record")
	}
	return r, nil
}

// skillsFromDocument converts every record in a decoded document
func skillsFromDocument(raw map[string]any) ([]*skilltypes.Skill, error) {
	items, ok := raw["skills"].([]any)
	if !ok {
		return nil, errors.New("catalog document has no skills list")
	}

	out := make([]*skilltypes.Skill, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, errors.Errorf("skill #%d is not an object", i)
		}
		rec, err := decodeRecord(m)
		if err != nil {
			return nil, errors.Wrapf(err, "skill #%d", i)
		}
		s, err := rec.Skill()
		if err != nil {
			return nil, errors.Wrapf(err, "skill %q", rec.ID)
		}
		out = append(out, s)
	}
	return out, nil
}
