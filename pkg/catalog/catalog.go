// Package catalog loads and holds the universe of known skills. A Catalog is
// an immutable, ordered snapshot; a Store swaps snapshots atomically so that
// discovery calls never observe a partially loaded catalog.
package catalog

import (
	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// Catalog is an immutable, ordered set of skills keyed by id
type Catalog struct {
	version uint64
	source  string
	skills  []*skilltypes.Skill
	index   map[string]int
}

// New validates the skills and builds a catalog preserving their order.
// The skills are deep-copied so later changes by the caller are not observed.
func New(source string, skills []*skilltypes.Skill) (*Catalog, error) {
	c := &Catalog{
		source: source,
		skills: make([]*skilltypes.Skill, 0, len(skills)),
		index:  make(map[string]int, len(skills)),
	}

	for i, s := range skills {
		if s == nil {
			return nil, errors.Errorf("skill #%d is nil", i)
		}
		if err := validateSkill(s); err != nil {
			return nil, errors.Wrapf(err, "invalid skill %q", s.ID)
		}
		if _, dup := c.index[s.ID]; dup {
			return nil, errors.Errorf("duplicate skill id %q", s.ID)
		}
		c.index[s.ID] = len(c.skills)
		c.skills = append(c.skills, s.Clone())
	}

	return c, nil
}

func validateSkill(s *skilltypes.Skill) error {
	if s.ID == "" {
		return errors.New("skill id is required")
	}
	if s.Name == "" {
		return errors.New("skill name is required")
	}
	if !s.Kind.Valid() {
		return errors.Errorf("unknown kind %q", s.Kind)
	}
	if !s.Priority.Valid() {
		return errors.Errorf("unknown priority %d", int(s.Priority))
	}
	if s.TokenBudget <= 0 {
		return errors.Errorf("token budget must be positive, got %d", s.TokenBudget)
	}
	if s.ExecutionTimeoutSeconds <= 0 {
		return errors.Errorf("execution timeout must be positive, got %d", s.ExecutionTimeoutSeconds)
	}
	for _, dep := range s.Dependencies {
		if dep == s.ID {
			return errors.New("skill cannot depend on itself")
		}
	}
	return nil
}

// Version is the store generation that produced this snapshot. Zero for
// catalogs that were never installed in a Store.
func (c *Catalog) Version() uint64 { return c.version }

// Source describes where the skills were loaded from
func (c *Catalog) Source() string { return c.source }

// Len returns the number of skills
func (c *Catalog) Len() int { return len(c.skills) }

// Skills returns the skills in catalog order. The slice is a copy; the skills
// themselves are shared and must not be modified.
func (c *Catalog) Skills() []*skilltypes.Skill {
	return append([]*skilltypes.Skill(nil), c.skills...)
}

// Get looks a skill up by id
func (c *Catalog) Get(id string) (*skilltypes.Skill, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.skills[i], true
}

// Position returns the catalog order of a skill, or -1 when unknown
func (c *Catalog) Position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// IDs returns the skill ids in catalog order
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.skills))
	for i, s := range c.skills {
		ids[i] = s.ID
	}
	return ids
}

// withVersion returns a shallow copy stamped with a store generation
func (c *Catalog) withVersion(v uint64) *Catalog {
	cp := *c
	cp.version = v
	return &cp
}
