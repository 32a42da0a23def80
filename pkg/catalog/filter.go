package catalog

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// Filter selects catalog skills by kind and tag. Tags are glob patterns
// ("sec*", "micro?ervices"); a skill matches when any of its tags matches any
// pattern. Empty criteria match everything.
type Filter struct {
	Kinds []skilltypes.Kind
	Tags  []string
}

// CompiledFilter is a Filter with its tag patterns compiled
type CompiledFilter struct {
	kinds map[skilltypes.Kind]bool
	tags  []glob.Glob
}

// Compile validates the filter and compiles its patterns
func (f Filter) Compile() (*CompiledFilter, error) {
	cf := &CompiledFilter{kinds: make(map[skilltypes.Kind]bool, len(f.Kinds))}
	for _, k := range f.Kinds {
		if !k.Valid() {
			return nil, errors.Errorf("unknown skill kind %q", k)
		}
		cf.kinds[k] = true
	}
	for _, pattern := range f.Tags {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid tag pattern %q", pattern)
		}
		cf.tags = append(cf.tags, g)
	}
	return cf, nil
}

// Match reports whether the skill satisfies the filter
func (cf *CompiledFilter) Match(s *skilltypes.Skill) bool {
	if len(cf.kinds) > 0 && !cf.kinds[s.Kind] {
		return false
	}
	if len(cf.tags) == 0 {
		return true
	}
	for _, tag := range s.Tags {
		tag = strings.ToLower(tag)
		for _, g := range cf.tags {
			if g.Match(tag) {
				return true
			}
		}
	}
	return false
}

// Apply returns the matching skills in catalog order
func (f Filter) Apply(c *Catalog) ([]*skilltypes.Skill, error) {
	cf, err := f.Compile()
	if err != nil {
		return nil, err
	}
	var out []*skilltypes.Skill
	for _, s := range c.Skills() {
		if cf.Match(s) {
			out = append(out, s)
		}
	}
	return out, nil
}
