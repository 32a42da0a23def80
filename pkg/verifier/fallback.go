package verifier

import (
	"fmt"
	"math"
	"sort"

	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	"github.com/jingkaihe/skillcomposer/pkg/composer"
	"github.com/jingkaihe/skillcomposer/pkg/resolver"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// FallbackPlan is the verification plan of every fallback composition
const FallbackPlan = "Basic project orchestration"

// Fallback builds the minimal composition returned when verification fails:
// the generic orchestration skill, plus the compliance skill when compliance
// is required and the security skill when security is high. Skills are taken
// from the catalog by their well-known ids and from the built-in defaults
// when the catalog lacks them, so the result is never empty.
//
// When the skill limit cannot hold all of them, the policy skills are kept
// and orchestration is dropped. The token and time limits are not enforced:
// the policy skills alone may exceed them, and the composition then carries
// an issue per exceeded limit. Skills run in catalog order unless their
// dependencies say otherwise; built-in stand-ins for skills the catalog
// lacks run last.
func Fallback(c *catalog.Catalog, pc skilltypes.ProjectContext) *skilltypes.SkillComposition {
	var policy []*skilltypes.Skill
	if pc.ComplianceRequired {
		policy = append(policy, lookup(c, catalog.ComplianceSkillID))
	}
	if pc.HighSecurity() {
		policy = append(policy, lookup(c, catalog.SecuritySkillID))
	}

	skills := append([]*skilltypes.Skill{lookup(c, catalog.OrchestrationSkillID)}, policy...)
	if len(skills) > pc.Limits().MaxSkills && len(policy) > 0 {
		skills = policy
	}

	sort.SliceStable(skills, func(i, j int) bool {
		return catalogPosition(c, skills[i].ID) < catalogPosition(c, skills[j].ID)
	})

	graph, order, err := resolver.Resolve(skills)
	if err != nil {
		graph = resolver.Graph{}
		order = make([]string, len(skills))
		for i, s := range skills {
			order[i] = s.ID
		}
	}

	comp := composer.Build(skills, graph, order, []string{FallbackPlan})
	comp.UsedFallback = true
	checkBudgets(comp, pc.Limits(), func(format string, args ...any) {
		comp.Issues = append(comp.Issues, "fallback "+fmt.Sprintf(format, args...))
	})
	return comp
}

func catalogPosition(c *catalog.Catalog, id string) int {
	if c != nil {
		if pos := c.Position(id); pos >= 0 {
			return pos
		}
	}
	return math.MaxInt
}

func lookup(c *catalog.Catalog, id string) *skilltypes.Skill {
	if c != nil {
		if s, ok := c.Get(id); ok {
			return s
		}
	}
	s, _ := catalog.Defaults().Get(id)
	return s
}
