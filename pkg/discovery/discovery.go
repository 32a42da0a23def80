// Package discovery finds the catalog skills relevant to a project context.
// Every matcher reads one immutable catalog snapshot and returns skills in
// catalog order, so identical inputs always give identical candidate lists.
package discovery

import (
	"strings"

	"github.com/jingkaihe/skillcomposer/pkg/analyzer"
	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// ProjectTypeSkills maps known project types to the skill ids that serve
// them. Ids missing from the catalog are ignored.
var ProjectTypeSkills = map[string][]string{
	"microservices":     {catalog.MicroserviceSkillID, "service-discovery", "circuit-breaker"},
	"event-driven":      {"event-orchestration", "message-queue", "event-sourcing"},
	"serverless":        {"serverless-orchestration", "function-deployment", "cloud-integration"},
	"openssl":           {catalog.ComplianceSkillID, "crypto-patterns", catalog.SecuritySkillID},
	"web-application":   {"web-orchestration", "api-design", "frontend-integration"},
	"compliance-module": {catalog.ComplianceSkillID, catalog.SecuritySkillID},
}

// Engine runs the matchers against one catalog snapshot
type Engine struct {
	catalog *catalog.Catalog
}

// New creates an engine over a catalog snapshot
func New(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

// FindByTrigger returns skills with a trigger that contains the token or is
// contained in it, ignoring case. The match is deliberately loose; ranking
// and conflict removal prune later.
func (e *Engine) FindByTrigger(token string) []*skilltypes.Skill {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil
	}
	return e.filter(func(s *skilltypes.Skill) bool {
		for _, trigger := range s.Triggers {
			trigger = strings.ToLower(trigger)
			if trigger == "" {
				continue
			}
			if strings.Contains(trigger, token) || strings.Contains(token, trigger) {
				return true
			}
		}
		return false
	})
}

// FindByProjectType looks the project type up in ProjectTypeSkills. Unknown
// types yield nothing.
func (e *Engine) FindByProjectType(projectType string) []*skilltypes.Skill {
	ids, ok := ProjectTypeSkills[strings.ToLower(strings.TrimSpace(projectType))]
	if !ok {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return e.filter(func(s *skilltypes.Skill) bool { return want[s.ID] })
}

// FindByTechnologies returns skills with a tag containing any of the
// technologies, ignoring case.
func (e *Engine) FindByTechnologies(technologies []string) []*skilltypes.Skill {
	var techs []string
	for _, t := range technologies {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			techs = append(techs, t)
		}
	}
	if len(techs) == 0 {
		return nil
	}
	return e.filter(func(s *skilltypes.Skill) bool {
		return TechnologyMatches(s, techs) > 0
	})
}

// FindSecuritySkills returns every security, compliance and crypto skill
func (e *Engine) FindSecuritySkills() []*skilltypes.Skill {
	return e.filter(func(s *skilltypes.Skill) bool { return s.IsPolicyKind() })
}

// FindByContext unions the trigger, project type, technology and (when
// compliance or high security is requested) security matchers. Skills that
// are not auto-composed only appear when the context requests them by id;
// requested skills are always included. The result may be empty, which the
// composer turns into the fallback composition.
func (e *Engine) FindByContext(pc skilltypes.ProjectContext) []*skilltypes.Skill {
	found := make(map[string]bool)
	add := func(skills []*skilltypes.Skill) {
		for _, s := range skills {
			found[s.ID] = true
		}
	}

	for _, token := range analyzer.ExtractTriggers(pc) {
		add(e.FindByTrigger(token))
	}
	add(e.FindByProjectType(pc.ProjectType))
	add(e.FindByTechnologies(pc.Technologies))
	if pc.ComplianceRequired || pc.HighSecurity() {
		add(e.FindSecuritySkills())
	}

	requested := make(map[string]bool, len(pc.RequestedSkills))
	for _, id := range pc.RequestedSkills {
		requested[id] = true
	}

	return e.filter(func(s *skilltypes.Skill) bool {
		if requested[s.ID] {
			return true
		}
		return found[s.ID] && s.AutoCompose
	})
}

func (e *Engine) filter(match func(*skilltypes.Skill) bool) []*skilltypes.Skill {
	if e.catalog == nil {
		return nil
	}
	var out []*skilltypes.Skill
	for _, s := range e.catalog.Skills() {
		if match(s) {
			out = append(out, s)
		}
	}
	return out
}

// TechnologyMatches counts the technologies that are a substring of at least
// one of the skill's tags. Technologies must already be lower-cased.
func TechnologyMatches(s *skilltypes.Skill, technologies []string) int {
	n := 0
	for _, tech := range technologies {
		for _, tag := range s.Tags {
			if strings.Contains(strings.ToLower(tag), tech) {
				n++
				break
			}
		}
	}
	return n
}
