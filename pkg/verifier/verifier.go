// Package verifier certifies compositions before they reach a caller and
// builds the minimal fallback composition used when certification fails.
package verifier

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcomposer/pkg/resolver"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// Verify checks a composition against the context. It returns nil when the
// composition is valid, otherwise a *multierror.Error with one entry per
// violated rule. The rules: the composition is not empty and has no
// duplicate skills; the execution order is a permutation of the skills that
// respects every dependency between them; no two skills conflict; the totals
// fit the context's limits; a compliance skill is present when compliance
// is required and a security skill when security is high; the dependency
// graph is acyclic.
func Verify(comp *skilltypes.SkillComposition, pc skilltypes.ProjectContext) error {
	if comp == nil {
		return multierror.Append(nil, errors.New("composition is missing"))
	}

	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, errors.Errorf(format, args...))
	}

	if len(comp.Skills) == 0 {
		fail("composition contains no skills")
	}

	selected := make(map[string]*skilltypes.Skill, len(comp.Skills))
	for _, s := range comp.Skills {
		if _, dup := selected[s.ID]; dup {
			fail("skill %s is selected more than once", s.ID)
		}
		selected[s.ID] = s
	}

	// the graph is rebuilt from the skills themselves so a composition
	// cannot hide an edge by omitting it from DependencyGraph
	graph := resolver.BuildGraph(comp.Skills)
	checkOrder(comp, selected, graph, fail)
	checkGraph(comp, selected, fail)

	for i, a := range comp.Skills {
		for _, b := range comp.Skills[i+1:] {
			if a.ConflictsWith(b.ID) || b.ConflictsWith(a.ID) {
				fail("skills %s and %s conflict", a.ID, b.ID)
			}
		}
	}

	checkBudgets(comp, pc.Limits(), fail)

	if pc.ComplianceRequired && !comp.HasKind(skilltypes.KindCompliance) {
		fail("compliance skill missing for compliance-required project")
	}
	if pc.HighSecurity() && !comp.HasKind(skilltypes.KindSecurity) {
		fail("security skill missing for high-security project")
	}

	ids := make([]string, 0, len(selected))
	for _, s := range comp.Skills {
		ids = append(ids, s.ID)
	}
	if _, err := resolver.TopologicalSort(ids, graph); err != nil {
		fail("%s", err.Error())
	}

	return result.ErrorOrNil()
}

func checkOrder(comp *skilltypes.SkillComposition, selected map[string]*skilltypes.Skill, graph resolver.Graph, fail func(string, ...any)) {
	seen := make(map[string]bool, len(comp.ExecutionOrder))
	for _, id := range comp.ExecutionOrder {
		if _, ok := selected[id]; !ok {
			fail("execution order names unselected skill %s", id)
		}
		if seen[id] {
			fail("execution order lists %s more than once", id)
		}
		seen[id] = true
	}
	for id := range selected {
		if !seen[id] {
			fail("skill %s is missing from the execution order", id)
		}
	}

	pos := make(map[string]int, len(comp.ExecutionOrder))
	for i, id := range comp.ExecutionOrder {
		if _, ok := pos[id]; !ok {
			pos[id] = i
		}
	}
	for _, s := range comp.Skills {
		for _, dep := range graph[s.ID] {
			p, okP := pos[s.ID]
			q, okQ := pos[dep]
			if okP && okQ && q > p {
				fail("skill %s runs before its dependency %s", s.ID, dep)
			}
		}
	}
}

func checkGraph(comp *skilltypes.SkillComposition, selected map[string]*skilltypes.Skill, fail func(string, ...any)) {
	for id, deps := range comp.DependencyGraph {
		if _, ok := selected[id]; !ok {
			fail("dependency graph names unselected skill %s", id)
			continue
		}
		for _, dep := range deps {
			if _, ok := selected[dep]; !ok {
				fail("dependency graph edge %s -> %s leaves the selection", id, dep)
			}
		}
	}
}

func checkBudgets(comp *skilltypes.SkillComposition, limits skilltypes.Constraints, fail func(string, ...any)) {
	tokens, seconds := 0, 0
	for _, s := range comp.Skills {
		tokens += s.TokenBudget
		seconds += s.ExecutionTimeoutSeconds
	}
	if tokens != comp.TotalTokenBudget {
		fail("token total %d does not match the selected skills (%d)", comp.TotalTokenBudget, tokens)
	}
	if seconds != comp.TotalExecutionSeconds {
		fail("execution total %d does not match the selected skills (%d)", comp.TotalExecutionSeconds, seconds)
	}
	if tokens > limits.MaxTokens {
		fail("token budget %d exceeds limit %d", tokens, limits.MaxTokens)
	}
	if seconds > limits.MaxExecutionSeconds {
		fail("execution time %ds exceeds limit %ds", seconds, limits.MaxExecutionSeconds)
	}
	if len(comp.Skills) > limits.MaxSkills {
		fail("%d skills exceed limit %d", len(comp.Skills), limits.MaxSkills)
	}
}

// Issues flattens a Verify error into its messages
func Issues(err error) []string {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		out := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{fmt.Sprint(err)}
}
