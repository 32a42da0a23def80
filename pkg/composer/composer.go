// Package composer turns a candidate set into a SkillComposition by running
// the optimizer and the dependency resolver.
package composer

import (
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcomposer/pkg/optimizer"
	"github.com/jingkaihe/skillcomposer/pkg/resolver"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// Policy check descriptions added to the verification plan
const (
	ComplianceCheck = "Compliance validation required for project"
	SecurityCheck   = "Security validation required for high-security project"
)

// Compose optimizes the candidates for the context, orders the selection by
// dependency and fills in the totals and the verification plan. Skills stay
// in ranked order; ExecutionOrder carries the dependency order. A cyclic
// selection returns an error wrapping resolver.ErrCycleDetected.
func Compose(candidates []*skilltypes.Skill, pc skilltypes.ProjectContext) (*skilltypes.SkillComposition, error) {
	selected := optimizer.Optimize(candidates, pc)

	graph, order, err := resolver.Resolve(selected)
	if err != nil {
		return nil, errors.Wrap(err, "failed to order selected skills")
	}

	return Build(selected, graph, order, VerificationPlan(selected, order, pc)), nil
}

// Build assembles a composition and computes its resource totals
func Build(skills []*skilltypes.Skill, graph resolver.Graph, order []string, plan []string) *skilltypes.SkillComposition {
	comp := &skilltypes.SkillComposition{
		Skills:           skills,
		ExecutionOrder:   order,
		DependencyGraph:  map[string][]string(graph),
		VerificationPlan: plan,
	}
	if comp.Skills == nil {
		comp.Skills = []*skilltypes.Skill{}
	}
	if comp.ExecutionOrder == nil {
		comp.ExecutionOrder = []string{}
	}
	if comp.DependencyGraph == nil {
		comp.DependencyGraph = map[string][]string{}
	}
	if comp.VerificationPlan == nil {
		comp.VerificationPlan = []string{}
	}
	for _, s := range skills {
		comp.TotalTokenBudget += s.TokenBudget
		comp.TotalExecutionSeconds += s.ExecutionTimeoutSeconds
	}
	return comp
}

// VerificationPlan lists one check per skill that requires verification, in
// execution order, followed by one check per policy the context triggers.
func VerificationPlan(skills []*skilltypes.Skill, order []string, pc skilltypes.ProjectContext) []string {
	byID := make(map[string]*skilltypes.Skill, len(skills))
	for _, s := range skills {
		byID[s.ID] = s
	}

	plan := []string{}
	for _, id := range order {
		if s, ok := byID[id]; ok && s.VerificationRequired {
			plan = append(plan, "Verify "+s.Name+" execution")
		}
	}
	if pc.ComplianceRequired {
		plan = append(plan, ComplianceCheck)
	}
	if pc.HighSecurity() {
		plan = append(plan, SecurityCheck)
	}
	return plan
}
