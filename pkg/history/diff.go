package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// PlanText renders the parts of a composition worth comparing, one fact per
// line, so that a line diff of two plans reads naturally.
func PlanText(comp *skilltypes.SkillComposition) string {
	var b strings.Builder
	byID := make(map[string]*skilltypes.Skill, len(comp.Skills))
	for _, s := range comp.Skills {
		byID[s.ID] = s
	}

	b.WriteString("execution order:\n")
	for i, id := range comp.ExecutionOrder {
		line := fmt.Sprintf("  %d. %s", i+1, id)
		if s, ok := byID[id]; ok {
			line += fmt.Sprintf(" [%s, %s] tokens=%d seconds=%d", s.Kind, s.Priority, s.TokenBudget, s.ExecutionTimeoutSeconds)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("dependencies:\n")
	for _, id := range comp.ExecutionOrder {
		if deps := comp.DependencyGraph[id]; len(deps) > 0 {
			fmt.Fprintf(&b, "  %s <- %s\n", id, strings.Join(deps, ", "))
		}
	}

	fmt.Fprintf(&b, "total tokens: %d\n", comp.TotalTokenBudget)
	fmt.Fprintf(&b, "total seconds: %d\n", comp.TotalExecutionSeconds)
	fmt.Fprintf(&b, "fallback: %t\n", comp.UsedFallback)

	b.WriteString("verification:\n")
	for _, step := range comp.VerificationPlan {
		b.WriteString("  - " + step + "\n")
	}
	return b.String()
}

// DiffCompositions returns a unified diff from a to b. Identical plans give
// an empty string.
func DiffCompositions(nameA, nameB string, a, b *skilltypes.SkillComposition) string {
	return udiff.Unified(nameA, nameB, PlanText(a), PlanText(b))
}

// Diff loads two records and diffs their plans
func (s *Store) Diff(ctx context.Context, idA, idB string) (string, error) {
	a, err := s.Get(ctx, idA)
	if err != nil {
		return "", err
	}
	b, err := s.Get(ctx, idB)
	if err != nil {
		return "", err
	}
	return DiffCompositions(a.ID, b.ID, &a.Composition, &b.Composition), nil
}
