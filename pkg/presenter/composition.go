package presenter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// BudgetUsage is what a composition consumes against its limits
type BudgetUsage struct {
	Skills     int
	MaxSkills  int
	Tokens     int
	MaxTokens  int
	Seconds    int
	MaxSeconds int
}

// NewBudgetUsage measures comp against limits
func NewBudgetUsage(comp *skilltypes.SkillComposition, limits skilltypes.Constraints) *BudgetUsage {
	if comp == nil {
		return nil
	}
	limits = limits.WithDefaults()
	return &BudgetUsage{
		Skills:     len(comp.Skills),
		MaxSkills:  limits.MaxSkills,
		Tokens:     comp.TotalTokenBudget,
		MaxTokens:  limits.MaxTokens,
		Seconds:    comp.TotalExecutionSeconds,
		MaxSeconds: limits.MaxExecutionSeconds,
	}
}

func percent(used, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}

// Budget displays the budget summary line of a composition
func (p *TerminalPresenter) Budget(usage *BudgetUsage) {
	if p.quiet || usage == nil {
		return
	}

	color.New(color.FgCyan, color.Bold).Fprintf(p.output,
		"[Budget] Skills: %d/%d | Tokens: %d/%d (%.1f%%) | Seconds: %d/%d (%.1f%%)\n",
		usage.Skills, usage.MaxSkills,
		usage.Tokens, usage.MaxTokens, percent(usage.Tokens, usage.MaxTokens),
		usage.Seconds, usage.MaxSeconds, percent(usage.Seconds, usage.MaxSeconds))
}

// priorityColors highlights the more important skills
var priorityColors = map[skilltypes.Priority]*color.Color{
	skilltypes.PriorityCritical: color.New(color.FgRed, color.Bold),
	skilltypes.PriorityHigh:     color.New(color.FgYellow),
	skilltypes.PriorityMedium:   color.New(color.FgBlue),
	skilltypes.PriorityLow:      color.New(color.Faint),
}

// Plan displays the execution order of a composition with each skill's
// dependencies and the verification steps
func (p *TerminalPresenter) Plan(comp *skilltypes.SkillComposition) {
	if p.quiet || comp == nil {
		return
	}

	byID := make(map[string]*skilltypes.Skill, len(comp.Skills))
	for _, s := range comp.Skills {
		byID[s.ID] = s
	}

	idColor := color.New(color.Bold)
	for i, id := range comp.ExecutionOrder {
		s, ok := byID[id]
		if !ok {
			fmt.Fprintf(p.output, "%2d. %s\n", i+1, id)
			continue
		}

		priority := s.Priority.String()
		if c, ok := priorityColors[s.Priority]; ok {
			priority = c.Sprint(priority)
		}
		fmt.Fprintf(p.output, "%2d. %s [%s, %s] %d tokens, %ds\n",
			i+1, idColor.Sprint(id), s.Kind, priority, s.TokenBudget, s.ExecutionTimeoutSeconds)
		if deps := comp.DependencyGraph[id]; len(deps) > 0 {
			fmt.Fprintf(p.output, "    after: %s\n", strings.Join(deps, ", "))
		}
	}

	if len(comp.VerificationPlan) > 0 {
		fmt.Fprintln(p.output, "Verification:")
		for _, step := range comp.VerificationPlan {
			fmt.Fprintf(p.output, "  - %s\n", step)
		}
	}
}

// Issues displays a warning title followed by one line per issue. Nothing
// is written when issues is empty.
func (p *TerminalPresenter) Issues(title string, issues []string) {
	if p.quiet || len(issues) == 0 {
		return
	}

	p.Warning(title)
	for _, issue := range issues {
		fmt.Fprintf(p.output, "  - %s\n", issue)
	}
}
