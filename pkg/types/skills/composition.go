package skills

// SkillComposition is the selected, ordered and budgeted plan handed to the
// downstream executor.
type SkillComposition struct {
	Skills                []*Skill            `json:"skills"`
	ExecutionOrder        []string            `json:"execution_order"`
	DependencyGraph       map[string][]string `json:"dependency_graph"`
	TotalTokenBudget      int                 `json:"total_token_budget"`
	TotalExecutionSeconds int                 `json:"total_execution_seconds"`
	VerificationPlan      []string            `json:"verification_plan"`
	// UsedFallback is true when the optimized composition failed verification
	// and the minimal fallback composition was returned instead.
	UsedFallback bool     `json:"used_fallback"`
	Issues       []string `json:"issues,omitempty"`
}

// SkillIDs returns the ids of the selected skills in selection order
func (c *SkillComposition) SkillIDs() []string {
	ids := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		ids = append(ids, s.ID)
	}
	return ids
}

// HasKind reports whether any selected skill is of kind k
func (c *SkillComposition) HasKind(k Kind) bool {
	for _, s := range c.Skills {
		if s.Kind == k {
			return true
		}
	}
	return false
}

// Payloads merges the payload maps of the selected skills keyed by skill id,
// the shape the external deployer consumes.
func (c *SkillComposition) Payloads() map[string]map[string]string {
	out := make(map[string]map[string]string, len(c.Skills))
	for _, s := range c.Skills {
		if len(s.Payload) > 0 {
			out[s.ID] = s.Payload
		}
	}
	return out
}
