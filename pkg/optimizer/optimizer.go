// Package optimizer trims a candidate set down to a conflict-free, ranked
// selection that fits the context's budgets.
package optimizer

import (
	"sort"
	"strings"

	"github.com/jingkaihe/skillcomposer/pkg/analyzer"
	"github.com/jingkaihe/skillcomposer/pkg/discovery"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// Score weights
const (
	PriorityWeight        = 10
	TriggerMatchWeight    = 5
	TechnologyMatchWeight = 3
	ComplianceBonus       = 20
	SecurityBonus         = 15
)

// RemoveConflicts drops every skill that lists a conflict with another
// candidate. Each skill is tested on its own against the full candidate list,
// so when two skills name each other both are dropped.
func RemoveConflicts(skills []*skilltypes.Skill) []*skilltypes.Skill {
	present := make(map[string]bool, len(skills))
	for _, s := range skills {
		present[s.ID] = true
	}

	out := make([]*skilltypes.Skill, 0, len(skills))
	for _, s := range skills {
		conflicting := false
		for _, c := range s.Conflicts {
			if c != s.ID && present[c] {
				conflicting = true
				break
			}
		}
		if !conflicting {
			out = append(out, s)
		}
	}
	return out
}

// scorer holds the per-context values shared by every score computation
type scorer struct {
	pc           skilltypes.ProjectContext
	ideaTokens   map[string]bool
	technologies []string
}

func newScorer(pc skilltypes.ProjectContext) scorer {
	var techs []string
	for _, t := range pc.Technologies {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			techs = append(techs, t)
		}
	}
	// exact matches only, so short words count here
	words := make(map[string]bool)
	for _, w := range analyzer.Words(pc.ProjectIdea) {
		words[w] = true
	}
	return scorer{
		pc:           pc,
		ideaTokens:   words,
		technologies: techs,
	}
}

func (sc scorer) score(s *skilltypes.Skill) int {
	score := (5 - int(s.Priority)) * PriorityWeight

	seen := make(map[string]bool, len(s.Triggers))
	for _, trigger := range s.Triggers {
		trigger = strings.ToLower(trigger)
		if sc.ideaTokens[trigger] && !seen[trigger] {
			seen[trigger] = true
			score += TriggerMatchWeight
		}
	}

	score += TechnologyMatchWeight * discovery.TechnologyMatches(s, sc.technologies)

	switch {
	case sc.pc.ComplianceRequired && s.Kind == skilltypes.KindCompliance:
		score += ComplianceBonus
	case sc.pc.HighSecurity() && s.Kind == skilltypes.KindSecurity:
		score += SecurityBonus
	}
	return score
}

// Score computes the relevance of one skill to a context: a priority term,
// a term per distinct trigger appearing in the project idea, a term per
// technology matching a tag, and a bonus for the policy kind the context
// asks for.
func Score(s *skilltypes.Skill, pc skilltypes.ProjectContext) int {
	return newScorer(pc).score(s)
}

// Ranked is a skill with its relevance score
type Ranked struct {
	Skill *skilltypes.Skill `json:"skill"`
	Score int               `json:"score"`
}

// RankWithScores scores the skills and sorts them by descending score.
// Ties keep their input order.
func RankWithScores(skills []*skilltypes.Skill, pc skilltypes.ProjectContext) []Ranked {
	sc := newScorer(pc)
	ranked := make([]Ranked, len(skills))
	for i, s := range skills {
		ranked[i] = Ranked{Skill: s, Score: sc.score(s)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Rank returns the skills sorted by descending relevance, ties in input order
func Rank(skills []*skilltypes.Skill, pc skilltypes.ProjectContext) []*skilltypes.Skill {
	ranked := RankWithScores(skills, pc)
	out := make([]*skilltypes.Skill, len(ranked))
	for i, r := range ranked {
		out[i] = r.Skill
	}
	return out
}

// ApplyConstraints walks the ranked skills once and accepts each skill that
// still fits every limit. A skill that does not fit is skipped for good, so
// cheaper skills further down can still be accepted.
func ApplyConstraints(ranked []*skilltypes.Skill, limits skilltypes.Constraints) []*skilltypes.Skill {
	limits = limits.WithDefaults()

	var (
		tokens  int
		seconds int
		out     = make([]*skilltypes.Skill, 0, len(ranked))
	)
	for _, s := range ranked {
		if len(out)+1 > limits.MaxSkills {
			break
		}
		if tokens+s.TokenBudget > limits.MaxTokens {
			continue
		}
		if seconds+s.ExecutionTimeoutSeconds > limits.MaxExecutionSeconds {
			continue
		}
		tokens += s.TokenBudget
		seconds += s.ExecutionTimeoutSeconds
		out = append(out, s)
	}
	return out
}

// Optimize runs conflict removal, ranking and budget selection in order
func Optimize(candidates []*skilltypes.Skill, pc skilltypes.ProjectContext) []*skilltypes.Skill {
	return ApplyConstraints(Rank(RemoveConflicts(candidates), pc), pc.Limits())
}
