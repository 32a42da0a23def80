// Package analyzer turns a project context into the normalized keyword set
// that drives skill discovery, and infers missing context fields from a bare
// project idea.
package analyzer

import (
	"sort"
	"strings"
	"unicode"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// PolicyTriggers are injected whenever compliance or high security is requested
var PolicyTriggers = []string{"compliance", "security", "validation"}

// Words splits text on non-alphanumeric boundaries and lower-cases the
// pieces. Every word is returned, in order, including duplicates.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokenize returns the distinct words of text in first-seen order. Short
// words are kept: "ci" or "qa" can be a skill's only trigger, and the loose
// matches they cause are pruned by ranking.
func Tokenize(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range Words(text) {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// ExtractTriggers returns the sorted set of lower-cased trigger tokens for a
// context: the words of the project idea and requirements, every technology
// and the project type kept whole, plus the policy triggers when compliance
// or high security applies. A context with nothing extractable yields an
// empty set, not an error.
func ExtractTriggers(pc skilltypes.ProjectContext) []string {
	set := make(map[string]bool)

	for _, t := range Tokenize(pc.ProjectIdea) {
		set[t] = true
	}
	for _, req := range pc.Requirements {
		for _, t := range Tokenize(req) {
			set[t] = true
		}
	}
	for _, tech := range pc.Technologies {
		if t := strings.ToLower(strings.TrimSpace(tech)); t != "" {
			set[t] = true
		}
	}
	if t := strings.ToLower(strings.TrimSpace(pc.ProjectType)); t != "" {
		set[t] = true
	}
	if pc.ComplianceRequired || pc.HighSecurity() {
		for _, t := range PolicyTriggers {
			set[t] = true
		}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
