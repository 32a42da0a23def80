package analyzer

import (
	"strings"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// GeneralProjectType is inferred when no keyword table matches
const GeneralProjectType = "general"

type keywordRule struct {
	value    string
	keywords []string
}

// Checked in order, first match wins.
var projectTypeRules = []keywordRule{
	{"microservices", []string{"microservice", "microservices", "service mesh"}},
	{"event-driven", []string{"event", "event-driven", "async", "message"}},
	{"serverless", []string{"serverless", "lambda", "function"}},
	{"openssl", []string{"openssl", "fips", "crypto", "ssl", "tls"}},
	{"web-application", []string{"web", "api", "rest", "graphql"}},
}

var technologyRules = []keywordRule{
	{"python", []string{"python", "django", "flask", "fastapi"}},
	{"javascript", []string{"javascript", "node", "react", "vue", "angular"}},
	{"java", []string{"java", "spring", "maven", "gradle"}},
	{"go", []string{"go", "golang"}},
	{"rust", []string{"rust"}},
	{"docker", []string{"docker", "container"}},
	{"kubernetes", []string{"kubernetes", "k8s"}},
	{"aws", []string{"aws", "amazon", "lambda", "ec2", "s3"}},
	{"azure", []string{"azure", "microsoft"}},
	{"gcp", []string{"gcp", "google cloud", "gke"}},
}

var requirementRules = []keywordRule{
	{"REST API development", []string{"api"}},
	{"Database integration", []string{"database", "db"}},
	{"Comprehensive testing", []string{"test", "testing"}},
	{"Deployment automation", []string{"deploy", "deployment"}},
	{"Monitoring and observability", []string{"monitor", "monitoring"}},
	{"Security implementation", []string{"security", "secure"}},
}

var objectiveRules = []keywordRule{
	{"Scalability", []string{"scalable", "scale"}},
	{"Performance optimization", []string{"performance", "fast"}},
	{"Maintainability", []string{"maintainable", "maintain"}},
	{"Reliability", []string{"reliable", "reliability"}},
	{"Security", []string{"secure", "security"}},
}

// DefaultObjectives is used when the idea names no objective
var DefaultObjectives = []string{"Functionality", "Maintainability"}

// phrase is the idea as space separated words with sentinel spaces, so that
// keywords match whole words or whole word sequences only: "go" does not
// match "google" and "service mesh" matches "Service-Mesh".
type phrase string

func newPhrase(text string) phrase {
	return phrase(" " + strings.Join(Words(text), " ") + " ")
}

func (p phrase) contains(keyword string) bool {
	words := Words(keyword)
	if len(words) == 0 {
		return false
	}
	return strings.Contains(string(p), " "+strings.Join(words, " ")+" ")
}

func (p phrase) matchesAny(keywords []string) bool {
	for _, k := range keywords {
		if p.contains(k) {
			return true
		}
	}
	return false
}

func (p phrase) collect(rules []keywordRule) []string {
	var out []string
	for _, r := range rules {
		if p.matchesAny(r.keywords) {
			out = append(out, r.value)
		}
	}
	return out
}

// InferProjectType classifies an idea, returning GeneralProjectType when no
// keyword matches.
func InferProjectType(idea string) string {
	p := newPhrase(idea)
	for _, r := range projectTypeRules {
		if p.matchesAny(r.keywords) {
			return r.value
		}
	}
	return GeneralProjectType
}

// ExtractTechnologies returns the technologies named in the idea, in table
// order. Nothing is invented when none is named.
func ExtractTechnologies(idea string) []string {
	return newPhrase(idea).collect(technologyRules)
}

// ExtractRequirements returns the requirement phrases implied by the idea
func ExtractRequirements(idea string) []string {
	return newPhrase(idea).collect(requirementRules)
}

// ExtractObjectives returns the objectives implied by the idea, or
// DefaultObjectives when none is.
func ExtractObjectives(idea string) []string {
	if out := newPhrase(idea).collect(objectiveRules); len(out) > 0 {
		return out
	}
	return append([]string(nil), DefaultObjectives...)
}

// Complete fills every empty inferable field of pc from its project idea.
// Fields the caller supplied are kept as is.
func Complete(pc skilltypes.ProjectContext) skilltypes.ProjectContext {
	if strings.TrimSpace(pc.ProjectType) == "" {
		pc.ProjectType = InferProjectType(pc.ProjectIdea)
	}
	if len(pc.Technologies) == 0 {
		pc.Technologies = ExtractTechnologies(pc.ProjectIdea)
	}
	if len(pc.Requirements) == 0 {
		pc.Requirements = ExtractRequirements(pc.ProjectIdea)
	}
	if len(pc.Objectives) == 0 {
		pc.Objectives = ExtractObjectives(pc.ProjectIdea)
	}
	return pc
}

// ContextFromIdea builds a normalized context from a bare idea string
func ContextFromIdea(idea string) skilltypes.ProjectContext {
	return Complete(skilltypes.ProjectContext{ProjectIdea: idea}).Normalize()
}
