// Package skills defines the value types shared by the skill catalog, the
// discovery pipeline and the composition engine.
package skills

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies what a skill does
type Kind string

const (
	KindOrchestration Kind = "orchestration"
	KindValidation    Kind = "validation"
	KindSecurity      Kind = "security"
	KindDeployment    Kind = "deployment"
	KindTesting       Kind = "testing"
	KindDocumentation Kind = "documentation"
	KindCrypto        Kind = "crypto"
	KindCompliance    Kind = "compliance"
)

// AllKinds lists every valid kind in declaration order
var AllKinds = []Kind{
	KindOrchestration,
	KindValidation,
	KindSecurity,
	KindDeployment,
	KindTesting,
	KindDocumentation,
	KindCrypto,
	KindCompliance,
}

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts a case-insensitive kind name into a Kind.
// "fips" is accepted as an alias of compliance for older catalogs.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "fips" {
		return KindCompliance, nil
	}
	if !k.Valid() {
		return "", errors.Errorf("unknown skill kind %q", s)
	}
	return k, nil
}

// Priority is an importance ordinal. Lower values are more important.
type Priority int

const (
	PriorityCritical Priority = iota + 1
	PriorityHigh
	PriorityMedium
	PriorityLow
)

var priorityNames = map[Priority]string{
	PriorityCritical: "critical",
	PriorityHigh:     "high",
	PriorityMedium:   "medium",
	PriorityLow:      "low",
}

// String returns the lower-case priority name
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "priority(" + strconv.Itoa(int(p)) + ")"
}

// Valid reports whether p is one of the four known priorities
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// ParsePriority accepts either a priority name ("critical") or its ordinal ("1").
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Priority(n).Valid() {
		return Priority(n), nil
	}
	return 0, errors.Errorf("unknown skill priority %q", s)
}

// MarshalText encodes the priority by name
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, errors.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name or ordinal
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Skill is an immutable catalog entry. Values are shared between concurrent
// requests and must never be mutated after the catalog is built.
type Skill struct {
	ID                      string            `json:"skill_id" yaml:"skill_id"`
	Name                    string            `json:"name" yaml:"name"`
	Description             string            `json:"description" yaml:"description"`
	Kind                    Kind              `json:"skill_type" yaml:"skill_type"`
	Priority                Priority          `json:"priority" yaml:"priority"`
	Triggers                []string          `json:"triggers" yaml:"triggers"`
	Dependencies            []string          `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Conflicts               []string          `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	TokenBudget             int               `json:"token_budget" yaml:"token_budget"`
	ExecutionTimeoutSeconds int               `json:"execution_timeout" yaml:"execution_timeout"`
	Version                 string            `json:"version,omitempty" yaml:"version,omitempty"`
	Author                  string            `json:"author,omitempty" yaml:"author,omitempty"`
	Tags                    []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Payload                 map[string]string `json:"progressive_files,omitempty" yaml:"progressive_files,omitempty"`
	VerificationRequired    bool              `json:"verification_required" yaml:"verification_required"`
	AutoCompose             bool              `json:"auto_compose" yaml:"auto_compose"`
}

// ConflictsWith reports whether id is listed in the skill's conflict set
func (s *Skill) ConflictsWith(id string) bool {
	for _, c := range s.Conflicts {
		if c == id {
			return true
		}
	}
	return false
}

// IsPolicyKind reports whether the skill is security, compliance or crypto related
func (s *Skill) IsPolicyKind() bool {
	return s.Kind == KindSecurity || s.Kind == KindCompliance || s.Kind == KindCrypto
}

// Clone returns a deep copy so that catalog snapshots never share slices with their inputs
func (s *Skill) Clone() *Skill {
	c := *s
	c.Triggers = append([]string(nil), s.Triggers...)
	c.Dependencies = append([]string(nil), s.Dependencies...)
	c.Conflicts = append([]string(nil), s.Conflicts...)
	c.Tags = append([]string(nil), s.Tags...)
	if s.Payload != nil {
		c.Payload = make(map[string]string, len(s.Payload))
		for k, v := range s.Payload {
			c.Payload[k] = v
		}
	}
	return &c
}
