package skills

import (
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default resource limits applied when a constraint is absent
const (
	DefaultMaxTokens           = 10000
	DefaultMaxExecutionSeconds = 300
	DefaultMaxSkills           = 10
)

// SecurityLevel is the security posture requested for a project
type SecurityLevel string

const (
	SecurityStandard SecurityLevel = "standard"
	SecurityHigh     SecurityLevel = "high"
)

// ParseSecurityLevel maps an empty string to standard and rejects unknown levels
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	switch SecurityLevel(strings.ToLower(strings.TrimSpace(s))) {
	case "", SecurityStandard:
		return SecurityStandard, nil
	case SecurityHigh:
		return SecurityHigh, nil
	default:
		return "", errors.Errorf("unknown security level %q (expected standard or high)", s)
	}
}

// Constraints bounds the resources a composition may consume
type Constraints struct {
	MaxTokens           int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxExecutionSeconds int `json:"max_execution_seconds" yaml:"max_execution_seconds" mapstructure:"max_execution_seconds"`
	MaxSkills           int `json:"max_skills" yaml:"max_skills" mapstructure:"max_skills"`
}

// DefaultConstraints returns the limits used when a request sets none
func DefaultConstraints() Constraints {
	return Constraints{
		MaxTokens:           DefaultMaxTokens,
		MaxExecutionSeconds: DefaultMaxExecutionSeconds,
		MaxSkills:           DefaultMaxSkills,
	}
}

// WithDefaults replaces every non-positive limit with its default
func (c Constraints) WithDefaults() Constraints {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MaxExecutionSeconds <= 0 {
		c.MaxExecutionSeconds = DefaultMaxExecutionSeconds
	}
	if c.MaxSkills <= 0 {
		c.MaxSkills = DefaultMaxSkills
	}
	return c
}

// constraintAliases maps every accepted spelling to the canonical key
var constraintAliases = map[string]string{
	"max_tokens":            "max_tokens",
	"maxtokens":             "max_tokens",
	"max_execution_seconds": "max_execution_seconds",
	"maxexecutionseconds":   "max_execution_seconds",
	"max_execution_time":    "max_execution_seconds",
	"maxexecutiontime":      "max_execution_seconds",
	"max_skills":            "max_skills",
	"maxskills":             "max_skills",
}

// DecodeConstraints decodes a free-form constraints mapping. Unknown keys are
// ignored, numeric strings and floats are accepted, and absent limits take
// their defaults.
func DecodeConstraints(raw map[string]any) (Constraints, error) {
	normalized := make(map[string]any, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if canonical, ok := constraintAliases[key]; ok {
			normalized[canonical] = v
		} else if canonical, ok := constraintAliases[strings.ReplaceAll(key, "-", "_")]; ok {
			normalized[canonical] = v
		}
	}

	var c Constraints
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &c,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return c, errors.Wrap(err, "failed to create constraints decoder")
	}
	if err := decoder.Decode(normalized); err != nil {
		return c, errors.Wrap(err, "failed to decode constraints")
	}

	return c.WithDefaults(), nil
}

// UnmarshalJSON accepts any of the key spellings DecodeConstraints understands
func (c *Constraints) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "constraints must be an object")
	}
	decoded, err := DecodeConstraints(raw)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// UnmarshalYAML accepts any of the key spellings DecodeConstraints understands
func (c *Constraints) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return errors.Wrap(err, "constraints must be a mapping")
	}
	decoded, err := DecodeConstraints(raw)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// ProjectContext describes the project a composition is requested for
type ProjectContext struct {
	ProjectIdea        string        `json:"project_idea" yaml:"project_idea"`
	ProjectType        string        `json:"project_type,omitempty" yaml:"project_type,omitempty"`
	Technologies       []string      `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	Requirements       []string      `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Objectives         []string      `json:"objectives,omitempty" yaml:"objectives,omitempty"`
	Constraints        Constraints   `json:"constraints" yaml:"constraints"`
	SecurityLevel      SecurityLevel `json:"security_level,omitempty" yaml:"security_level,omitempty"`
	ComplianceRequired bool          `json:"compliance_required" yaml:"compliance_required"`
	PlatformTargets    []string      `json:"platform_targets,omitempty" yaml:"platform_targets,omitempty"`
	// RequestedSkills names skills the caller explicitly wants considered,
	// including ones that are never auto-composed.
	RequestedSkills []string `json:"requested_skills,omitempty" yaml:"requested_skills,omitempty"`
}

// HighSecurity reports whether the context asks for the high security
// level, in any letter case
func (pc ProjectContext) HighSecurity() bool {
	level, err := ParseSecurityLevel(string(pc.SecurityLevel))
	return err == nil && level == SecurityHigh
}

// Limits returns the context's constraints with defaults applied
func (pc ProjectContext) Limits() Constraints {
	return pc.Constraints.WithDefaults()
}

// Normalize fills defaults so that downstream code never sees a zero
// constraint, and rewrites a known security level in its canonical form.
// An empty level becomes standard; an unknown one is left for Validate.
func (pc ProjectContext) Normalize() ProjectContext {
	pc.Constraints = pc.Constraints.WithDefaults()
	if level, err := ParseSecurityLevel(string(pc.SecurityLevel)); err == nil {
		pc.SecurityLevel = level
	}
	return pc
}

// Validate rejects contexts with an unknown security level
func (pc ProjectContext) Validate() error {
	if _, err := ParseSecurityLevel(string(pc.SecurityLevel)); err != nil {
		return err
	}
	return nil
}
