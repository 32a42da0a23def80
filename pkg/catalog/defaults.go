package catalog

import (
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// Well-known skill ids. The fallback composition is built from these.
const (
	OrchestrationSkillID = "project-orchestration"
	ComplianceSkillID    = "fips-compliance"
	SecuritySkillID      = "security-validation"
	MicroserviceSkillID  = "microservice-orchestration"
	EditorSkillID        = "cursor-integration"
)

// DefaultsSource names the built-in catalog in logs and snapshots
const DefaultsSource = "builtin"

const (
	defaultTokenBudget      = 1000
	defaultExecutionTimeout = 30
	defaultVersion          = "1.0.0"
	defaultAuthor           = "skillcomposer"
)

// DefaultSkills returns fresh copies of the built-in skills
func DefaultSkills() []*skilltypes.Skill {
	return []*skilltypes.Skill{
		builtin(OrchestrationSkillID, "Project Orchestration",
			"Orchestrates project creation and setup",
			skilltypes.KindOrchestration, skilltypes.PriorityHigh,
			[]string{"project", "create", "setup", "orchestrate"},
			[]string{"general", "orchestration"}, false),
		builtin(ComplianceSkillID, "FIPS Compliance Validation",
			"Validates FIPS 140-3 compliance for cryptographic code",
			skilltypes.KindCompliance, skilltypes.PriorityCritical,
			[]string{"fips", "crypto", "openssl", "security", "compliance"},
			[]string{"security", "fips", "crypto", "openssl"}, true),
		builtin(SecuritySkillID, "Security Validation",
			"Validates security patterns and practices",
			skilltypes.KindSecurity, skilltypes.PriorityHigh,
			[]string{"security", "validation", "secure", "safe"},
			[]string{"security", "validation"}, false),
		builtin(MicroserviceSkillID, "Microservice Orchestration",
			"Orchestrates microservice architecture projects",
			skilltypes.KindOrchestration, skilltypes.PriorityHigh,
			[]string{"microservice", "microservices", "distributed", "service"},
			[]string{"microservices", "architecture", "distributed"}, false),
		builtin(EditorSkillID, "Cursor Integration",
			"Integrates with Cursor IDE for development workflow",
			skilltypes.KindDeployment, skilltypes.PriorityMedium,
			[]string{"cursor", "ide", "development", "editor"},
			[]string{"cursor", "ide", "development"}, false),
	}
}

// Defaults returns the built-in catalog
func Defaults() *Catalog {
	c, err := New(DefaultsSource, DefaultSkills())
	if err != nil {
		// the built-in skills are static and always valid
		panic(err)
	}
	return c
}

func builtin(id, name, description string, kind skilltypes.Kind, priority skilltypes.Priority, triggers, tags []string, verify bool) *skilltypes.Skill {
	return &skilltypes.Skill{
		ID:                      id,
		Name:                    name,
		Description:             description,
		Kind:                    kind,
		Priority:                priority,
		Triggers:                triggers,
		Tags:                    tags,
		TokenBudget:             defaultTokenBudget,
		ExecutionTimeoutSeconds: defaultExecutionTimeout,
		Version:                 defaultVersion,
		Author:                  defaultAuthor,
		Payload: map[string]string{
			"skills/" + id + "/SKILL.md": "# " + name + "\n\n" + description + "\n",
		},
		VerificationRequired: verify,
		AutoCompose:          true,
	}
}
