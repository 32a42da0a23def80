package composer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	"github.com/jingkaihe/skillcomposer/pkg/resolver"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

func skill(id string, priority skilltypes.Priority, deps ...string) *skilltypes.Skill {
	return &skilltypes.Skill{
		ID: id, Name: "Skill " + id, Kind: skilltypes.KindTesting, Priority: priority,
		Dependencies: deps, TokenBudget: 100, ExecutionTimeoutSeconds: 10, AutoCompose: true,
	}
}

func TestCompose(t *testing.T) {
	build := skill("build", skilltypes.PriorityLow, "lint")
	lint := skill("lint", skilltypes.PriorityMedium)
	release := skill("release", skilltypes.PriorityCritical, "build", "sign")
	release.VerificationRequired = true
	lint.VerificationRequired = true

	comp, err := Compose([]*skilltypes.Skill{build, lint, release}, skilltypes.ProjectContext{})
	require.NoError(t, err)

	assert.Equal(t, []string{"release", "lint", "build"}, comp.SkillIDs())
	assert.Equal(t, []string{"lint", "build", "release"}, comp.ExecutionOrder)
	assert.Equal(t, map[string][]string{
		"release": {"build"},
		"lint":    {},
		"build":   {"lint"},
	}, comp.DependencyGraph)
	assert.Equal(t, 300, comp.TotalTokenBudget)
	assert.Equal(t, 30, comp.TotalExecutionSeconds)
	assert.Equal(t, []string{"Verify Skill lint execution", "Verify Skill release execution"}, comp.VerificationPlan)
	assert.False(t, comp.UsedFallback)
}

func TestComposeRespectsBudgets(t *testing.T) {
	var candidates []*skilltypes.Skill
	for _, id := range []string{"a", "b", "c", "d"} {
		candidates = append(candidates, skill(id, skilltypes.PriorityMedium))
	}

	comp, err := Compose(candidates, skilltypes.ProjectContext{
		Constraints: skilltypes.Constraints{MaxTokens: 250},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, comp.SkillIDs())
	assert.Equal(t, 200, comp.TotalTokenBudget)
}

func TestComposeCycle(t *testing.T) {
	x := skill("x", skilltypes.PriorityHigh, "y")
	y := skill("y", skilltypes.PriorityHigh, "x")

	comp, err := Compose([]*skilltypes.Skill{x, y}, skilltypes.ProjectContext{})
	require.Error(t, err)
	assert.Nil(t, comp)
	assert.True(t, errors.Is(err, resolver.ErrCycleDetected))
}

func TestComposeEmpty(t *testing.T) {
	comp, err := Compose(nil, skilltypes.ProjectContext{})
	require.NoError(t, err)
	assert.Empty(t, comp.Skills)
	assert.NotNil(t, comp.Skills)
	assert.NotNil(t, comp.ExecutionOrder)
	assert.NotNil(t, comp.DependencyGraph)
	assert.Equal(t, 0, comp.TotalTokenBudget)
}

func TestVerificationPlanPolicies(t *testing.T) {
	c := catalog.Defaults()
	compliance, _ := c.Get(catalog.ComplianceSkillID)
	security, _ := c.Get(catalog.SecuritySkillID)
	skills := []*skilltypes.Skill{security, compliance}

	tests := []struct {
		name string
		pc   skilltypes.ProjectContext
		want []string
	}{
		{
			name: "no policy",
			pc:   skilltypes.ProjectContext{},
			want: []string{"Verify FIPS Compliance Validation execution"},
		},
		{
			name: "compliance",
			pc:   skilltypes.ProjectContext{ComplianceRequired: true},
			want: []string{"Verify FIPS Compliance Validation execution", ComplianceCheck},
		},
		{
			name: "compliance and security",
			pc:   skilltypes.ProjectContext{ComplianceRequired: true, SecurityLevel: skilltypes.SecurityHigh},
			want: []string{"Verify FIPS Compliance Validation execution", ComplianceCheck, SecurityCheck},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := []string{security.ID, compliance.ID}
			assert.Equal(t, tt.want, VerificationPlan(skills, order, tt.pc))
		})
	}
}
