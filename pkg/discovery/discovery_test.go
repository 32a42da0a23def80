package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

func ids(skills []*skilltypes.Skill) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		out = append(out, s.ID)
	}
	return out
}

func testSkill(id string, kind skilltypes.Kind, triggers, tags []string) *skilltypes.Skill {
	return &skilltypes.Skill{
		ID: id, Name: id, Kind: kind, Priority: skilltypes.PriorityMedium,
		Triggers: triggers, Tags: tags,
		TokenBudget: 100, ExecutionTimeoutSeconds: 10, AutoCompose: true,
	}
}

func TestFindByTrigger(t *testing.T) {
	e := New(catalog.Defaults())

	tests := []struct {
		token string
		want  []string
	}{
		{"FIPS", []string{catalog.ComplianceSkillID}},
		// exact trigger
		{"secure", []string{catalog.SecuritySkillID}},
		// query contained in a trigger
		{"micro", []string{catalog.MicroserviceSkillID}},
		// trigger contained in the query
		{"projects", []string{catalog.OrchestrationSkillID}},
		{"security", []string{catalog.ComplianceSkillID, catalog.SecuritySkillID}},
		{"", nil},
		{"zzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, idsOrNil(e.FindByTrigger(tt.token)))
		})
	}
}

func idsOrNil(skills []*skilltypes.Skill) []string {
	if len(skills) == 0 {
		return nil
	}
	return ids(skills)
}

func TestFindByProjectType(t *testing.T) {
	e := New(catalog.Defaults())

	assert.Equal(t, []string{catalog.MicroserviceSkillID}, ids(e.FindByProjectType("Microservices")))
	assert.Equal(t, []string{catalog.ComplianceSkillID, catalog.SecuritySkillID}, ids(e.FindByProjectType("openssl")))
	assert.Equal(t, []string{catalog.ComplianceSkillID, catalog.SecuritySkillID}, ids(e.FindByProjectType("compliance-module")))
	assert.Empty(t, e.FindByProjectType("event-driven"))
	assert.Empty(t, e.FindByProjectType("unknown"))
	assert.Empty(t, e.FindByProjectType(""))
}

func TestFindByTechnologies(t *testing.T) {
	e := New(catalog.Defaults())

	assert.Equal(t, []string{catalog.MicroserviceSkillID}, ids(e.FindByTechnologies([]string{"microservice"})))
	assert.Equal(t, []string{catalog.ComplianceSkillID}, ids(e.FindByTechnologies([]string{"OpenSSL"})))
	assert.Equal(t, []string{catalog.EditorSkillID}, ids(e.FindByTechnologies([]string{"", "ide"})))
	assert.Empty(t, e.FindByTechnologies([]string{"haskell"}))
	assert.Empty(t, e.FindByTechnologies(nil))
}

func TestFindSecuritySkills(t *testing.T) {
	c, err := catalog.New("test", []*skilltypes.Skill{
		testSkill("a", skilltypes.KindCrypto, nil, nil),
		testSkill("b", skilltypes.KindTesting, nil, nil),
		testSkill("c", skilltypes.KindSecurity, nil, nil),
		testSkill("d", skilltypes.KindCompliance, nil, nil),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c", "d"}, ids(New(c).FindSecuritySkills()))
}

func TestFindByContext(t *testing.T) {
	e := New(catalog.Defaults())

	t.Run("technology scenario", func(t *testing.T) {
		got := e.FindByContext(skilltypes.ProjectContext{Technologies: []string{"microservice"}})
		assert.Equal(t, []string{catalog.MicroserviceSkillID}, ids(got))
	})

	t.Run("security skills only when requested by policy", func(t *testing.T) {
		got := e.FindByContext(skilltypes.ProjectContext{ProjectIdea: "hello world"})
		assert.Empty(t, got)

		got = e.FindByContext(skilltypes.ProjectContext{ProjectIdea: "hello world", SecurityLevel: skilltypes.SecurityHigh})
		assert.Equal(t, []string{catalog.ComplianceSkillID, catalog.SecuritySkillID}, ids(got))
	})

	t.Run("compliance scenario", func(t *testing.T) {
		got := e.FindByContext(skilltypes.ProjectContext{ProjectIdea: "fips crypto validation", ComplianceRequired: true})
		assert.Equal(t, []string{catalog.ComplianceSkillID, catalog.SecuritySkillID}, ids(got))
	})

	t.Run("candidates deduplicated in catalog order", func(t *testing.T) {
		got := e.FindByContext(skilltypes.ProjectContext{
			ProjectIdea:  "setup microservice with cursor",
			ProjectType:  "microservices",
			Technologies: []string{"distributed"},
		})
		assert.Equal(t, []string{catalog.OrchestrationSkillID, catalog.MicroserviceSkillID, catalog.EditorSkillID}, ids(got))
	})

	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, e.FindByContext(skilltypes.ProjectContext{}))
	})

	t.Run("empty catalog", func(t *testing.T) {
		assert.Empty(t, New(nil).FindByContext(skilltypes.ProjectContext{ProjectIdea: "project"}))
	})
}

func TestFindByContextAutoCompose(t *testing.T) {
	manual := testSkill("manual-deploy", skilltypes.KindDeployment, []string{"deploy"}, nil)
	manual.AutoCompose = false
	c, err := catalog.New("test", []*skilltypes.Skill{
		testSkill("lint", skilltypes.KindValidation, []string{"lint"}, nil),
		manual,
	})
	require.NoError(t, err)
	e := New(c)

	got := e.FindByContext(skilltypes.ProjectContext{ProjectIdea: "lint and deploy"})
	assert.Equal(t, []string{"lint"}, ids(got))

	got = e.FindByContext(skilltypes.ProjectContext{ProjectIdea: "lint", RequestedSkills: []string{"manual-deploy", "unknown"}})
	assert.Equal(t, []string{"lint", "manual-deploy"}, ids(got))
}

func TestFindByContextShortTriggers(t *testing.T) {
	c, err := catalog.New("test", []*skilltypes.Skill{
		testSkill("pipeline", skilltypes.KindDeployment, []string{"ci"}, nil),
		testSkill("review", skilltypes.KindTesting, []string{"qa"}, nil),
	})
	require.NoError(t, err)
	e := New(c)

	tests := []struct {
		name string
		pc   skilltypes.ProjectContext
		want []string
	}{
		{"idea is the trigger", skilltypes.ProjectContext{ProjectIdea: "ci"}, []string{"pipeline"}},
		{"trigger in prose", skilltypes.ProjectContext{ProjectIdea: "Set up CI and QA"}, []string{"pipeline", "review"}},
		{"trigger in requirements", skilltypes.ProjectContext{ProjectIdea: "web shop", Requirements: []string{"QA"}}, []string{"review"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(e.FindByContext(tt.pc)))
		})
	}
}

func TestTechnologyMatches(t *testing.T) {
	s := testSkill("x", skilltypes.KindTesting, nil, []string{"Kubernetes", "docker-compose"})
	assert.Equal(t, 2, TechnologyMatches(s, []string{"kube", "docker", "rust"}))
	assert.Equal(t, 0, TechnologyMatches(s, nil))
}
