package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

const jsonCatalog = `{
  "skills": [
    {
      "skill_id": "lint",
      "name": "Lint",
      "description": "Runs linters",
      "skill_type": "validation",
      "priority": 2,
      "triggers": ["lint", "style"],
      "tags": ["go"],
      "token_budget": 400
    },
    {
      "skill_id": "deploy",
      "name": "Deploy",
      "skill_type": "deployment",
      "priority": "low",
      "dependencies": ["lint"],
      "auto_compose": false,
      "progressive_files": {"deploy.sh": "#!/bin/sh\n"}
    }
  ]
}`

const yamlCatalog = `skills:
  - skill_id: audit
    name: Audit
    skill_type: fips
    priority: critical
    triggers: [audit]
    verification_required: true
  - skill_id: docs
    name: Docs
    skill_type: documentation
    priority: "4"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{
		OrchestrationSkillID,
		ComplianceSkillID,
		SecuritySkillID,
		MicroserviceSkillID,
		EditorSkillID,
	}, c.IDs())

	compliance, ok := c.Get(ComplianceSkillID)
	require.True(t, ok)
	assert.Equal(t, skilltypes.KindCompliance, compliance.Kind)
	assert.Equal(t, skilltypes.PriorityCritical, compliance.Priority)
	assert.True(t, compliance.VerificationRequired)
	assert.Equal(t, 1, c.Position(ComplianceSkillID))
	assert.Equal(t, -1, c.Position("missing"))
}

func TestNewRejectsInvalidSkills(t *testing.T) {
	valid := func() *skilltypes.Skill {
		return &skilltypes.Skill{
			ID: "a", Name: "A", Kind: skilltypes.KindTesting, Priority: skilltypes.PriorityLow,
			TokenBudget: 1, ExecutionTimeoutSeconds: 1,
		}
	}

	tests := []struct {
		name   string
		mutate func(s *skilltypes.Skill)
		errMsg string
	}{
		{name: "missing id", mutate: func(s *skilltypes.Skill) { s.ID = "" }, errMsg: "skill id is required"},
		{name: "bad kind", mutate: func(s *skilltypes.Skill) { s.Kind = "magic" }, errMsg: "unknown kind"},
		{name: "bad priority", mutate: func(s *skilltypes.Skill) { s.Priority = 7 }, errMsg: "unknown priority"},
		{name: "zero budget", mutate: func(s *skilltypes.Skill) { s.TokenBudget = 0 }, errMsg: "token budget must be positive"},
		{name: "self dependency", mutate: func(s *skilltypes.Skill) { s.Dependencies = []string{"a"} }, errMsg: "cannot depend on itself"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			_, err := New("test", []*skilltypes.Skill{s})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("duplicate id", func(t *testing.T) {
		_, err := New("test", []*skilltypes.Skill{valid(), valid()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate skill id")
	})
}

func TestNewCopiesInput(t *testing.T) {
	s := DefaultSkills()[0]
	c, err := New("test", []*skilltypes.Skill{s})
	require.NoError(t, err)

	s.Triggers[0] = "mutated"
	got, _ := c.Get(s.ID)
	assert.Equal(t, "project", got.Triggers[0])
}

func TestLoadFileJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "catalog.json", jsonCatalog)

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"lint", "deploy"}, c.IDs())
	assert.Equal(t, path, c.Source())

	lint, _ := c.Get("lint")
	assert.Equal(t, skilltypes.PriorityHigh, lint.Priority)
	assert.Equal(t, 400, lint.TokenBudget)
	assert.Equal(t, 30, lint.ExecutionTimeoutSeconds)
	assert.True(t, lint.AutoCompose)
	assert.Equal(t, "1.0.0", lint.Version)

	deploy, _ := c.Get("deploy")
	assert.Equal(t, skilltypes.PriorityLow, deploy.Priority)
	assert.False(t, deploy.AutoCompose)
	assert.Equal(t, []string{"lint"}, deploy.Dependencies)
	assert.Equal(t, "#!/bin/sh\n", deploy.Payload["deploy.sh"])
	assert.Equal(t, 1000, deploy.TokenBudget)
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "catalog.yaml", yamlCatalog)

	c, err := LoadFile(path)
	require.NoError(t, err)

	audit, ok := c.Get("audit")
	require.True(t, ok)
	assert.Equal(t, skilltypes.KindCompliance, audit.Kind)
	assert.True(t, audit.VerificationRequired)

	docs, _ := c.Get("docs")
	assert.Equal(t, skilltypes.PriorityLow, docs.Priority)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		errMsg  string
	}{
		{name: "empty", file: "empty.json", content: "  ", errMsg: "catalog is empty"},
		{name: "bad json", file: "bad.json", content: "{", errMsg: "invalid JSON"},
		{name: "unknown kind", file: "kind.json", content: `{"skills":[{"skill_id":"x","name":"X","skill_type":"magic","priority":"high"}]}`, errMsg: "does not match schema"},
		{name: "missing name", file: "name.yaml", content: "skills:\n  - skill_id: x\n    skill_type: testing\n    priority: high\n", errMsg: "does not match schema"},
		{name: "bad priority", file: "prio.json", content: `{"skills":[{"skill_id":"x","name":"X","skill_type":"testing","priority":9}]}`, errMsg: "does not match schema"},
		{name: "negative budget", file: "budget.json", content: `{"skills":[{"skill_id":"x","name":"X","skill_type":"testing","priority":"low","token_budget":-5}]}`, errMsg: "does not match schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
		assert.True(t, os.IsNotExist(errors.Cause(err)))
	})
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out/catalog.json", "out/catalog.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, Defaults()))

			c, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, Defaults().IDs(), c.IDs())

			orig, _ := Defaults().Get(ComplianceSkillID)
			got, _ := c.Get(ComplianceSkillID)
			assert.Equal(t, orig, got)
		})
	}
}

func TestSchemaJSON(t *testing.T) {
	data, err := SchemaJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"skill_type"`)
	assert.Contains(t, string(data), `"oneOf"`)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha/SKILL.md", `---
name: Alpha
description: First skill
skill_type: testing
priority: high
triggers:
  - alpha
  - unit
token_budget: 250
---

# Alpha

Run the tests.
`)
	writeFile(t, dir, "alpha/scripts/run.sh", "go test ./...\n")
	writeFile(t, dir, "beta/SKILL.md", `---
skill_id: beta-skill
name: Beta
skill_type: documentation
priority: 4
auto_compose: false
---
Docs body
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-skill"), 0o755))
	writeFile(t, dir, "README.md", "ignored")

	c, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta-skill"}, c.IDs())

	alpha, _ := c.Get("alpha")
	assert.Equal(t, []string{"alpha", "unit"}, alpha.Triggers)
	assert.Equal(t, 250, alpha.TokenBudget)
	assert.Equal(t, "go test ./...\n", alpha.Payload["scripts/run.sh"])
	assert.Contains(t, alpha.Payload["SKILL.md"], "Run the tests.")
	assert.NotContains(t, alpha.Payload["SKILL.md"], "skill_type")

	beta, _ := c.Get("beta-skill")
	assert.Equal(t, skilltypes.PriorityLow, beta.Priority)
	assert.False(t, beta.AutoCompose)
}

func TestLoadDirInvalidSkill(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken/SKILL.md", "---\nname: Broken\nskill_type: nonsense\npriority: high\n---\n")

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown skill kind")
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"lint/SKILL.md":             {Data: []byte("---\nname: Lint\nskill_type: testing\npriority: medium\n---\nRun golangci-lint.\n")},
		"lint/config/.golangci.yml": {Data: []byte("linters: {}\n")},
		"lint/.cache/state":         {Data: []byte("skipped")},
		"notes.txt":                 {Data: []byte("ignored")},
	}

	c, err := LoadFS(fsys, "embedded")
	require.NoError(t, err)
	assert.Equal(t, "embedded", c.Source())
	assert.Equal(t, []string{"lint"}, c.IDs())

	lint, _ := c.Get("lint")
	assert.Equal(t, map[string]string{
		"SKILL.md":             "Run golangci-lint.\n",
		"config/.golangci.yml": "linters: {}\n",
	}, lint.Payload)
}

func TestLoadFSMissingFrontmatter(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{"plain/SKILL.md": {Data: []byte("# Plain\n")}}, "embedded")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing frontmatter")
}

func TestExtractBodyContent(t *testing.T) {
	assert.Equal(t, "body\n", extractBodyContent("---\nname: x\n---\n\nbody\n"))
	assert.Equal(t, "no frontmatter", extractBodyContent("no frontmatter"))
	assert.Equal(t, "---\nunterminated", extractBodyContent("---\nunterminated"))
}

func TestStoreFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	var hookErr error
	store := NewStore(ctx, FileSource{Path: filepath.Join(t.TempDir(), "missing.json")},
		WithReloadHook(func(_ context.Context, _ *Catalog, err error) { hookErr = err }))

	snap := store.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, DefaultsSource, snap.Source())
	assert.Equal(t, 5, snap.Len())
	assert.Equal(t, uint64(1), snap.Version())
	assert.Error(t, hookErr)

	_, err := store.Reload(ctx)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
}

func TestStoreReloadKeepsLastGoodSnapshot(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "catalog.json", jsonCatalog)

	store := NewStore(ctx, FileSource{Path: path})
	first := store.Snapshot()
	assert.Equal(t, []string{"lint", "deploy"}, first.IDs())

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	kept, err := store.Reload(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
	assert.Equal(t, first.IDs(), kept.IDs())

	require.NoError(t, os.WriteFile(path, []byte(yamlCatalogAsJSON), 0o644))
	next, err := store.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit"}, next.IDs())
	assert.Greater(t, next.Version(), first.Version())

	// earlier snapshots stay intact after a swap
	assert.Equal(t, []string{"lint", "deploy"}, first.IDs())
}

const yamlCatalogAsJSON = `{"skills":[{"skill_id":"audit","name":"Audit","skill_type":"compliance","priority":"critical"}]}`

func TestStoreDefaultSource(t *testing.T) {
	store := NewStore(context.Background(), nil)
	assert.Equal(t, DefaultsSource, store.Source().Name())
	assert.Equal(t, 5, store.Snapshot().Len())
}

func TestStaticStore(t *testing.T) {
	c, err := New("static", DefaultSkills()[:2])
	require.NoError(t, err)
	store := NewStaticStore(c)
	assert.Equal(t, 2, store.Snapshot().Len())

	reloaded, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
}

func TestFilter(t *testing.T) {
	c := Defaults()

	t.Run("by kind", func(t *testing.T) {
		got, err := Filter{Kinds: []skilltypes.Kind{skilltypes.KindOrchestration}}.Apply(c)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by tag glob", func(t *testing.T) {
		got, err := Filter{Tags: []string{"micro*"}}.Apply(c)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, MicroserviceSkillID, got[0].ID)
	})

	t.Run("kind and tag", func(t *testing.T) {
		got, err := Filter{Kinds: []skilltypes.Kind{skilltypes.KindSecurity}, Tags: []string{"SECURITY"}}.Apply(c)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, SecuritySkillID, got[0].ID)
	})

	t.Run("no criteria", func(t *testing.T) {
		got, err := Filter{}.Apply(c)
		require.NoError(t, err)
		assert.Len(t, got, c.Len())
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := Filter{Kinds: []skilltypes.Kind{"bogus"}}.Apply(c)
		assert.Error(t, err)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := Filter{Tags: []string{"[unclosed"}}.Apply(c)
		assert.Error(t, err)
	})
}

func TestWatchReloadsOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := writeFile(t, t.TempDir(), "catalog.json", jsonCatalog)
	store := NewStore(ctx, FileSource{Path: path})

	config := NewWatchConfig()
	config.Debounce = 20 * time.Millisecond
	config.RetryDelay = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, store, path, config) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, WriteFile(path, Defaults()))

	assert.Eventually(t, func() bool {
		return store.Snapshot().Len() == 5
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
