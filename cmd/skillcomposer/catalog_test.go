package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

func TestCatalogListConfig_Filter(t *testing.T) {
	tests := []struct {
		name          string
		config        *CatalogListConfig
		expectedIDs   []string
		expectedError string
	}{
		{
			name:        "no filter",
			config:      &CatalogListConfig{},
			expectedIDs: catalog.Defaults().IDs(),
		},
		{
			name:        "by type",
			config:      &CatalogListConfig{Kinds: []string{"orchestration"}},
			expectedIDs: []string{catalog.OrchestrationSkillID, catalog.MicroserviceSkillID},
		},
		{
			name:        "by tag pattern",
			config:      &CatalogListConfig{Tags: []string{"micro*"}},
			expectedIDs: []string{catalog.MicroserviceSkillID},
		},
		{
			name:          "unknown type",
			config:        &CatalogListConfig{Kinds: []string{"magic"}},
			expectedError: "magic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := tt.config.Filter()
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)

			list, err := filter.Apply(catalog.Defaults())
			require.NoError(t, err)

			ids := make([]string, 0, len(list))
			for _, s := range list {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.expectedIDs, ids)
		})
	}
}

func TestRenderSkills(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderSkills(&buf, catalog.Defaults().Skills()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], catalog.OrchestrationSkillID)
	assert.Contains(t, lines[3], "fips-compliance")
	assert.Contains(t, lines[3], "critical")
	assert.Contains(t, lines[3], "security, fips, crypto, openssl")
}

func TestEncodeSkill(t *testing.T) {
	skill, ok := catalog.Defaults().Get(catalog.ComplianceSkillID)
	require.True(t, ok)

	t.Run("yaml", func(t *testing.T) {
		out, err := encodeSkill(skill, "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "skill_id: fips-compliance")
		assert.Contains(t, out, "priority: critical")
		assert.Contains(t, out, "verification_required: true")
	})

	t.Run("json", func(t *testing.T) {
		out, err := encodeSkill(skill, "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"skill_id": "fips-compliance"`)
		assert.Contains(t, out, `"skill_type": "compliance"`)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := encodeSkill(skill, "toml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown format "toml"`)
	})
}

func TestLoadCatalog(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, catalog.WriteFile(path, catalog.Defaults()))

	t.Run("catalog file", func(t *testing.T) {
		loaded, err := loadCatalog(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 5, loaded.Len())
		assert.Equal(t, path, loaded.Source())
	})

	t.Run("skill directory", func(t *testing.T) {
		skillDir := filepath.Join(dir, "skills", "api-testing")
		require.NoError(t, os.MkdirAll(skillDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(`---
skill_id: api-testing
name: API Testing
skill_type: testing
priority: medium
triggers: [api, test]
---
# API Testing

Exercise every endpoint.
`), 0o644))

		loaded, err := loadCatalog(ctx, filepath.Join(dir, "skills"))
		require.NoError(t, err)
		require.Equal(t, 1, loaded.Len())
		skill, ok := loaded.Get("api-testing")
		require.True(t, ok)
		assert.Equal(t, skilltypes.KindTesting, skill.Kind)
	})

	t.Run("configured source", func(t *testing.T) {
		viper.Set("catalog.path", path)
		t.Cleanup(viper.Reset)

		loaded, err := loadCatalog(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, path, loaded.Source())
	})

	t.Run("invalid file", func(t *testing.T) {
		broken := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(broken, []byte(`{"skills": [{"skill_id": ""}]}`), 0o644))

		_, err := loadCatalog(ctx, broken)
		assert.Error(t, err)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := loadCatalog(ctx, filepath.Join(dir, "missing.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to stat")
	})
}

func TestRunCatalogInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.json")

	runCatalogInitCommand(path, &CatalogInitConfig{Force: true})

	loaded, err := catalog.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, catalog.Defaults().IDs(), loaded.IDs())
}
