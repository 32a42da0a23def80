package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillcomposer/pkg/analyzer"
	"github.com/jingkaihe/skillcomposer/pkg/history"
	"github.com/jingkaihe/skillcomposer/pkg/skills"
)

func TestRenderHistory(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	summaries := []history.Summary{
		{
			ID:          "b7d4c1",
			CreatedAt:   created,
			ProjectIdea: "FIPS crypto validation",
			ProjectType: "openssl",
			SkillCount:  2,
			TotalTokens: 2000,
		},
		{
			ID:           "a1e9f0",
			CreatedAt:    created.Add(-time.Hour),
			ProjectIdea:  strings.Repeat("very long project idea ", 5),
			ProjectType:  "general",
			SkillCount:   1,
			TotalTokens:  1000,
			UsedFallback: true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderHistory(&buf, summaries))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "b7d4c1")
	assert.Contains(t, lines[2], "2026-10-01T09:00:00Z")
	assert.Contains(t, lines[2], "FIPS crypto validation")
	assert.Contains(t, lines[3], "true")
	assert.True(t, strings.HasSuffix(lines[3], "..."))
}

func TestRenderDiff(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	diff := "--- a\n+++ b\n@@ -1,2 +1,2 @@\n execution order:\n-total tokens: 1000\n+total tokens: 2000\n"

	var buf bytes.Buffer
	renderDiff(&buf, diff)

	assert.Equal(t, diff, buf.String())
}

func TestRecordComposition(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "storage.db")
	viper.Set("history.db_path", dbPath)
	t.Cleanup(viper.Reset)

	registry := skills.NewRegistry(nil)
	pc := registry.Prepare(ctx, analyzer.ContextFromIdea("FIPS crypto validation"))
	comp := registry.DiscoverAndCompose(ctx, pc)

	id, err := recordComposition(ctx, pc, comp, registry.Catalog().Version())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	store, err := history.Open(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	record, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "FIPS crypto validation", record.ProjectIdea)
	assert.Equal(t, "openssl", record.ProjectType)
	assert.Equal(t, comp.SkillIDs(), record.Composition.SkillIDs())
}
