package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestCommandAttributes(t *testing.T) {
	root := &cobra.Command{Use: "skillcomposer"}
	cmd := &cobra.Command{Use: "compose", Run: func(*cobra.Command, []string) {}}
	addContextFlags(cmd)
	root.AddCommand(cmd)

	require.NoError(t, cmd.ParseFlags([]string{
		"--idea", "secret idea", "--context", "ctx.yaml", "--max-skills", "3", "--compliance",
	}))

	attrs := commandAttributes(cmd, []string{"extra"})
	byKey := make(map[attribute.Key]string, len(attrs))
	for _, kv := range attrs {
		byKey[kv.Key] = kv.Value.Emit()
	}

	assert.Equal(t, "skillcomposer compose", byKey["cli.command"])
	assert.Equal(t, "1", byKey["cli.args"])
	assert.Equal(t, "3", byKey["cli.flag.max-skills"])
	assert.Equal(t, "true", byKey["cli.flag.compliance"])
	assert.NotContains(t, byKey, attribute.Key("cli.flag.idea"))
	assert.NotContains(t, byKey, attribute.Key("cli.flag.context"))
	assert.NotContains(t, byKey, attribute.Key("cli.flag.security-level"), "unset flags are skipped")
}

func TestWithTracing(t *testing.T) {
	var ran bool
	cmd := withTracing(&cobra.Command{Use: "discover", Run: func(*cobra.Command, []string) { ran = true }})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.True(t, ran)
}
