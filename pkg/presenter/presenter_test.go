package presenter

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPresenter() (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var output, errorOutput bytes.Buffer
	return NewWithOptions(&output, &errorOutput, ColorNever), &output, &errorOutput
}

func TestNew(t *testing.T) {
	presenter := New()
	assert.Equal(t, os.Stdout, presenter.output)
	assert.Equal(t, os.Stderr, presenter.errorOutput)
	assert.False(t, presenter.IsQuiet())
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name     string
		noColor  string
		envColor string
		expected ColorMode
	}{
		{"NO_COLOR wins", "1", "always", ColorNever},
		{"always", "", "always", ColorAlways},
		{"force", "", "force", ColorAlways},
		{"never", "", "never", ColorNever},
		{"off", "", "off", ColorNever},
		{"auto", "", "auto", ColorAuto},
		{"unset", "", "", ColorAuto},
		{"unknown value", "", "sometimes", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv(ColorEnv, tt.envColor)
			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestError(t *testing.T) {
	presenter, _, errorOutput := newTestPresenter()

	presenter.Error(errors.New("catalog is empty"), "Catalog is invalid")
	assert.Equal(t, "[ERROR] Catalog is invalid: catalog is empty\n", errorOutput.String())

	errorOutput.Reset()
	presenter.Error(errors.New("catalog is empty"), "")
	assert.Equal(t, "[ERROR] catalog is empty\n", errorOutput.String())

	errorOutput.Reset()
	presenter.Error(nil, "context")
	assert.Empty(t, errorOutput.String())

	// errors are never silenced
	presenter.SetQuiet(true)
	presenter.Error(errors.New("boom"), "")
	assert.Contains(t, errorOutput.String(), "boom")
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name     string
		write    func(p *TerminalPresenter)
		expected string
	}{
		{"success", func(p *TerminalPresenter) { p.Success("Wrote 5 skills") }, "✓ Wrote 5 skills\n"},
		{"warning", func(p *TerminalPresenter) { p.Warning("Fallback used") }, "⚠ Fallback used\n"},
		{"info", func(p *TerminalPresenter) { p.Info("No skills match") }, "No skills match\n"},
		{"section", func(p *TerminalPresenter) { p.Section("Candidates") }, "Candidates\n----------\n"},
		{"issues", func(p *TerminalPresenter) {
			p.Issues("Fallback composition used", []string{"token budget exceeded", "missing fips-compliance"})
		}, "⚠ Fallback composition used\n  - token budget exceeded\n  - missing fips-compliance\n"},
		{"no issues", func(p *TerminalPresenter) { p.Issues("Fallback composition used", nil) }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presenter, output, _ := newTestPresenter()
			tt.write(presenter)
			assert.Equal(t, tt.expected, output.String())
		})

		t.Run(tt.name+" quiet", func(t *testing.T) {
			presenter, output, _ := newTestPresenter()
			presenter.SetQuiet(true)
			tt.write(presenter)
			assert.Empty(t, output.String())
		})
	}
}

func TestPrompt(t *testing.T) {
	presenter, output, _ := newTestPresenter()
	presenter.SetInput(strings.NewReader("  catalog.yaml \n"))

	answer := presenter.Prompt("Catalog path")
	assert.Equal(t, "catalog.yaml", answer)
	assert.Equal(t, "Catalog path: ", output.String())

	answer = presenter.Prompt("Again", "a", "b")
	assert.Empty(t, answer, "closed input")
	assert.Contains(t, output.String(), "Again [a/b]: ")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			presenter, output, _ := newTestPresenter()
			presenter.SetInput(strings.NewReader(tt.input))

			assert.Equal(t, tt.expected, presenter.Confirm("Delete composition abc?"))
			assert.Equal(t, "Delete composition abc? [y/N]: ", output.String())
		})
	}
}

func TestQuietMode(t *testing.T) {
	presenter := New()
	assert.False(t, presenter.IsQuiet())

	presenter.SetQuiet(true)
	assert.True(t, presenter.IsQuiet())

	presenter.SetQuiet(false)
	assert.False(t, presenter.IsQuiet())
}

func TestGlobalFunctions(t *testing.T) {
	original := defaultPresenter
	t.Cleanup(func() { defaultPresenter = original })

	presenter, output, errorOutput := newTestPresenter()
	defaultPresenter = presenter

	Error(errors.New("test error"), "error context")
	assert.Equal(t, "[ERROR] error context: test error\n", errorOutput.String())

	Success("done")
	Warning("careful")
	Info("note")
	Section("Title")
	Budget(&BudgetUsage{Skills: 1, MaxSkills: 10})
	assert.Equal(t, "✓ done\n⚠ careful\nnote\nTitle\n-----\n", output.String()[:strings.Index(output.String(), "[Budget]")])
	assert.Contains(t, output.String(), "[Budget] Skills: 1/10")

	SetQuiet(true)
	assert.True(t, IsQuiet())
	output.Reset()
	Info("hidden")
	assert.Empty(t, output.String())
	SetQuiet(false)

	presenter.SetInput(strings.NewReader("y\n"))
	assert.True(t, Confirm("Proceed?"))
}

func TestNewWithOptions(t *testing.T) {
	presenter, output, errorOutput := newTestPresenter()
	require.NotNil(t, presenter)
	assert.Equal(t, output, presenter.output)
	assert.Equal(t, errorOutput, presenter.errorOutput)
	assert.Equal(t, ColorNever, presenter.colorMode)
}
