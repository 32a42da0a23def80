// Package presenter writes the user-facing CLI output: status lines,
// section headers, confirmation prompts and composition plans. Logs go
// through pkg/logger; this package is only for what the user reads.
package presenter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// ColorEnv selects the color mode: always/force, never/off or auto
const ColorEnv = "SKILLCOMPOSER_COLOR"

// Presenter is the output surface the CLI commands write to
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Prompt(question string, options ...string) string
	Confirm(question string) bool
	Plan(comp *skilltypes.SkillComposition)
	Issues(title string, issues []string)
	Budget(usage *BudgetUsage)
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto colors output only when writing to a terminal
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output
	ColorAlways
	// ColorNever disables colored output
	ColorNever
)

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	input       *bufio.Reader
	colorMode   ColorMode
	quiet       bool
}

// New creates a presenter on stdout, stderr and stdin with the color mode
// taken from the environment
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a presenter on the given writers. Prompts read
// from stdin until SetInput is called.
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}

	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		input:       bufio.NewReader(os.Stdin),
		colorMode:   colorMode,
	}
}

// SetInput replaces the reader prompts answer from
func (p *TerminalPresenter) SetInput(r io.Reader) {
	p.input = bufio.NewReader(r)
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv(ColorEnv) {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error writes an error to the error output. Errors are printed even in
// quiet mode.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

// Warning displays a warning message
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.output, message)
}

// Section displays a title underlined to its own width
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}

	headerColor := color.New(color.Bold)
	headerColor.Fprintln(p.output, title)
	headerColor.Fprintln(p.output, strings.Repeat("-", len(title)))
}

// Prompt asks a question and returns the trimmed answer, or "" when the
// input is closed
func (p *TerminalPresenter) Prompt(question string, options ...string) string {
	promptColor := color.New(color.FgCyan)
	if len(options) > 0 {
		promptColor.Fprintf(p.output, "%s [%s]: ", question, strings.Join(options, "/"))
	} else {
		promptColor.Fprintf(p.output, "%s: ", question)
	}

	response, err := p.input.ReadString('\n')
	if err != nil && response == "" {
		return ""
	}
	return strings.TrimSpace(response)
}

// Confirm asks a yes/no question defaulting to no
func (p *TerminalPresenter) Confirm(question string) bool {
	switch strings.ToLower(p.Prompt(question, "y", "N")) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet returns whether quiet mode is enabled
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

var defaultPresenter = New()

// Error writes an error through the default presenter
func Error(err error, context string) { defaultPresenter.Error(err, context) }

// Success writes a success line through the default presenter
func Success(message string) { defaultPresenter.Success(message) }

// Warning writes a warning through the default presenter
func Warning(message string) { defaultPresenter.Warning(message) }

// Info writes an informational line through the default presenter
func Info(message string) { defaultPresenter.Info(message) }

// Section writes a section header through the default presenter
func Section(title string) { defaultPresenter.Section(title) }

// Prompt asks a question through the default presenter
func Prompt(question string, options ...string) string {
	return defaultPresenter.Prompt(question, options...)
}

// Confirm asks a yes/no question through the default presenter
func Confirm(question string) bool { return defaultPresenter.Confirm(question) }

// Plan writes a composition plan through the default presenter
func Plan(comp *skilltypes.SkillComposition) { defaultPresenter.Plan(comp) }

// Issues writes a titled issue list through the default presenter
func Issues(title string, issues []string) { defaultPresenter.Issues(title, issues) }

// Budget writes a budget summary through the default presenter
func Budget(usage *BudgetUsage) { defaultPresenter.Budget(usage) }

// SetQuiet enables or disables quiet mode for the default presenter
func SetQuiet(quiet bool) { defaultPresenter.SetQuiet(quiet) }

// IsQuiet reports whether the default presenter is quiet
func IsQuiet() bool { return defaultPresenter.IsQuiet() }
