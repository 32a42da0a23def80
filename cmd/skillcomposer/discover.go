package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcomposer/pkg/api"
	"github.com/jingkaihe/skillcomposer/pkg/optimizer"
	"github.com/jingkaihe/skillcomposer/pkg/presenter"
	"github.com/jingkaihe/skillcomposer/pkg/skills"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// DiscoverConfig holds configuration for the discover command
type DiscoverConfig struct {
	JSONOutput bool
}

// NewDiscoverConfig creates a new DiscoverConfig with default values
func NewDiscoverConfig() *DiscoverConfig {
	return &DiscoverConfig{
		JSONOutput: false,
	}
}

var discoverCmd = &cobra.Command{
	Use:   "discover [idea...]",
	Short: "List the candidate skills for a project",
	Long: `Analyze a project idea and list every catalog skill that matches it, with its
relevance score. Nothing is composed or budgeted.

Examples:
  skillcomposer discover "FIPS crypto validation" --compliance
  skillcomposer discover --context project.yaml --json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		contextConfig := getContextConfigFromFlags(cmd, args)
		config := getDiscoverConfigFromFlags(cmd)
		runDiscoverCommand(ctx, contextConfig, config)
	},
}

func init() {
	defaults := NewDiscoverConfig()
	addContextFlags(discoverCmd)
	discoverCmd.Flags().Bool("json", defaults.JSONOutput, "Output in JSON format")
}

// getDiscoverConfigFromFlags extracts discover configuration from command flags
func getDiscoverConfigFromFlags(cmd *cobra.Command) *DiscoverConfig {
	config := NewDiscoverConfig()

	if jsonOutput, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSONOutput = jsonOutput
	}

	return config
}

func runDiscoverCommand(ctx context.Context, contextConfig *ContextConfig, config *DiscoverConfig) {
	pc, err := contextConfig.ProjectContext()
	if err != nil {
		presenter.Error(err, "Invalid project context")
		os.Exit(1)
	}

	registry := skills.Initialize(ctx, nil)
	pc = registry.Prepare(ctx, pc)
	candidates := registry.Discover(ctx, pc)

	scores := make(map[string]int, len(candidates))
	for _, s := range candidates {
		scores[s.ID] = optimizer.Score(s, pc)
	}

	if config.JSONOutput {
		if err := writeJSON(os.Stdout, api.DiscoverResponse{Context: pc, Candidates: candidates, Scores: scores}); err != nil {
			presenter.Error(err, "Failed to render candidates")
			os.Exit(1)
		}
		return
	}

	presenter.Section(fmt.Sprintf("Candidates for %q (%s)", pc.ProjectIdea, pc.ProjectType))
	if len(candidates) == 0 {
		presenter.Info("No skills match this project.")
		return
	}
	if err := renderCandidates(os.Stdout, candidates, scores); err != nil {
		presenter.Error(err, "Failed to render candidates")
		os.Exit(1)
	}
}

// renderCandidates writes a table of skills with their scores, in the given order
func renderCandidates(w io.Writer, candidates []*skilltypes.Skill, scores map[string]int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tType\tPriority\tScore\tTokens\tSeconds\tTriggers")
	fmt.Fprintln(tw, "--\t----\t--------\t-----\t------\t-------\t--------")

	for _, s := range candidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			s.ID,
			s.Kind,
			s.Priority,
			scores[s.ID],
			s.TokenBudget,
			s.ExecutionTimeoutSeconds,
			strings.Join(s.Triggers, ", "),
		)
	}

	return tw.Flush()
}

// writeJSON writes v as indented JSON followed by a newline
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error generating JSON output: %v", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
