package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillcomposer/pkg/history"
	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/presenter"
	"github.com/jingkaihe/skillcomposer/pkg/skills"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// ComposeConfig holds configuration for the compose command
type ComposeConfig struct {
	Record     bool
	JSONOutput bool
}

// NewComposeConfig creates a new ComposeConfig with default values
func NewComposeConfig() *ComposeConfig {
	return &ComposeConfig{
		Record:     false,
		JSONOutput: false,
	}
}

// ComposeOutput is the JSON output of the compose command
type ComposeOutput struct {
	Context     skilltypes.ProjectContext    `json:"project_context"`
	Composition *skilltypes.SkillComposition `json:"composition"`
	RecordID    string                       `json:"record_id,omitempty"`
}

var composeCmd = &cobra.Command{
	Use:   "compose [idea...]",
	Short: "Compose a verified skill plan for a project",
	Long: `Discover the skills for a project idea, select the most relevant ones within the
budgets, order them by dependency and verify the plan. When the plan fails
verification the minimal fallback composition is printed with the reasons.

Examples:
  skillcomposer compose "FIPS crypto validation" --compliance --max-tokens 2000
  skillcomposer compose --context project.yaml --record`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		contextConfig := getContextConfigFromFlags(cmd, args)
		config := getComposeConfigFromFlags(cmd)
		runComposeCommand(ctx, contextConfig, config)
	},
}

func init() {
	defaults := NewComposeConfig()
	addContextFlags(composeCmd)
	composeCmd.Flags().Bool("record", defaults.Record, "Record the composition in the history database (default from history.enabled)")
	composeCmd.Flags().Bool("json", defaults.JSONOutput, "Output in JSON format")
}

// getComposeConfigFromFlags extracts compose configuration from command flags
func getComposeConfigFromFlags(cmd *cobra.Command) *ComposeConfig {
	config := NewComposeConfig()
	config.Record = viper.GetBool("history.enabled")

	if cmd.Flags().Changed("record") {
		if record, err := cmd.Flags().GetBool("record"); err == nil {
			config.Record = record
		}
	}
	if jsonOutput, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSONOutput = jsonOutput
	}

	return config
}

func runComposeCommand(ctx context.Context, contextConfig *ContextConfig, config *ComposeConfig) {
	pc, err := contextConfig.ProjectContext()
	if err != nil {
		presenter.Error(err, "Invalid project context")
		os.Exit(1)
	}

	registry := skills.Initialize(ctx, nil)
	pc = registry.Prepare(ctx, pc)
	comp := registry.DiscoverAndCompose(ctx, pc)

	var recordID string
	if config.Record {
		recordID, err = recordComposition(ctx, pc, comp, registry.Catalog().Version())
		if err != nil {
			presenter.Error(err, "Failed to record composition")
			os.Exit(1)
		}
	}

	if config.JSONOutput {
		if err := writeJSON(os.Stdout, ComposeOutput{Context: pc, Composition: comp, RecordID: recordID}); err != nil {
			presenter.Error(err, "Failed to render composition")
			os.Exit(1)
		}
		return
	}

	presenter.Section(fmt.Sprintf("Composition for %q (%s)", pc.ProjectIdea, pc.ProjectType))
	presenter.Plan(comp)
	presenter.Issues("Fallback composition used", comp.Issues)
	presenter.Budget(presenter.NewBudgetUsage(comp, pc.Limits()))
	if recordID != "" {
		presenter.Success("Recorded composition " + recordID)
	}
}

// recordComposition stores comp in the configured history database
func recordComposition(ctx context.Context, pc skilltypes.ProjectContext, comp *skilltypes.SkillComposition, catalogVersion uint64) (string, error) {
	store, err := openHistoryStore(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.G(ctx).WithError(closeErr).Warn("failed to close history store")
		}
	}()

	record, err := store.Record(ctx, pc, comp, catalogVersion)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// openHistoryStore opens the history database at history.db_path, or the
// default location when it is unset
func openHistoryStore(ctx context.Context) (*history.Store, error) {
	return history.Open(ctx, viper.GetString("history.db_path"))
}
