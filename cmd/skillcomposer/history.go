package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcomposer/pkg/history"
	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/presenter"
)

// HistoryListConfig holds configuration for the history list command
type HistoryListConfig struct {
	Limit       int
	ProjectType string
	JSONOutput  bool
}

// NewHistoryListConfig creates a new HistoryListConfig with default values
func NewHistoryListConfig() *HistoryListConfig {
	return &HistoryListConfig{
		Limit:       history.DefaultListLimit,
		ProjectType: "",
		JSONOutput:  false,
	}
}

// HistoryShowConfig holds configuration for the history show command
type HistoryShowConfig struct {
	JSONOutput bool
}

// NewHistoryShowConfig creates a new HistoryShowConfig with default values
func NewHistoryShowConfig() *HistoryShowConfig {
	return &HistoryShowConfig{
		JSONOutput: false,
	}
}

// HistoryDeleteConfig holds configuration for the history delete command
type HistoryDeleteConfig struct {
	NoConfirm bool
}

// NewHistoryDeleteConfig creates a new HistoryDeleteConfig with default values
func NewHistoryDeleteConfig() *HistoryDeleteConfig {
	return &HistoryDeleteConfig{
		NoConfirm: false,
	}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded compositions",
	Long:  `List, show, diff and delete compositions recorded by compose --record or the HTTP API.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded compositions, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getHistoryListConfigFromFlags(cmd)
		runHistoryListCommand(ctx, config)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [recordID]",
	Short: "Show a recorded composition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getHistoryShowConfigFromFlags(cmd)
		runHistoryShowCommand(ctx, args[0], config)
	},
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff [recordID] [recordID]",
	Short: "Diff the plans of two recorded compositions",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		runHistoryDiffCommand(ctx, args[0], args[1])
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [recordID]",
	Short: "Delete a recorded composition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getHistoryDeleteConfigFromFlags(cmd)
		runHistoryDeleteCommand(ctx, args[0], config)
	},
}

func init() {
	listDefaults := NewHistoryListConfig()
	historyListCmd.Flags().Int("limit", listDefaults.Limit, "Maximum number of records to display")
	historyListCmd.Flags().String("type", listDefaults.ProjectType, "Only list records of this project type")
	historyListCmd.Flags().Bool("json", listDefaults.JSONOutput, "Output in JSON format")

	showDefaults := NewHistoryShowConfig()
	historyShowCmd.Flags().Bool("json", showDefaults.JSONOutput, "Output the full record in JSON format")

	deleteDefaults := NewHistoryDeleteConfig()
	historyDeleteCmd.Flags().Bool("no-confirm", deleteDefaults.NoConfirm, "Skip confirmation prompt")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDiffCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

// getHistoryListConfigFromFlags extracts list configuration from command flags
func getHistoryListConfigFromFlags(cmd *cobra.Command) *HistoryListConfig {
	config := NewHistoryListConfig()

	if limit, err := cmd.Flags().GetInt("limit"); err == nil {
		config.Limit = limit
	}
	if projectType, err := cmd.Flags().GetString("type"); err == nil {
		config.ProjectType = projectType
	}
	if jsonOutput, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSONOutput = jsonOutput
	}

	return config
}

// getHistoryShowConfigFromFlags extracts show configuration from command flags
func getHistoryShowConfigFromFlags(cmd *cobra.Command) *HistoryShowConfig {
	config := NewHistoryShowConfig()

	if jsonOutput, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSONOutput = jsonOutput
	}

	return config
}

// getHistoryDeleteConfigFromFlags extracts delete configuration from command flags
func getHistoryDeleteConfigFromFlags(cmd *cobra.Command) *HistoryDeleteConfig {
	config := NewHistoryDeleteConfig()

	if noConfirm, err := cmd.Flags().GetBool("no-confirm"); err == nil {
		config.NoConfirm = noConfirm
	}

	return config
}

// withHistoryStore opens the history store, runs f and closes the store
func withHistoryStore(ctx context.Context, f func(*history.Store)) {
	store, err := openHistoryStore(ctx)
	if err != nil {
		presenter.Error(err, "Failed to open composition history")
		os.Exit(1)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.G(ctx).WithError(closeErr).Warn("failed to close history store")
		}
	}()
	f(store)
}

func runHistoryListCommand(ctx context.Context, config *HistoryListConfig) {
	withHistoryStore(ctx, func(store *history.Store) {
		summaries, err := store.List(ctx, config.Limit, config.ProjectType)
		if err != nil {
			presenter.Error(err, "Failed to list compositions")
			os.Exit(1)
		}

		if config.JSONOutput {
			err = writeJSON(os.Stdout, map[string]any{"records": summaries})
		} else if len(summaries) == 0 {
			presenter.Info("No compositions recorded.")
		} else {
			err = renderHistory(os.Stdout, summaries)
		}
		if err != nil {
			presenter.Error(err, "Failed to render compositions")
			os.Exit(1)
		}
	})
}

// renderHistory writes a table of record summaries
func renderHistory(w io.Writer, summaries []history.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tCreated\tType\tSkills\tTokens\tFallback\tIdea")
	fmt.Fprintln(tw, "--\t-------\t----\t------\t------\t--------\t----")

	for _, s := range summaries {
		idea := s.ProjectIdea
		if len(idea) > 50 {
			idea = strings.TrimSpace(idea[:47]) + "..."
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%t\t%s\n",
			s.ID,
			s.CreatedAt.Format(time.RFC3339),
			s.ProjectType,
			s.SkillCount,
			s.TotalTokens,
			s.UsedFallback,
			idea,
		)
	}

	return tw.Flush()
}

func runHistoryShowCommand(ctx context.Context, id string, config *HistoryShowConfig) {
	withHistoryStore(ctx, func(store *history.Store) {
		record, err := store.Get(ctx, id)
		if err != nil {
			presenter.Error(err, "Failed to load composition")
			os.Exit(1)
		}

		if config.JSONOutput {
			if err := writeJSON(os.Stdout, record); err != nil {
				presenter.Error(err, "Failed to render composition")
				os.Exit(1)
			}
			return
		}

		presenter.Section(fmt.Sprintf("Composition %s", record.ID))
		fmt.Printf("idea: %s\ntype: %s\ncreated: %s\ncatalog version: %d\n",
			record.ProjectIdea, record.ProjectType, record.CreatedAt.Format(time.RFC3339), record.CatalogVersion)
		presenter.Plan(&record.Composition)
		presenter.Issues("Fallback composition used", record.Composition.Issues)
		presenter.Budget(presenter.NewBudgetUsage(&record.Composition, record.Context.Limits()))
	})
}

func runHistoryDiffCommand(ctx context.Context, idA, idB string) {
	withHistoryStore(ctx, func(store *history.Store) {
		diff, err := store.Diff(ctx, idA, idB)
		if err != nil {
			presenter.Error(err, "Failed to diff compositions")
			os.Exit(1)
		}
		if diff == "" {
			presenter.Info("The two compositions have identical plans.")
			return
		}
		renderDiff(os.Stdout, diff)
	})
}

// renderDiff writes a unified diff, coloring added and removed lines when
// the output supports it
func renderDiff(w io.Writer, diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	hunk := color.New(color.FgCyan)

	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			added.Fprint(w, line)
		case strings.HasPrefix(line, "-"):
			removed.Fprint(w, line)
		case strings.HasPrefix(line, "@@"):
			hunk.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}

func runHistoryDeleteCommand(ctx context.Context, id string, config *HistoryDeleteConfig) {
	if !config.NoConfirm {
		if !presenter.Confirm(fmt.Sprintf("Delete composition %s?", id)) {
			presenter.Info("Deletion cancelled.")
			return
		}
	}

	withHistoryStore(ctx, func(store *history.Store) {
		if err := store.Delete(ctx, id); err != nil {
			presenter.Error(err, "Failed to delete composition")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Composition %s deleted successfully.", id))
	})
}
