package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	"github.com/jingkaihe/skillcomposer/pkg/presenter"
	"github.com/jingkaihe/skillcomposer/pkg/skills"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// DefaultCatalogInitPath is where catalog init writes when no path is given
const DefaultCatalogInitPath = ".skillcomposer/catalog.yaml"

// CatalogListConfig holds configuration for the catalog list command
type CatalogListConfig struct {
	Kinds      []string
	Tags       []string
	JSONOutput bool
}

// NewCatalogListConfig creates a new CatalogListConfig with default values
func NewCatalogListConfig() *CatalogListConfig {
	return &CatalogListConfig{
		JSONOutput: false,
	}
}

// CatalogShowConfig holds configuration for the catalog show command
type CatalogShowConfig struct {
	Format string
}

// NewCatalogShowConfig creates a new CatalogShowConfig with default values
func NewCatalogShowConfig() *CatalogShowConfig {
	return &CatalogShowConfig{
		Format: "yaml",
	}
}

// CatalogInitConfig holds configuration for the catalog init command
type CatalogInitConfig struct {
	Force bool
}

// NewCatalogInitConfig creates a new CatalogInitConfig with default values
func NewCatalogInitConfig() *CatalogInitConfig {
	return &CatalogInitConfig{
		Force: false,
	}
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and manage the skill catalog",
	Long:  `List, show and validate catalog skills, print the catalog schema or write a starter catalog.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the skills of the configured catalog",
	Long: `List the skills of the configured catalog, optionally filtered by type and by
tag glob patterns.

Examples:
  skillcomposer catalog list --type security,compliance
  skillcomposer catalog list --tag "micro*"`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getCatalogListConfigFromFlags(cmd)
		runCatalogListCommand(ctx, config)
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show [skillID]",
	Short: "Show a skill",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getCatalogShowConfigFromFlags(cmd)
		runCatalogShowCommand(ctx, args[0], config)
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a catalog file or skill directory",
	Long:  `Validate a catalog file or SKILL.md directory. Without a path the configured catalog is validated.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		var path string
		if len(args) > 0 {
			path = args[0]
		}
		runCatalogValidateCommand(ctx, path)
	},
}

var catalogSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the catalog JSON Schema",
	Run: func(_ *cobra.Command, _ []string) {
		data, err := catalog.SchemaJSON()
		if err != nil {
			presenter.Error(err, "Failed to generate catalog schema")
			os.Exit(1)
		}
		fmt.Println(string(data))
	},
}

var catalogInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the built-in catalog to a file",
	Long: `Write the built-in skills to a catalog file as a starting point. The format
follows the extension: .yaml and .yml write YAML, anything else JSON.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := DefaultCatalogInitPath
		if len(args) > 0 {
			path = args[0]
		}
		config := getCatalogInitConfigFromFlags(cmd)
		runCatalogInitCommand(path, config)
	},
}

func init() {
	listDefaults := NewCatalogListConfig()
	catalogListCmd.Flags().StringSlice("type", listDefaults.Kinds, "Only list skills of these types")
	catalogListCmd.Flags().StringSlice("tag", listDefaults.Tags, "Only list skills with a tag matching one of these glob patterns")
	catalogListCmd.Flags().Bool("json", listDefaults.JSONOutput, "Output in JSON format")

	showDefaults := NewCatalogShowConfig()
	catalogShowCmd.Flags().String("format", showDefaults.Format, "Output format: yaml or json")

	initDefaults := NewCatalogInitConfig()
	catalogInitCmd.Flags().Bool("force", initDefaults.Force, "Overwrite an existing file without asking")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogSchemaCmd)
	catalogCmd.AddCommand(catalogInitCmd)
}

// getCatalogListConfigFromFlags extracts list configuration from command flags
func getCatalogListConfigFromFlags(cmd *cobra.Command) *CatalogListConfig {
	config := NewCatalogListConfig()

	if kinds, err := cmd.Flags().GetStringSlice("type"); err == nil {
		config.Kinds = kinds
	}
	if tags, err := cmd.Flags().GetStringSlice("tag"); err == nil {
		config.Tags = tags
	}
	if jsonOutput, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSONOutput = jsonOutput
	}

	return config
}

// getCatalogShowConfigFromFlags extracts show configuration from command flags
func getCatalogShowConfigFromFlags(cmd *cobra.Command) *CatalogShowConfig {
	config := NewCatalogShowConfig()

	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}

	return config
}

// getCatalogInitConfigFromFlags extracts init configuration from command flags
func getCatalogInitConfigFromFlags(cmd *cobra.Command) *CatalogInitConfig {
	config := NewCatalogInitConfig()

	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}

	return config
}

// Filter converts the list flags into a catalog filter
func (c *CatalogListConfig) Filter() (catalog.Filter, error) {
	filter := catalog.Filter{Tags: c.Tags}
	for _, name := range c.Kinds {
		kind, err := skilltypes.ParseKind(name)
		if err != nil {
			return filter, err
		}
		filter.Kinds = append(filter.Kinds, kind)
	}
	return filter, nil
}

func runCatalogListCommand(ctx context.Context, config *CatalogListConfig) {
	filter, err := config.Filter()
	if err != nil {
		presenter.Error(err, "Invalid skill type")
		os.Exit(1)
	}

	registry := skills.Initialize(ctx, nil)
	list, err := registry.ListSkills(filter)
	if err != nil {
		presenter.Error(err, "Failed to filter skills")
		os.Exit(1)
	}

	if config.JSONOutput {
		if list == nil {
			list = []*skilltypes.Skill{}
		}
		if err := writeJSON(os.Stdout, map[string]any{"skills": list}); err != nil {
			presenter.Error(err, "Failed to render skills")
			os.Exit(1)
		}
		return
	}

	snapshot := registry.Catalog()
	presenter.Section(fmt.Sprintf("Catalog %s (version %d)", snapshot.Source(), snapshot.Version()))
	if len(list) == 0 {
		presenter.Info("No skills match the filter.")
		return
	}
	if err := renderSkills(os.Stdout, list); err != nil {
		presenter.Error(err, "Failed to render skills")
		os.Exit(1)
	}
}

// renderSkills writes a table of skills in catalog order
func renderSkills(w io.Writer, list []*skilltypes.Skill) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tType\tPriority\tTokens\tAuto\tTags")
	fmt.Fprintln(tw, "--\t----\t--------\t------\t----\t----")

	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\t%s\n",
			s.ID,
			s.Kind,
			s.Priority,
			s.TokenBudget,
			s.AutoCompose,
			strings.Join(s.Tags, ", "),
		)
	}

	return tw.Flush()
}

func runCatalogShowCommand(ctx context.Context, id string, config *CatalogShowConfig) {
	registry := skills.Initialize(ctx, nil)
	skill, ok := registry.Skill(id)
	if !ok {
		presenter.Error(errors.Errorf("skill %q not found", id), "Unknown skill")
		os.Exit(1)
	}

	out, err := encodeSkill(skill, config.Format)
	if err != nil {
		presenter.Error(err, "Failed to render skill")
		os.Exit(1)
	}
	fmt.Print(out)
}

// encodeSkill renders a skill in its catalog record shape
func encodeSkill(skill *skilltypes.Skill, format string) (string, error) {
	record := catalog.RecordFromSkill(skill)
	switch format {
	case "json":
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "failed to encode skill as JSON")
		}
		return string(data) + "\n", nil
	case "yaml", "":
		data, err := yaml.Marshal(record)
		if err != nil {
			return "", errors.Wrap(err, "failed to encode skill as YAML")
		}
		return string(data), nil
	default:
		return "", errors.Errorf("unknown format %q (expected yaml or json)", format)
	}
}

func runCatalogValidateCommand(ctx context.Context, path string) {
	loaded, err := loadCatalog(ctx, path)
	if err != nil {
		presenter.Error(err, "Catalog is invalid")
		os.Exit(1)
	}
	presenter.Success(fmt.Sprintf("Catalog %s is valid: %d skills", loaded.Source(), loaded.Len()))
}

// loadCatalog loads path as a catalog file or a SKILL.md directory. An empty
// path loads the configured source without falling back to the defaults.
func loadCatalog(ctx context.Context, path string) (*catalog.Catalog, error) {
	if path == "" {
		return skills.SourceFromConfig().Load(ctx)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}
	if info.IsDir() {
		return catalog.LoadDir(path)
	}
	return catalog.LoadFile(path)
}

func runCatalogInitCommand(path string, config *CatalogInitConfig) {
	if _, err := os.Stat(path); err == nil && !config.Force {
		if !presenter.Confirm(fmt.Sprintf("%s already exists. Overwrite it?", path)) {
			presenter.Info("Catalog init cancelled.")
			return
		}
	}

	if err := catalog.WriteFile(path, catalog.Defaults()); err != nil {
		presenter.Error(err, "Failed to write catalog")
		os.Exit(1)
	}
	presenter.Success(fmt.Sprintf("Wrote %d built-in skills to %s", catalog.Defaults().Len(), path))
}
