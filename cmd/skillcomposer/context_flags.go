package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillcomposer/pkg/analyzer"
	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// ContextConfig holds the project context flags shared by discover and compose
type ContextConfig struct {
	Idea          string
	ProjectType   string
	Technologies  []string
	Requirements  []string
	Objectives    []string
	SecurityLevel string
	Compliance    bool
	Platforms     []string
	MaxTokens     int
	MaxSeconds    int
	MaxSkills     int
	Skills        []string
	ContextFile   string
}

// NewContextConfig creates a new ContextConfig with default values
func NewContextConfig() *ContextConfig {
	return &ContextConfig{
		Idea:          "",
		ProjectType:   "",
		SecurityLevel: "",
		Compliance:    false,
		MaxTokens:     0,
		MaxSeconds:    0,
		MaxSkills:     0,
		ContextFile:   "",
	}
}

// addContextFlags registers the project context flags on cmd
func addContextFlags(cmd *cobra.Command) {
	defaults := NewContextConfig()
	cmd.Flags().String("idea", defaults.Idea, "Project idea in free text (also accepted as arguments)")
	cmd.Flags().String("type", defaults.ProjectType, "Project type (inferred from the idea when empty)")
	cmd.Flags().StringSlice("tech", defaults.Technologies, "Technologies used by the project (inferred when empty)")
	cmd.Flags().StringSlice("requirement", defaults.Requirements, "Project requirements (inferred when empty)")
	cmd.Flags().StringSlice("objective", defaults.Objectives, "Project objectives (inferred when empty)")
	cmd.Flags().String("security-level", defaults.SecurityLevel, "Security level: standard or high")
	cmd.Flags().Bool("compliance", defaults.Compliance, "Require compliance skills")
	cmd.Flags().StringSlice("platform", defaults.Platforms, "Target platforms")
	cmd.Flags().Int("max-tokens", defaults.MaxTokens, "Token budget for the composition (default from config)")
	cmd.Flags().Int("max-seconds", defaults.MaxSeconds, "Execution time budget in seconds (default from config)")
	cmd.Flags().Int("max-skills", defaults.MaxSkills, "Maximum number of skills (default from config)")
	cmd.Flags().StringSlice("skill", defaults.Skills, "Skill to consider even if it is not auto-composed")
	cmd.Flags().String("context", defaults.ContextFile, "Project context file, JSON or YAML; flags override its fields")
}

// getContextConfigFromFlags extracts the project context configuration from
// command flags. Positional arguments form the idea when --idea is not set.
func getContextConfigFromFlags(cmd *cobra.Command, args []string) *ContextConfig {
	config := NewContextConfig()

	if idea, err := cmd.Flags().GetString("idea"); err == nil {
		config.Idea = idea
	}
	if config.Idea == "" && len(args) > 0 {
		config.Idea = strings.Join(args, " ")
	}
	if projectType, err := cmd.Flags().GetString("type"); err == nil {
		config.ProjectType = projectType
	}
	if techs, err := cmd.Flags().GetStringSlice("tech"); err == nil {
		config.Technologies = techs
	}
	if requirements, err := cmd.Flags().GetStringSlice("requirement"); err == nil {
		config.Requirements = requirements
	}
	if objectives, err := cmd.Flags().GetStringSlice("objective"); err == nil {
		config.Objectives = objectives
	}
	if level, err := cmd.Flags().GetString("security-level"); err == nil {
		config.SecurityLevel = level
	}
	if compliance, err := cmd.Flags().GetBool("compliance"); err == nil {
		config.Compliance = compliance
	}
	if platforms, err := cmd.Flags().GetStringSlice("platform"); err == nil {
		config.Platforms = platforms
	}
	if maxTokens, err := cmd.Flags().GetInt("max-tokens"); err == nil {
		config.MaxTokens = maxTokens
	}
	if maxSeconds, err := cmd.Flags().GetInt("max-seconds"); err == nil {
		config.MaxSeconds = maxSeconds
	}
	if maxSkills, err := cmd.Flags().GetInt("max-skills"); err == nil {
		config.MaxSkills = maxSkills
	}
	if skills, err := cmd.Flags().GetStringSlice("skill"); err == nil {
		config.Skills = skills
	}
	if contextFile, err := cmd.Flags().GetString("context"); err == nil {
		config.ContextFile = contextFile
	}

	return config
}

// ProjectContext builds the project context: the context file first, then
// every flag that was set on top of it, then inference for what is still
// missing. Constraints left unset are filled later from the registry defaults.
func (c *ContextConfig) ProjectContext() (skilltypes.ProjectContext, error) {
	var pc skilltypes.ProjectContext
	if c.ContextFile != "" {
		loaded, err := loadContextFile(c.ContextFile)
		if err != nil {
			return pc, err
		}
		pc = loaded
	}

	if c.Idea != "" {
		pc.ProjectIdea = c.Idea
	}
	if c.ProjectType != "" {
		pc.ProjectType = c.ProjectType
	}
	if len(c.Technologies) > 0 {
		pc.Technologies = c.Technologies
	}
	if len(c.Requirements) > 0 {
		pc.Requirements = c.Requirements
	}
	if len(c.Objectives) > 0 {
		pc.Objectives = c.Objectives
	}
	if len(c.Platforms) > 0 {
		pc.PlatformTargets = c.Platforms
	}
	if len(c.Skills) > 0 {
		pc.RequestedSkills = c.Skills
	}
	if c.Compliance {
		pc.ComplianceRequired = true
	}
	if c.MaxTokens > 0 {
		pc.Constraints.MaxTokens = c.MaxTokens
	}
	if c.MaxSeconds > 0 {
		pc.Constraints.MaxExecutionSeconds = c.MaxSeconds
	}
	if c.MaxSkills > 0 {
		pc.Constraints.MaxSkills = c.MaxSkills
	}

	if c.SecurityLevel != "" {
		pc.SecurityLevel = skilltypes.SecurityLevel(c.SecurityLevel)
	}
	level, err := skilltypes.ParseSecurityLevel(string(pc.SecurityLevel))
	if err != nil {
		return pc, err
	}
	pc.SecurityLevel = level

	if strings.TrimSpace(pc.ProjectIdea) == "" {
		return pc, errors.New("a project idea is required (--idea, arguments or --context)")
	}

	return analyzer.Complete(pc), nil
}

// loadContextFile decodes a project context from a JSON or YAML file
func loadContextFile(path string) (skilltypes.ProjectContext, error) {
	var pc skilltypes.ProjectContext

	data, err := os.ReadFile(path)
	if err != nil {
		return pc, errors.Wrapf(err, "failed to read context file %s", path)
	}

	switch catalog.FormatFromPath(path) {
	case catalog.FormatYAML:
		err = yaml.Unmarshal(data, &pc)
	default:
		err = json.Unmarshal(data, &pc)
	}
	if err != nil {
		return pc, errors.Wrapf(err, "failed to parse context file %s", path)
	}
	return pc, nil
}
