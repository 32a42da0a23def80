package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/mcpserver"
	"github.com/jingkaihe/skillcomposer/pkg/presenter"
	"github.com/jingkaihe/skillcomposer/pkg/skills"
)

// MCPConfig holds configuration for the mcp command
type MCPConfig struct {
	History bool
}

// NewMCPConfig creates a new MCPConfig with default values
func NewMCPConfig() *MCPConfig {
	return &MCPConfig{
		History: false,
	}
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the skill tools over MCP on stdio",
	Long: `Start a Model Context Protocol server on stdin and stdout exposing the
discover_skills, compose_skills and list_available_skills tools.

Logs go to stderr so that stdout carries protocol messages only.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getMCPConfigFromFlags(cmd)
		runMCPCommand(ctx, config)
	},
}

func init() {
	defaults := NewMCPConfig()
	mcpCmd.Flags().Bool("history", defaults.History, "Record compositions made through compose_skills")
}

// getMCPConfigFromFlags extracts MCP configuration from command flags
func getMCPConfigFromFlags(cmd *cobra.Command) *MCPConfig {
	config := NewMCPConfig()
	config.History = viper.GetBool("history.enabled")

	if cmd.Flags().Changed("history") {
		if enabled, err := cmd.Flags().GetBool("history"); err == nil {
			config.History = enabled
		}
	}

	return config
}

func runMCPCommand(ctx context.Context, config *MCPConfig) {
	logger.SetLogOutput(os.Stderr)

	registry := skills.Initialize(ctx, nil)

	var opts []mcpserver.Option
	if config.History {
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
		opts = append(opts, mcpserver.WithHistory(store))
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.G(ctx).Info("serving skill tools over MCP stdio")
	if err := mcpserver.New(registry, opts...).ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		presenter.Error(err, "MCP server failed")
		os.Exit(1)
	}
}
