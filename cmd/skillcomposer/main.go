package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/presenter"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

func init() {
	// Environment variables, SKILLCOMPOSER_CATALOG_PATH for catalog.path
	viper.SetEnvPrefix("SKILLCOMPOSER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "fmt")
	viper.SetDefault("catalog.watch", true)
	viper.SetDefault("history.enabled", false)
	viper.SetDefault("constraints.max_tokens", skilltypes.DefaultMaxTokens)
	viper.SetDefault("constraints.max_execution_seconds", skilltypes.DefaultMaxExecutionSeconds)
	viper.SetDefault("constraints.max_skills", skilltypes.DefaultMaxSkills)

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillcomposer")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var tracingShutdown func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "skillcomposer",
	Short: "Discover and compose skills for a project idea",
	Long: `skillcomposer finds the catalog skills relevant to a project idea, composes them
into a dependency ordered plan that fits the token, time and skill budgets, and
verifies the result before handing it over.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
			return err
		}
		presenter.SetQuiet(viper.GetBool("quiet"))
		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to initialize tracing")
		}
		tracingShutdown = shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if tracingShutdown == nil {
			return
		}
		if err := tracingShutdown(cmd.Context()); err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to flush traces")
		}
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func main() {
	// Add global flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt or json)")
	rootCmd.PersistentFlags().String("catalog", "", "Skill catalog file, JSON or YAML (overrides config)")
	rootCmd.PersistentFlags().String("catalog-dir", "", "Directory of SKILL.md skill directories (overrides config)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only print errors and requested data")
	rootCmd.PersistentFlags().String("db-path", "", "Composition history database (default: ~/.skillcomposer/storage.db)")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("catalog.path", rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag("catalog.dir", rootCmd.PersistentFlags().Lookup("catalog-dir"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("history.db_path", rootCmd.PersistentFlags().Lookup("db-path"))

	// Add subcommands
	rootCmd.AddCommand(withTracing(discoverCmd))
	rootCmd.AddCommand(withTracing(composeCmd))
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Execute
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
