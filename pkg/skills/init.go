package skills

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/metrics"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// DefaultSkillDirs are searched, in order, for a SKILL.md directory catalog
// when neither catalog.path nor catalog.dir is configured
func DefaultSkillDirs() []string {
	dirs := []string{"./.skillcomposer/skills"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".skillcomposer", "skills"))
	}
	return dirs
}

// SourceFromConfig picks the catalog source from configuration:
// catalog.path (a JSON or YAML file) wins over catalog.dir (a SKILL.md
// directory); without either the first existing default skill directory is
// used, and the built-in catalog after that.
func SourceFromConfig() catalog.Source {
	if path := viper.GetString("catalog.path"); path != "" {
		return catalog.FileSource{Path: path}
	}
	if dir := viper.GetString("catalog.dir"); dir != "" {
		return catalog.DirSource{Dir: dir}
	}
	for _, dir := range DefaultSkillDirs() {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return catalog.DirSource{Dir: dir}
		}
	}
	return catalog.BuiltinSource()
}

// ConstraintsFromConfig reads the default limits from the constraints.* keys
func ConstraintsFromConfig() skilltypes.Constraints {
	return skilltypes.Constraints{
		MaxTokens:           viper.GetInt("constraints.max_tokens"),
		MaxExecutionSeconds: viper.GetInt("constraints.max_execution_seconds"),
		MaxSkills:           viper.GetInt("constraints.max_skills"),
	}.WithDefaults()
}

// Initialize loads the configured catalog and returns a registry over it.
// m may be nil. A catalog that fails to load is replaced by the built-in
// defaults and logged; it never stops initialization.
func Initialize(ctx context.Context, m *metrics.Metrics) *Registry {
	source := SourceFromConfig()
	logger.G(ctx).WithField(logger.FieldCatalogSource, source.Name()).Debug("loading skill catalog")

	var storeOpts []catalog.StoreOption
	opts := []Option{WithDefaultConstraints(ConstraintsFromConfig())}
	if m != nil {
		storeOpts = append(storeOpts, catalog.WithReloadHook(m.ReloadHook()))
		opts = append(opts, WithMetrics(m))
	}

	store := catalog.NewStore(ctx, source, storeOpts...)
	return NewRegistry(store, opts...)
}
