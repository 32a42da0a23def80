// Package skills is the entry point of the skill discovery and composition
// engine. A Registry reads the current catalog snapshot from a Store and
// runs discovery, optimization, ordering and verification over it. Every
// call works on one snapshot, so a concurrent catalog reload never mixes two
// catalogs in a single composition.
package skills

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	"github.com/jingkaihe/skillcomposer/pkg/composer"
	"github.com/jingkaihe/skillcomposer/pkg/discovery"
	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/metrics"
	"github.com/jingkaihe/skillcomposer/pkg/optimizer"
	"github.com/jingkaihe/skillcomposer/pkg/telemetry"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
	"github.com/jingkaihe/skillcomposer/pkg/verifier"
)

var tracer = telemetry.Tracer("skillcomposer.registry")

// Registry runs discovery and composition against a catalog store. It is
// safe for concurrent use.
type Registry struct {
	store    *catalog.Store
	metrics  *metrics.Metrics
	defaults skilltypes.Constraints
}

// Option configures a Registry
type Option func(*Registry)

// WithMetrics records discovery and composition metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithDefaultConstraints sets the limits used for every constraint a request
// leaves unset
func WithDefaultConstraints(c skilltypes.Constraints) Option {
	return func(r *Registry) {
		r.defaults = c.WithDefaults()
	}
}

// NewRegistry creates a registry over store. A nil store serves the
// built-in catalog.
func NewRegistry(store *catalog.Store, opts ...Option) *Registry {
	if store == nil {
		store = catalog.NewStaticStore(catalog.Defaults())
	}
	r := &Registry{
		store:    store,
		defaults: skilltypes.DefaultConstraints(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying catalog store
func (r *Registry) Store() *catalog.Store { return r.store }

// Catalog returns the current catalog snapshot
func (r *Registry) Catalog() *catalog.Catalog { return r.store.Snapshot() }

// Skill looks a skill up in the current snapshot
func (r *Registry) Skill(id string) (*skilltypes.Skill, bool) {
	return r.store.Snapshot().Get(id)
}

// ListSkills returns the skills of the current snapshot matching filter
func (r *Registry) ListSkills(filter catalog.Filter) ([]*skilltypes.Skill, error) {
	return filter.Apply(r.store.Snapshot())
}

// Prepare fills unset constraints from the registry defaults and normalizes
// the context. An unknown security level is treated as standard.
func (r *Registry) Prepare(ctx context.Context, pc skilltypes.ProjectContext) skilltypes.ProjectContext {
	if pc.Constraints.MaxTokens <= 0 {
		pc.Constraints.MaxTokens = r.defaults.MaxTokens
	}
	if pc.Constraints.MaxExecutionSeconds <= 0 {
		pc.Constraints.MaxExecutionSeconds = r.defaults.MaxExecutionSeconds
	}
	if pc.Constraints.MaxSkills <= 0 {
		pc.Constraints.MaxSkills = r.defaults.MaxSkills
	}
	if err := pc.Validate(); err != nil {
		logger.G(ctx).WithError(err).Warn("treating unknown security level as standard")
		pc.SecurityLevel = skilltypes.SecurityStandard
	}
	return pc.Normalize()
}

// Discover returns the candidate skills for the context in catalog order,
// without composing them.
func (r *Registry) Discover(ctx context.Context, pc skilltypes.ProjectContext) []*skilltypes.Skill {
	pc = r.Prepare(ctx, pc)
	return r.discover(ctx, r.store.Snapshot(), pc)
}

// Rank returns the conflict-free candidates with their relevance scores,
// highest first, before any budget is applied.
func (r *Registry) Rank(ctx context.Context, pc skilltypes.ProjectContext) []optimizer.Ranked {
	pc = r.Prepare(ctx, pc)
	candidates := r.discover(ctx, r.store.Snapshot(), pc)
	return optimizer.RankWithScores(optimizer.RemoveConflicts(candidates), pc)
}

func (r *Registry) discover(ctx context.Context, snap *catalog.Catalog, pc skilltypes.ProjectContext) []*skilltypes.Skill {
	candidates := discovery.New(snap).FindByContext(pc)
	if r.metrics != nil {
		r.metrics.ObserveDiscovery(len(candidates))
	}
	logger.G(ctx).
		WithField(logger.FieldCatalogVersion, snap.Version()).
		WithField("candidates", len(candidates)).
		Debug("discovered candidate skills")
	return candidates
}

// DiscoverAndCompose discovers, optimizes, orders and verifies a
// composition for the context. It always returns a non-empty composition
// satisfying the context's policies: when the optimized composition fails
// verification, or its dependencies form a cycle, the fallback composition
// is returned with UsedFallback set and Issues listing why.
func (r *Registry) DiscoverAndCompose(ctx context.Context, pc skilltypes.ProjectContext) *skilltypes.SkillComposition {
	start := time.Now()
	pc = r.Prepare(ctx, pc)
	snap := r.store.Snapshot()

	ctx, span := tracer.Start(ctx, "skills.discover_and_compose")
	defer span.End()
	span.SetAttributes(telemetry.ContextAttributes(pc)...)
	span.SetAttributes(attribute.Int64("catalog.version", int64(snap.Version())))

	log := logger.G(ctx).WithFields(logrus.Fields{
		logger.FieldCatalogVersion: snap.Version(),
		logger.FieldProjectType:    pc.ProjectType,
	})

	candidates := r.discover(ctx, snap, pc)

	var issues []string
	comp, err := composer.Compose(candidates, pc)
	if err != nil {
		issues = []string{err.Error()}
	} else if verr := verifier.Verify(comp, pc); verr != nil {
		issues = verifier.Issues(verr)
	}

	if len(issues) > 0 {
		log.WithField("issues", issues).Warn("skill composition failed verification, using fallback")
		telemetry.AddEvent(ctx, "composition.fallback", attribute.StringSlice("issues", issues))
		comp = verifier.Fallback(snap, pc)
		comp.Issues = append(issues, comp.Issues...)
	}

	span.SetAttributes(telemetry.CompositionAttributes(comp)...)
	if r.metrics != nil {
		r.metrics.ObserveComposition(comp, time.Since(start))
	}
	log.WithField("skills", comp.SkillIDs()).
		WithField("tokens", comp.TotalTokenBudget).
		Debug("composed skills")
	return comp
}
