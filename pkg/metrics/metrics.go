// Package metrics exposes Prometheus collectors for discovery, composition
// and catalog reloads. Collectors live on a private registry so tests and
// embedders can create as many Metrics values as they need.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

const namespace = "skillcomposer"

// Composition outcomes
const (
	OutcomeComposed = "composed"
	OutcomeFallback = "fallback"
)

// Metrics groups every collector
type Metrics struct {
	registry *prometheus.Registry

	compositions   *prometheus.CounterVec
	candidates     prometheus.Histogram
	selectedSkills *prometheus.CounterVec
	tokenBudget    prometheus.Histogram
	composeSeconds prometheus.Histogram
	catalogReloads *prometheus.CounterVec
	catalogSkills  prometheus.Gauge
	catalogVersion prometheus.Gauge
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		compositions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compositions_total",
			Help:      "Compositions produced, by outcome.",
		}, []string{"outcome"}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_candidates",
			Help:      "Candidate skills found per discovery.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		}),
		selectedSkills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selected_skills_total",
			Help:      "Skills selected into compositions, by skill id.",
		}, []string{"skill_id"}),
		tokenBudget: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "composition_token_budget",
			Help:      "Total token budget per composition.",
			Buckets:   prometheus.ExponentialBuckets(250, 2, 8),
		}),
		composeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compose_duration_seconds",
			Help:      "Time spent in discover and compose.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		catalogReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Catalog load attempts, by result.",
		}, []string{"result"}),
		catalogSkills: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_skills",
			Help:      "Skills in the installed catalog snapshot.",
		}),
		catalogVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_version",
			Help:      "Generation of the installed catalog snapshot.",
		}),
	}

	m.registry.MustRegister(
		m.compositions,
		m.candidates,
		m.selectedSkills,
		m.tokenBudget,
		m.composeSeconds,
		m.catalogReloads,
		m.catalogSkills,
		m.catalogVersion,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDiscovery records the size of a candidate set
func (m *Metrics) ObserveDiscovery(candidates int) {
	m.candidates.Observe(float64(candidates))
}

// ObserveComposition records a finished composition and how long it took
func (m *Metrics) ObserveComposition(comp *skilltypes.SkillComposition, elapsed time.Duration) {
	outcome := OutcomeComposed
	if comp.UsedFallback {
		outcome = OutcomeFallback
	}
	m.compositions.WithLabelValues(outcome).Inc()
	for _, s := range comp.Skills {
		m.selectedSkills.WithLabelValues(s.ID).Inc()
	}
	m.tokenBudget.Observe(float64(comp.TotalTokenBudget))
	m.composeSeconds.Observe(elapsed.Seconds())
}

// ReloadHook returns a catalog.ReloadHook that tracks reload results and the
// installed snapshot
func (m *Metrics) ReloadHook() catalog.ReloadHook {
	return func(_ context.Context, installed *catalog.Catalog, err error) {
		result := "success"
		if err != nil {
			result = "failure"
		}
		m.catalogReloads.WithLabelValues(result).Inc()
		if installed != nil {
			m.catalogSkills.Set(float64(installed.Len()))
			m.catalogVersion.Set(float64(installed.Version()))
		}
	}
}
