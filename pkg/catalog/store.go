package catalog

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/jingkaihe/skillcomposer/pkg/logger"
)

// ErrCatalogUnavailable is returned when the configured source could not be
// loaded and the store substituted the built-in defaults.
var ErrCatalogUnavailable = errors.New("skill catalog unavailable")

// Source produces catalogs on demand
type Source interface {
	// Name identifies the source in logs
	Name() string
	Load(ctx context.Context) (*Catalog, error)
}

// FileSource loads a JSON or YAML catalog file
type FileSource struct {
	Path string
}

// Name implements Source
func (s FileSource) Name() string { return s.Path }

// Load implements Source
func (s FileSource) Load(_ context.Context) (*Catalog, error) {
	return LoadFile(s.Path)
}

// DirSource loads a directory of SKILL.md skill directories
type DirSource struct {
	Dir string
}

// Name implements Source
func (s DirSource) Name() string { return s.Dir }

// Load implements Source
func (s DirSource) Load(_ context.Context) (*Catalog, error) {
	return LoadDir(s.Dir)
}

// defaultsSource always yields the built-in catalog
type defaultsSource struct{}

func (defaultsSource) Name() string { return DefaultsSource }

func (defaultsSource) Load(_ context.Context) (*Catalog, error) {
	return Defaults(), nil
}

// BuiltinSource returns a source that always yields the built-in catalog
func BuiltinSource() Source { return defaultsSource{} }

// ReloadHook is called after every load attempt with the installed snapshot
// and the load error, if any.
type ReloadHook func(ctx context.Context, installed *Catalog, err error)

// Store holds the current catalog snapshot. Readers take a shared lock only
// long enough to copy the pointer; reloads build the new snapshot outside the
// lock and swap it in.
type Store struct {
	source Source
	hooks  []ReloadHook

	mu      sync.RWMutex
	current *Catalog
	version uint64
	loaded  bool // current came from source rather than the defaults

	group singleflight.Group
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithReloadHook registers a hook run after each load attempt
func WithReloadHook(h ReloadHook) StoreOption {
	return func(s *Store) {
		s.hooks = append(s.hooks, h)
	}
}

// NewStore creates a store and performs the initial load. A failing source is
// not fatal: the built-in defaults are installed and a warning is logged.
func NewStore(ctx context.Context, source Source, opts ...StoreOption) *Store {
	if source == nil {
		source = BuiltinSource()
	}
	s := &Store{source: source}
	for _, opt := range opts {
		opt(s)
	}
	_, _ = s.Reload(ctx)
	return s
}

// NewStaticStore wraps an already built catalog. Reload keeps returning it.
func NewStaticStore(c *Catalog) *Store {
	s := &Store{source: staticSource{c}}
	s.install(c, true)
	return s
}

type staticSource struct{ c *Catalog }

func (s staticSource) Name() string { return s.c.Source() }

func (s staticSource) Load(_ context.Context) (*Catalog, error) { return s.c, nil }

// Snapshot returns the current immutable catalog
func (s *Store) Snapshot() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Source returns the configured source
func (s *Store) Source() Source { return s.source }

// Reload loads the source again and installs the result. Concurrent callers
// share a single load. On failure the previous snapshot is kept if it came
// from the source, otherwise the built-in defaults are installed; the
// returned error wraps ErrCatalogUnavailable in both cases.
func (s *Store) Reload(ctx context.Context) (*Catalog, error) {
	v, err, _ := s.group.Do("reload", func() (any, error) {
		return s.reload(ctx)
	})
	c, _ := v.(*Catalog)
	return c, err
}

func (s *Store) reload(ctx context.Context) (*Catalog, error) {
	log := logger.G(ctx).WithField("source", s.source.Name())

	loaded, err := s.source.Load(ctx)
	if err == nil && loaded.Len() == 0 {
		err = errors.New("catalog contains no skills")
	}

	if err != nil {
		s.mu.RLock()
		keep := s.loaded
		s.mu.RUnlock()

		if keep {
			log.WithError(err).Warn("failed to reload skill catalog, keeping previous snapshot")
			installed := s.Snapshot()
			s.runHooks(ctx, installed, err)
			return installed, errors.Wrap(ErrCatalogUnavailable, err.Error())
		}

		if os.IsNotExist(errors.Cause(err)) {
			log.Warn("skill catalog not found, using built-in defaults")
		} else {
			log.WithError(err).Warn("failed to load skill catalog, using built-in defaults")
		}
		installed := s.install(Defaults(), false)
		s.runHooks(ctx, installed, err)
		return installed, errors.Wrap(ErrCatalogUnavailable, err.Error())
	}

	installed := s.install(loaded, true)
	log.WithField("skills", installed.Len()).
		WithField("version", installed.Version()).
		Debug("skill catalog loaded")
	s.runHooks(ctx, installed, nil)
	return installed, nil
}

func (s *Store) install(c *Catalog, fromSource bool) *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.current = c.withVersion(s.version)
	s.loaded = fromSource
	return s.current
}

func (s *Store) runHooks(ctx context.Context, c *Catalog, err error) {
	for _, h := range s.hooks {
		h(ctx, c, err)
	}
}
