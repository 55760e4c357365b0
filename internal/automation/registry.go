package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry and engines.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides scene management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache keyed by name.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by Put and Delete. All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Scene
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new scene registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Scene),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all scenes from the repository into the cache.
// Stored scenes that no longer validate are skipped.
func (r *Registry) RefreshCache(ctx context.Context) error {
	scenes, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Scene, len(scenes))
	for i := range scenes {
		s := &scenes[i]
		if err := ValidateScene(s); err != nil {
			r.logger.Warn("skipping stored scene", "name", s.Name, "error", err)
			continue
		}
		r.cache[s.Name] = s.DeepCopy()
	}

	r.logger.Info("scene cache refreshed", "count", len(r.cache))
	return nil
}

// Get retrieves a scene by name.
// The returned scene is a deep copy; callers can safely modify it.
func (r *Registry) Get(name string) (*Scene, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[name]
	r.cacheMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSceneNotFound, name)
	}
	return cached.DeepCopy(), nil
}

// List returns deep copies of all scenes sorted by name.
func (r *Registry) List() []Scene {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	scenes := make([]Scene, 0, len(r.cache))
	for _, s := range r.cache {
		scenes = append(scenes, *s.DeepCopy())
	}
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].Name < scenes[j].Name
	})
	return scenes
}

// Put validates, persists and caches a scene, replacing any scene with the
// same name.
func (r *Registry) Put(ctx context.Context, scene *Scene) error {
	if err := ValidateScene(scene); err != nil {
		return err
	}
	if err := r.repo.Save(ctx, scene); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[scene.Name] = scene.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("scene saved", "name", scene.Name, "actions", len(scene.Actions))
	return nil
}

// Delete removes a scene from persistence and cache.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.cacheMu.RLock()
	_, ok := r.cache[name]
	r.cacheMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrSceneNotFound, name)
	}

	if err := r.repo.Delete(ctx, name); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, name)
	r.cacheMu.Unlock()

	r.logger.Info("scene deleted", "name", name)
	return nil
}

// Count returns the number of cached scenes.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
