// Package plugins binds plugin names from the project file to esbuild plugins.
package plugins

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/devconf/internal/buildconfig"
	"github.com/wolfeidau/devconf/internal/config"
)

// Factory creates a plugin from the options declared next to its name.
type Factory func(options map[string]string) (api.Plugin, error)

// Registry maps plugin names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a registry holding the built-in plugins.
func Default() *Registry {
	r := NewRegistry()
	r.Register(EnvPluginName, NewEnvPlugin)
	r.Register(AliasPluginName, NewAliasPlugin)
	r.Register(ExternalURLPluginName, NewExternalURLPlugin)
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names returns the registered plugin names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Resolve creates one plugin per declared entry, keeping their order.
func (r *Registry) Resolve(specs []config.PluginSpec) ([]api.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resolved := make([]api.Plugin, 0, len(specs))
	for i, spec := range specs {
		factory, ok := r.factories[spec.Name]
		if !ok {
			return nil, fmt.Errorf("%w: plugin %d: unknown plugin %q", buildconfig.ErrConfigurationInvalid, i, spec.Name)
		}

		plugin, err := factory(spec.Options)
		if err != nil {
			return nil, fmt.Errorf("%w: plugin %d (%s): %v", buildconfig.ErrConfigurationInvalid, i, spec.Name, err)
		}
		resolved = append(resolved, plugin)
	}

	return resolved, nil
}
