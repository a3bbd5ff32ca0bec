package transport

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
)

// aliases maps alternative PubSubSystem spellings onto registered names.
var aliases = map[string]string{
	"gochannel": "channel",
	"amqp":      "rabbitmq",
}

// CanonicalName lower-cases name and resolves aliases.
func CanonicalName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[name]; ok {
		return alias
	}
	return name
}

type entry struct {
	build Builder
	caps  Capabilities
}

// Registry maps PubSubSystem names to transport builders. Transport packages
// add themselves from init through Register.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// DefaultRegistry is the registry the package-level helpers use.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register installs builder under name, replacing any earlier registration.
// caps.Name is filled in when left empty.
func (r *Registry) Register(name string, builder Builder, caps Capabilities) {
	name = CanonicalName(name)
	if caps.Name == "" {
		caps.Name = name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry{build: builder, caps: caps}
}

// GetCapabilities returns a zero Capabilities named after the transport when
// it is unknown.
func (r *Registry) GetCapabilities(name string) Capabilities {
	name = CanonicalName(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok {
		return e.caps
	}
	return Capabilities{Name: name}
}

// Build creates the transport selected by cfg.GetPubSubSystem().
func (r *Registry) Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	if cfg == nil {
		return Transport{}, fmt.Errorf("phaseflow: transport config is required")
	}

	name := CanonicalName(cfg.GetPubSubSystem())

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return Transport{}, fmt.Errorf("phaseflow: unknown transport %q (registered: %v)", name, r.Names())
	}
	return e.build(ctx, cfg, logger)
}

// Names returns the registered transport names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register adds a transport to the default registry.
func Register(name string, builder Builder, caps Capabilities) {
	DefaultRegistry.Register(name, builder, caps)
}

// Build creates a transport using the default registry.
func Build(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error) {
	return DefaultRegistry.Build(ctx, cfg, logger)
}
