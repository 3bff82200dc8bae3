package agent

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages agents by name.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		agents: make(map[string]Agent),
		logger: logger,
	}
}

// Register adds a. Registering a second agent under the same name is an error.
func (r *Registry) Register(a Agent) error {
	if a == nil {
		return fmt.Errorf("cannot register nil agent")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.Name()]; exists {
		return fmt.Errorf("agent %q already registered", a.Name())
	}
	r.agents[a.Name()] = a
	r.logger.Info("agent registered", zap.String("name", a.Name()))
	return nil
}

// Unregister removes the agent with the given name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.agents, name)
	r.logger.Info("agent unregistered", zap.String("name", name))
}

// Get looks up an agent by name.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	return a, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
