package build

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds the backends a build can run on.
type Registry struct {
	backends []BackendRegistration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds backend. Higher priorities sort first; equal priorities keep
// registration order.
func (r *Registry) Register(backend Backend, priority BackendPriority) {
	r.backends = append(r.backends, BackendRegistration{Backend: backend, Priority: priority})
	sort.SliceStable(r.backends, func(i, j int) bool {
		return r.backends[i].Priority > r.backends[j].Priority
	})
}

// List returns the registrations, highest priority first.
func (r *Registry) List() []BackendRegistration {
	return append([]BackendRegistration(nil), r.backends...)
}

// Names returns the registered backend names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for _, reg := range r.backends {
		names = append(names, reg.Backend.Name())
	}
	return names
}

// GetByName looks a backend up by name, as selected by build.backend.
func (r *Registry) GetByName(name string) (Backend, error) {
	for _, reg := range r.backends {
		if reg.Backend.Name() == name {
			return reg.Backend, nil
		}
	}
	return nil, fmt.Errorf("backend not found: %s (registered: %s)", name, strings.Join(r.Names(), ", "))
}

// Preferred returns the highest-priority backend.
func (r *Registry) Preferred() (Backend, error) {
	if len(r.backends) == 0 {
		return nil, fmt.Errorf("no build backends registered")
	}
	return r.backends[0].Backend, nil
}
