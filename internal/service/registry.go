package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownEntity is returned for entity names nothing is registered under.
var ErrUnknownEntity = errors.New("invalid entity type")

// EntityConfig exposes a model under an entity name.
type EntityConfig struct {
	Name      string
	Model     string
	Blacklist []string
}

// Registry maps case-insensitive entity names to their services.
type Registry struct {
	services map[string]*EntityService
}

// NewRegistry builds a service per entity. With no entities every model of the
// schema is exposed under its lowercased name.
func NewRegistry(deps Deps, entities []EntityConfig) (*Registry, error) {
	if len(entities) == 0 {
		for _, model := range deps.Registry.ModelNames() {
			entities = append(entities, EntityConfig{Name: model, Model: model})
		}
	}

	r := &Registry{services: make(map[string]*EntityService, len(entities))}
	for _, e := range entities {
		key := strings.ToLower(e.Name)
		if _, dup := r.services[key]; dup {
			return nil, fmt.Errorf("entity %s registered twice", e.Name)
		}
		m, ok := deps.Registry.LookupModel(e.Model)
		if !ok {
			return nil, fmt.Errorf("entity %s: unknown model %s", e.Name, e.Model)
		}
		svc, err := NewEntityService(key, m.Name, e.Blacklist, deps)
		if err != nil {
			return nil, err
		}
		r.services[key] = svc
	}
	return r, nil
}

// Get returns the service registered under name, ignoring case.
func (r *Registry) Get(name string) (*EntityService, error) {
	svc, ok := r.services[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return svc, nil
}

// Names returns the registered entity names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
