package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEntity is returned when registering a name twice.
	ErrDuplicateEntity = errors.New("entity already registered")
	// ErrUnknownEntity is returned when looking up an unregistered name.
	ErrUnknownEntity = errors.New("entity not registered")
)

// Registry holds the entity descriptors for one pipeline. It is constructed
// once, filled at startup and injected into the orchestrator; it is not safe
// for concurrent mutation.
type Registry struct {
	byName map[string]*Descriptor
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register adds a descriptor. The descriptor is validated first, so a badly
// constructed one fails at startup rather than mid-run.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, ok := r.byName[d.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, d.Name)
	}
	r.byName[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (registered: %v)", ErrUnknownEntity, name, r.order)
	}
	return d, nil
}

// Names returns the registered entity names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Ordered returns all descriptors topologically sorted so that every entity
// precedes the entities that declare it as parent. Entities with no
// dependency relation keep their registration order, which makes the
// pipeline's step sequence deterministic.
func (r *Registry) Ordered() ([]*Descriptor, error) {
	visited := make(map[string]bool, len(r.order))
	inStack := make(map[string]bool, len(r.order))
	out := make([]*Descriptor, 0, len(r.order))

	var visit func(name string) error
	visit = func(name string) error {
		if inStack[name] {
			return fmt.Errorf("circular entity dependency involving %s", name)
		}
		if visited[name] {
			return nil
		}
		d, ok := r.byName[name]
		if !ok {
			return fmt.Errorf("%w: %s (declared as a parent)", ErrUnknownEntity, name)
		}
		inStack[name] = true
		if d.Parent != "" && d.Parent != name {
			if err := visit(d.Parent); err != nil {
				return err
			}
		}
		inStack[name] = false
		visited[name] = true
		out = append(out, d)
		return nil
	}

	for _, name := range r.order {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}
