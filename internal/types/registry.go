package types

import (
	"fmt"

	"github.com/born-ml/torchload/internal/value"
)

// Registry is an in-memory Loader: classes registered up front by name.
// It is how Go callers describe the types a container may reference when
// no source importer is in play.
type Registry struct {
	classes map[string]*value.Class
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*value.Class)}
}

// Register adds a class under its qualified name. Registering the same
// name twice replaces the earlier class.
func (r *Registry) Register(cls *value.Class) {
	r.classes[cls.Name] = cls
}

// Load implements Loader.
func (r *Registry) Load(qualifiedName string) (*value.Class, error) {
	cls, ok := r.classes[qualifiedName]
	if !ok {
		return nil, fmt.Errorf("type %q is not registered", qualifiedName)
	}
	return cls, nil
}
