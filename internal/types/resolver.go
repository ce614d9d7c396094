// Package types binds qualified type names to class descriptors and turns
// recorded state into live object instances: memoized resolution, the two
// restoration strategies, declared-type reconciliation and the
// post-restoration validator.
package types

import (
	"github.com/born-ml/torchload/internal/value"
)

// Loader produces a class descriptor for a qualified type name. It is the
// seam to whatever defines types: a source importer, a code-generated
// table, or a hand-built Registry.
type Loader interface {
	Load(qualifiedName string) (*value.Class, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(qualifiedName string) (*value.Class, error)

// Load implements Loader.
func (f LoaderFunc) Load(qualifiedName string) (*value.Class, error) {
	return f(qualifiedName)
}

// Resolver memoizes class loading for one deserialize session. The first
// resolution of a name delegates to the loader, every later one returns
// the same *Class, so descriptor identity holds for the whole session.
// A Resolver is owned by a single session and is not safe for concurrent
// use.
type Resolver struct {
	loader Loader
	cache  map[string]*value.Class
}

// NewResolver creates a resolver backed by the given loader.
func NewResolver(loader Loader) *Resolver {
	return &Resolver{
		loader: loader,
		cache:  make(map[string]*value.Class),
	}
}

// Resolve returns the class for a qualified name, loading it on first use.
func (r *Resolver) Resolve(qualifiedName string) (*value.Class, error) {
	if cls, ok := r.cache[qualifiedName]; ok {
		return cls, nil
	}
	cls, err := r.loader.Load(qualifiedName)
	if err != nil {
		return nil, &UnresolvedTypeError{Name: qualifiedName, Err: err}
	}
	if cls == nil {
		return nil, &UnresolvedTypeError{Name: qualifiedName}
	}
	r.cache[qualifiedName] = cls
	return cls, nil
}
