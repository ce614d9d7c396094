package types

import "fmt"

// UnresolvedTypeError reports a qualified type name the loader could not
// produce a class for.
type UnresolvedTypeError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *UnresolvedTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve type %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("cannot resolve type %q", e.Name)
}

// Unwrap returns the loader's underlying error.
func (e *UnresolvedTypeError) Unwrap() error {
	return e.Err
}

// TypeReconciliationError reports a recorded value whose shape is
// structurally incompatible with a declared type.
type TypeReconciliationError struct {
	Want    string // declared type
	Got     string // recorded value's kind or shape
	Context string // what was being reconciled, e.g. a class name
}

// Error implements the error interface.
func (e *TypeReconciliationError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: recorded value %s does not match declared type %s", e.Context, e.Got, e.Want)
	}
	return fmt.Sprintf("recorded value %s does not match declared type %s", e.Got, e.Want)
}

// MissingAttributeError reports a state mapping that lacks a declared
// attribute on the default restoration path.
type MissingAttributeError struct {
	Attribute string
	Class     string
}

// Error implements the error interface.
func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("recorded state for %s has no entry for attribute %q", e.Class, e.Attribute)
}

// UninitializedAttributeError reports a non-optional slot left empty after
// a custom restoration method returned.
type UninitializedAttributeError struct {
	Attribute string
	Type      string
	Class     string
}

// Error implements the error interface.
func (e *UninitializedAttributeError) Error() string {
	return fmt.Sprintf("the field %q of %s was left uninitialized after __setstate__, but expected a value of type %s",
		e.Attribute, e.Class, e.Type)
}
