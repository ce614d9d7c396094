package types

import "github.com/born-ml/torchload/internal/value"

// Validate checks that every non-optional attribute slot of obj is
// populated. It runs after a custom restoration method returns, since
// that method may set slots in any order or forget some entirely.
func Validate(obj *value.Object) error {
	cls := obj.Class()
	for i, attr := range cls.Attributes {
		if attr.Type.IsOptional() {
			continue
		}
		if obj.Slot(i).IsNone() {
			return &UninitializedAttributeError{
				Attribute: attr.Name,
				Type:      attr.Type.String(),
				Class:     cls.Name,
			}
		}
	}
	return nil
}
