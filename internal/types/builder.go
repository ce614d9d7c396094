package types

import (
	"fmt"

	"github.com/born-ml/torchload/internal/value"
)

// Builder materializes object instances during decoding. Allocation and
// restoration are separate steps: the interpreter registers the empty
// instance in its backreference table between the two, which is what lets
// an instance's recorded state refer back to the instance itself.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// New allocates an instance of cls with every slot empty.
func (b *Builder) New(cls *value.Class) (*value.Object, error) {
	return value.NewObject(cls), nil
}

// Restore populates obj from its recorded state, selecting the strategy by
// the class's restoration capability.
//
// Custom path: the state's container tags are narrowed to the method's
// declared parameter type, the method runs with class specialization
// suppressed, and the validator then checks every non-optional slot.
//
// Default path: the state must be a mapping from attribute name to value;
// each declared attribute is assigned from it in declaration order.
func (b *Builder) Restore(obj *value.Object, state value.Value) error {
	cls := obj.Class()
	if cls.HasSetState() {
		return b.restoreSetState(obj, state)
	}
	return b.restoreAttributes(obj, state)
}

func (b *Builder) restoreSetState(obj *value.Object, state value.Value) error {
	cls := obj.Class()

	// The instance is visible but only partially initialized until
	// __setstate__ returns; specialization must not observe it. Released
	// by defer so a failing method cannot leak the suppressed state.
	release := suppressSpecialization()
	defer release()

	if err := reconcile(state, cls.StateType, cls.Name+".__setstate__"); err != nil {
		return err
	}
	if err := cls.SetState(obj, state); err != nil {
		return fmt.Errorf("%s.__setstate__: %w", cls.Name, err)
	}
	return Validate(obj)
}

func (b *Builder) restoreAttributes(obj *value.Object, state value.Value) error {
	cls := obj.Class()
	if state.Kind() != value.KindDict {
		return &TypeReconciliationError{
			Want:    "Dict[str, Any]",
			Got:     state.Kind().String(),
			Context: cls.Name,
		}
	}
	dict := state.Dict()
	for i, attr := range cls.Attributes {
		v, ok := dict.GetString(attr.Name)
		if !ok {
			return &MissingAttributeError{Attribute: attr.Name, Class: cls.Name}
		}
		obj.SetSlot(i, v)
	}
	return nil
}
