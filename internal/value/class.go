package value

// Attribute is one declared attribute of a class: its name and static
// type, in declaration order.
type Attribute struct {
	Name string
	Type *Type
}

// SetStateFunc is a custom restoration method: it populates an instance's
// slots from the recorded state value. It may set slots in any order and
// may leave optional ones unset.
type SetStateFunc func(obj *Object, state Value) error

// GetStateFunc is the serialization-side counterpart: it derives the state
// value recorded for an instance.
type GetStateFunc func(obj *Object) (Value, error)

// Class is a resolved type descriptor: a qualified name, the ordered
// attribute schema, and the optional custom restoration pair. Resolution
// caches classes per session, so descriptor identity is meaningful and two
// resolutions of one name yield the same *Class.
type Class struct {
	Name       string
	Attributes []Attribute

	// SetState, when non-nil, selects the custom restoration strategy.
	// StateType is its declared state parameter type, used to narrow the
	// recorded value's container tags before the call.
	SetState  SetStateFunc
	StateType *Type

	// GetState, when non-nil, overrides the default attribute-dict state
	// derivation on the write path.
	GetState GetStateFunc
}

// HasSetState reports whether the class restores through a custom method.
func (c *Class) HasSetState() bool {
	return c.SetState != nil
}

// AttributeIndex returns the slot index of the named attribute, or -1.
func (c *Class) AttributeIndex(name string) int {
	for i := range c.Attributes {
		if c.Attributes[i].Name == name {
			return i
		}
	}
	return -1
}

// Object is an instance of a class: one slot per declared attribute, in
// declaration order. A freshly allocated instance has every slot None.
type Object struct {
	class *Class
	slots []Value
}

// NewObject allocates an instance of c with all slots None.
func NewObject(c *Class) *Object {
	slots := make([]Value, len(c.Attributes))
	for i := range slots {
		slots[i] = None()
	}
	return &Object{class: c, slots: slots}
}

// Class returns the instance's class.
func (o *Object) Class() *Class {
	return o.class
}

// NumSlots returns the number of attribute slots.
func (o *Object) NumSlots() int {
	return len(o.slots)
}

// Slot returns the value in slot i.
func (o *Object) Slot(i int) Value {
	return o.slots[i]
}

// SetSlot stores v in slot i.
func (o *Object) SetSlot(i int, v Value) {
	o.slots[i] = v
}

// Attr returns the value of the named attribute.
func (o *Object) Attr(name string) (Value, bool) {
	i := o.class.AttributeIndex(name)
	if i < 0 {
		return Value{}, false
	}
	return o.slots[i], true
}

// SetAttr stores v in the named attribute's slot.
func (o *Object) SetAttr(name string, v Value) bool {
	i := o.class.AttributeIndex(name)
	if i < 0 {
		return false
	}
	o.slots[i] = v
	return true
}
