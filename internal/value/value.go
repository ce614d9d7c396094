// Package value defines the closed variant type produced by decoding a
// container's instruction stream, together with the class descriptors and
// object instances that typed values reference.
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/torchload/internal/tensor"
)

// Kind discriminates the variants of a Value.
type Kind int

// Value kinds. Storage, Class and Builtin are interpreter-internal: they
// appear on the decoding stack while a tensor or object is being built and
// never inside a fully decoded graph.
const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindTuple
	KindDict
	KindTensor
	KindObject
	KindStorage
	KindClass
	KindBuiltin
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "str"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindDict:
		return "dict"
	case KindTensor:
		return "Tensor"
	case KindObject:
		return "object"
	case KindStorage:
		return "storage"
	case KindClass:
		return "class"
	case KindBuiltin:
		return "builtin"
	default:
		return "invalid"
	}
}

// Value is the closed variant over everything a decoded graph can hold.
// The zero Value is None.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	f       float64
	s       string
	list    *List
	dict    *Dict
	tensor  *tensor.RawTensor
	obj     *Object
	storage *tensor.Storage
	class   *Class
}

// Constructors.

// None returns the None value.
func None() Value { return Value{kind: KindNone} }

// Bool returns a bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an int value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// FromList wraps a List.
func FromList(l *List) Value { return Value{kind: KindList, list: l} }

// FromTuple wraps a List as a tuple.
func FromTuple(l *List) Value { return Value{kind: KindTuple, list: l} }

// Tuple builds a tuple from elements.
func Tuple(elems ...Value) Value {
	return Value{kind: KindTuple, list: &List{Elems: elems}}
}

// FromDict wraps a Dict.
func FromDict(d *Dict) Value { return Value{kind: KindDict, dict: d} }

// FromTensor wraps a tensor.
func FromTensor(t *tensor.RawTensor) Value { return Value{kind: KindTensor, tensor: t} }

// FromObject wraps an object instance.
func FromObject(o *Object) Value { return Value{kind: KindObject, obj: o} }

// FromStorage wraps a storage reference (interpreter-internal).
func FromStorage(s *tensor.Storage) Value { return Value{kind: KindStorage, storage: s} }

// FromClass wraps a resolved class (interpreter-internal).
func FromClass(c *Class) Value { return Value{kind: KindClass, class: c} }

// Builtin names a well-known callable (interpreter-internal).
func Builtin(name string) Value { return Value{kind: KindBuiltin, s: name} }

// Accessors. Each panics when called on the wrong kind; callers check
// Kind first, the way decoded values are always consumed.

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether the value is None.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Bool returns the bool payload.
func (v Value) Bool() bool { v.check(KindBool); return v.b }

// Int returns the int payload.
func (v Value) Int() int64 { v.check(KindInt); return v.i }

// Float returns the float payload.
func (v Value) Float() float64 { v.check(KindFloat); return v.f }

// Str returns the string payload.
func (v Value) Str() string { v.check(KindString); return v.s }

// List returns the list payload.
func (v Value) List() *List {
	if v.kind != KindList && v.kind != KindTuple {
		panic(fmt.Sprintf("value: %s is not a list or tuple", v.kind))
	}
	return v.list
}

// Dict returns the dict payload.
func (v Value) Dict() *Dict { v.check(KindDict); return v.dict }

// Tensor returns the tensor payload.
func (v Value) Tensor() *tensor.RawTensor { v.check(KindTensor); return v.tensor }

// Object returns the object payload.
func (v Value) Object() *Object { v.check(KindObject); return v.obj }

// Storage returns the storage payload.
func (v Value) Storage() *tensor.Storage { v.check(KindStorage); return v.storage }

// Class returns the class payload.
func (v Value) Class() *Class { v.check(KindClass); return v.class }

// BuiltinName returns the builtin's name.
func (v Value) BuiltinName() string { v.check(KindBuiltin); return v.s }

func (v Value) check(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: %s is not a %s", v.kind, k))
	}
}

// List is an ordered sequence of values, shared by the list and tuple
// kinds. Elem carries the element type tag, which decoding leaves as Any
// until reconciliation narrows it.
type List struct {
	Elems []Value
	Elem  *Type
}

// NewList builds a list from elements.
func NewList(elems ...Value) *List {
	return &List{Elems: elems}
}

// Len returns the number of elements.
func (l *List) Len() int { return len(l.Elems) }

// Dict is an ordered mapping with unique keys. Iteration follows insertion
// order. Key and Val carry type tags, Any until narrowed.
type Dict struct {
	Entries []DictEntry
	Key     *Type
	Val     *Type
}

// DictEntry is one key/value pair.
type DictEntry struct {
	Key Value
	Val Value
}

// NewDict returns an empty dict.
func NewDict() *Dict {
	return &Dict{}
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.Entries) }

// Set inserts or replaces the entry for key.
func (d *Dict) Set(key, val Value) {
	for i := range d.Entries {
		if d.Entries[i].Key.Equal(key) {
			d.Entries[i].Val = val
			return
		}
	}
	d.Entries = append(d.Entries, DictEntry{Key: key, Val: val})
}

// Get returns the value for key.
func (d *Dict) Get(key Value) (Value, bool) {
	for i := range d.Entries {
		if d.Entries[i].Key.Equal(key) {
			return d.Entries[i].Val, true
		}
	}
	return Value{}, false
}

// GetString returns the value for a string key.
func (d *Dict) GetString(key string) (Value, bool) {
	return d.Get(Str(key))
}

// SetString inserts or replaces the entry for a string key.
func (d *Dict) SetString(key string, val Value) {
	d.Set(Str(key), val)
}

// Equal reports structural equality. Objects compare by identity, tensors
// by metadata and content. Not safe on cyclic graphs.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString, KindBuiltin:
		return v.s == o.s
	case KindList, KindTuple:
		if len(v.list.Elems) != len(o.list.Elems) {
			return false
		}
		for i := range v.list.Elems {
			if !v.list.Elems[i].Equal(o.list.Elems[i]) {
				return false
			}
		}
		return true
	case KindDict:
		if len(v.dict.Entries) != len(o.dict.Entries) {
			return false
		}
		for i := range v.dict.Entries {
			if !v.dict.Entries[i].Key.Equal(o.dict.Entries[i].Key) {
				return false
			}
			if !v.dict.Entries[i].Val.Equal(o.dict.Entries[i].Val) {
				return false
			}
		}
		return true
	case KindTensor:
		return v.tensor.DType() == o.tensor.DType() &&
			v.tensor.Shape().Equal(o.tensor.Shape()) &&
			string(v.tensor.Bytes()) == string(o.tensor.Bytes())
	case KindObject:
		return v.obj == o.obj
	case KindStorage:
		return v.storage == o.storage
	case KindClass:
		return v.class == o.class
	default:
		return false
	}
}

// String renders the value for error messages and debugging.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindList, KindTuple:
		open, closing := "[", "]"
		if v.kind == KindTuple {
			open, closing = "(", ")"
		}
		parts := make([]string, len(v.list.Elems))
		for i, e := range v.list.Elems {
			parts[i] = e.String()
		}
		return open + strings.Join(parts, ", ") + closing
	case KindDict:
		parts := make([]string, len(v.dict.Entries))
		for i, e := range v.dict.Entries {
			parts[i] = e.Key.String() + ": " + e.Val.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindTensor:
		return fmt.Sprintf("<Tensor %s %v>", v.tensor.DType(), v.tensor.Shape())
	case KindObject:
		return fmt.Sprintf("<%s object>", v.obj.Class().Name)
	case KindStorage:
		return fmt.Sprintf("<storage %q>", v.storage.Key)
	case KindClass:
		return fmt.Sprintf("<class %s>", v.class.Name)
	case KindBuiltin:
		return fmt.Sprintf("<builtin %s>", v.s)
	default:
		return "<invalid>"
	}
}
