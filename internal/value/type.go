package value

import "strings"

// TypeKind discriminates declared types.
type TypeKind int

// Declared type kinds.
const (
	AnyType TypeKind = iota
	NoneType
	BoolType
	IntType
	FloatType
	StringType
	TensorType
	ListType
	TupleType
	DictType
	OptionalType
	ClassType
)

// Type is a declared type: the static types attributes and restoration
// parameters are annotated with. Container element types default to Any
// when a value is decoded without static context and are narrowed later.
type Type struct {
	Kind  TypeKind
	Elem  *Type   // ListType, OptionalType
	Key   *Type   // DictType
	Val   *Type   // DictType
	Elems []*Type // TupleType, positional
	Class *Class  // ClassType
}

// Pre-built singletons for the scalar types.
var (
	Any     = &Type{Kind: AnyType}
	NoneT   = &Type{Kind: NoneType}
	BoolT   = &Type{Kind: BoolType}
	IntT    = &Type{Kind: IntType}
	FloatT  = &Type{Kind: FloatType}
	StringT = &Type{Kind: StringType}
	TensorT = &Type{Kind: TensorType}
)

// ListOf returns a list type with the given element type.
func ListOf(elem *Type) *Type {
	return &Type{Kind: ListType, Elem: elem}
}

// TupleOf returns a tuple type with the given positional element types.
func TupleOf(elems ...*Type) *Type {
	return &Type{Kind: TupleType, Elems: elems}
}

// DictOf returns a dict type with the given key and value types.
func DictOf(key, val *Type) *Type {
	return &Type{Kind: DictType, Key: key, Val: val}
}

// OptionalOf returns an optional wrapper around t.
func OptionalOf(t *Type) *Type {
	return &Type{Kind: OptionalType, Elem: t}
}

// ClassOf returns the type of instances of c.
func ClassOf(c *Class) *Type {
	return &Type{Kind: ClassType, Class: c}
}

// IsOptional reports whether values of this type may be None.
func (t *Type) IsOptional() bool {
	return t != nil && (t.Kind == OptionalType || t.Kind == NoneType || t.Kind == AnyType)
}

// String renders the type in annotation syntax.
func (t *Type) String() string {
	if t == nil {
		return "Any"
	}
	switch t.Kind {
	case AnyType:
		return "Any"
	case NoneType:
		return "None"
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case StringType:
		return "str"
	case TensorType:
		return "Tensor"
	case ListType:
		return "List[" + t.Elem.String() + "]"
	case TupleType:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "Tuple[" + strings.Join(parts, ", ") + "]"
	case DictType:
		return "Dict[" + t.Key.String() + ", " + t.Val.String() + "]"
	case OptionalType:
		return "Optional[" + t.Elem.String() + "]"
	case ClassType:
		return t.Class.Name
	default:
		return "invalid"
	}
}
