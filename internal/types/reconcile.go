package types

import (
	"fmt"

	"github.com/born-ml/torchload/internal/value"
)

// Reconcile narrows the container type tags of a generically decoded value
// to match a declared type. Decoding without static context leaves lists
// and dicts tagged List[Any] and Dict[Any, Any]; code with a declared
// parameter type may inspect those tags, so they are re-derived from the
// declaration before that code runs.
//
// The walk is one-directional: it only replaces imprecise tags with the
// declared type, and fails when the recorded value's shape (kind, tuple
// arity, class) is structurally incompatible with the declaration.
func Reconcile(v value.Value, t *value.Type) error {
	return reconcile(v, t, "")
}

func reconcile(v value.Value, t *value.Type, context string) error {
	if t == nil || t.Kind == value.AnyType {
		return nil
	}
	switch t.Kind {
	case value.NoneType:
		if !v.IsNone() {
			return mismatch(v, t, context)
		}
	case value.OptionalType:
		if v.IsNone() {
			return nil
		}
		return reconcile(v, t.Elem, context)
	case value.BoolType:
		if v.Kind() != value.KindBool {
			return mismatch(v, t, context)
		}
	case value.IntType:
		if v.Kind() != value.KindInt {
			return mismatch(v, t, context)
		}
	case value.FloatType:
		if v.Kind() != value.KindFloat {
			return mismatch(v, t, context)
		}
	case value.StringType:
		if v.Kind() != value.KindString {
			return mismatch(v, t, context)
		}
	case value.TensorType:
		if v.Kind() != value.KindTensor {
			return mismatch(v, t, context)
		}
	case value.ClassType:
		if v.Kind() != value.KindObject || v.Object().Class() != t.Class {
			return mismatch(v, t, context)
		}
	case value.ListType:
		if v.Kind() != value.KindList {
			return mismatch(v, t, context)
		}
		for _, e := range v.List().Elems {
			if err := reconcile(e, t.Elem, context); err != nil {
				return err
			}
		}
		v.List().Elem = t.Elem
	case value.TupleType:
		if v.Kind() != value.KindTuple {
			return mismatch(v, t, context)
		}
		elems := v.List().Elems
		if len(elems) != len(t.Elems) {
			return &TypeReconciliationError{
				Want:    t.String(),
				Got:     fmt.Sprintf("tuple of %d elements", len(elems)),
				Context: context,
			}
		}
		for i, e := range elems {
			if err := reconcile(e, t.Elems[i], context); err != nil {
				return err
			}
		}
	case value.DictType:
		if v.Kind() != value.KindDict {
			return mismatch(v, t, context)
		}
		for _, entry := range v.Dict().Entries {
			if err := reconcile(entry.Key, t.Key, context); err != nil {
				return err
			}
			if err := reconcile(entry.Val, t.Val, context); err != nil {
				return err
			}
		}
		v.Dict().Key = t.Key
		v.Dict().Val = t.Val
	default:
		return mismatch(v, t, context)
	}
	return nil
}

func mismatch(v value.Value, t *value.Type, context string) error {
	return &TypeReconciliationError{
		Want:    t.String(),
		Got:     v.Kind().String(),
		Context: context,
	}
}
