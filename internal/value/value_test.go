package value

import "testing"

func TestDictPreservesInsertionOrder(t *testing.T) {
	d := NewDict()
	d.SetString("b", Int(2))
	d.SetString("a", Int(1))
	d.SetString("c", Int(3))
	d.SetString("a", Int(10)) // replace keeps position

	wantKeys := []string{"b", "a", "c"}
	if d.Len() != len(wantKeys) {
		t.Fatalf("Len = %d, want %d", d.Len(), len(wantKeys))
	}
	for i, k := range wantKeys {
		if got := d.Entries[i].Key.Str(); got != k {
			t.Errorf("key %d = %q, want %q", i, got, k)
		}
	}
	if v, _ := d.GetString("a"); v.Int() != 10 {
		t.Errorf("a = %s, want 10", v)
	}
}

func TestZeroValueIsNone(t *testing.T) {
	var v Value
	if !v.IsNone() {
		t.Error("zero Value should be None")
	}
}

func TestObjectSlots(t *testing.T) {
	cls := &Class{
		Name: "__torch__.M",
		Attributes: []Attribute{
			{Name: "x", Type: IntT},
			{Name: "y", Type: OptionalOf(IntT)},
		},
	}
	obj := NewObject(cls)

	if obj.NumSlots() != 2 {
		t.Fatalf("NumSlots = %d, want 2", obj.NumSlots())
	}
	for i := 0; i < obj.NumSlots(); i++ {
		if !obj.Slot(i).IsNone() {
			t.Errorf("slot %d not None after allocation", i)
		}
	}

	if !obj.SetAttr("x", Int(5)) {
		t.Fatal("SetAttr(x) failed")
	}
	if v, ok := obj.Attr("x"); !ok || v.Int() != 5 {
		t.Errorf("x = %v, %v", v, ok)
	}
	if _, ok := obj.Attr("z"); ok {
		t.Error("Attr(z) should not resolve")
	}
}

func TestEqualStructural(t *testing.T) {
	a := Tuple(Int(1), Str("x"), FromList(NewList(Float(0.5))))
	b := Tuple(Int(1), Str("x"), FromList(NewList(Float(0.5))))
	if !a.Equal(b) {
		t.Error("structurally equal tuples compare unequal")
	}
	c := Tuple(Int(1), Str("x"), FromList(NewList(Float(0.25))))
	if a.Equal(c) {
		t.Error("different tuples compare equal")
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		t    *Type
		want string
	}{
		{t: IntT, want: "int"},
		{t: OptionalOf(TensorT), want: "Optional[Tensor]"},
		{t: ListOf(IntT), want: "List[int]"},
		{t: DictOf(StringT, Any), want: "Dict[str, Any]"},
		{t: TupleOf(IntT, FloatT), want: "Tuple[int, float]"},
		{t: nil, want: "Any"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestIsOptional(t *testing.T) {
	if IntT.IsOptional() {
		t.Error("int should not be optional")
	}
	if !OptionalOf(IntT).IsOptional() {
		t.Error("Optional[int] should be optional")
	}
	if !Any.IsOptional() {
		t.Error("Any admits None")
	}
}
