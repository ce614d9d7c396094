package pickle

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/born-ml/torchload/internal/tensor"
	"github.com/born-ml/torchload/internal/types"
	"github.com/born-ml/torchload/internal/value"
)

// roundTrip encodes v with a Pickler and decodes it again, serving any
// referenced storages back to the unpickler.
func roundTrip(t *testing.T, v value.Value, loader types.Loader) value.Value {
	t.Helper()

	p := NewPickler()
	data, err := p.Dump(v)
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	records := make(map[string][]byte)
	for _, st := range p.Storages() {
		records[p.StorageKey(st)] = st.Data
	}

	if loader == nil {
		loader = types.LoaderFunc(func(name string) (*value.Class, error) {
			return nil, fmt.Errorf("unexpected type %q", name)
		})
	}
	u := NewUnpickler(bytes.NewReader(data), Config{
		Archive:  "data",
		Resolver: types.NewResolver(loader),
		Builder:  types.NewBuilder(),
		ReadRecord: func(key string) ([]byte, error) {
			rec, ok := records[key]
			if !ok {
				return nil, fmt.Errorf("no storage record %q", key)
			}
			return rec, nil
		},
	})
	out, err := u.Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return out
}

func TestRoundTripPrimitives(t *testing.T) {
	tests := []struct {
		name string
		v    value.Value
	}{
		{name: "none", v: value.None()},
		{name: "true", v: value.Bool(true)},
		{name: "false", v: value.Bool(false)},
		{name: "small int", v: value.Int(7)},
		{name: "two byte int", v: value.Int(300)},
		{name: "four byte int", v: value.Int(70000)},
		{name: "negative int", v: value.Int(-42)},
		{name: "big int", v: value.Int(1 << 40)},
		{name: "big negative int", v: value.Int(-(1 << 40))},
		{name: "float", v: value.Float(3.25)},
		{name: "string", v: value.Str("hello")},
		{name: "unicode string", v: value.Str("héllo wörld")},
		{name: "empty string", v: value.Str("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.v, nil)
			if !got.Equal(tt.v) {
				t.Errorf("round trip = %s, want %s", got, tt.v)
			}
		})
	}
}

func TestRoundTripContainers(t *testing.T) {
	v := value.FromDict(func() *value.Dict {
		d := value.NewDict()
		d.SetString("weights", value.FromList(value.NewList(
			value.Float(0.5), value.Float(-0.5),
		)))
		d.SetString("shape", value.Tuple(value.Int(2), value.Int(3)))
		d.SetString("name", value.Str("layer1"))
		d.SetString("frozen", value.Bool(false))
		d.Set(value.Int(4), value.None())
		return d
	}())

	got := roundTrip(t, v, nil)
	if !got.Equal(v) {
		t.Errorf("round trip = %s, want %s", got, v)
	}

	// Insertion order survives.
	first := got.Dict().Entries[0].Key
	if first.Kind() != value.KindString || first.Str() != "weights" {
		t.Errorf("first key = %s, want \"weights\"", first)
	}
}

func TestSharedReferenceIdentity(t *testing.T) {
	shared := value.NewList(value.Int(1), value.Int(2))
	v := value.Tuple(value.FromList(shared), value.FromList(shared))

	got := roundTrip(t, v, nil)
	elems := got.List().Elems
	if elems[0].List() != elems[1].List() {
		t.Error("shared list decoded as two instances")
	}
}

func TestSelfReferentialList(t *testing.T) {
	l := value.NewList(value.Int(1))
	l.Elems = append(l.Elems, value.FromList(l))

	got := roundTrip(t, value.FromList(l), nil)
	gl := got.List()
	if gl.Len() != 2 {
		t.Fatalf("len = %d, want 2", gl.Len())
	}
	if gl.Elems[1].List() != gl {
		t.Error("self-reference not preserved")
	}
}

func newPointClass() *value.Class {
	return &value.Class{
		Name: "__torch__.Point",
		Attributes: []value.Attribute{
			{Name: "x", Type: value.IntT},
			{Name: "y", Type: value.IntT},
		},
	}
}

func TestObjectRoundTrip(t *testing.T) {
	cls := newPointClass()
	obj := value.NewObject(cls)
	obj.SetAttr("x", value.Int(3))
	obj.SetAttr("y", value.Int(4))

	reg := types.NewRegistry()
	reg.Register(cls)

	got := roundTrip(t, value.FromObject(obj), reg)
	if got.Kind() != value.KindObject {
		t.Fatalf("kind = %s, want object", got.Kind())
	}
	x, _ := got.Object().Attr("x")
	y, _ := got.Object().Attr("y")
	if x.Int() != 3 || y.Int() != 4 {
		t.Errorf("point = (%s, %s), want (3, 4)", x, y)
	}
}

func TestSelfReferentialObject(t *testing.T) {
	cls := &value.Class{
		Name: "__torch__.Node",
		Attributes: []value.Attribute{
			{Name: "label", Type: value.StringT},
			{Name: "next", Type: value.Any},
		},
	}
	obj := value.NewObject(cls)
	obj.SetAttr("label", value.Str("root"))
	obj.SetAttr("next", value.FromObject(obj))

	reg := types.NewRegistry()
	reg.Register(cls)

	got := roundTrip(t, value.FromObject(obj), reg)
	next, _ := got.Object().Attr("next")
	if next.Kind() != value.KindObject || next.Object() != got.Object() {
		t.Error("self-referential object not preserved")
	}
}

func TestTensorRoundTrip(t *testing.T) {
	st := &tensor.Storage{
		Key:   "0",
		DType: tensor.Float32,
		NumEl: 4,
		Data:  []byte{0, 0, 128, 63, 0, 0, 0, 64, 0, 0, 64, 64, 0, 0, 128, 64}, // 1,2,3,4
	}
	raw, err := tensor.Materialize(st, 0, tensor.Shape{2, 2}, nil, nil)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	got := roundTrip(t, value.FromTensor(raw), nil)
	if got.Kind() != value.KindTensor {
		t.Fatalf("kind = %s, want Tensor", got.Kind())
	}
	gt := got.Tensor()
	if !gt.Shape().Equal(tensor.Shape{2, 2}) {
		t.Errorf("shape = %v", gt.Shape())
	}
	if f := gt.AsFloat32(); f[0] != 1 || f[3] != 4 {
		t.Errorf("data = %v", f)
	}
}

func TestTensorsShareStorage(t *testing.T) {
	st := &tensor.Storage{
		Key:   "0",
		DType: tensor.Float32,
		NumEl: 4,
		Data:  make([]byte, 16),
	}
	a, _ := tensor.Materialize(st, 0, tensor.Shape{2}, nil, nil)
	b, _ := tensor.Materialize(st, 2, tensor.Shape{2}, nil, nil)

	got := roundTrip(t, value.Tuple(value.FromTensor(a), value.FromTensor(b)), nil)
	elems := got.List().Elems
	if elems[0].Tensor().Storage() != elems[1].Tensor().Storage() {
		t.Error("storage decoded twice for two views")
	}
	if elems[1].Tensor().Offset() != 2 {
		t.Errorf("offset = %d, want 2", elems[1].Tensor().Offset())
	}
}

func parseBytes(t *testing.T, stream []byte) (value.Value, error) {
	t.Helper()
	u := NewUnpickler(bytes.NewReader(stream), Config{
		Archive: "data",
		Resolver: types.NewResolver(types.LoaderFunc(func(name string) (*value.Class, error) {
			return nil, fmt.Errorf("unexpected type %q", name)
		})),
		Builder: types.NewBuilder(),
		ReadRecord: func(key string) ([]byte, error) {
			return nil, fmt.Errorf("no records")
		},
	})
	return u.Parse()
}

func TestMalformedStreams(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
	}{
		{name: "unknown opcode", stream: []byte{opProto, 2, 0xff, opStop}},
		{name: "undefined backreference", stream: []byte{opProto, 2, opBinGet, 0, opStop}},
		{name: "out of order memo id", stream: []byte{opProto, 2, opNone, opBinPut, 5, opStop}},
		{name: "stack underflow on reduce", stream: []byte{opProto, 2, opReduce, opStop}},
		{name: "appends without mark", stream: []byte{opProto, 2, opEmptyList, opAppends, opStop}},
		{name: "empty stream", stream: []byte{}},
		{name: "truncated string", stream: []byte{opProto, 2, opBinUnicode, 10, 0, 0, 0, 'a'}},
		{name: "stop on empty stack", stream: []byte{opProto, 2, opStop}},
		{name: "build on non-object", stream: []byte{opProto, 2, opNone, opNone, opBuild, opStop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseBytes(t, tt.stream)
			var malformed *MalformedArchiveError
			if !errors.As(err, &malformed) {
				t.Fatalf("error = %v, want MalformedArchiveError", err)
			}
			if malformed.Archive != "data" {
				t.Errorf("Archive = %q, want %q", malformed.Archive, "data")
			}
			if malformed.Offset < 0 {
				t.Errorf("Offset = %d, want stream position", malformed.Offset)
			}
		})
	}
}

func TestDecodeHandWrittenStream(t *testing.T) {
	// (1, "two") written out by hand: the encoding is fixed, not an
	// artifact of our Pickler.
	stream := []byte{
		opProto, 2,
		opBinInt1, 1,
		opBinUnicode, 3, 0, 0, 0, 't', 'w', 'o',
		opTuple2,
		opStop,
	}
	got, err := parseBytes(t, stream)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := value.Tuple(value.Int(1), value.Str("two"))
	if !got.Equal(want) {
		t.Errorf("decoded %s, want %s", got, want)
	}
}

func TestResolverInvokedOncePerName(t *testing.T) {
	cls := newPointClass()
	loads := 0
	loader := types.LoaderFunc(func(name string) (*value.Class, error) {
		loads++
		return cls, nil
	})

	obj1 := value.NewObject(cls)
	obj1.SetAttr("x", value.Int(1))
	obj1.SetAttr("y", value.Int(2))
	obj2 := value.NewObject(cls)
	obj2.SetAttr("x", value.Int(3))
	obj2.SetAttr("y", value.Int(4))

	got := roundTrip(t, value.Tuple(value.FromObject(obj1), value.FromObject(obj2)), loader)
	if loads != 1 {
		t.Errorf("loader invoked %d times, want 1", loads)
	}
	elems := got.List().Elems
	if elems[0].Object().Class() != elems[1].Object().Class() {
		t.Error("two instances of one type should share the descriptor")
	}
}
