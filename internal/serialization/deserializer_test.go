package serialization

import (
	"bytes"
	"errors"
	"testing"

	"github.com/born-ml/torchload/internal/container"
	"github.com/born-ml/torchload/internal/pickle"
	"github.com/born-ml/torchload/internal/tensor"
	"github.com/born-ml/torchload/internal/types"
	"github.com/born-ml/torchload/internal/value"
)

func pairClass() *value.Class {
	return &value.Class{
		Name: "__torch__.Pair",
		Attributes: []value.Attribute{
			{Name: "first", Type: value.IntT},
			{Name: "second", Type: value.IntT},
		},
		SetState: func(obj *value.Object, state value.Value) error {
			elems := state.List().Elems
			obj.SetAttr("first", elems[0])
			obj.SetAttr("second", elems[1])
			return nil
		},
		StateType: value.TupleOf(value.IntT, value.IntT),
		GetState: func(obj *value.Object) (value.Value, error) {
			first, _ := obj.Attr("first")
			second, _ := obj.Attr("second")
			return value.Tuple(first, second), nil
		},
	}
}

func openContainer(t *testing.T, buf []byte) *container.Reader {
	t.Helper()
	r, err := container.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		t.Fatalf("open container: %v", err)
	}
	return r
}

func saveContainer(t *testing.T, root *value.Object, constants []*tensor.RawTensor, extra map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Save(&buf, "archive", root, constants, extra); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return buf.Bytes()
}

// End to end: empty constants, a two-attribute object restored through its
// custom method.
func TestDeserializeSetStateModule(t *testing.T) {
	cls := pairClass()
	root := value.NewObject(cls)
	root.SetAttr("first", value.Int(1))
	root.SetAttr("second", value.Int(2))

	buf := saveContainer(t, root, nil, nil)

	reg := types.NewRegistry()
	reg.Register(cls)
	m, err := NewDeserializer(openContainer(t, buf), Config{Loader: reg}).Deserialize()
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if len(m.Constants()) != 0 {
		t.Errorf("constants = %d, want 0", len(m.Constants()))
	}
	first, _ := m.Attr("first")
	second, _ := m.Attr("second")
	if first.Int() != 1 || second.Int() != 2 {
		t.Errorf("pair = (%s, %s), want (1, 2)", first, second)
	}
}

func TestDeserializeConstantsTable(t *testing.T) {
	st := &tensor.Storage{Key: "0", DType: tensor.Float32, NumEl: 2, Data: make([]byte, 8)}
	c0, _ := tensor.Materialize(st, 0, tensor.Shape{2}, nil, nil)

	cls := pairClass()
	root := value.NewObject(cls)
	root.SetAttr("first", value.Int(0))
	root.SetAttr("second", value.Int(0))

	buf := saveContainer(t, root, []*tensor.RawTensor{c0}, nil)

	reg := types.NewRegistry()
	reg.Register(cls)
	m, err := NewDeserializer(openContainer(t, buf), Config{Loader: reg}).Deserialize()
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(m.Constants()) != 1 {
		t.Fatalf("constants = %d, want 1", len(m.Constants()))
	}
	if !m.Constants()[0].Shape().Equal(tensor.Shape{2}) {
		t.Errorf("constant shape = %v", m.Constants()[0].Shape())
	}
}

func TestExtraFiles(t *testing.T) {
	cls := pairClass()
	root := value.NewObject(cls)
	root.SetAttr("first", value.Int(0))
	root.SetAttr("second", value.Int(0))

	buf := saveContainer(t, root, nil, map[string]string{"producer": "torchload-test"})

	reg := types.NewRegistry()
	reg.Register(cls)
	extra := map[string]string{
		"producer": "",        // present in the container, replaced
		"license":  "default", // absent, default kept
	}
	m, err := NewDeserializer(openContainer(t, buf), Config{Loader: reg, ExtraFiles: extra}).Deserialize()
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if got := m.ExtraFiles()["producer"]; got != "torchload-test" {
		t.Errorf("producer = %q, want %q", got, "torchload-test")
	}
	if got := m.ExtraFiles()["license"]; got != "default" {
		t.Errorf("license = %q, want the caller's default", got)
	}
}

func TestLegacyMarkerUnsupported(t *testing.T) {
	var buf bytes.Buffer
	w := container.NewWriter(&buf, "archive")
	if err := w.WriteRecord(LegacyMarker, []byte(`{"format":"legacy"}`)); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	// No constants.pkl or data.pkl: the legacy check must short-circuit
	// before any archive read is attempted.
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := NewDeserializer(openContainer(t, buf.Bytes()), Config{}).Deserialize()
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want UnsupportedFormatError", err)
	}
}

func TestLegacyMarkerDispatch(t *testing.T) {
	var buf bytes.Buffer
	w := container.NewWriter(&buf, "archive")
	if err := w.WriteRecord(LegacyMarker, []byte(`{}`)); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := NewModule(value.NewObject(&value.Class{Name: "__torch__.Legacy"}), nil, nil)
	called := false
	legacy := func(r *container.Reader, device *tensor.Device) (*Module, error) {
		called = true
		return want, nil
	}

	got, err := NewDeserializer(openContainer(t, buf.Bytes()), Config{Legacy: legacy}).Deserialize()
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !called {
		t.Error("legacy importer not invoked")
	}
	if got != want {
		t.Error("legacy importer's module not returned")
	}
}

func TestConstantsRootNotASequence(t *testing.T) {
	var buf bytes.Buffer
	w := container.NewWriter(&buf, "archive")

	p := pickle.NewPickler()
	data, err := p.Dump(value.Int(42))
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if err := w.WriteRecord("constants.pkl", data); err != nil {
		t.Fatalf("write constants: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = NewDeserializer(openContainer(t, buf.Bytes()), Config{}).Deserialize()
	var malformed *pickle.MalformedArchiveError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedArchiveError", err)
	}
	if malformed.Archive != "constants" {
		t.Errorf("Archive = %q, want constants", malformed.Archive)
	}
}

func TestDataRootNotAnObject(t *testing.T) {
	var buf bytes.Buffer
	w := container.NewWriter(&buf, "archive")

	for name, root := range map[string]value.Value{
		"constants.pkl": value.Tuple(),
		"data.pkl":      value.Str("not an object"),
	} {
		p := pickle.NewPickler()
		data, err := p.Dump(root)
		if err != nil {
			t.Fatalf("Dump: %v", err)
		}
		if err := w.WriteRecord(name, data); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := NewDeserializer(openContainer(t, buf.Bytes()), Config{}).Deserialize()
	var malformed *pickle.MalformedArchiveError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedArchiveError", err)
	}
	if malformed.Archive != "data" {
		t.Errorf("Archive = %q, want data", malformed.Archive)
	}
}

func TestMissingDataArchive(t *testing.T) {
	var buf bytes.Buffer
	w := container.NewWriter(&buf, "archive")
	p := pickle.NewPickler()
	data, _ := p.Dump(value.Tuple())
	if err := w.WriteRecord("constants.pkl", data); err != nil {
		t.Fatalf("write constants: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := NewDeserializer(openContainer(t, buf.Bytes()), Config{}).Deserialize()
	var nf *container.RecordNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want RecordNotFoundError", err)
	}
	if nf.Name != "data.pkl" {
		t.Errorf("Name = %q, want data.pkl", nf.Name)
	}
}
