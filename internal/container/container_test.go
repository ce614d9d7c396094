package container

import (
	"bytes"
	"errors"
	"testing"
)

func buildContainer(t *testing.T, records map[string][]byte) *Reader {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, "archive")
	for name, data := range records {
		if err := w.WriteRecord(name, data); err != nil {
			t.Fatalf("write record %q: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open container: %v", err)
	}
	return r
}

func TestRoundTrip(t *testing.T) {
	r := buildContainer(t, map[string][]byte{
		"data.pkl":       {0x80, 0x02, '.'},
		"data/0":         {1, 2, 3, 4},
		"extra/producer": []byte("test"),
	})

	data, err := r.GetRecord("data.pkl")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if !bytes.Equal(data, []byte{0x80, 0x02, '.'}) {
		t.Errorf("record content = %v", data)
	}

	if !r.HasRecord("data/0") {
		t.Error("HasRecord(data/0) = false")
	}
	if r.HasRecord("data/1") {
		t.Error("HasRecord(data/1) = true")
	}

	// The writer nests records under its prefix; reads strip it.
	if r.HasRecord("archive/data.pkl") {
		t.Error("prefixed name should not be addressable")
	}
}

func TestRecordNotFound(t *testing.T) {
	r := buildContainer(t, map[string][]byte{"data.pkl": {'.'}})

	_, err := r.GetRecord("missing")
	var nf *RecordNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want RecordNotFoundError", err)
	}
	if nf.Name != "missing" {
		t.Errorf("Name = %q, want %q", nf.Name, "missing")
	}
}

func TestRecords(t *testing.T) {
	r := buildContainer(t, map[string][]byte{
		"data.pkl":      {'.'},
		"constants.pkl": {'.'},
	})

	names := r.Records()
	// Sorted, and includes the version record the writer appends.
	want := []string{"constants.pkl", "data.pkl", "version"}
	if len(names) != len(want) {
		t.Fatalf("Records = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Records[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestVersionRecord(t *testing.T) {
	r := buildContainer(t, map[string][]byte{"data.pkl": {'.'}})

	data, err := r.GetRecord("version")
	if err != nil {
		t.Fatalf("GetRecord(version): %v", err)
	}
	if string(data) != FormatVersion+"\n" {
		t.Errorf("version = %q", data)
	}
}

func TestNotZip(t *testing.T) {
	junk := []byte("BORN this is not a zip container")
	_, err := NewReader(bytes.NewReader(junk), int64(len(junk)))
	if !errors.Is(err, ErrNotZip) {
		t.Errorf("error = %v, want ErrNotZip", err)
	}
}

func TestGetRecordCaches(t *testing.T) {
	r := buildContainer(t, map[string][]byte{"data.pkl": {1, 2, 3}})

	a, err := r.GetRecord("data.pkl")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	b, err := r.GetRecord("data.pkl")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if &a[0] != &b[0] {
		t.Error("repeated reads should return the cached buffer")
	}
}
