package serialization

import (
	"fmt"
	"io"

	"github.com/born-ml/torchload/internal/container"
	"github.com/born-ml/torchload/internal/pickle"
	"github.com/born-ml/torchload/internal/tensor"
	"github.com/born-ml/torchload/internal/value"
)

// Save writes a module snapshot as a container: the constants archive,
// the data archive with the root object graph, and any extra files.
// Prefix names the container's root folder.
func Save(w io.Writer, prefix string, root *value.Object, constants []*tensor.RawTensor, extra map[string]string) error {
	cw := container.NewWriter(w, prefix)

	celems := make([]value.Value, len(constants))
	for i, c := range constants {
		celems[i] = value.FromTensor(c)
	}
	if err := writeArchive(cw, "constants", value.Tuple(celems...)); err != nil {
		return err
	}
	if err := writeArchive(cw, "data", value.FromObject(root)); err != nil {
		return err
	}
	for key, content := range extra {
		if err := cw.WriteRecord("extra/"+key, []byte(content)); err != nil {
			return err
		}
	}
	return cw.Close()
}

func writeArchive(cw *container.Writer, name string, root value.Value) error {
	p := pickle.NewPickler()
	data, err := p.Dump(root)
	if err != nil {
		return fmt.Errorf("encode archive %q: %w", name, err)
	}
	if err := cw.WriteRecord(name+".pkl", data); err != nil {
		return err
	}
	for _, st := range p.Storages() {
		if err := cw.WriteRecord(name+"/"+p.StorageKey(st), st.Data); err != nil {
			return err
		}
	}
	return nil
}
