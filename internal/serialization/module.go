package serialization

import (
	"github.com/born-ml/torchload/internal/tensor"
	"github.com/born-ml/torchload/internal/value"
)

// Module is a reconstructed module snapshot: the root object graph, the
// constants table read from the "constants" archive, and the extra-file
// values found in the container.
type Module struct {
	root      *value.Object
	constants []*tensor.RawTensor
	extra     map[string]string
}

// Root returns the root object of the reconstructed graph.
func (m *Module) Root() *value.Object {
	return m.root
}

// Constants returns the constants table, in archive order.
func (m *Module) Constants() []*tensor.RawTensor {
	return m.constants
}

// ExtraFiles returns the requested extra-file values. Keys absent from
// the container keep the value the caller supplied.
func (m *Module) ExtraFiles() map[string]string {
	return m.extra
}

// Attr returns the value of a named attribute on the root object.
func (m *Module) Attr(name string) (value.Value, bool) {
	return m.root.Attr(name)
}

// NewModule assembles a Module. It is exported for the legacy import
// path, which reconstructs the same shape from the old format.
func NewModule(root *value.Object, constants []*tensor.RawTensor, extra map[string]string) *Module {
	return &Module{root: root, constants: constants, extra: extra}
}
