package torchload

import (
	"bytes"
	"fmt"
	"io"

	"github.com/born-ml/torchload/internal/container"
	"github.com/born-ml/torchload/internal/serialization"
	"github.com/born-ml/torchload/internal/tensor"
	"github.com/born-ml/torchload/internal/types"
)

// Module is a reconstructed module snapshot.
type Module = serialization.Module

// LegacyImporter deserializes a legacy-format container.
type LegacyImporter = serialization.LegacyImporter

// Option configures a load.
type Option func(*serialization.Config)

// WithTypeLoader sets the loader that produces class descriptors for the
// qualified type names recorded in the container.
func WithTypeLoader(l Loader) Option {
	return func(cfg *serialization.Config) {
		cfg.Loader = l
	}
}

// WithDevice overrides the recorded device of every loaded tensor.
func WithDevice(d Device) Option {
	return func(cfg *serialization.Config) {
		cfg.Device = &d
	}
}

// WithExtraFiles requests auxiliary metadata records. Each key is looked
// up as "extra/<key>"; when present, the map value is replaced with the
// record's content, otherwise the supplied default is kept. The same map
// is returned by Module.ExtraFiles.
func WithExtraFiles(files map[string]string) Option {
	return func(cfg *serialization.Config) {
		cfg.ExtraFiles = files
	}
}

// WithLegacyImporter installs a handler for legacy-format containers.
// Without one, loading a container carrying the legacy marker fails with
// UnsupportedFormatError.
func WithLegacyImporter(imp LegacyImporter) Option {
	return func(cfg *serialization.Config) {
		cfg.Legacy = imp
	}
}

// LoadFile loads a module snapshot from a container file on disk.
func LoadFile(path string, opts ...Option) (*Module, error) {
	r, err := container.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close() // Ignore close error on read-only container.
	}()
	return deserialize(r, opts)
}

// Load loads a module snapshot from a random-access byte source.
func Load(r io.ReaderAt, size int64, opts ...Option) (*Module, error) {
	cr, err := container.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return deserialize(cr, opts)
}

// LoadStream loads a module snapshot from a stream. The stream is read
// fully into memory first; prefer Load for sources that support random
// access.
func LoadStream(r io.Reader, opts ...Option) (*Module, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read container stream: %w", err)
	}
	return Load(bytes.NewReader(data), int64(len(data)), opts...)
}

func deserialize(r *container.Reader, opts []Option) (*Module, error) {
	var cfg serialization.Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return serialization.NewDeserializer(r, cfg).Deserialize()
}

// Save writes a module snapshot as a container file content: the
// constants and data archives plus any extra files. Prefix names the
// container's root folder, by convention the output file's base name.
func Save(w io.Writer, prefix string, root *Object, constants []*RawTensor, extra map[string]string) error {
	return serialization.Save(w, prefix, root, constants, extra)
}

// NewRegistry returns an empty in-memory type registry.
func NewRegistry() *Registry {
	return types.NewRegistry()
}

// Materialize builds a tensor viewing a storage, applying an optional
// device override. Exposed for callers that assemble snapshots to save.
func Materialize(st *Storage, offset int, shape Shape, stride []int, override *Device) (*RawTensor, error) {
	return tensor.Materialize(st, offset, shape, stride, override)
}

// SpecializationEnabled reports whether execution layers may specialize
// classes right now; it is false while a restoration method runs.
func SpecializationEnabled() bool {
	return types.SpecializationEnabled()
}
