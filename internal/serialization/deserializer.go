package serialization

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/born-ml/torchload/internal/container"
	"github.com/born-ml/torchload/internal/pickle"
	"github.com/born-ml/torchload/internal/tensor"
	"github.com/born-ml/torchload/internal/types"
	"github.com/born-ml/torchload/internal/value"
)

// LegacyImporter deserializes a legacy-format container. It is invoked
// only when the legacy marker record is present, before any archive read.
type LegacyImporter func(r *container.Reader, device *tensor.Device) (*Module, error)

// Config wires a Deserializer to its collaborators.
type Config struct {
	// Loader produces class descriptors for qualified type names.
	Loader types.Loader
	// Device, when set, overrides the recorded device of every tensor.
	Device *tensor.Device
	// ExtraFiles maps requested extra-file keys to default values. Keys
	// found in the container are replaced with the record's content.
	ExtraFiles map[string]string
	// Legacy handles legacy-format containers; nil means unsupported.
	Legacy LegacyImporter
}

// Deserializer reconstructs one module snapshot from a container. It is
// single-use: one Deserialize call per instance, which exclusively owns
// the reader, the resolver cache and all decoding state.
type Deserializer struct {
	reader    *container.Reader
	resolver  *types.Resolver
	builder   *types.Builder
	device    *tensor.Device
	extra     map[string]string
	legacy    LegacyImporter
	constants []*tensor.RawTensor
}

// NewDeserializer creates a deserializer over an open container.
func NewDeserializer(r *container.Reader, cfg Config) *Deserializer {
	loader := cfg.Loader
	if loader == nil {
		loader = types.LoaderFunc(func(name string) (*value.Class, error) {
			return nil, fmt.Errorf("no type loader configured")
		})
	}
	return &Deserializer{
		reader:   r,
		resolver: types.NewResolver(loader),
		builder:  types.NewBuilder(),
		device:   cfg.Device,
		extra:    cfg.ExtraFiles,
		legacy:   cfg.Legacy,
	}
}

// Deserialize runs the load: extra files, legacy detection, then the
// "constants" and "data" archives. Any failure aborts the whole call.
func (d *Deserializer) Deserialize() (*Module, error) {
	for key := range d.extra {
		data, err := d.reader.GetRecord("extra/" + key)
		if err != nil {
			var nf *container.RecordNotFoundError
			if errors.As(err, &nf) {
				continue // absent keys keep the caller's default
			}
			return nil, err
		}
		d.extra[key] = string(data)
	}

	if d.reader.HasRecord(LegacyMarker) {
		if d.legacy == nil {
			return nil, &UnsupportedFormatError{Marker: LegacyMarker}
		}
		return d.legacy(d.reader, d.device)
	}

	root, err := d.readArchive("constants")
	if err != nil {
		return nil, err
	}
	if root.Kind() != value.KindTuple && root.Kind() != value.KindList {
		return nil, &pickle.MalformedArchiveError{
			Archive: "constants",
			Offset:  -1,
			Reason:  fmt.Sprintf("root value is %s, want a sequence of tensors", root.Kind()),
		}
	}
	for i, c := range root.List().Elems {
		if c.Kind() != value.KindTensor {
			return nil, &pickle.MalformedArchiveError{
				Archive: "constants",
				Offset:  -1,
				Reason:  fmt.Sprintf("constant %d is %s, want Tensor", i, c.Kind()),
			}
		}
		d.constants = append(d.constants, c.Tensor())
	}

	root, err = d.readArchive("data")
	if err != nil {
		return nil, err
	}
	if root.Kind() != value.KindObject {
		return nil, &pickle.MalformedArchiveError{
			Archive: "data",
			Offset:  -1,
			Reason:  fmt.Sprintf("root value is %s, want an object", root.Kind()),
		}
	}

	return NewModule(root.Object(), d.constants, d.extra), nil
}

// readArchive decodes the archive's instruction stream record
// "<name>.pkl", resolving auxiliary blob reads against "<name>/<key>".
func (d *Deserializer) readArchive(name string) (value.Value, error) {
	data, err := d.reader.GetRecord(name + ".pkl")
	if err != nil {
		return value.Value{}, err
	}
	u := pickle.NewUnpickler(bytes.NewReader(data), pickle.Config{
		Archive:  name,
		Resolver: d.resolver,
		Builder:  d.builder,
		ReadRecord: func(key string) ([]byte, error) {
			return d.reader.GetRecord(name + "/" + key)
		},
		Device: d.device,
	})
	return u.Parse()
}
