package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Storage is a raw storage record pulled out of a container: a flat,
// little-endian byte buffer plus its recorded element type and location.
// Several tensors may view one storage at different offsets.
type Storage struct {
	Key    string // record key within the archive
	DType  DataType
	Device Device
	NumEl  int
	Data   []byte
}

// Validate checks that the buffer length matches the recorded element count.
func (s *Storage) Validate() error {
	want := s.NumEl * s.DType.Size()
	if len(s.Data) != want {
		return fmt.Errorf("storage %q: have %d bytes, want %d (%d x %s)",
			s.Key, len(s.Data), want, s.NumEl, s.DType)
	}
	return nil
}

// RawTensor is the tensor value produced by deserialization: a view into a
// storage buffer with shape, stride and type metadata. It owns no compute;
// callers hand it to whatever backend they use.
type RawTensor struct {
	storage *Storage
	shape   Shape
	stride  []int
	offset  int // element offset into the storage
	device  Device
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides, in elements.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.storage.DType
}

// Device returns the device the tensor is tagged for.
func (r *RawTensor) Device() Device {
	return r.device
}

// StorageKey returns the record key of the backing storage.
func (r *RawTensor) StorageKey() string {
	return r.storage.Key
}

// Storage returns the backing storage. Tensors sharing one storage return
// the same *Storage.
func (r *RawTensor) Storage() *Storage {
	return r.storage
}

// Offset returns the tensor's element offset into its storage.
func (r *RawTensor) Offset() int {
	return r.offset
}

// Bytes returns the tensor's contiguous byte view into its storage.
// Only valid for contiguous (row-major stride) tensors.
func (r *RawTensor) Bytes() []byte {
	es := r.storage.DType.Size()
	start := r.offset * es
	end := start + r.shape.NumElements()*es
	return r.storage.Data[start:end]
}

// AsFloat32 decodes the tensor's elements as float32 values.
// Only valid for Float32 contiguous tensors.
func (r *RawTensor) AsFloat32() []float32 {
	b := r.Bytes()
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// AsInt64 decodes the tensor's elements as int64 values.
// Only valid for Int64 contiguous tensors.
func (r *RawTensor) AsInt64() []int64 {
	b := r.Bytes()
	out := make([]int64, len(b)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return out
}

// Materialize builds a RawTensor viewing the given storage. The override
// device, when non-nil, replaces the storage's recorded device uniformly;
// this is how a per-load device redirect is applied.
func Materialize(st *Storage, offset int, shape Shape, stride []int, override *Device) (*RawTensor, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("storage %q: invalid shape: %w", st.Key, err)
	}
	if offset < 0 || offset+shape.NumElements() > st.NumEl {
		return nil, fmt.Errorf("storage %q: view [%d, %d) exceeds %d elements",
			st.Key, offset, offset+shape.NumElements(), st.NumEl)
	}
	if len(stride) == 0 {
		stride = shape.ComputeStrides()
	}
	if len(stride) != len(shape) {
		return nil, fmt.Errorf("storage %q: %d strides for %d dimensions",
			st.Key, len(stride), len(shape))
	}
	device := st.Device
	if override != nil {
		device = *override
	}
	return &RawTensor{
		storage: st,
		shape:   shape.Clone(),
		stride:  stride,
		offset:  offset,
		device:  device,
	}, nil
}
