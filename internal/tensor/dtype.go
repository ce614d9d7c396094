// Package tensor provides the tensor value model produced by container
// deserialization: data types, devices, shapes, and the raw tensor that
// wraps a storage record's bytes.
package tensor

import "fmt"

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for deserialized storages.
const (
	Float32 DataType = iota
	Float64
	Float16
	Int32
	Int64
	Uint8
	Bool
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Float16:
		return 2
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseDataType converts a storage type name as recorded in the container
// (e.g. "FloatStorage") into a DataType.
func ParseDataType(s string) (DataType, bool) {
	switch s {
	case "FloatStorage", "float32":
		return Float32, true
	case "DoubleStorage", "float64":
		return Float64, true
	case "HalfStorage", "float16":
		return Float16, true
	case "IntStorage", "int32":
		return Int32, true
	case "LongStorage", "int64":
		return Int64, true
	case "ByteStorage", "uint8":
		return Uint8, true
	case "BoolStorage", "bool":
		return Bool, true
	default:
		return 0, false
	}
}

// Device represents where a deserialized tensor's data is tagged to live.
// The deserializer performs no computation; devices are carried as metadata
// so callers can place tensors appropriately.
type Device int

// Supported devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
)

// String returns the device's location tag as recorded in containers.
func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	case CUDA:
		return "cuda"
	case Vulkan:
		return "vulkan"
	case Metal:
		return "metal"
	default:
		return "unknown"
	}
}

// ParseDevice converts a location tag (e.g. "cpu", "cuda:0") into a Device.
// A trailing ":<index>" ordinal is accepted and ignored.
func ParseDevice(s string) (Device, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			s = s[:i]
			break
		}
	}
	switch s {
	case "cpu":
		return CPU, nil
	case "cuda":
		return CUDA, nil
	case "vulkan":
		return Vulkan, nil
	case "metal":
		return Metal, nil
	default:
		return 0, fmt.Errorf("unknown device location %q", s)
	}
}
