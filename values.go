package torchload

import (
	"github.com/born-ml/torchload/internal/tensor"
	"github.com/born-ml/torchload/internal/types"
	"github.com/born-ml/torchload/internal/value"
)

// Value model. These alias the internal packages so callers can build
// registries and inspect loaded graphs without reaching into internal/.

// Value is the closed variant type decoded graphs are made of.
type Value = value.Value

// Kind discriminates Value variants.
type Kind = value.Kind

// Value kinds.
const (
	KindNone   Kind = value.KindNone
	KindBool   Kind = value.KindBool
	KindInt    Kind = value.KindInt
	KindFloat  Kind = value.KindFloat
	KindString Kind = value.KindString
	KindList   Kind = value.KindList
	KindTuple  Kind = value.KindTuple
	KindDict   Kind = value.KindDict
	KindTensor Kind = value.KindTensor
	KindObject Kind = value.KindObject
)

// List is an ordered sequence of values.
type List = value.List

// Dict is an ordered mapping with unique keys.
type Dict = value.Dict

// Object is a class instance with one slot per declared attribute.
type Object = value.Object

// Class is a resolved type descriptor.
type Class = value.Class

// Attribute is one declared attribute of a class.
type Attribute = value.Attribute

// SetStateFunc is a custom restoration method.
type SetStateFunc = value.SetStateFunc

// GetStateFunc derives the recorded state for an instance on save.
type GetStateFunc = value.GetStateFunc

// Value constructors.
var (
	None       = value.None
	Bool       = value.Bool
	Int        = value.Int
	Float      = value.Float
	Str        = value.Str
	Tuple      = value.Tuple
	FromList   = value.FromList
	FromDict   = value.FromDict
	FromTensor = value.FromTensor
	FromObject = value.FromObject
	NewList    = value.NewList
	NewDict    = value.NewDict
	NewObject  = value.NewObject
)

// Type is a declared type annotation.
type Type = value.Type

// Scalar type singletons.
var (
	AnyT    = value.Any
	BoolT   = value.BoolT
	IntT    = value.IntT
	FloatT  = value.FloatT
	StringT = value.StringT
	TensorT = value.TensorT
)

// Composite type constructors.
var (
	ListOf     = value.ListOf
	TupleOf    = value.TupleOf
	DictOf     = value.DictOf
	OptionalOf = value.OptionalOf
	ClassOf    = value.ClassOf
)

// Loader produces class descriptors for qualified type names.
type Loader = types.Loader

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc = types.LoaderFunc

// Registry is an in-memory Loader.
type Registry = types.Registry

// Tensor model.

// RawTensor is a deserialized tensor: a typed, shaped view of a storage.
type RawTensor = tensor.RawTensor

// Storage is a raw storage buffer shared by one or more tensors.
type Storage = tensor.Storage

// Shape is a tensor shape.
type Shape = tensor.Shape

// DataType is a tensor element type.
type DataType = tensor.DataType

// Tensor element types.
const (
	Float32   DataType = tensor.Float32
	Float64   DataType = tensor.Float64
	Float16   DataType = tensor.Float16
	Int32     DataType = tensor.Int32
	Int64     DataType = tensor.Int64
	Uint8     DataType = tensor.Uint8
	BoolDType DataType = tensor.Bool
)

// Device tags where tensor data is placed.
type Device = tensor.Device

// Devices.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Vulkan Device = tensor.Vulkan
	Metal  Device = tensor.Metal
)
