// Package pickle decodes and encodes the instruction streams stored in
// model containers: a subset of pickle protocol 2 interpreted by a stack
// machine.
//
// The Unpickler pulls tagged instructions from a record's bytes and
// produces a value graph. Shared and cyclic references are carried by a
// memo table: ids are assigned densely in stream order at the moment a
// value becomes addressable, which for objects is before their fields are
// filled in. Type names bind through an injected TypeResolver and object
// instances materialize through an injected InstanceBuilder, so this
// package knows nothing about how classes load or restore.
//
// Tensors ride on the persistent-id mechanism: a persistent-id tuple
// describes a storage record by key, element type, location and length,
// and the _rebuild_tensor_v2 callable views a storage as a shaped tensor.
//
// The Pickler writes the same encoding and is used to build containers
// and test fixtures.
package pickle
