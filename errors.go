package torchload

import (
	"github.com/born-ml/torchload/internal/container"
	"github.com/born-ml/torchload/internal/pickle"
	"github.com/born-ml/torchload/internal/serialization"
	"github.com/born-ml/torchload/internal/types"
)

// Error taxonomy. Every error is fatal to the enclosing load; there is no
// partial result. All carry enough context (archive, attribute, type
// name) to diagnose a failure without reloading.

// RecordNotFoundError reports a requested container record that is absent.
type RecordNotFoundError = container.RecordNotFoundError

// MalformedArchiveError reports an undecodable instruction stream or an
// archive root of the wrong shape.
type MalformedArchiveError = pickle.MalformedArchiveError

// UnresolvedTypeError reports a type name the loader could not produce.
type UnresolvedTypeError = types.UnresolvedTypeError

// TypeReconciliationError reports recorded state structurally incompatible
// with a declared type.
type TypeReconciliationError = types.TypeReconciliationError

// MissingAttributeError reports a state mapping lacking a declared key on
// the default restoration path.
type MissingAttributeError = types.MissingAttributeError

// UninitializedAttributeError reports a non-optional attribute left empty
// by a custom restoration method.
type UninitializedAttributeError = types.UninitializedAttributeError

// UnsupportedFormatError reports a legacy-format container with no legacy
// importer configured.
type UnsupportedFormatError = serialization.UnsupportedFormatError
