package types

import "sync/atomic"

// specializationSuppressed counts active restoration calls. While an
// instance is inside its restoration method it is only partially
// initialized, and whole-instance specialization of its class must not
// observe it as if it were stable.
var specializationSuppressed atomic.Int32

// SpecializationEnabled reports whether an execution layer may specialize
// classes right now. It is false for the duration of any restoration
// method invocation.
func SpecializationEnabled() bool {
	return specializationSuppressed.Load() == 0
}

// suppressSpecialization disables specialization and returns the release
// function. The release runs unconditionally via defer so a failing
// restoration method cannot leak the suppressed state into later loads.
func suppressSpecialization() func() {
	specializationSuppressed.Add(1)
	return func() {
		specializationSuppressed.Add(-1)
	}
}
