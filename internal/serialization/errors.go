package serialization

import "fmt"

// LegacyMarker is the record whose presence identifies the pre-container
// legacy format.
const LegacyMarker = "model.json"

// UnsupportedFormatError reports a legacy-format container in a build
// with no legacy importer configured.
type UnsupportedFormatError struct {
	Marker string
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("container uses the legacy format (%s present) and no legacy importer is configured", e.Marker)
}
