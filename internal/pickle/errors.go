package pickle

import "fmt"

// MalformedArchiveError reports an instruction stream that cannot be
// decoded: an unknown opcode, a stack underflow, an undefined
// backreference, or a root value of the wrong shape.
type MalformedArchiveError struct {
	Archive string
	Offset  int64 // byte offset into the stream, -1 when not applicable
	Reason  string
}

// Error implements the error interface.
func (e *MalformedArchiveError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("archive %q: %s", e.Archive, e.Reason)
	}
	return fmt.Sprintf("archive %q: offset %d: %s", e.Archive, e.Offset, e.Reason)
}
