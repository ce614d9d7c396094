// Package serialization sequences a whole container load: it harvests
// requested extra-file records, detects the legacy format marker, reads
// the "constants" archive into the constants table and the "data" archive
// into the root object, and hands back the reconstructed Module.
//
// One Deserializer owns its container reader, resolver cache and memo
// state for exactly one Deserialize call; nothing is shared between
// concurrent loads.
package serialization
