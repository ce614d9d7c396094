// Package container reads and writes the ZIP-based model container format.
//
// A container is an ordinary ZIP archive whose entries are called records.
// Every record lives under a single root folder (the serializer names it
// after the output file), which this package strips on read so callers
// address records by their logical names:
//
//	data.pkl          instruction stream for the "data" archive
//	data/0            raw storage blob referenced from within that stream
//	constants.pkl     instruction stream for the "constants" archive
//	extra/<key>       auxiliary metadata written by the caller
//	version           container format version
//
// Records are immutable and always read whole. Storage blobs are written
// uncompressed so they can later be memory-mapped.
package container
