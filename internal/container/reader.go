package container

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Reader provides whole-record access to a container's named records.
// It is read-only and safe to reuse across archives within one load.
type Reader struct {
	zr     *zip.Reader
	prefix string
	files  map[string]*zip.File
	cache  map[string][]byte
	closer io.Closer
}

// NewReader opens a container from a random-access byte source.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotZip, err)
	}
	return newReader(zr, nil)
}

// OpenFile opens a container from a file on disk. Close releases the file.
//
//nolint:gosec // G304: path comes from the caller, which is expected for model loading.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat container: %w", err)
	}
	zr, err := zip.NewReader(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotZip, err)
	}
	return newReader(zr, f)
}

func newReader(zr *zip.Reader, closer io.Closer) (*Reader, error) {
	if len(zr.File) == 0 {
		return nil, ErrEmptyArchive
	}

	// The serializer nests every record under one root folder named after
	// the output file. Strip it so records are addressed logically.
	prefix := rootPrefix(zr.File[0].Name)
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if rootPrefix(f.Name) != prefix {
			return nil, fmt.Errorf("%w: %q vs %q", ErrMixedPrefixes, prefix, f.Name)
		}
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue // the root folder entry itself
		}
		files[name] = f
	}

	return &Reader{
		zr:     zr,
		prefix: prefix,
		files:  files,
		cache:  make(map[string][]byte),
		closer: closer,
	}, nil
}

// rootPrefix returns the first path component of name including the
// trailing slash, or "" when the entry is not nested.
func rootPrefix(name string) string {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[:i+1]
	}
	return ""
}

// HasRecord reports whether the container holds a record with the name.
func (r *Reader) HasRecord(name string) bool {
	_, ok := r.files[name]
	return ok
}

// GetRecord returns the whole content of the named record. The returned
// slice is cached and must be treated as read-only.
func (r *Reader) GetRecord(name string) ([]byte, error) {
	if data, ok := r.cache[name]; ok {
		return data, nil
	}
	f, ok := r.files[name]
	if !ok {
		return nil, &RecordNotFoundError{Name: name}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open record %q: %w", name, err)
	}
	defer func() {
		_ = rc.Close() // Ignore close error on read-only record.
	}()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read record %q: %w", name, err)
	}
	r.cache[name] = data
	return data, nil
}

// Records returns the names of all records in the container, sorted.
func (r *Reader) Records() []string {
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the underlying file, when the reader owns one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
