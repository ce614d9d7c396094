package container

import (
	"archive/zip"
	"fmt"
	"io"
)

// FormatVersion is written to the "version" record of new containers.
const FormatVersion = "3"

// Writer produces a container. Records are stored uncompressed, matching
// the serializer this format comes from, so storages can be mapped
// directly on read.
type Writer struct {
	zw     *zip.Writer
	prefix string
	closed bool
}

// NewWriter creates a container writer. The prefix names the root folder
// every record is nested under; by convention it is the output file's
// base name.
func NewWriter(w io.Writer, prefix string) *Writer {
	return &Writer{
		zw:     zip.NewWriter(w),
		prefix: prefix + "/",
	}
}

// WriteRecord adds a named record with the given content.
func (w *Writer) WriteRecord(name string, data []byte) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   w.prefix + name,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("create record %q: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write record %q: %w", name, err)
	}
	return nil
}

// Close finalizes the container, writing the version record and the
// central directory.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.WriteRecord("version", []byte(FormatVersion+"\n")); err != nil {
		return err
	}
	return w.zw.Close()
}
