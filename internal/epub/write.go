package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Mimetype is the exact content of the mandatory first archive entry.
// EPUB readers sniff the format by reading these bytes at a fixed offset,
// which is why the entry must be stored without compression.
const Mimetype = "application/epub+zip"

// outputFile is one entry of the final archive. The assembler and the writer
// operate on the same file set, so every href referenced from the package
// document corresponds to exactly one outputFile.
type outputFile struct {
	path string
	data []byte
}

// writeArchive serializes files into a ZIP-format byte buffer: the mimetype
// entry first, stored uncompressed, then every file deflate-compressed.
// Fails with a wrapped ErrArchiveWrite only on serialization failure; all
// structural problems are caught before this point.
func writeArchive(files []outputFile) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return nil, fmt.Errorf("create mimetype entry: %v: %w", err, ErrArchiveWrite)
	}
	if _, err := w.Write([]byte(Mimetype)); err != nil {
		return nil, fmt.Errorf("write mimetype entry: %v: %w", err, ErrArchiveWrite)
	}

	for _, f := range files {
		w, err := zw.Create(f.path)
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %v: %w", f.path, err, ErrArchiveWrite)
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, fmt.Errorf("write entry %s: %v: %w", f.path, err, ErrArchiveWrite)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %v: %w", err, ErrArchiveWrite)
	}
	return buf.Bytes(), nil
}
