package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// maxDecompressSize is the maximum allowed decompressed size for a single
// ZIP entry. Input archives are untrusted uploads; this guards against zip
// bombs. Defaults to 256 MB.
const maxDecompressSize int64 = 256 * 1024 * 1024

// archive wraps a ZIP-format byte buffer and exposes named-entry reads.
// Entry lookup is exact-match first with a case-insensitive fallback, since
// real-world EPUBs are inconsistent about path casing.
type archive struct {
	files map[string]*zip.File // exact-match index
	lower map[string]*zip.File // lowercase index
}

// openArchive opens data as a ZIP archive. Returns a wrapped
// ErrMalformedArchive if data is not a valid ZIP structure.
func openArchive(data []byte) (*archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip (%v): %w", err, ErrMalformedArchive)
	}

	a := &archive{
		files: make(map[string]*zip.File, len(zr.File)),
		lower: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if _, exists := a.files[f.Name]; !exists {
			a.files[f.Name] = f // first match wins
		}
		lower := strings.ToLower(f.Name)
		if _, exists := a.lower[lower]; !exists {
			a.lower[lower] = f
		}
	}
	return a, nil
}

// findFile looks up a ZIP entry by path. Returns nil if no match is found.
func (a *archive) findFile(name string) *zip.File {
	if f, ok := a.files[name]; ok {
		return f
	}
	if f, ok := a.lower[strings.ToLower(name)]; ok {
		return f
	}
	return nil
}

// readBinary reads the full contents of the named entry. Returns a wrapped
// ErrMissingEntry when the entry does not exist, so callers can tell absence
// (legitimate for optional manifest items) from a read failure.
func (a *archive) readBinary(name string) ([]byte, error) {
	f := a.findFile(name)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingEntry)
	}
	return readZipFile(f)
}

// readText reads the named entry as a string, stripping a UTF-8 BOM.
func (a *archive) readText(name string) (string, error) {
	data, err := a.readBinary(name)
	if err != nil {
		return "", err
	}
	return string(stripBOM(data)), nil
}

// readZipFile reads the full contents of a ZIP entry. It enforces
// maxDecompressSize and rejects entry paths that escape the archive root.
func readZipFile(f *zip.File) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("unsafe zip entry path: %s", f.Name)
	}

	if f.UncompressedSize64 > uint64(maxDecompressSize) {
		return nil, fmt.Errorf("zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, maxDecompressSize)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// Read up to limit+1 to detect forged size declarations.
	lr := io.LimitReader(rc, maxDecompressSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxDecompressSize {
		return nil, fmt.Errorf("zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, maxDecompressSize)
	}

	return data, nil
}

// isSafePath checks whether p is a ZIP-internal path that does not escape
// the archive root via traversal (e.g., "../../../etc/passwd").
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
