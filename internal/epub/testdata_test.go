package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

// zipEntry is one file of a synthetic test archive. Order matters: the EPUB
// spec wants mimetype first, and some tests depend on entry ordering.
type zipEntry struct {
	name    string
	content string
}

// zipBytes builds an in-memory ZIP archive from entries, in order.
// It calls t.Fatal on any error.
func zipBytes(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		fw, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("zipBytes: create %s: %v", e.name, err)
		}
		if _, err := io.WriteString(fw, e.content); err != nil {
			t.Fatalf("zipBytes: write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zipBytes: close writer: %v", err)
	}
	return buf.Bytes()
}

// testArchive opens a synthetic archive built from entries.
func testArchive(t *testing.T, entries []zipEntry) *archive {
	t.Helper()
	a, err := openArchive(zipBytes(t, entries))
	if err != nil {
		t.Fatalf("testArchive: %v", err)
	}
	return a
}

// srcFile is one manifested resource of a synthetic source EPUB.
type srcFile struct {
	id        string
	name      string // path relative to the OPF directory
	mediaType string
	content   string
	omit      bool // declare in the manifest but leave out of the archive
}

// srcBook describes a synthetic source EPUB. Chapters appear in the spine in
// slice order; extraSpine adds dangling idrefs after them.
type srcBook struct {
	title      string
	author     string
	language   string
	baseDir    string // OPF directory with trailing slash; default "OEBPS/"
	chapters   []srcFile
	resources  []srcFile
	extraSpine []string
}

// buildSourceEPUB serializes a srcBook into EPUB archive bytes with a valid
// container.xml and OPF.
func buildSourceEPUB(t *testing.T, b srcBook) []byte {
	t.Helper()
	if b.baseDir == "" {
		b.baseDir = "OEBPS/"
	}
	opfName := b.baseDir + "content.opf"

	var opf strings.Builder
	opf.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	opf.WriteString(`<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">` + "\n")
	opf.WriteString(`  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">` + "\n")
	if b.title != "" {
		fmt.Fprintf(&opf, "    <dc:title>%s</dc:title>\n", b.title)
	}
	if b.author != "" {
		fmt.Fprintf(&opf, "    <dc:creator>%s</dc:creator>\n", b.author)
	}
	if b.language != "" {
		fmt.Fprintf(&opf, "    <dc:language>%s</dc:language>\n", b.language)
	}
	opf.WriteString("  </metadata>\n  <manifest>\n")
	for _, f := range b.chapters {
		mt := f.mediaType
		if mt == "" {
			mt = "application/xhtml+xml"
		}
		fmt.Fprintf(&opf, "    <item id=%q href=%q media-type=%q/>\n", f.id, f.name, mt)
	}
	for _, f := range b.resources {
		fmt.Fprintf(&opf, "    <item id=%q href=%q media-type=%q/>\n", f.id, f.name, f.mediaType)
	}
	opf.WriteString("  </manifest>\n  <spine toc=\"ncx\">\n")
	for _, f := range b.chapters {
		fmt.Fprintf(&opf, "    <itemref idref=%q/>\n", f.id)
	}
	for _, idref := range b.extraSpine {
		fmt.Fprintf(&opf, "    <itemref idref=%q/>\n", idref)
	}
	opf.WriteString("  </spine>\n</package>\n")

	entries := []zipEntry{
		{name: "mimetype", content: Mimetype},
		{name: containerPath, content: containerFor(opfName)},
		{name: opfName, content: opf.String()},
	}
	for _, f := range append(append([]srcFile(nil), b.chapters...), b.resources...) {
		if f.omit {
			continue
		}
		entries = append(entries, zipEntry{name: b.baseDir + f.name, content: f.content})
	}
	return zipBytes(t, entries)
}

// containerFor returns a valid container.xml pointing at opfName.
func containerFor(opfName string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="` + opfName + `" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`
}

// chapterXHTML wraps body content in a minimal XHTML document.
func chapterXHTML(body string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title></head><body>` + body + `</body></html>`
}

// readOutputArchive opens merged output bytes for inspection and returns the
// entries in archive order.
func readOutputArchive(t *testing.T, data []byte) (*zip.Reader, []*zip.File) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("readOutputArchive: %v", err)
	}
	return zr, zr.File
}

// readEntry reads one entry of an output archive by exact name.
func readEntry(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("readEntry: open %s: %v", name, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("readEntry: read %s: %v", name, err)
			}
			return string(data)
		}
	}
	t.Fatalf("readEntry: %s not found in output archive", name)
	return ""
}
