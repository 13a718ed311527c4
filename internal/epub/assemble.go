package epub

import (
	"fmt"
	"strings"
)

// Fixed output layout of the merged package.
const (
	contentRoot = "OEBPS/"
	opfPath     = "OEBPS/content.opf"
	ncxPath     = "OEBPS/toc.ncx"
	ncxID       = "ncx"
	ncxMedia    = "application/x-dtbncx+xml"
	xhtmlMedia  = "application/xhtml+xml"
)

// xmlEscaper escapes text and attribute values for XML serialization.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}

// buildContainerXML emits the fixed container document pointing readers at
// the package document.
func buildContainerXML() string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="` + opfPath + `" media-type="` + oebpsPackageMediaType + `"/>
  </rootfiles>
</container>
`
}

// buildOPF emits the merged package document: combined metadata, a manifest
// listing the TOC page, every chapter, every asset, and the NCX, and a spine
// with the TOC page first followed by every chapter in accumulation order.
// Manifest hrefs are relative to the OPF's own directory.
func buildOPF(meta combinedMetadata, tocPage chapter, chapters []chapter, assets []asset) string {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">` + "\n")

	b.WriteString(`  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">` + "\n")
	fmt.Fprintf(&b, "    <dc:title>%s</dc:title>\n", xmlEscape(meta.Title))
	fmt.Fprintf(&b, "    <dc:creator>%s</dc:creator>\n", xmlEscape(meta.Author))
	fmt.Fprintf(&b, "    <dc:language>%s</dc:language>\n", xmlEscape(meta.Language))
	fmt.Fprintf(&b, "    <dc:identifier id=\"bookid\">%s</dc:identifier>\n", xmlEscape(meta.Identifier))
	b.WriteString("  </metadata>\n")

	b.WriteString("  <manifest>\n")
	fmt.Fprintf(&b, "    <item id=%q href=%q media-type=%q/>\n", ncxID, "toc.ncx", ncxMedia)
	writeManifestItem(&b, tocPage.ID, tocPage.Href, xhtmlMedia)
	for _, ch := range chapters {
		writeManifestItem(&b, ch.ID, ch.Href, xhtmlMedia)
	}
	for _, a := range assets {
		writeManifestItem(&b, a.ID, a.Href, a.MediaType)
	}
	b.WriteString("  </manifest>\n")

	fmt.Fprintf(&b, "  <spine toc=%q>\n", ncxID)
	fmt.Fprintf(&b, "    <itemref idref=%q/>\n", tocPage.ID)
	for _, ch := range chapters {
		fmt.Fprintf(&b, "    <itemref idref=%q/>\n", xmlEscape(ch.ID))
	}
	b.WriteString("  </spine>\n")

	b.WriteString("</package>\n")
	return b.String()
}

func writeManifestItem(b *strings.Builder, id, href, mediaType string) {
	fmt.Fprintf(b, "    <item id=%q href=%q media-type=%q/>\n",
		xmlEscape(id), xmlEscape(href), xmlEscape(mediaType))
}

// buildNCX emits the navigation document: one navPoint per chapter with
// sequential playOrder starting at 1 and labels "Chapter {n}". The TOC page
// is reachable via the spine and gets no navPoint of its own. The dtb:uid
// meta carries the same identifier as the OPF's dc:identifier.
func buildNCX(meta combinedMetadata, chapters []chapter) string {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">` + "\n")
	b.WriteString("  <head>\n")
	fmt.Fprintf(&b, "    <meta name=\"dtb:uid\" content=%q/>\n", xmlEscape(meta.Identifier))
	b.WriteString("    <meta name=\"dtb:depth\" content=\"1\"/>\n")
	b.WriteString("    <meta name=\"dtb:totalPageCount\" content=\"0\"/>\n")
	b.WriteString("    <meta name=\"dtb:maxPageNumber\" content=\"0\"/>\n")
	b.WriteString("  </head>\n")
	fmt.Fprintf(&b, "  <docTitle><text>%s</text></docTitle>\n", xmlEscape(meta.Title))
	b.WriteString("  <navMap>\n")

	for i, ch := range chapters {
		order := i + 1
		fmt.Fprintf(&b, "    <navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", order, order)
		fmt.Fprintf(&b, "      <navLabel><text>Chapter %d</text></navLabel>\n", order)
		fmt.Fprintf(&b, "      <content src=%q/>\n", xmlEscape(ch.Href))
		b.WriteString("    </navPoint>\n")
	}

	b.WriteString("  </navMap>\n")
	b.WriteString("</ncx>\n")
	return b.String()
}
