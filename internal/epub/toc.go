package epub

import (
	"fmt"
	"path"
	"strings"
)

// Identity of the synthetic table-of-contents page. It is chapter-like but
// carries no real book index; it belongs to the merged package itself.
const (
	tocPageID    = "toc_page"
	tocPageHref  = "Text/toc.xhtml"
	tocPageTitle = "Table of Contents"
)

// buildTOCPage builds the synthetic navigable page that opens the merged
// book: one entry per source book, in input order, linking to that book's
// first chapter and showing its title and author. A book that contributed no
// chapters gets no entry.
func buildTOCPage(metas []bookMetadata, chapters []chapter, language string) chapter {
	var body strings.Builder
	body.WriteString("  <h1>" + xmlEscape(tocPageTitle) + "</h1>\n")

	for _, meta := range metas {
		first := firstChapterOf(chapters, meta.BookIndex)
		if first == nil {
			continue
		}
		// Chapters and the TOC page share the Text/ directory, so the link
		// target is just the chapter's basename.
		fmt.Fprintf(&body, "  <div class=\"book-entry\">\n")
		fmt.Fprintf(&body, "    <a href=%q>%s</a>\n", path.Base(first.Href), xmlEscape(meta.Title))
		fmt.Fprintf(&body, "    <p class=\"author\">%s</p>\n", xmlEscape(meta.Author))
		fmt.Fprintf(&body, "  </div>\n")
	}

	content := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang=%q>
<head>
  <title>%s</title>
  <style type="text/css">
    body { font-family: serif; margin: 5%%; }
    h1 { text-align: center; }
    .book-entry { margin: 1em 0; }
    .book-entry a { font-size: 1.2em; text-decoration: none; }
    .author { margin: 0.2em 0 0 0; font-style: italic; }
  </style>
</head>
<body>
%s</body>
</html>
`, language, xmlEscape(tocPageTitle), body.String())

	return chapter{
		ID:        tocPageID,
		Href:      tocPageHref,
		Content:   content,
		BookIndex: -1,
	}
}

// firstChapterOf returns the chapter with the lowest spine position among
// those tagged with bookIndex, or nil when the book contributed none.
// Chapters are accumulated in spine order, so the first match is the answer.
func firstChapterOf(chapters []chapter, bookIndex int) *chapter {
	for i := range chapters {
		if chapters[i].BookIndex == bookIndex {
			return &chapters[i]
		}
	}
	return nil
}
