package epub

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// batch is the immutable result of extracting one source book. Batches are
// appended to the merge working set strictly in input-index order, which
// keeps output deterministic even when books are extracted concurrently.
type batch struct {
	chapters []chapter
	assets   []asset
	meta     bookMetadata
	language string
	warnings []string
}

// Media-type predicates for the four extraction passes. The predicates are
// non-overlapping, so a manifest item matches at most one category.

func isContentDocument(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/xhtml+xml", "text/html":
		return true
	}
	return false
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

func isStylesheet(mediaType string) bool {
	return strings.EqualFold(strings.TrimSpace(mediaType), "text/css")
}

// fontMediaTypes is the set of recognized font MIME types (woff, woff2, ttf,
// otf, and the legacy opentype variants seen in the wild).
var fontMediaTypes = map[string]bool{
	"font/woff":                   true,
	"font/woff2":                  true,
	"font/ttf":                    true,
	"font/otf":                    true,
	"application/font-woff":       true,
	"application/font-woff2":      true,
	"application/x-font-ttf":      true,
	"application/x-font-truetype": true,
	"application/x-font-opentype": true,
	"application/vnd.ms-opentype": true,
	"application/font-sfnt":       true,
}

func isFont(mediaType string) bool {
	return fontMediaTypes[strings.ToLower(strings.TrimSpace(mediaType))]
}

// extractBook pulls chapters and assets out of one source archive.
//
// Chapters follow spine order, the authoritative reading order. A spine
// idref with no manifest entry, or a manifest item whose file is absent from
// the archive, is skipped with a warning rather than aborting the merge;
// imperfect source EPUBs are tolerated. Any other read failure is fatal.
func extractBook(a *archive, sb *sourceBook) (*batch, error) {
	b := &batch{
		meta: bookMetadata{
			Title:     sb.title,
			Author:    sb.author,
			BookIndex: sb.index,
		},
	}

	// Chapters, in spine order.
	for _, idref := range sb.spine {
		entry, ok := sb.manifestByID[idref]
		if !ok {
			b.warnings = append(b.warnings, fmt.Sprintf("book %d: spine idref %q not in manifest, skipped", sb.index, idref))
			continue
		}
		if !isContentDocument(entry.MediaType) {
			continue
		}

		content, err := a.readText(sb.baseDir + entry.Href)
		if err != nil {
			if errors.Is(err, ErrMissingEntry) {
				b.warnings = append(b.warnings, fmt.Sprintf("book %d: chapter file %s missing, skipped", sb.index, entry.Href))
				continue
			}
			return nil, fmt.Errorf("book %d: read chapter %s: %w", sb.index, entry.Href, err)
		}

		id := fmt.Sprintf("chapter_%d_%s", sb.index, entry.ID)
		b.chapters = append(b.chapters, chapter{
			ID:           id,
			Href:         "Text/" + id + ".xhtml",
			Content:      content,
			OriginalHref: entry.Href,
			BookIndex:    sb.index,
		})
	}

	// Images, styles, and fonts: independent full scans of the manifest in
	// document order.
	if err := extractAssets(a, sb, b, "img", "Images", isImage, true); err != nil {
		return nil, err
	}
	if err := extractAssets(a, sb, b, "style", "Styles", isStylesheet, false); err != nil {
		return nil, err
	}
	if err := extractAssets(a, sb, b, "font", "Fonts", isFont, true); err != nil {
		return nil, err
	}

	return b, nil
}

// extractAssets runs one manifest scan, collecting every item matched by the
// media-type predicate into b.assets. binary selects raw reads; stylesheets
// are read as text so a BOM does not leak into the output.
func extractAssets(a *archive, sb *sourceBook, b *batch, kind, dir string, match func(string) bool, binary bool) error {
	for _, entry := range sb.manifest {
		if !match(entry.MediaType) {
			continue
		}

		var content []byte
		var err error
		if binary {
			content, err = a.readBinary(sb.baseDir + entry.Href)
		} else {
			var text string
			text, err = a.readText(sb.baseDir + entry.Href)
			content = []byte(text)
		}
		if err != nil {
			if errors.Is(err, ErrMissingEntry) {
				b.warnings = append(b.warnings, fmt.Sprintf("book %d: %s file %s missing, skipped", sb.index, kind, entry.Href))
				continue
			}
			return fmt.Errorf("book %d: read %s %s: %w", sb.index, kind, entry.Href, err)
		}

		id := fmt.Sprintf("%s_%d_%s", kind, sb.index, entry.ID)
		b.assets = append(b.assets, asset{
			ID:           id,
			Href:         fmt.Sprintf("%s/%s_%s", dir, id, path.Base(entry.Href)),
			Content:      content,
			MediaType:    entry.MediaType,
			OriginalHref: entry.Href,
			BookIndex:    sb.index,
		})
	}
	return nil
}
