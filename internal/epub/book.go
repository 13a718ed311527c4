package epub

import (
	"fmt"
	"strings"
)

// Fallback values applied when source metadata omits optional fields.
const (
	fallbackAuthor   = "Unknown Author"
	fallbackLanguage = "en"
)

// readSourceBook locates and parses one input archive's package document into
// a sourceBook. index is the book's 0-based position in the input list; it
// drives both namespacing and the "Book {n}" title fallback (1-based).
//
// Fails with a wrapped ErrInvalidContainer or ErrInvalidPackageDocument; a
// book whose structural documents are broken aborts the whole merge rather
// than being silently dropped.
func readSourceBook(a *archive, index int) (*sourceBook, error) {
	opfPath, err := parseContainer(a)
	if err != nil {
		return nil, fmt.Errorf("book %d: %w", index, err)
	}

	opfText, err := a.readText(opfPath)
	if err != nil {
		return nil, fmt.Errorf("book %d: package document %s: %v: %w", index, opfPath, err, ErrInvalidPackageDocument)
	}

	pkg, err := parseOPF(opfText)
	if err != nil {
		return nil, fmt.Errorf("book %d: %s: %w", index, opfPath, err)
	}

	sb := &sourceBook{
		index:        index,
		baseDir:      baseDirOf(opfPath),
		manifest:     manifestEntries(pkg.Manifest),
		manifestByID: buildManifestMap(pkg.Manifest),
		spine:        spineOrder(pkg.Spine),
		title:        firstValue(pkg.Metadata.Titles),
		author:       firstValue(pkg.Metadata.Creators),
		language:     firstValue(pkg.Metadata.Languages),
	}

	if sb.title == "" {
		sb.title = fmt.Sprintf("Book %d", index+1)
	}
	if sb.author == "" {
		sb.author = fallbackAuthor
	}
	if sb.language == "" {
		sb.language = fallbackLanguage
	}

	return sb, nil
}

// firstValue returns the first non-empty trimmed value from a Dublin Core
// element list.
func firstValue(elems []opfDCElement) string {
	for _, e := range elems {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}
