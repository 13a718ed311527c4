package epub

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// opfPackage represents the root <package> element of an OPF file.
type opfPackage struct {
	XMLName  xml.Name     `xml:"package"`
	Version  string       `xml:"version,attr"`
	Metadata *opfMetadata `xml:"metadata"`
	Manifest *opfManifest `xml:"manifest"`
	Spine    *opfSpine    `xml:"spine"`
}

// opfMetadata holds the Dublin Core elements this merger cares about.
type opfMetadata struct {
	Titles    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators  []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
}

// opfDCElement holds a Dublin Core element's text content.
type opfDCElement struct {
	Value string `xml:",chardata"`
}

// opfManifest wraps the <manifest> element.
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents a single <item> in the manifest.
type opfManifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

// opfSpine wraps the <spine> element.
type opfSpine struct {
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

// opfSpineItemRef represents a single <itemref> in the spine.
type opfSpineItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// manifestEntry is the processed view of a manifest <item>, keyed by id in
// manifestByID lookups. Hrefs are relative to the source book's baseDir.
type manifestEntry struct {
	ID        string
	Href      string
	MediaType string
}

// parseOPF parses OPF file content into the package structure. The document
// must carry metadata, manifest, and spine sections; anything less is a
// wrapped ErrInvalidPackageDocument.
func parseOPF(text string) (*opfPackage, error) {
	data := preprocessHTMLEntities([]byte(text))

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse OPF: %v: %w", err, ErrInvalidPackageDocument)
	}

	if pkg.Metadata == nil {
		return nil, fmt.Errorf("OPF has no metadata section: %w", ErrInvalidPackageDocument)
	}
	if pkg.Manifest == nil {
		return nil, fmt.Errorf("OPF has no manifest section: %w", ErrInvalidPackageDocument)
	}
	if pkg.Spine == nil {
		return nil, fmt.Errorf("OPF has no spine section: %w", ErrInvalidPackageDocument)
	}

	return &pkg, nil
}

// manifestEntries converts the parsed manifest items into processed entries,
// preserving document order.
func manifestEntries(manifest *opfManifest) []manifestEntry {
	entries := make([]manifestEntry, 0, len(manifest.Items))
	for _, item := range manifest.Items {
		entries = append(entries, manifestEntry{
			ID:        item.ID,
			Href:      item.Href,
			MediaType: item.MediaType,
		})
	}
	return entries
}

// buildManifestMap creates an id → entry lookup from the parsed manifest.
func buildManifestMap(manifest *opfManifest) map[string]manifestEntry {
	byID := make(map[string]manifestEntry, len(manifest.Items))
	for _, item := range manifest.Items {
		byID[item.ID] = manifestEntry{
			ID:        item.ID,
			Href:      item.Href,
			MediaType: item.MediaType,
		}
	}
	return byID
}

// spineOrder returns the ordered idref list from the parsed spine. The spine,
// not the manifest, is the authoritative reading order.
func spineOrder(spine *opfSpine) []string {
	refs := make([]string, 0, len(spine.ItemRefs))
	for _, ref := range spine.ItemRefs {
		if idref := strings.TrimSpace(ref.IDRef); idref != "" {
			refs = append(refs, idref)
		}
	}
	return refs
}

// entityNameToNumeric maps lowercase HTML entity names to XML numeric
// character references. encoding/xml does not recognise HTML named entities,
// so we convert them before parsing OPF content.
var entityNameToNumeric = map[string][]byte{
	"nbsp": []byte("&#160;"), "mdash": []byte("&#8212;"), "ndash": []byte("&#8211;"),
	"hellip": []byte("&#8230;"),
	"lsquo":  []byte("&#8216;"), "rsquo": []byte("&#8217;"),
	"ldquo": []byte("&#8220;"), "rdquo": []byte("&#8221;"),
	"copy": []byte("&#169;"), "reg": []byte("&#174;"), "trade": []byte("&#8482;"),
	"eacute": []byte("&#233;"), "egrave": []byte("&#232;"),
	"ouml":   []byte("&#246;"), "uuml": []byte("&#252;"),
	"ntilde": []byte("&#241;"), "ccedil": []byte("&#231;"),
}

// htmlEntityPattern matches the supported HTML named entities case-insensitively.
var htmlEntityPattern = regexp.MustCompile(
	`(?i)&(nbsp|mdash|ndash|hellip|lsquo|rsquo|ldquo|rdquo|copy|reg|trade|` +
		`eacute|egrave|ouml|uuml|ntilde|ccedil);`)

// preprocessHTMLEntities replaces common HTML named entities with numeric
// character references so that encoding/xml can parse the data. Matching is
// case-insensitive to tolerate non-standard source EPUBs.
func preprocessHTMLEntities(data []byte) []byte {
	return htmlEntityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := strings.ToLower(string(match[1 : len(match)-1]))
		if replacement, ok := entityNameToNumeric[name]; ok {
			return replacement
		}
		return match
	})
}
