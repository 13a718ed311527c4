package epub

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// containerPath is the well-known location of container.xml in an EPUB archive.
const containerPath = "META-INF/container.xml"

// oebpsPackageMediaType is the media type identifying the OPF rootfile.
const oebpsPackageMediaType = "application/oebps-package+xml"

// parseContainer locates and parses container.xml in the archive and returns
// the package document path. Returns a wrapped ErrInvalidContainer if the
// file is absent, unparsable, or carries no usable full-path attribute.
func parseContainer(a *archive) (string, error) {
	text, err := a.readText(containerPath)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", containerPath, err, ErrInvalidContainer)
	}

	var c containerXML
	if err := xml.Unmarshal([]byte(text), &c); err != nil {
		return "", fmt.Errorf("parse %s: %v: %w", containerPath, err, ErrInvalidContainer)
	}

	if len(c.RootFiles) == 0 {
		return "", fmt.Errorf("%s has no rootfile entries: %w", containerPath, ErrInvalidContainer)
	}

	// Prefer the rootfile declared with the OPF media type; fall back to the
	// first non-empty full-path.
	var fallbackPath string
	for _, rf := range c.RootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), oebpsPackageMediaType) {
			return fullPath, nil
		}
		if fallbackPath == "" {
			fallbackPath = fullPath
		}
	}

	if fallbackPath == "" {
		return "", fmt.Errorf("%s rootfile has empty full-path: %w", containerPath, ErrInvalidContainer)
	}

	return fallbackPath, nil
}

// baseDirOf derives the directory prefix for manifest-relative hrefs from the
// package document path: everything up to and including the final slash, or
// the empty string when the OPF sits at the archive root.
func baseDirOf(opfPath string) string {
	idx := strings.LastIndex(opfPath, "/")
	if idx < 0 {
		return ""
	}
	return opfPath[:idx+1]
}
