package epub

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// chapterParentPrefix is the parent-directory marker matching the chapters'
// nesting depth: chapters live one level below the content root (Text/), so
// asset references from chapter content climb exactly one directory.
const chapterParentPrefix = "../"

// newRefFor returns the reference path a chapter should use for an asset:
// the asset's target href relative to the content root, reached from the
// chapter's directory.
func newRefFor(a *asset) string {
	return chapterParentPrefix + a.Href
}

// rewriteReferences rewrites, in every chapter, references to same-book
// assets from their original relative paths to their new namespaced paths.
// Assets with a different bookIndex are never considered for a chapter, so
// identically named assets in different books cannot be mis-linked.
//
// This runs once, after all books are extracted: an asset's href is only
// final once every book's assets have been enumerated.
func rewriteReferences(chapters []chapter, assets []asset, structural bool) {
	// Bucket assets by originating book.
	byBook := make(map[int][]*asset)
	for i := range assets {
		a := &assets[i]
		byBook[a.BookIndex] = append(byBook[a.BookIndex], a)
	}

	for i := range chapters {
		ch := &chapters[i]
		bookAssets := byBook[ch.BookIndex]
		if len(bookAssets) == 0 {
			continue
		}
		if structural {
			ch.Content = rewriteStructural(ch.Content, bookAssets)
		} else {
			ch.Content = rewriteLiteral(ch.Content, bookAssets)
		}
	}
}

// rewriteLiteral replaces every literal, non-overlapping occurrence of each
// asset's original href in the chapter text with its new relative reference.
// The match is a plain substring, not attribute-aware: an unrelated literal
// occurrence of the same string is rewritten too. This mirrors how source
// EPUB content links assets in practice and never crosses book boundaries.
func rewriteLiteral(content string, bookAssets []*asset) string {
	for _, a := range bookAssets {
		content = strings.ReplaceAll(content, a.OriginalHref, newRefFor(a))
	}
	return content
}

// rewriteStructural parses the chapter as a document tree and rewrites only
// src, href, and xlink:href attribute values that exactly match an asset's
// original href. Stricter than the literal mode, at the cost of re-rendering
// the document. If the content cannot be parsed it is returned unchanged.
func rewriteStructural(content string, bookAssets []*asset) string {
	refs := make(map[string]string, len(bookAssets))
	for _, a := range bookAssets {
		refs[a.OriginalHref] = newRefFor(a)
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	rewriteNode(doc, refs)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return content
	}
	return buf.String()
}

// rewriteNode recursively walks the DOM tree, rewriting matching reference
// attributes.
func rewriteNode(n *html.Node, refs map[string]string) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Img, atom.Image:
			rewriteAttr(n, "src", refs)
			rewriteAttr(n, "href", refs)
		case atom.Link, atom.A:
			rewriteAttr(n, "href", refs)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c, refs)
	}
}

// rewriteAttr rewrites the named attribute when its value matches a known
// original href. Both the plain and the xlink-namespaced form are checked;
// x/net/html stores namespaced attributes either way depending on context.
func rewriteAttr(n *html.Node, key string, refs map[string]string) {
	for i, attr := range n.Attr {
		if attr.Key != key && attr.Key != "xlink:"+key && !(attr.Namespace == "xlink" && attr.Key == key) {
			continue
		}
		if replacement, ok := refs[strings.TrimSpace(attr.Val)]; ok {
			n.Attr[i].Val = replacement
		}
	}
}
