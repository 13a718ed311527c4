package epub

// sourceBook is one input archive's parsed view. It exists only for the
// duration of extraction; the records derived from it (chapters, assets,
// bookMetadata) outlive it and carry its index as their origin tag.
type sourceBook struct {
	// index is the 0-based position of the book in the input list. It is
	// the namespacing key for every id and href derived from this book.
	index int

	// baseDir is the directory prefix of the package document, including
	// the trailing slash; empty when the OPF sits at archive root. Every
	// manifest-relative href is resolved under it.
	baseDir string

	// manifest holds the entries in document order; scans over it must be
	// deterministic, so the ordered slice is kept alongside the lookup map.
	manifest []manifestEntry

	// manifestByID resolves spine idrefs to hrefs and media types.
	manifestByID map[string]manifestEntry

	// spine is the ordered idref list: the authoritative reading order.
	spine []string

	title    string
	author   string
	language string
}

// chapter is a content document destined for the merged spine. Two chapters
// never share an ID or Href, regardless of id collisions between source
// books, because both are namespaced by BookIndex.
type chapter struct {
	// ID is globally unique: "chapter_{bookIndex}_{originalID}".
	ID string

	// Href is the globally unique target path, e.g. "Text/chapter_0_ch1.xhtml".
	Href string

	// Content is the XHTML text. The reference rewriter mutates it; nothing
	// else does.
	Content string

	// OriginalHref is the source-relative path, used only to match
	// references inside same-book chapter content.
	OriginalHref string

	// BookIndex tags the chapter with its originating book.
	BookIndex int
}

// asset is an image, stylesheet, or font pulled from a source book. The
// three categories are structurally identical and differ only by the
// media-type predicate that selected them.
type asset struct {
	// ID is globally unique: "{kind}_{bookIndex}_{originalID}".
	ID string

	// Href is the globally unique target path, namespaced by ID plus the
	// original basename, e.g. "Images/img_0_cover_cover.jpg". Never
	// collides with another asset's or a chapter's path.
	Href string

	// Content is the raw payload, immutable once extracted.
	Content []byte

	MediaType    string
	OriginalHref string
	BookIndex    int
}

// bookMetadata is the per-source-book record retained to drive TOC entry
// generation after the sourceBook itself is discarded.
type bookMetadata struct {
	Title     string
	Author    string
	BookIndex int
}

// combinedMetadata is the single metadata record for the output package,
// derived once from the first source book with safe fallbacks. Identifier is
// freshly generated, never reused from a source.
type combinedMetadata struct {
	Title      string
	Author     string
	Language   string
	Identifier string
}
