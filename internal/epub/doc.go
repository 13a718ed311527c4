// Package epub merges several EPUB packages into one well-formed EPUB 2.0
// package containing the union of their content.
//
// Each input is a complete ZIP-format EPUB archive held in memory. The merge
// parses every book's container.xml and OPF package document, pulls chapters
// (in spine order), images, stylesheets, and fonts into a namespaced layout
// keyed by the book's input position, rewrites asset references inside each
// book's chapters to the new paths, and emits a single archive with a fresh
// package document, NCX navigation document, and a synthetic opening
// table-of-contents page linking to each source book.
//
// # Merging
//
//	combined, err := epub.Merge([][]byte{bookA, bookB})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// [MergeWithReport] additionally returns the non-fatal degradations (skipped
// dangling spine references, missing manifest files) observed along the way.
//
// # Failure model
//
// Failure is all-or-nothing. An input that is not a valid ZIP archive
// ([ErrMalformedArchive]), or whose container.xml ([ErrInvalidContainer]) or
// package document ([ErrInvalidPackageDocument]) is missing or unparsable,
// aborts the merge; no partial output is produced. A manifest item whose
// file is absent from its archive is skipped and the merge continues.
//
// # Determinism
//
// Output is deterministic for a given input list and identifier generator:
// chapters keep per-book spine order, books keep input order, and
// [WithConcurrency] changes scheduling but not accumulation order.
package epub
