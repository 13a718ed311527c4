package epub

import "errors"

// Sentinel errors returned by the epub package. Callers distinguish failure
// kinds with errors.Is; messages carry context (book index, document path)
// but are never part of the contract.
var (
	// ErrMalformedArchive indicates an input buffer is not a valid ZIP
	// archive. Fatal: the whole merge is aborted.
	ErrMalformedArchive = errors.New("epub: malformed archive")

	// ErrInvalidContainer indicates META-INF/container.xml is missing,
	// unparsable, or lacks a rootfile path. Fatal.
	ErrInvalidContainer = errors.New("epub: invalid container.xml")

	// ErrInvalidPackageDocument indicates the OPF package document is
	// missing, unparsable, or lacks metadata, manifest, or spine. Fatal.
	ErrInvalidPackageDocument = errors.New("epub: invalid package document")

	// ErrMissingEntry indicates a requested file does not exist in its
	// archive. Non-fatal: the single manifest item is skipped.
	ErrMissingEntry = errors.New("epub: entry not found in archive")

	// ErrArchiveWrite indicates the output archive could not be
	// serialized. Fatal.
	ErrArchiveWrite = errors.New("epub: archive write failed")
)
