package epub

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IdentifierGenerator produces the unique identifier carried by the merged
// package's dc:identifier. It is an injected capability: callers that need
// reproducible output (tests, content-addressed stores) supply their own.
type IdentifierGenerator func() string

// uuidIdentifier is the default generator.
func uuidIdentifier() string {
	return "urn:uuid:" + uuid.NewString()
}

type options struct {
	identifier  IdentifierGenerator
	structural  bool
	concurrency int
}

// Option configures a merge.
type Option func(*options)

// WithIdentifierGenerator replaces the default UUID-based identifier
// generator.
func WithIdentifierGenerator(gen IdentifierGenerator) Option {
	return func(o *options) { o.identifier = gen }
}

// WithStructuralRewrite switches the reference rewriter from literal
// substring replacement to tree-based attribute rewriting.
func WithStructuralRewrite() Option {
	return func(o *options) { o.structural = true }
}

// WithConcurrency extracts input books on up to n goroutines. Results are
// accumulated strictly in input order, so the output bytes do not depend on
// scheduling.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 1 {
			o.concurrency = n
		}
	}
}

// Report carries the non-fatal degradations observed during a merge: skipped
// spine idrefs and manifest items whose files were absent. They are invisible
// in the produced package but useful to log.
type Report struct {
	Warnings []string
}

// ErrNoInput is returned when Merge is called with an empty input list.
var ErrNoInput = errors.New("epub: no input books")

// Merge combines the input EPUB archives, in order, into one EPUB 2.0
// package. See MergeWithReport for the failure contract.
func Merge(inputs [][]byte, opts ...Option) ([]byte, error) {
	data, _, err := MergeWithReport(inputs, opts...)
	return data, err
}

// MergeWithReport is Merge plus the per-merge degradation report.
//
// Failure is all-or-nothing: a malformed archive or a source book with a
// broken container or package document aborts the whole merge and no output
// is produced. Individual missing files inside an otherwise valid book are
// skipped and reported, not fatal.
func MergeWithReport(inputs [][]byte, opts ...Option) ([]byte, Report, error) {
	o := options{identifier: uuidIdentifier}
	for _, opt := range opts {
		opt(&o)
	}

	if len(inputs) == 0 {
		return nil, Report{}, ErrNoInput
	}

	batches, err := extractAll(inputs, o.concurrency)
	if err != nil {
		return nil, Report{}, err
	}

	// Fold the per-book batches, in input order, into the flat working set.
	var (
		chapters []chapter
		assets   []asset
		metas    []bookMetadata
		report   Report
	)
	for _, b := range batches {
		chapters = append(chapters, b.chapters...)
		assets = append(assets, b.assets...)
		metas = append(metas, b.meta)
		report.Warnings = append(report.Warnings, b.warnings...)
	}

	meta := combinedMetadata{
		Title:      batches[0].meta.Title,
		Author:     batches[0].meta.Author,
		Language:   batches[0].language,
		Identifier: o.identifier(),
	}

	rewriteReferences(chapters, assets, o.structural)

	tocPage := buildTOCPage(metas, chapters, meta.Language)

	files := []outputFile{
		{path: containerPath, data: []byte(buildContainerXML())},
		{path: opfPath, data: []byte(buildOPF(meta, tocPage, chapters, assets))},
		{path: ncxPath, data: []byte(buildNCX(meta, chapters))},
		{path: contentRoot + tocPage.Href, data: []byte(tocPage.Content)},
	}
	for _, ch := range chapters {
		files = append(files, outputFile{path: contentRoot + ch.Href, data: []byte(ch.Content)})
	}
	for _, a := range assets {
		files = append(files, outputFile{path: contentRoot + a.Href, data: a.Content})
	}

	data, err := writeArchive(files)
	if err != nil {
		return nil, Report{}, err
	}
	return data, report, nil
}

// extractAll opens, reads, and extracts every input book. With concurrency
// above 1 the books are processed in parallel; batches are still returned
// indexed by input position, and the lowest-indexed failure wins so errors
// are deterministic too.
func extractAll(inputs [][]byte, concurrency int) ([]*batch, error) {
	batches := make([]*batch, len(inputs))
	errs := make([]error, len(inputs))

	if concurrency <= 1 {
		for i, data := range inputs {
			b, err := extractOne(data, i)
			if err != nil {
				return nil, err
			}
			batches[i] = b
		}
		return batches, nil
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, data := range inputs {
		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			batches[i], errs[i] = extractOne(data, i)
		}(i, data)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return batches, nil
}

// extractOne processes a single input buffer into its batch.
func extractOne(data []byte, index int) (*batch, error) {
	a, err := openArchive(data)
	if err != nil {
		return nil, fmt.Errorf("book %d: %w", index, err)
	}
	sb, err := readSourceBook(a, index)
	if err != nil {
		return nil, err
	}
	b, err := extractBook(a, sb)
	if err != nil {
		return nil, err
	}
	b.language = sb.language
	return b, nil
}
