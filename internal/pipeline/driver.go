package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"
	"unicode/utf8"

	"invoxtract/internal/aggregator"
	"invoxtract/internal/domain"
	"invoxtract/internal/pagetext"
	"invoxtract/internal/port"
	"invoxtract/internal/recovery"
)

const (
	DefaultMaxChunkChars = 16000
	DefaultPacingDelay   = time.Second
)

// Config holds the driver's chunk budget and call pacing.
type Config struct {
	// MaxChunkChars is the rune budget per extraction call. Zero or less disables splitting.
	MaxChunkChars int
	// PacingDelay is the pause inserted between consecutive extraction calls.
	PacingDelay time.Duration
	// Verbose logs every chunk outcome.
	Verbose bool
}

// DefaultConfig returns the production chunk budget and pacing.
func DefaultConfig() Config {
	return Config{MaxChunkChars: DefaultMaxChunkChars, PacingDelay: DefaultPacingDelay}
}

// Driver sequences pages through formatting, splitting, extraction, recovery
// and aggregation. A Driver is stateless between documents and may be shared;
// every Run gets its own Aggregator.
type Driver struct {
	extractor port.Extractor
	cfg       Config
}

// New creates a Driver.
func New(extractor port.Extractor, cfg Config) *Driver {
	return &Driver{extractor: extractor, cfg: cfg}
}

// Process analyzes a document and runs the pages through the pipeline. An
// analyzer failure yields an empty invoice list with Result.Err set.
func (d *Driver) Process(ctx context.Context, analyzer port.LayoutAnalyzer, doc port.DocumentInput) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pipeline.Process: panic analyzing %s: %v", doc.FileName, r)
			res = &Result{
				Invoices: []domain.Invoice{},
				Err:      fmt.Errorf("pipeline.Process: %w: panic: %v", domain.ErrDocumentUnreadable, r),
			}
		}
	}()

	pages, err := analyzer.Analyze(ctx, doc)
	if err != nil {
		log.Printf("pipeline.Process: failed to analyze %s: %v", doc.FileName, err)
		return &Result{
			Invoices: []domain.Invoice{},
			Err:      fmt.Errorf("pipeline.Process: %w: %w", domain.ErrDocumentUnreadable, err),
		}
	}
	return d.Run(ctx, pages)
}

// Run processes pages in ascending page-number order and returns the finalized
// invoices. A failing page is recorded and skipped. If ctx is canceled the
// invoice still open is discarded and only already-finalized ones are returned.
func (d *Driver) Run(ctx context.Context, pages []domain.PageContent) *Result {
	ordered := make([]domain.PageContent, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PageNumber < ordered[j].PageNumber
	})

	run := &docRun{
		driver: d,
		agg:    aggregator.New(),
	}
	res := &Result{Pages: make([]PageResult, 0, len(ordered))}

	for i := range ordered {
		if err := ctx.Err(); err != nil {
			return run.canceled(res, err)
		}
		pr := run.page(ctx, ordered[i])
		res.Pages = append(res.Pages, pr)
	}
	if err := ctx.Err(); err != nil {
		return run.canceled(res, err)
	}

	res.Invoices = run.agg.Flush()
	log.Printf("pipeline.Run: %d pages, %d invoices, outcomes %v", len(ordered), len(res.Invoices), res.Counts())
	return res
}

// docRun is the per-document state: one aggregator and the call counter for pacing.
type docRun struct {
	driver *Driver
	agg    *aggregator.Aggregator
	calls  int
}

func (r *docRun) canceled(res *Result, err error) *Result {
	res.Invoices = r.agg.Finalized()
	res.Err = fmt.Errorf("pipeline.Run: %w", err)
	log.Printf("pipeline.Run: canceled after %d pages, keeping %d finalized invoices", len(res.Pages), len(res.Invoices))
	return res
}

func (r *docRun) page(ctx context.Context, page domain.PageContent) (pr PageResult) {
	pr.PageNumber = page.PageNumber
	defer func() {
		if rec := recover(); rec != nil {
			pr.Err = fmt.Errorf("pipeline.page: panic on page %d: %v", page.PageNumber, rec)
			log.Printf("pipeline.page: recovered panic on page %d: %v", page.PageNumber, rec)
		}
	}()

	if err := page.Validate(); err != nil {
		pr.Err = fmt.Errorf("pipeline.page: page %d: %w", page.PageNumber, err)
		log.Printf("pipeline.page: skipping page: %v", pr.Err)
		return pr
	}

	chunks, oversized := pagetext.Chunks(page, r.driver.cfg.MaxChunkChars)
	pr.Oversized = oversized
	if oversized {
		log.Printf("pipeline.page: page %d has a table section over %d chars, sending unsplit",
			page.PageNumber, r.driver.cfg.MaxChunkChars)
	}

	for _, chunk := range chunks {
		if err := r.pace(ctx); err != nil {
			return pr
		}
		cr := r.chunk(ctx, chunk)
		pr.Chunks = append(pr.Chunks, cr)
	}
	return pr
}

func (r *docRun) chunk(ctx context.Context, chunk domain.TextChunk) ChunkResult {
	cr := ChunkResult{Ordinal: chunk.Ordinal, Chars: utf8.RuneCountInString(chunk.Body)}

	out, err := r.driver.extractor.Extract(ctx, port.ExtractInput{Chunk: chunk})
	r.calls++
	if err == nil && out == nil {
		err = errors.New("extractor returned no output")
	}
	if err != nil {
		cr.Outcome = OutcomeFailed
		cr.Err = fmt.Errorf("pipeline.chunk: page %d chunk %d: %w", chunk.SourcePage, chunk.Ordinal, err)
		log.Printf("pipeline.chunk: extraction failed for page %d chunk %d: %v", chunk.SourcePage, chunk.Ordinal, err)
		return cr
	}
	cr.ModelUsed = out.ModelUsed

	recovered := recovery.Recover(out.RawText)
	cr.Strategy = recovered.Strategy
	if !recovered.OK() {
		cr.Outcome = OutcomeUnrecoverable
		log.Printf("pipeline.chunk: no record recovered for page %d chunk %d (%d chars of output)",
			chunk.SourcePage, chunk.Ordinal, len(out.RawText))
		return cr
	}

	for _, m := range recovered.Records {
		rec, ok := domain.RecordFromMap(m)
		if !ok || aggregator.IsEmpty(rec) {
			continue
		}
		r.agg.Ingest(rec)
		cr.Records++
	}
	if cr.Records > 0 {
		cr.Outcome = OutcomeExtracted
	} else {
		cr.Outcome = OutcomeEmpty
	}

	if r.driver.cfg.Verbose {
		log.Printf("pipeline.chunk: page %d chunk %d: %s via %s, %d records",
			chunk.SourcePage, chunk.Ordinal, cr.Outcome, cr.Strategy, cr.Records)
	}
	return cr
}

// pace waits PacingDelay before every extraction call except the first.
func (r *docRun) pace(ctx context.Context) error {
	if r.calls == 0 || r.driver.cfg.PacingDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.driver.cfg.PacingDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
