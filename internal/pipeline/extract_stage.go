package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/chartmate/internal/blob"
	"github.com/dgallion1/chartmate/internal/docref"
	"github.com/dgallion1/chartmate/internal/ocr"
	"github.com/dgallion1/chartmate/internal/raster"
	"github.com/dgallion1/chartmate/internal/status"
)

// Extractor is the document extraction stage: it OCRs every page of every
// referenced document and persists the job's aggregated text.
type Extractor struct {
	blobs      blob.Store
	statuses   status.Store
	engine     ocr.Engine
	raster     raster.Rasterizer
	dispatcher Dispatcher
	log        *slog.Logger
}

func NewExtractor(blobs blob.Store, statuses status.Store, engine ocr.Engine, r raster.Rasterizer, d Dispatcher, log *slog.Logger) *Extractor {
	return &Extractor{
		blobs:      blobs,
		statuses:   statuses,
		engine:     engine,
		raster:     r,
		dispatcher: d,
		log:        log,
	}
}

// HandlePayload adapts Run to the dispatcher's handler signature.
func (e *Extractor) HandlePayload(ctx context.Context, payload []byte) {
	var p ExtractPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		e.log.Error("extract: bad payload", "error", err)
		return
	}
	e.Run(ctx, p.JobID, p.Links)
}

// Run processes the given references in submission order. Failures are local:
// a bad reference or an unfetchable document skips that document only, and a
// failed page skips that page only. The aggregated-text artifact is written
// once at the end (append when one already exists), then the indexing stage
// is triggered. A persist failure is job-fatal: proceeding would index a
// stale artifact missing this batch's text.
func (e *Extractor) Run(ctx context.Context, jobID string, links []string) {
	log := e.log.With("job_id", jobID)

	var batch AggregatedText
	for _, link := range links {
		ref, err := docref.Parse(link)
		if err != nil {
			log.Error("skipping malformed reference", "link", link, "error", err)
			continue
		}

		docText, err := e.extractDocument(ctx, log, ref)
		if err != nil {
			log.Error("document failed, continuing with remaining references", "key", ref.Key, "error", err)
			continue
		}
		batch = batch.Append(docText)
	}

	if batch.Pages > 0 {
		if err := e.persist(ctx, jobID, batch); err != nil {
			log.Error("persist aggregated text", "error", err)
			e.fail(ctx, log, jobID, "could not persist extracted text")
			return
		}
		log.Info("aggregated text persisted", "pages", batch.Pages, "confidence", batch.Confidence)
	} else {
		log.Warn("no pages extracted from submission")
	}

	e.dispatcher.InvokeAsync(StageIndex, IndexPayload{JobID: jobID, Links: links})
}

func (e *Extractor) fail(ctx context.Context, log *slog.Logger, jobID, reason string) {
	if err := e.statuses.Set(ctx, jobID, status.Failed(reason)); err != nil {
		log.Error("record job failure", "reason", reason, "error", err)
	}
}

func (e *Extractor) extractDocument(ctx context.Context, log *slog.Logger, ref docref.Ref) (AggregatedText, error) {
	switch ref.Kind {
	case docref.KindPDF:
		return e.extractPDF(ctx, log, ref)
	case docref.KindImage:
		return e.extractImage(ctx, ref)
	default:
		return AggregatedText{}, fmt.Errorf("unsupported media kind for %q", ref.Key)
	}
}

// extractPDF fans out one OCR worker per page. The fan-out is deliberately
// unbounded: page OCR is I/O-bound and bursty, so the only limit is worker
// capacity, unlike the rate-limited section queries downstream.
func (e *Extractor) extractPDF(ctx context.Context, log *slog.Logger, ref docref.Ref) (AggregatedText, error) {
	doc, err := e.blobs.Get(ctx, ref.Key)
	if err != nil {
		return AggregatedText{}, fmt.Errorf("fetch document: %w", err)
	}

	n, err := e.raster.PageCount(doc)
	if err != nil {
		return AggregatedText{}, fmt.Errorf("page count: %w", err)
	}
	if n == 0 {
		return AggregatedText{}, nil
	}

	results := make(chan PageResult, n)
	var wg sync.WaitGroup
	for page := 0; page < n; page++ {
		page := page
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.ocrPage(ctx, doc, page)
			if err != nil {
				// Partial failure: this page contributes to neither
				// the text nor the confidence denominator.
				log.Warn("page OCR failed, skipping page", "key", ref.Key, "page", page, "error", err)
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	pages := make([]PageResult, 0, n)
	for res := range results {
		pages = append(pages, res)
	}

	// Completion order is arbitrary; AssemblePages re-sorts by page index.
	return AssemblePages(pages), nil
}

func (e *Extractor) ocrPage(ctx context.Context, doc []byte, page int) (PageResult, error) {
	img, err := e.raster.RenderPage(ctx, doc, page)
	if err != nil {
		return PageResult{}, fmt.Errorf("render: %w", err)
	}
	lines, err := e.engine.DetectText(ctx, img)
	if err != nil {
		return PageResult{}, fmt.Errorf("detect text: %w", err)
	}
	return PageFromLines(page, lines), nil
}

// extractImage OCRs a single-image document directly, no page fan-out.
func (e *Extractor) extractImage(ctx context.Context, ref docref.Ref) (AggregatedText, error) {
	img, err := e.blobs.Get(ctx, ref.Key)
	if err != nil {
		return AggregatedText{}, fmt.Errorf("fetch document: %w", err)
	}
	lines, err := e.engine.DetectText(ctx, img)
	if err != nil {
		return AggregatedText{}, fmt.Errorf("detect text: %w", err)
	}
	return AssemblePages([]PageResult{PageFromLines(0, lines)}), nil
}

// persist appends to the job's aggregated-text artifact, or creates it. One
// invocation is the only writer for its job, so read-modify-write is safe.
func (e *Extractor) persist(ctx context.Context, jobID string, batch AggregatedText) error {
	key := AggregatedTextKey(jobID)
	final := batch

	existing, err := e.blobs.Get(ctx, key)
	switch {
	case err == nil:
		var prior AggregatedText
		if err := json.Unmarshal(existing, &prior); err != nil {
			return fmt.Errorf("decode prior artifact: %w", err)
		}
		final = prior.Append(batch)
	case errors.Is(err, blob.ErrNotFound):
		// First write for this job.
	default:
		return fmt.Errorf("read prior artifact: %w", err)
	}

	data, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := e.blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	return nil
}
