package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dgallion1/chartmate/internal/blob"
	"github.com/dgallion1/chartmate/internal/index"
	"github.com/dgallion1/chartmate/internal/status"
)

// Indexer is the indexing stage: it rebuilds the job's semantic index from
// the aggregated-text artifact.
type Indexer struct {
	blobs      blob.Store
	statuses   status.Store
	embedder   index.Embedder
	dispatcher Dispatcher
	cfg        index.Config
	log        *slog.Logger
}

func NewIndexer(blobs blob.Store, statuses status.Store, embedder index.Embedder, d Dispatcher, cfg index.Config, log *slog.Logger) *Indexer {
	return &Indexer{
		blobs:      blobs,
		statuses:   statuses,
		embedder:   embedder,
		dispatcher: d,
		cfg:        cfg,
		log:        log,
	}
}

// HandlePayload adapts Run to the dispatcher's handler signature.
func (ix *Indexer) HandlePayload(ctx context.Context, payload []byte) {
	var p IndexPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		ix.log.Error("index: bad payload", "error", err)
		return
	}
	ix.Run(ctx, p.JobID)
}

// Run locates the job's text artifact, rebuilds the index from scratch, and
// triggers structured extraction. A job with no text artifact is failed
// explicitly rather than left in progress.
func (ix *Indexer) Run(ctx context.Context, jobID string) {
	log := ix.log.With("job_id", jobID)

	agg, ok := ix.findAggregatedText(ctx, log, jobID)
	if !ok {
		ix.fail(ctx, log, jobID, "no extracted text found")
		return
	}

	built, err := index.Build(ctx, ix.embedder, agg.Text, ix.cfg)
	if err != nil {
		log.Error("index build failed", "error", err)
		ix.fail(ctx, log, jobID, "index build failed")
		return
	}

	if err := built.Save(ctx, ix.blobs, ChunksKey(jobID), VectorsKey(jobID)); err != nil {
		log.Error("index save failed", "error", err)
		ix.fail(ctx, log, jobID, "index persist failed")
		return
	}

	log.Info("semantic index rebuilt", "chunks", len(built.Chunks))
	ix.dispatcher.InvokeAsync(StageSections, SectionsPayload{JobID: jobID})
}

// findAggregatedText lists the job prefix and selects the text artifact by
// its suffix.
func (ix *Indexer) findAggregatedText(ctx context.Context, log *slog.Logger, jobID string) (AggregatedText, bool) {
	keys, err := ix.blobs.List(ctx, jobID+"/")
	if err != nil {
		log.Error("list job artifacts", "error", err)
		return AggregatedText{}, false
	}

	var textKey string
	for _, k := range keys {
		if strings.HasSuffix(k, aggregatedTextSuffix) {
			textKey = k
			break
		}
	}
	if textKey == "" {
		return AggregatedText{}, false
	}

	data, err := ix.blobs.Get(ctx, textKey)
	if err != nil {
		log.Error("get aggregated text", "key", textKey, "error", err)
		return AggregatedText{}, false
	}
	var agg AggregatedText
	if err := json.Unmarshal(data, &agg); err != nil {
		log.Error("decode aggregated text", "key", textKey, "error", err)
		return AggregatedText{}, false
	}
	return agg, true
}

func (ix *Indexer) fail(ctx context.Context, log *slog.Logger, jobID, reason string) {
	if err := ix.statuses.Set(ctx, jobID, status.Failed(reason)); err != nil {
		log.Error("record job failure", "reason", reason, "error", err)
	}
}
