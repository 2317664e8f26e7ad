package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgallion1/chartmate/internal/blob"
	"github.com/dgallion1/chartmate/internal/index"
	"github.com/dgallion1/chartmate/internal/schema"
	"github.com/dgallion1/chartmate/internal/status"
)

// Completer fills a prompt built from ordered sections with model output.
type Completer interface {
	Complete(ctx context.Context, promptSections []string) (string, error)
}

// CompositeRecord is the terminal artifact: one entry per catalog section,
// keyed by section index as a string.
type CompositeRecord struct {
	Responses map[string]json.RawMessage `json:"responses"`
}

// SectionExtractor is the structured extraction stage: it runs one
// retrieval-augmented query per catalog section and merges the results.
type SectionExtractor struct {
	blobs       blob.Store
	statuses    status.Store
	embedder    index.Embedder
	llm         Completer
	concurrency int
	topK        int
	log         *slog.Logger
}

func NewSectionExtractor(blobs blob.Store, statuses status.Store, embedder index.Embedder, llm Completer, concurrency, topK int, log *slog.Logger) *SectionExtractor {
	if concurrency <= 0 {
		concurrency = 1
	}
	if topK <= 0 {
		topK = 6
	}
	return &SectionExtractor{
		blobs:       blobs,
		statuses:    statuses,
		embedder:    embedder,
		llm:         llm,
		concurrency: concurrency,
		topK:        topK,
		log:         log,
	}
}

// HandlePayload adapts Run to the dispatcher's handler signature.
func (s *SectionExtractor) HandlePayload(ctx context.Context, payload []byte) {
	var p SectionsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.log.Error("sections: bad payload", "error", err)
		return
	}
	s.Run(ctx, p.JobID)
}

// Run queries every catalog section against the job's index with bounded
// concurrency, merges the results, persists the composite record, and only
// then flips the job status to completed. One section's failure is recorded
// as an error marker and never blocks the others.
func (s *SectionExtractor) Run(ctx context.Context, jobID string) {
	log := s.log.With("job_id", jobID)

	ix, err := index.Load(ctx, s.blobs, ChunksKey(jobID), VectorsKey(jobID))
	if err != nil {
		log.Error("load semantic index", "error", err)
		s.fail(ctx, log, jobID, "semantic index unavailable")
		return
	}

	sections := schema.Catalog()
	type sectionResult struct {
		idx   int
		value json.RawMessage
	}
	results := make(chan sectionResult, len(sections))
	sem := make(chan struct{}, s.concurrency)

	for i, sec := range sections {
		sem <- struct{}{}
		go func(i int, sec schema.Section) {
			defer func() { <-sem }()
			value, err := s.extractSection(ctx, ix, sec)
			if err != nil {
				log.Error("section extraction failed", "section", sec.Name, "index", i, "error", err)
				value = errorMarker(err)
			}
			results <- sectionResult{idx: i, value: value}
		}(i, sec)
	}

	record := CompositeRecord{Responses: make(map[string]json.RawMessage, len(sections))}
	failed := 0
	for range sections {
		r := <-results
		record.Responses[strconv.Itoa(r.idx)] = r.value
		if isErrorMarker(r.value) {
			failed++
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		log.Error("marshal composite record", "error", err)
		s.fail(ctx, log, jobID, "could not persist composite record")
		return
	}
	if err := s.blobs.Put(ctx, CompositeRecordKey(jobID), data); err != nil {
		log.Error("persist composite record", "error", err)
		s.fail(ctx, log, jobID, "could not persist composite record")
		return
	}

	// The artifact is durable; only now may the status flip to completed.
	if err := s.statuses.Set(ctx, jobID, status.Completed); err != nil {
		log.Error("set completed status", "error", err)
		return
	}
	log.Info("extraction completed", "sections", len(sections), "failed_sections", failed)
}

// extractSection retrieves context for one section and asks the model to
// fill its template, retrying transient failures.
func (s *SectionExtractor) extractSection(ctx context.Context, ix *index.Index, sec schema.Section) (json.RawMessage, error) {
	chunks, err := ix.Search(ctx, s.embedder, string(sec.Template), s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	prompt := buildSectionPrompt(sec, chunks)

	var out string
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		out, lastErr = s.llm.Complete(ctx, prompt)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		s.log.Warn("retryable section error", "section", sec.Name, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if !json.Valid([]byte(out)) {
		return nil, fmt.Errorf("model returned unparseable output")
	}
	return json.RawMessage(out), nil
}

func buildSectionPrompt(sec schema.Section, chunks []string) []string {
	prompt := []string{
		"Please fill in the missing details in the following information:",
		"<context>",
	}
	prompt = append(prompt, chunks...)
	prompt = append(prompt,
		"</context>",
		"Please only return JSON (fill the values). Retrieve the appropriate values from the context.",
		fmt.Sprintf("Understand and fill the answer for this %s", sec.Template),
		sec.Instruction,
	)
	return prompt
}

func errorMarker(err error) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return data
}

func isErrorMarker(v json.RawMessage) bool {
	var m map[string]string
	if err := json.Unmarshal(v, &m); err != nil {
		return false
	}
	_, ok := m["error"]
	return ok && len(m) == 1
}

func (s *SectionExtractor) fail(ctx context.Context, log *slog.Logger, jobID, reason string) {
	if err := s.statuses.Set(ctx, jobID, status.Failed(reason)); err != nil {
		log.Error("record job failure", "reason", reason, "error", err)
	}
}
