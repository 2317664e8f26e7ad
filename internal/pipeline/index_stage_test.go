package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dgallion1/chartmate/internal/blob"
	"github.com/dgallion1/chartmate/internal/index"
	"github.com/dgallion1/chartmate/internal/status"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

func putAggregated(t *testing.T, blobs blob.Store, jobID string, agg AggregatedText) {
	t.Helper()
	data, _ := json.Marshal(agg)
	if err := blobs.Put(context.Background(), AggregatedTextKey(jobID), data); err != nil {
		t.Fatal(err)
	}
}

func TestIndexer_BuildsAndDispatches(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	statuses := status.NewMemory()
	d := &recordingDispatcher{}
	putAggregated(t, blobs, "job1", AggregatedText{Text: "PATIENT Jane Doe referred for PT ", Confidence: 90, Pages: 1})

	ix := NewIndexer(blobs, statuses, hashEmbedder{}, d, index.Config{ChunkSize: 10, ChunkOverlap: 2}, testLogger())
	ix.Run(ctx, "job1")

	for _, key := range []string{ChunksKey("job1"), VectorsKey("job1")} {
		if ok, _ := blobs.Exists(ctx, key); !ok {
			t.Errorf("missing index artifact %q", key)
		}
	}

	calls := d.invocations(StageSections)
	if len(calls) != 1 {
		t.Fatalf("expected 1 sections dispatch, got %d", len(calls))
	}
	var p SectionsPayload
	json.Unmarshal(calls[0].payload, &p)
	if p.JobID != "job1" {
		t.Errorf("sections payload job = %q", p.JobID)
	}

	// The indexer never completes a job itself.
	if got, err := statuses.Get(ctx, "job1"); err == nil {
		t.Errorf("indexer wrote status %q", got)
	}
}

func TestIndexer_NoTextArtifactFailsJob(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	statuses := status.NewMemory()
	d := &recordingDispatcher{}

	ix := NewIndexer(blobs, statuses, hashEmbedder{}, d, index.Config{ChunkSize: 100, ChunkOverlap: 10}, testLogger())
	ix.Run(ctx, "job1")

	got, err := statuses.Get(ctx, "job1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got != status.Failed("no extracted text found") {
		t.Errorf("status = %q", got)
	}
	if len(d.invocations(StageSections)) != 0 {
		t.Error("failed job must not reach the sections stage")
	}
}

func TestIndexer_EmbedderFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	statuses := status.NewMemory()
	putAggregated(t, blobs, "job1", AggregatedText{Text: "some extracted text ", Confidence: 80, Pages: 1})

	ix := NewIndexer(blobs, statuses, failingEmbedder{}, &recordingDispatcher{}, index.Config{ChunkSize: 100, ChunkOverlap: 10}, testLogger())
	ix.Run(ctx, "job1")

	got, _ := statuses.Get(ctx, "job1")
	if got != status.Failed("index build failed") {
		t.Errorf("status = %q", got)
	}
}
