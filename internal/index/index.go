// Package index builds and queries the per-job semantic index: an ordered
// set of text chunks with one embedding vector per chunk, persisted as two
// companion blob artifacts.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/dgallion1/chartmate/internal/blob"
)

// Embedder produces one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the in-memory form of a job's semantic index.
type Index struct {
	Chunks  []string
	Vectors [][]float32
}

// Config controls chunking.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// Build chunks the text deterministically and embeds every chunk.
func Build(ctx context.Context, embedder Embedder, text string, cfg Config) (*Index, error) {
	chunks := Split(text, cfg.ChunkSize, cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("index: no chunks produced from text")
	}

	vectors, err := embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("index: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	return &Index{Chunks: chunks, Vectors: vectors}, nil
}

// Save persists the index as two companion artifacts: the chunk structure
// and the vectors.
func (ix *Index) Save(ctx context.Context, store blob.Store, chunksKey, vectorsKey string) error {
	chunkData, err := json.Marshal(ix.Chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	vectorData, err := json.Marshal(ix.Vectors)
	if err != nil {
		return fmt.Errorf("marshal vectors: %w", err)
	}
	if err := store.Put(ctx, chunksKey, chunkData); err != nil {
		return fmt.Errorf("put chunks artifact: %w", err)
	}
	if err := store.Put(ctx, vectorsKey, vectorData); err != nil {
		return fmt.Errorf("put vectors artifact: %w", err)
	}
	return nil
}

// Load reads both artifacts back into an Index.
func Load(ctx context.Context, store blob.Store, chunksKey, vectorsKey string) (*Index, error) {
	chunkData, err := store.Get(ctx, chunksKey)
	if err != nil {
		return nil, fmt.Errorf("get chunks artifact: %w", err)
	}
	vectorData, err := store.Get(ctx, vectorsKey)
	if err != nil {
		return nil, fmt.Errorf("get vectors artifact: %w", err)
	}

	var ix Index
	if err := json.Unmarshal(chunkData, &ix.Chunks); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	if err := json.Unmarshal(vectorData, &ix.Vectors); err != nil {
		return nil, fmt.Errorf("decode vectors: %w", err)
	}
	if len(ix.Chunks) != len(ix.Vectors) {
		return nil, fmt.Errorf("index artifacts disagree: %d chunks, %d vectors", len(ix.Chunks), len(ix.Vectors))
	}
	return &ix, nil
}

// Search embeds the query and returns the top-k chunks by cosine similarity,
// most similar first.
func (ix *Index) Search(ctx context.Context, embedder Embedder, query string, k int) ([]string, error) {
	if k <= 0 {
		k = 6
	}

	vecs, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}
	q := vecs[0]

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, 0, len(ix.Vectors))
	for i, v := range ix.Vectors {
		scores = append(scores, scored{idx: i, score: cosine(q, v)})
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	if k > len(scores) {
		k = len(scores)
	}
	out := make([]string, 0, k)
	for _, s := range scores[:k] {
		out = append(out, ix.Chunks[s.idx])
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
