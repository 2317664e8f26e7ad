package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/chartmate/internal/ocr"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRasterizer serves a fixed set of page images per document. Rendering
// can be slowed per page to force out-of-order completion.
type fakeRasterizer struct {
	pages  int
	delays map[int]time.Duration
	fail   map[int]bool
}

func (f *fakeRasterizer) PageCount(doc []byte) (int, error) {
	return f.pages, nil
}

func (f *fakeRasterizer) RenderPage(ctx context.Context, doc []byte, page int) ([]byte, error) {
	if d, ok := f.delays[page]; ok {
		time.Sleep(d)
	}
	if f.fail[page] {
		return nil, fmt.Errorf("render failed")
	}
	return []byte("page-" + strconv.Itoa(page)), nil
}

// fakeOCR maps rendered image bytes to detected lines.
type fakeOCR struct {
	mu    sync.Mutex
	lines map[string][]ocr.Line
	fail  map[string]bool
	calls int
}

func (f *fakeOCR) DetectText(ctx context.Context, image []byte) ([]ocr.Line, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	key := string(image)
	if f.fail[key] {
		return nil, fmt.Errorf("ocr failed")
	}
	return f.lines[key], nil
}

func (f *fakeOCR) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// hashEmbedder is deterministic: the vector depends only on the text.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 8)
		for j, r := range t {
			v[j%8] += float32(r%17) / 17
		}
		out[i] = v
	}
	return out, nil
}

// fakeCompleter answers every prompt with fixed JSON, with optional per-call
// failures keyed by a substring of the prompt.
type fakeCompleter struct {
	mu       sync.Mutex
	output   string
	failOn   string
	failWith error
	calls    int
}

func (f *fakeCompleter) Complete(ctx context.Context, promptSections []string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failOn != "" {
		joined := strings.Join(promptSections, "\n")
		if strings.Contains(joined, f.failOn) {
			return "", f.failWith
		}
	}
	if f.output == "" {
		return `{"filled": "value"}`, nil
	}
	return f.output, nil
}

// recordingDispatcher captures invocations instead of running anything.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []recordedCall
}

type recordedCall struct {
	stage   string
	payload []byte
}

func (d *recordingDispatcher) InvokeAsync(stage string, payload any) {
	data, _ := json.Marshal(payload)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, recordedCall{stage: stage, payload: data})
}

func (d *recordingDispatcher) invocations(stage string) []recordedCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []recordedCall
	for _, c := range d.calls {
		if c.stage == stage {
			out = append(out, c)
		}
	}
	return out
}
