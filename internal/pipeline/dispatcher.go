package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Stage names used for dispatch.
const (
	StageExtract  = "extract"
	StageIndex    = "index"
	StageSections = "sections"
)

// ExtractPayload triggers the document extraction stage.
type ExtractPayload struct {
	JobID string   `json:"job_id"`
	Links []string `json:"links"`
}

// IndexPayload triggers the indexing stage.
type IndexPayload struct {
	JobID string   `json:"job_id"`
	Links []string `json:"links,omitempty"`
}

// SectionsPayload triggers the structured extraction stage.
type SectionsPayload struct {
	JobID string `json:"job_id"`
}

// Dispatcher hands a payload to a downstream stage without waiting for it.
// Delivery is at most once: a dropped invocation is lost, not retried.
type Dispatcher interface {
	InvokeAsync(stage string, payload any)
}

// Handler consumes one stage invocation. The payload is the JSON encoding of
// the stage's payload struct.
type Handler func(ctx context.Context, payload []byte)

// Local dispatches stages as goroutines inside this process. It tracks
// in-flight invocations so shutdown (and tests) can drain them.
type Local struct {
	mu       sync.Mutex
	handlers map[string]Handler
	wg       sync.WaitGroup
	log      *slog.Logger
}

func NewLocal(log *slog.Logger) *Local {
	return &Local{
		handlers: make(map[string]Handler),
		log:      log,
	}
}

// Register binds a stage name to its handler. Later registrations replace
// earlier ones.
func (d *Local) Register(stage string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[stage] = h
}

// InvokeAsync encodes the payload and runs the stage handler in its own
// goroutine. Unknown stages and marshal failures are logged and dropped;
// the caller never observes them.
func (d *Local) InvokeAsync(stage string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("dispatch: marshal payload", "stage", stage, "error", err)
		return
	}

	d.mu.Lock()
	h, ok := d.handlers[stage]
	d.mu.Unlock()
	if !ok {
		d.log.Error("dispatch: unknown stage", "stage", stage)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		h(context.Background(), data)
	}()
}

// Wait blocks until all in-flight invocations (including ones they spawn)
// have finished.
func (d *Local) Wait() {
	d.wg.Wait()
}
