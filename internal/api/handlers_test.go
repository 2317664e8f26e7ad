package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgallion1/chartmate/internal/blob"
	"github.com/dgallion1/chartmate/internal/config"
	"github.com/dgallion1/chartmate/internal/pipeline"
	"github.com/dgallion1/chartmate/internal/status"
)

const testKey = "test-api-key"

// nopDispatcher drops invocations; the handlers under test never need the
// pipeline stages to actually run.
type nopDispatcher struct{}

func (nopDispatcher) InvokeAsync(stage string, payload any) {}

func newTestServer() (*Server, *blob.Memory, *status.Memory) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	blobs := blob.NewMemory()
	statuses := status.NewMemory()
	in := pipeline.NewIntake(blobs, statuses, nopDispatcher{}, log)
	cfg := config.Config{APIKey: testKey}
	return NewServer(in, blobs, statuses, log, cfg), blobs, statuses
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestAuth(t *testing.T) {
	s, _, _ := newTestServer()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + testKey, http.StatusBadRequest}, // passes auth, fails validation
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/jobs", strings.NewReader("{}"))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHealthIsPublic(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSubmit_NewJob(t *testing.T) {
	s, _, statuses := newTestServer()

	rec := doRequest(s, "POST", "/api/jobs", map[string]any{
		"links": []string{"https://b.s3.amazonaws.com/chart.pdf"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatal("missing job_id")
	}
	if body["status"] != status.InProgress {
		t.Errorf("status field = %v", body["status"])
	}
	if got, _ := statuses.Get(context.Background(), jobID); got != status.InProgress {
		t.Errorf("stored status = %q", got)
	}
}

func TestSubmit_Validation(t *testing.T) {
	s, _, _ := newTestServer()

	if rec := doRequest(s, "POST", "/api/jobs", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty links: status = %d", rec.Code)
	}
	if rec := doRequest(s, "POST", "/api/jobs", map[string]any{
		"job_id": "no-such-job",
		"links":  []string{"https://b.s3.amazonaws.com/chart.pdf"},
	}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown job: status = %d", rec.Code)
	}
}

func TestSubmit_UpToDate(t *testing.T) {
	s, _, _ := newTestServer()

	link := "https://b.s3.amazonaws.com/chart.pdf"
	rec := doRequest(s, "POST", "/api/jobs", map[string]any{"links": []string{link}})
	jobID := decodeBody(t, rec)["job_id"].(string)

	rec = doRequest(s, "POST", "/api/jobs", map[string]any{"job_id": jobID, "links": []string{link}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "Everything is up to date." {
		t.Errorf("message = %v", body["message"])
	}
}

func TestResult_States(t *testing.T) {
	s, blobs, statuses := newTestServer()
	ctx := context.Background()

	// Unknown job.
	if rec := doRequest(s, "GET", "/api/jobs/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown: status = %d", rec.Code)
	}

	// In progress.
	statuses.Set(ctx, "j1", status.InProgress)
	if rec := doRequest(s, "GET", "/api/jobs/j1", nil); rec.Code != http.StatusAccepted {
		t.Errorf("in progress: status = %d", rec.Code)
	}

	// Failed.
	statuses.Set(ctx, "j2", status.Failed("no extracted text found"))
	rec := doRequest(s, "GET", "/api/jobs/j2", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("failed: status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["status"]; got != "Failed: no extracted text found" {
		t.Errorf("failed status field = %v", got)
	}

	// Completed with a record.
	record := pipeline.CompositeRecord{Responses: map[string]json.RawMessage{
		"0": json.RawMessage(`{"patientInformation": {"fullName": "Jane Doe"}}`),
	}}
	data, _ := json.Marshal(record)
	blobs.Put(ctx, pipeline.CompositeRecordKey("j3"), data)
	statuses.Set(ctx, "j3", status.Completed)

	rec = doRequest(s, "GET", "/api/jobs/j3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("completed: status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != status.Completed {
		t.Errorf("status field = %v", body["status"])
	}
	if _, ok := body["responses"].(map[string]any); !ok {
		t.Errorf("responses missing: %v", body)
	}
	if pct, ok := body["completeness_pct"].(float64); !ok || pct <= 0 {
		t.Errorf("completeness_pct = %v", body["completeness_pct"])
	}

	// Completed but the record is gone.
	statuses.Set(ctx, "j4", status.Completed)
	if rec := doRequest(s, "GET", "/api/jobs/j4", nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("missing record: status = %d", rec.Code)
	}
}
