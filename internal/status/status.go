package status

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned for job identifiers the store has never seen.
var ErrNotFound = errors.New("status: job not found")

// Well-known status values. Anything else is a domain error string.
const (
	InProgress = "In Progress"
	Completed  = "Extraction completed"
)

// Failed builds the error status value for a terminal job failure.
func Failed(reason string) string {
	return "Failed: " + reason
}

// IsFailed reports whether a status value records a terminal failure.
func IsFailed(v string) bool {
	return strings.HasPrefix(v, "Failed: ")
}

// Store maps job identifiers to an opaque status string, last writer wins.
type Store interface {
	Set(ctx context.Context, jobID, value string) error
	Get(ctx context.Context, jobID string) (string, error)
}

// Memory is an in-memory Store used by tests.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Set(ctx context.Context, jobID, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[jobID] = value
	return nil
}

func (m *Memory) Get(ctx context.Context, jobID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[jobID]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}
