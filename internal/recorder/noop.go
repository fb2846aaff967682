package recorder

import (
	"sync"

	"CatalogSync/internal/model"
)

// NoopRecorder is used when SQLite is not configured. It only remembers the
// most recent run in memory.
type NoopRecorder struct {
	mu   sync.Mutex
	last *model.RunResult
}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(res *model.RunResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = res
	return nil
}

func (n *NoopRecorder) LastRun() (*model.RunResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last, nil
}

func (n *NoopRecorder) Close() error { return nil }
