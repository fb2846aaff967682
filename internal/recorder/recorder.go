package recorder

import "CatalogSync/internal/model"

// Recorder persists run history outside the pipeline.
type Recorder interface {
	RecordRun(res *model.RunResult) error
	// LastRun returns nil, nil when nothing has been recorded.
	LastRun() (*model.RunResult, error)
	Close() error
}
