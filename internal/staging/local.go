package staging

import (
	"context"
	"os"
	"path/filepath"

	"CatalogSync/internal/logger"
)

// Local writes the payload to disk before handing it to the next uploader.
// The file is kept so the last upload can be inspected.
type Local struct {
	dir  string
	next Uploader
	log  *logger.Logger
}

func NewLocal(dir string, next Uploader, log *logger.Logger) *Local {
	return &Local{dir: dir, next: next, log: log.With("staging")}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Stage(ctx context.Context, p Payload) (Staged, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return Staged{}, stagingErr("create %s: %v", l.dir, err)
	}
	path := filepath.Join(l.dir, filepath.Base(p.Name))
	if err := os.WriteFile(path, p.Data, 0o644); err != nil {
		return Staged{}, stagingErr("write %s: %v", path, err)
	}
	l.log.Debug().Str("path", path).Int("bytes", len(p.Data)).Msg("catalog written")

	data, err := os.ReadFile(path)
	if err != nil {
		return Staged{}, stagingErr("read back %s: %v", path, err)
	}
	return l.next.Stage(ctx, Payload{Name: filepath.Base(path), Data: data})
}
