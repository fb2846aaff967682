package staging

import (
	"context"
	"fmt"
	"net/url"

	"CatalogSync/internal/config"
	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"
	"CatalogSync/internal/platform"
)

// Payload is a serialized priced catalog ready for upload.
type Payload struct {
	Name string
	Data []byte
}

// Staged describes where a payload ended up. Key is set only by backends
// that address objects by key.
type Staged struct {
	Location string
	Key      string
}

// Uploader makes a payload retrievable by URL. Errors wrap model.ErrStaging.
type Uploader interface {
	Stage(ctx context.Context, p Payload) (Staged, error)
	Name() string
}

// New builds the uploader selected by cfg.Staging.Mode.
func New(ctx context.Context, cfg *config.Config, pc *platform.Client, log *logger.Logger) (Uploader, error) {
	switch cfg.Staging.Mode {
	case config.StagingMultipart, "":
		return NewMultipart(pc, log), nil
	case config.StagingLocal:
		return NewLocal(cfg.Staging.LocalDir, NewMultipart(pc, log), log), nil
	case config.StagingS3:
		s := cfg.Staging.S3
		return NewS3(ctx, s.Bucket, s.Region, s.Prefix, s.PresignExpiry, cfg.Staging.Timeout, log)
	default:
		return nil, fmt.Errorf("%w: unknown staging mode %q", model.ErrConfiguration, cfg.Staging.Mode)
	}
}

func stagingErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{model.ErrStaging}, args...)...)
}

// absoluteURL rejects anything that is not a full http(s) URL.
func absoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return stagingErr("location %q is not a URL: %v", raw, err)
	}
	if !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return stagingErr("location %q is not an absolute URL", raw)
	}
	return nil
}
