package staging

import (
	"bytes"
	"context"
	"encoding/json"

	"CatalogSync/internal/logger"
	"CatalogSync/internal/platform"
)

// UploadPath is the platform's file processor endpoint. The spelling is the
// platform's.
const UploadPath = "file-proccesor/"

// Multipart posts the payload to the platform's file processor, which
// answers with the hosted file URL.
type Multipart struct {
	client *platform.Client
	log    *logger.Logger
}

func NewMultipart(pc *platform.Client, log *logger.Logger) *Multipart {
	return &Multipart{client: pc, log: log.With("staging")}
}

func (m *Multipart) Name() string { return "multipart" }

type uploadResponse struct {
	UploadedFileURL string `json:"uploadedFileUrl"`
	Location        string `json:"location"`
	URL             string `json:"url"`
}

func (r uploadResponse) location() string {
	for _, v := range []string{r.UploadedFileURL, r.Location, r.URL} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (m *Multipart) Stage(ctx context.Context, p Payload) (Staged, error) {
	raw, err := m.client.PostFile(ctx, UploadPath, "file", p.Name, "application/json", bytes.NewReader(p.Data))
	if err != nil {
		return Staged{}, stagingErr("upload %s: %v", p.Name, err)
	}

	var resp uploadResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Staged{}, stagingErr("decode upload response: %v", err)
	}
	loc := resp.location()
	if loc == "" {
		return Staged{}, stagingErr("upload response has no file location")
	}
	if err := absoluteURL(loc); err != nil {
		return Staged{}, err
	}

	m.log.Info().Str("location", loc).Int("bytes", len(p.Data)).Msg("catalog staged")
	return Staged{Location: loc}, nil
}
