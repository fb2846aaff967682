package handoff

import (
	"context"
	"encoding/json"
	"fmt"

	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"
	"CatalogSync/internal/platform"
)

// BulkUploadPath is the platform's bulk-upsert ingestion endpoint.
const BulkUploadPath = "products/json-bulk-upload"

// Ack is the platform's acknowledgement, kept raw.
type Ack struct {
	Body json.RawMessage
}

type locationRequest struct {
	Location string `json:"Location"`
	Upsert   bool   `json:"upsert"`
}

type payloadRequest struct {
	Products []model.PricedEntry `json:"Products"`
	Upsert   bool                `json:"upsert"`
}

// Client asks the platform to ingest a staged catalog. It never rolls back
// staging on failure.
type Client struct {
	platform *platform.Client
	log      *logger.Logger
}

func New(pc *platform.Client, log *logger.Logger) *Client {
	return &Client{platform: pc, log: log.With("handoff")}
}

// NotifyLocation submits the staged file URL for bulk upsert.
func (c *Client) NotifyLocation(ctx context.Context, location string, count int) (Ack, error) {
	raw, err := c.platform.PostJSON(ctx, BulkUploadPath, locationRequest{Location: location, Upsert: true})
	if err != nil {
		return Ack{}, fmt.Errorf("%w: bulk upload of %d products: %v", model.ErrHandoff, count, err)
	}
	c.log.Info().Str("location", location).Int("count", count).Msg("bulk upload accepted")
	return Ack{Body: ack(raw)}, nil
}

// NotifyPayload submits the priced entries inline. Used when staging failed
// and direct payload fallback is enabled.
func (c *Client) NotifyPayload(ctx context.Context, entries []model.PricedEntry) (Ack, error) {
	raw, err := c.platform.PostJSON(ctx, BulkUploadPath, payloadRequest{Products: entries, Upsert: true})
	if err != nil {
		return Ack{}, fmt.Errorf("%w: direct upload of %d products: %v", model.ErrHandoff, len(entries), err)
	}
	c.log.Info().Int("count", len(entries)).Msg("direct payload accepted")
	return Ack{Body: ack(raw)}, nil
}

func ack(raw []byte) json.RawMessage {
	if json.Valid(raw) {
		return raw
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
