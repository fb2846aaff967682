package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"

	"golang.org/x/time/rate"
)

const maxDiagnosticBody = 500

// Client talks to the supplier REST API. It holds no mutable state besides
// the rate limiter, so one Client can serve concurrent calls.
type Client struct {
	BaseURL string
	Signer  *Signer
	HTTP    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a supplier client. rps <= 0 disables throttling.
func NewClient(baseURL string, signer *Signer, timeout time.Duration, rps float64, log *logger.Logger) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Signer:  signer,
		HTTP:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With("supplier"),
	}
}

func (c *Client) Name() string { return "supplier" }

// TrackingQuery selects tracking info by invoice or by order, never both.
type TrackingQuery struct {
	Invoice string
	Order   string
}

// FetchInventory returns per-part inventory for the given part numbers.
func (c *Client) FetchInventory(ctx context.Context, parts []string) (json.RawMessage, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: at least one part number is required", model.ErrInvalidArgument)
	}
	pairs := make([]string, len(parts))
	for i, p := range parts {
		pairs[i] = "part=" + url.QueryEscape(p)
	}
	return c.get(ctx, "/get_inventory", "?"+strings.Join(pairs, "&"))
}

// GetTrackingInfo looks up shipment tracking for an invoice or an order.
func (c *Client) GetTrackingInfo(ctx context.Context, q TrackingQuery) (json.RawMessage, error) {
	switch {
	case q.Invoice != "" && q.Order != "":
		return nil, fmt.Errorf("%w: provide either invoice or order, not both", model.ErrInvalidArgument)
	case q.Invoice != "":
		return c.get(ctx, "/get_tracking_info", "?invoice="+url.QueryEscape(q.Invoice))
	case q.Order != "":
		return c.get(ctx, "/get_tracking_info", "?order="+url.QueryEscape(q.Order))
	default:
		return nil, fmt.Errorf("%w: invoice or order is required", model.ErrInvalidArgument)
	}
}

// GetPartsOnOrder lists parts currently on order with the supplier.
func (c *Client) GetPartsOnOrder(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/get_parts_on_order", "")
}

// PlaceOrder submits an order. The payload is serialized once in canonical
// form and those exact bytes are both signed and sent.
func (c *Client) PlaceOrder(ctx context.Context, payload any) (json.RawMessage, error) {
	body, err := CanonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode order: %v", model.ErrInvalidArgument, err)
	}
	return c.do(ctx, http.MethodPost, "/place_order", "", body)
}

func (c *Client) get(ctx context.Context, path, query string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path, query string, body []byte) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", model.ErrTransport, method, path, err)
	}
	auth, err := c.Signer.Sign(method, path, query, body)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path+query, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", model.ErrInvalidArgument, err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", model.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrTransport, path, err)
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Int("bytes", len(raw)).Dur("elapsed", time.Since(start)).Msg("supplier response")

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && !env.Success {
			return nil, fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, &model.VendorError{Errors: env.Errors})
		}
		return nil, fmt.Errorf("%w: %s %s: status %d, body: %s", model.ErrTransport, method, path, resp.StatusCode, truncate(raw))
	}
	if decodeErr != nil {
		return nil, &model.ContentTypeError{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        truncate(raw),
		}
	}
	return env.Unwrap()
}

// CanonicalJSON encodes v with sorted object keys, no insignificant
// whitespace and no HTML escaping.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Round-trip through a generic value so struct field order does not leak
	// into the output; maps are always encoded with sorted keys.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func truncate(b []byte) string {
	if len(b) > maxDiagnosticBody {
		return string(b[:maxDiagnosticBody])
	}
	return string(b)
}

