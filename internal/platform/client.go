package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"CatalogSync/internal/logger"
)

const maxErrorBody = 500

// StatusError is returned for non-2xx platform responses.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Client carries the commerce platform's base URL and credentials. Staging
// and handoff share it so both send the same auth headers.
type Client struct {
	BaseURL     string
	StoreKey    string
	BearerToken string
	HTTP        *http.Client
	log         *logger.Logger
}

// NewClient creates a platform client with the given request timeout.
func NewClient(baseURL, storeKey, bearer string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		StoreKey:    storeKey,
		BearerToken: bearer,
		HTTP:        &http.Client{Timeout: timeout},
		log:         log.With("platform"),
	}
}

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	return c.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// PostJSON encodes v and posts it, returning the response body.
func (c *Client) PostJSON(ctx context.Context, path string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.post(ctx, path, "application/json", bytes.NewReader(body))
}

// PostFile uploads data as a single multipart form field.
func (c *Client) PostFile(ctx context.Context, path, field, filename, contentType string, data io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}
	return c.post(ctx, path, w.FormDataContentType(), &buf)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	target := c.URL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-store-key", c.StoreKey)
	req.Header.Set("Authorization", "Bearer "+c.BearerToken)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", target, err)
	}
	c.log.Debug().Str("url", target).Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("platform response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, &StatusError{Method: http.MethodPost, URL: target, Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
