// Package httpgw implements the service gateway over the internal JSON API of
// the backup and server services.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/logging"
)

// RequestIDHeader carries a per-call id for correlating service logs.
const RequestIDHeader = "X-Request-Id"

const defaultTimeout = 30 * time.Second

// Service names a backend service.
type Service string

const (
	ServiceBackup Service = "backup"
	ServiceServer Service = "server"
)

// Options configures a Client.
type Options struct {
	BackupURL string
	ServerURL string
	Token     string
	Timeout   time.Duration
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the backup and server services.
type Client struct {
	bases  map[Service]string
	token  string
	http   *http.Client
	logger *slog.Logger
}

var _ gateway.Gateway = (*Client)(nil)

// New creates a Client.
func New(opts Options) (*Client, error) {
	if opts.BackupURL == "" || opts.ServerURL == "" {
		return nil, fmt.Errorf("both backup and server service URLs are required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		bases: map[Service]string{
			ServiceBackup: strings.TrimRight(opts.BackupURL, "/"),
			ServiceServer: strings.TrimRight(opts.ServerURL, "/"),
		},
		token:  opts.Token,
		http:   hc,
		logger: logging.OrDiscard(opts.Logger),
	}, nil
}

// call sends a JSON request and decodes the JSON response into out. The
// services take query payloads as JSON bodies on GET as well.
func (c *Client) call(ctx context.Context, svc Service, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	url := c.bases[svc] + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request %s %s: %w", method, url, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", gateway.ErrUpstreamUnavailable, method, url, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("service call",
		slog.String("service", string(svc)),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", requestID),
		slog.Duration("elapsed", time.Since(started)))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %v", gateway.ErrUpstreamUnavailable, method, url, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", gateway.ErrNotFound, method, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s returned %d", gateway.ErrUpstreamUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: %s %s returned no record", gateway.ErrNotFound, method, path)
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// listCall is call for list endpoints, where a missing record means an empty list.
func (c *Client) listCall(ctx context.Context, svc Service, path string, payload, out any) error {
	err := c.call(ctx, svc, http.MethodGet, path, payload, out)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil
	}
	return err
}
