package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/miu-servicedesk/portal/internal/errors"
	"github.com/pkg/errors"
)

// BearerClient is the shared client for the bearer-authenticated
// collaborators (ticket, workflow and AI backends). A 401 mid-session
// is reported as ErrSessionExpired; the guard middleware owns the
// clear-and-redirect reaction, so no caller needs to pattern-match
// error text.
type BearerClient struct {
	baseURL string
	client  *http.Client
}

// NewBearerClient creates a client for a bearer-authenticated backend.
func NewBearerClient(baseURL string, options ...Option) *BearerClient {
	inner := New(baseURL, options...)
	return &BearerClient{baseURL: inner.baseURL, client: inner.client}
}

// Get performs an authenticated GET and decodes the JSON reply into out.
func (c *BearerClient) Get(ctx context.Context, token, route string, out any) error {
	return c.do(ctx, http.MethodGet, token, route, nil, out)
}

// Post performs an authenticated POST and decodes the JSON reply into out.
func (c *BearerClient) Post(ctx context.Context, token, route string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "[BearerClient.Post] encode %s", route)
	}
	return c.do(ctx, http.MethodPost, token, route, body, out)
}

func (c *BearerClient) do(ctx context.Context, method, token, route string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, reader)
	if err != nil {
		return errors.Wrapf(err, "[BearerClient.do] build %s", route)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.ErrSessionExpired
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return &RemoteError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrapf(err, "[BearerClient.do] decode %s", route)
		}
	}
	return nil
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}
