package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const snippetLength = 100

// Config holds the backend location and credentials.
type Config struct {
	URL        string
	AnonKey    string
	ServiceKey string
	Timeout    time.Duration
}

// RequestOptions describes a single backend call.
type RequestOptions struct {
	Method string
	Header http.Header
	// Body is marshalled to JSON unless it is already a []byte or json.RawMessage.
	Body any
	// ServiceRole sends the privileged key instead of the public one.
	ServiceRole bool
	// AccessToken is sent as the bearer credential for user-scoped calls.
	AccessToken string
}

// Client performs authenticated calls against the hosted backend.
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	http       *http.Client
	logger     *slog.Logger
}

// NewClient constructs a client. A zero timeout disables the client deadline.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Do sends a request and returns the decoded JSON body. An empty body yields
// a nil result. Non-2xx responses are returned as *UpstreamError or
// ErrUserAlreadyExists. Bodies that are not JSON, whatever the status, come
// back as *ParseError.
func (c *Client) Do(ctx context.Context, path string, opts RequestOptions) (json.RawMessage, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		payload, err := encodeBody(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.applyHeaders(req, opts)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("backend request failed", slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := decodeError(resp.StatusCode, raw)
		c.logger.Warn("backend returned error", slog.String("path", path), slog.Int("status", resp.StatusCode), slog.String("error", err.Error()))
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, &ParseError{Snippet: snippet(trimmed)}
	}
	return json.RawMessage(trimmed), nil
}

// DoInto calls Do and decodes a non-empty result into out.
func (c *Client) DoInto(ctx context.Context, path string, opts RequestOptions, out any) error {
	raw, err := c.Do(ctx, path, opts)
	if err != nil {
		return err
	}
	if raw == nil || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{Snippet: snippet(raw), Err: err}
	}
	return nil
}

// applyHeaders merges caller headers first, then credentials, then the
// content type, so the last two always win.
func (c *Client) applyHeaders(req *http.Request, opts RequestOptions) {
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if opts.ServiceRole {
		req.Header.Set("apikey", c.serviceKey)
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	} else {
		req.Header.Set("apikey", c.anonKey)
		if opts.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+opts.AccessToken)
		}
	}

	req.Header.Set("Content-Type", "application/json")
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func snippet(body []byte) string {
	if len(body) > snippetLength {
		body = body[:snippetLength]
	}
	return string(body)
}
