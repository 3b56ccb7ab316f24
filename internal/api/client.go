package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const maxBodySize = 64 << 20

// Client talks to the records backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	metrics *Metrics
	logger  *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	// RequestsPerSecond and Burst bound outgoing calls; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	Metrics           *Metrics
	Logger            *slog.Logger
}

// NewClient creates a backend client.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL: opts.BaseURL,
		token:   opts.Token,
		http:    opts.HTTPClient,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if opts.RequestsPerSecond > 0 {
		burst := max(opts.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

type response struct {
	status   int
	body     []byte
	filename string
}

// do sends one request. resource is only used for metrics and logs.
func (c *Client) do(ctx context.Context, method, resource, path string, params map[string]any, body any) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{Err: fmt.Errorf("rate limiter wait: %w", err)}
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, BuildURL(c.baseURL, path, params), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(resource, method, 0, time.Since(start))
		return nil, &Error{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.metrics.observe(resource, method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if c.logger != nil {
		c.logger.Debug("backend call", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(resp.StatusCode, data)
	}
	return &response{status: resp.StatusCode, body: data, filename: attachmentName(resp.Header.Get("Content-Disposition"))}, nil
}

func (c *Client) getJSON(ctx context.Context, resource, path string, params map[string]any, out any) error {
	resp, err := c.do(ctx, http.MethodGet, resource, path, params, nil)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func decode(resp *response, out any) error {
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &Error{Status: resp.status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["filename"])
}
