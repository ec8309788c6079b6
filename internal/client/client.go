// Package client talks to the shop server's REST API on behalf of the
// billing terminal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mogesh-developer/billing-webapp/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// maxBodyBytes caps how much of any response is read.
const maxBodyBytes = 1 << 20

type Options struct {
	BaseURL string
	// Timeout applies to every request except checkout, whose deadline
	// comes from the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is shared by the settings, catalog, transaction and receipt
// services. Lookups go through a circuit breaker; checkout does not.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
	lookups *circuitbreaker.Breaker[*response]
}

type response struct {
	status int
	body   []byte
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// errServer marks 5xx answers so the breaker counts them.
var errServer = errors.New("server error")

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: timeout,
		http:    hc,
		logger:  logger,
		lookups: circuitbreaker.New[*response](circuitbreaker.Settings{Name: "shop-lookups"}, logger),
	}
}

// get performs a bounded GET through the breaker. Transport errors and 5xx
// responses are failures; any other status is returned to the caller.
func (c *Client) get(ctx context.Context, path string) (*response, error) {
	return c.lookups.Execute(func() (*response, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
		if err != nil {
			return nil, err
		}
		if resp.status >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: GET %s: status %d", errServer, path, resp.status)
		}
		return resp, nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header) (*response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) decode(out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage returns the "error" field of a JSON error body, if any.
func (r *response) errorMessage() string {
	var e errorResponse
	if json.Unmarshal(r.body, &e) != nil {
		return ""
	}
	return strings.TrimSpace(e.Error)
}
