package easyverein

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

	"github.com/charmbracelet/log"
)

const (
	DefaultBaseURL  = "https://hexa.easyverein.com/api/"
	DefaultVersion  = "v2.0"
	DefaultPageSize = 1000
)

// Client talks to the easyVerein REST API. It is safe to share, but the batch uses it
// from one goroutine only.
type Client struct {
	http     *http.Client
	base     *url.URL
	token    string
	pageSize int
	logger   *log.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client for baseURL + version, e.g. https://hexa.easyverein.com/api/v2.0/.
func New(baseURL, version, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if version == "" {
		version = DefaultVersion
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/" + strings.Trim(version, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}

	c := &Client{
		http:     &http.Client{Timeout: 60 * time.Second},
		base:     base,
		token:    token,
		pageSize: DefaultPageSize,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Contacts() *ContactService {
	return &ContactService{client: c}
}

func (c *Client) Invoices() *InvoiceService {
	return &InvoiceService{client: c}
}

// APIError is a non-2xx answer of the API, e.g. a rejected duplicate invoice number.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("easyverein: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// URL resolves path against the versioned base URL.
func (c *Client) URL(path string) string {
	return c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")}).String()
}

type page struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

// list fetches every page of a collection endpoint and returns the raw results.
func (c *Client) list(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", fmt.Sprint(c.pageSize))
	next := c.URL(path) + "?" + query.Encode()

	var out []json.RawMessage
	for next != "" {
		var p page
		if err := c.do(ctx, http.MethodGet, next, nil, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Results...)
		c.logger.Debug("fetched page", "path", path, "results", len(p.Results), "count", p.Count)

		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, req.URL.Path, err)
	}
	return nil
}
