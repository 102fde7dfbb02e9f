package autofilter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Result is one autocomplete result.
type Result struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	SelectedText string `json:"selected_text,omitempty"`
	CreateID     bool   `json:"create_id,omitempty"`
}

// SearchPage is one page of autocomplete results.
type SearchPage struct {
	Results []Result
	More    bool
}

// SearchOptions narrows an autocomplete search.
type SearchOptions struct {
	// Page is 1-based; zero means the first page.
	Page int
	// Forward holds sibling form values sent as the JSON "forward" parameter.
	Forward map[string]any
	// Language is sent as Accept-Language.
	Language string
}

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"`
}

// Client talks to an autofilter server.
type Client struct {
	base *url.URL
	cfg  clientConfig
	obs  *observer
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("autofilter: invalid base url %q", baseURL)
	}
	cfg := clientConfig{httpClient: http.DefaultClient, userAgent: "autofilter-go"}
	for _, o := range opts {
		o.apply(&cfg)
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{base: u, cfg: cfg, obs: obs}, nil
}

// Search queries an autocomplete endpoint, e.g. "/admin/cities/autocomplete/".
func (c *Client) Search(ctx context.Context, endpoint, term string, opts SearchOptions) (page SearchPage, err error) {
	op := startCall("search", endpoint)
	defer func() { c.obs.done(op, err) }()

	q := url.Values{}
	if term != "" {
		q.Set("q", term)
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if len(opts.Forward) > 0 {
		raw, err := json.Marshal(opts.Forward)
		if err != nil {
			return SearchPage{}, fmt.Errorf("autofilter: encode forward: %w", err)
		}
		q.Set("forward", string(raw))
	}

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, q, nil)
	if err != nil {
		return SearchPage{}, err
	}
	if opts.Language != "" {
		req.Header.Set("Accept-Language", opts.Language)
	}

	var resp struct {
		Results    []Result `json:"results"`
		Pagination struct {
			More bool `json:"more"`
		} `json:"pagination"`
	}
	if err := c.do(req, &resp); err != nil {
		return SearchPage{}, err
	}
	page = SearchPage{Results: resp.Results, More: resp.Pagination.More}
	c.obs.searched(endpoint, page)
	return page, nil
}

// Create gets or creates the record named text through an autocomplete endpoint.
func (c *Client) Create(ctx context.Context, endpoint, text string, forward map[string]any) (res Result, err error) {
	op := startCall("create", endpoint)
	defer func() { c.obs.done(op, err) }()

	form := url.Values{"text": {text}}
	if len(forward) > 0 {
		raw, err := json.Marshal(forward)
		if err != nil {
			return Result{}, fmt.Errorf("autofilter: encode forward: %w", err)
		}
		form.Set("forward", string(raw))
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := c.do(req, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Changelist fetches a changelist page, e.g. "/admin/items/", with the given
// filter query (see the Filter helpers).
func (c *Client) Changelist(ctx context.Context, path string, query url.Values) (out json.RawMessage, err error) {
	op := startCall("changelist", path)
	defer func() { c.obs.done(op, err) }()

	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health reports the server health. A degraded or failing server is not an
// error; the status says so.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return HealthStatus{}, err
	}
	var hs HealthStatus
	err = c.do(req, &hs)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return hs, nil
	}
	return hs, err
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("autofilter: invalid path %q: %w", path, err)
	}
	u := c.base.ResolveReference(ref)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("autofilter: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.userAgent != "" {
		req.Header.Set("User-Agent", c.cfg.userAgent)
	}
	if c.cfg.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.apiKey)
	}
	return req, nil
}

// do sends req and decodes a JSON body into out. Non-2xx responses become
// *APIError; the body is still decoded into out when the server sent one.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.cfg.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("autofilter: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("autofilter: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Code, apiErr.Message = e.Code, e.Message
		}
		if resp.StatusCode == http.StatusServiceUnavailable && out != nil {
			_ = json.Unmarshal(body, out)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("autofilter: decode response: %w", err)
	}
	return nil
}
