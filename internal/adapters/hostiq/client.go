// internal/adapters/hostiq/client.go
package hostiq

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

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"hostiq/internal/adapters/observability"
	"hostiq/internal/domain"
)

const (
	// DefaultTimeout is tuned for photo uploads over mobile links.
	DefaultTimeout = 120 * time.Second

	defaultUserAgent = "hostiq-go/1.0"
	serviceLabel     = "hostiq"
	maxErrorBody     = 4096
)

type Options struct {
	Timeout time.Duration
	// RPS <= 0 disables client-side rate limiting.
	RPS int
	// DedupeRefresh collapses concurrent refresh calls into one. Off by
	// default: N requests failing together fire N refreshes.
	DedupeRefresh bool
	HTTPClient    *http.Client
	UserAgent     string
}

// Client is the authenticated HostIQ API client. It injects the stored
// bearer token on every request and, on a 403, refreshes the access token
// and replays the request once.
type Client struct {
	base      string
	hc        *http.Client
	tokens    domain.TokenStore
	rl        *rate.Limiter
	sf        *singleflight.Group
	userAgent string
}

var _ domain.HostIQClient = (*Client)(nil)

func New(base string, tokens domain.TokenStore, opts Options) (*Client, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, fmt.Errorf("API base URL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base URL %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", base)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	rl := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		rl = rate.NewLimiter(rate.Limit(opts.RPS), opts.RPS)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	c := &Client{base: base, hc: hc, tokens: tokens, rl: rl, userAgent: ua}
	if opts.DedupeRefresh {
		c.sf = &singleflight.Group{}
	}
	return c, nil
}

// ---- Generic calls (screens use these the way they used api.get/post) ----

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodDelete, path, path, nil, out)
}

// ---- Internals ----

// request is one logical call. Bodies are buffered so a replay sends the
// same bytes.
type request struct {
	method      string
	path        string // escaped, relative to base
	route       string // metrics label, e.g. /inspections/:id
	body        []byte
	contentType string
	token       string // set by a refresh; wins over the stored token
	retried     bool
}

func (c *Client) call(ctx context.Context, method, route, path string, body, out any) error {
	r := &request{method: method, path: path, route: route}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", route, err)
		}
		r.body = b
		r.contentType = "application/json"
	}
	return c.do(ctx, r, out)
}

func (c *Client) do(ctx context.Context, r *request, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		defer resp.Body.Close()
		return decode(resp, out)
	}

	// release the connection before refreshing and replaying
	apiErr := newAPIError(r.method, r.route, resp)
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden || r.retried {
		return apiErr
	}

	token, err := c.refreshAccess(ctx, apiErr)
	if err != nil {
		return err
	}
	r.token = token
	r.retried = true
	return c.do(ctx, r, out)
}

func (c *Client) send(ctx context.Context, r *request) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.base+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	token := r.token
	if token == "" {
		stored, ok, err := c.tokens.Get(ctx, domain.AccessTokenKey)
		if err != nil {
			return nil, fmt.Errorf("read access token: %w", err)
		}
		if ok {
			token = stored
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	c.setCommonHeaders(req)

	start := time.Now()
	resp, err := c.hc.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	observability.ObserveExternal(serviceLabel, r.route, status, time.Since(start))
	if err != nil {
		// network error or context canceled
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s %s: %w", r.method, r.route, err)
	}
	return resp, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// decode reads a 2xx body into out. Empty bodies and 204 leave out untouched.
func decode(resp *http.Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(method, route string, resp *http.Response) *domain.APIError {
	// read a small error body for diagnostics
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.APIError{
		Method: method,
		Path:   route,
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(b)),
	}
}
