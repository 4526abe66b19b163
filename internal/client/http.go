package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/dmitrijs2005/litepos/internal/netx"
)

// HTTPClient implements Client over HTTP/JSON.
type HTTPClient struct {
	base string
	hc   *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	return &HTTPClient{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
	}, nil
}

// Resolve turns a remote URL into an absolute one. Absolute URLs are kept,
// anything else is taken relative to the base URL.
func (c *HTTPClient) Resolve(remoteURL string) string {
	if u, err := url.Parse(remoteURL); err == nil && u.IsAbs() {
		return remoteURL
	}
	return c.base + "/" + strings.TrimLeft(remoteURL, "/")
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	status, _, err := netx.DoJSON(ctx, c.hc, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return c.transportError(ctx, err)
	}
	if !netx.OK(status) {
		return fmt.Errorf("%w: health %d", ErrUnavailable, status)
	}
	return nil
}

// Push sends upserts as a JSON body and deletes without one. An entry
// without a remote URL has nothing to deliver and succeeds.
func (c *HTTPClient) Push(ctx context.Context, e models.OutboxEntry) error {
	if e.RemoteURL == "" {
		return nil
	}

	method := e.Method
	if method == "" {
		method = DefaultMethod(e.Op)
	}

	var body []byte
	if e.Op != models.OpDelete {
		body = e.Payload
		if body == nil {
			body = []byte("null")
		}
	}

	target := c.Resolve(e.RemoteURL)
	status, _, err := netx.DoJSON(ctx, c.hc, method, target, body)
	if err != nil {
		return c.transportError(ctx, err)
	}
	if !netx.OK(status) {
		return &common.PushError{Method: method, URL: target, Status: status}
	}
	return nil
}

type pullResponse struct {
	Items []json.RawMessage `json:"items"`
}

func (c *HTTPClient) Pull(ctx context.Context, collection string, since int64, limit, offset int) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	target := c.base + "/" + url.PathEscape(collection) + "?" + q.Encode()

	status, body, err := netx.DoJSON(ctx, c.hc, http.MethodGet, target, nil)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	if !netx.OK(status) {
		return nil, fmt.Errorf("%w: %s %d", ErrPullRejected, collection, status)
	}

	var resp pullResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s page: %w", collection, err)
	}
	if resp.Items == nil {
		resp.Items = []json.RawMessage{}
	}
	return resp.Items, nil
}

// transportError reports a failed round trip as connectivity loss unless
// the caller gave up first.
func (c *HTTPClient) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", common.ErrOffline, err)
}

// DefaultMethod is the HTTP method used for op when none is given.
func DefaultMethod(op models.Op) string {
	if op == models.OpDelete {
		return http.MethodDelete
	}
	return http.MethodPut
}
