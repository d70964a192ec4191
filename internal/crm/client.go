// Package crm provides a minimal client for the CRM REST API backing the tools.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("crm-mcp/internal", "crm")

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "nocobase-mcp-agent/1.0"

// ErrRemote marks every failed CRM call: non-2xx status, transport error or
// an undecodable response body.
var ErrRemote = errors.New("remote call failed")

// Client is a minimal HTTP client for the CRM API.
type Client struct {
	BaseURL   string
	Token     string
	UserAgent string
	HTTP      *http.Client
}

// New returns a new client. If httpClient is nil, a default with 30s timeout is used.
func New(baseURL, token, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		UserAgent: userAgent,
		HTTP:      httpClient,
	}
}

// do sends a request to path and decodes the JSON response into T.
// The body is only attached for mutating methods. Failures are logged and
// returned wrapped with ErrRemote.
func do[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*T, error) {
	reqURL := c.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	res, err := send[T](ctx, c, method, reqURL, body)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"method", method,
			"url", reqURL,
			"user_agent", c.UserAgent,
			"err", err.Error())
		return nil, errors.Mark(err, ErrRemote)
	}
	return res, nil
}

func send[T any](ctx context.Context, c *Client, method, reqURL string, body any) (*T, error) {
	var reader io.Reader
	if body != nil && hasBody(method) {
		bs, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("HTTP error! status: %d", resp.StatusCode)
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}
	return &out, nil
}

func hasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// filterQuery encodes filter as the JSON value of the "filter" query parameter.
func filterQuery(filter map[string]string) (url.Values, error) {
	if filter == nil {
		filter = map[string]string{}
	}
	bs, err := json.Marshal(filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode filter")
	}
	q := url.Values{}
	q.Set("filter", string(bs))
	return q, nil
}
