// Package fetch issues the HTTP GET requests a validation run is built
// from. One call, one response, no retries; a transport failure is carried
// back as data (status -1) so the run can continue.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hypesilico/apicheck/internal/jsonval"
)

const maxBodyRead = 1 << 20 // 1MB

// TransportFailure is the status recorded when no HTTP response was
// obtained at all (timeout, connection refused, DNS failure).
const TransportFailure = -1

// DefaultTimeout applies when Options carries no timeout.
const DefaultTimeout = 30 * time.Second

// Response is the outcome of one GET: the status code plus the body,
// parsed as JSON when possible.
type Response struct {
	Status int
	// Body is the parsed JSON body; meaningful only when JSON is true.
	Body jsonval.Value
	// Raw is the body text as received, or the failure description when
	// Status is TransportFailure.
	Raw  string
	JSON bool
}

// BodyText returns the response body for display in messages.
func (r Response) BodyText() string { return r.Raw }

// Options tunes a Client. The zero value means a 30s timeout, direct
// egress and no pacing.
type Options struct {
	Timeout time.Duration
	// ProxyURL routes requests through an http or socks5 proxy.
	ProxyURL string
	// RateLimit caps requests per second when positive. Checks stay
	// strictly sequential either way; this only spaces them out.
	RateLimit float64
	Burst     int
}

// Client performs GET requests against one base URL.
type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
}

// New builds a Client for the given base URL.
func New(baseURL string, opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialer := &net.Dialer{Timeout: timeout}
	transport := &http.Transport{
		DialContext:       dialer.DialContext,
		DisableKeepAlives: true,
	}

	if opts.ProxyURL != "" {
		if httpProxy := HTTPProxyURL(opts.ProxyURL); httpProxy != nil {
			transport.Proxy = http.ProxyURL(httpProxy)
		} else if dial := ProxyDialer(opts.ProxyURL, dialer.DialContext); dial != nil {
			transport.DialContext = dial
		} else {
			return nil, fmt.Errorf("unsupported proxy URL: %s", opts.ProxyURL)
		}
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}

	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return c, nil
}

// BaseURL returns the base URL requests are issued against.
func (c *Client) BaseURL() string { return c.baseURL }

// Get performs a single GET against <base><endpoint>?<params>. It never
// returns an error: transport failures come back as a Response with
// Status == TransportFailure and the failure text as the body.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) Response {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{Status: TransportFailure, Raw: err.Error()}
		}
	}

	target := c.baseURL + endpoint
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Response{Status: TransportFailure, Raw: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Response{Status: TransportFailure, Raw: err.Error()}
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	raw := string(bodyBytes)

	out := Response{Status: resp.StatusCode, Raw: raw}
	if parsed, err := jsonval.Parse(bodyBytes); err == nil {
		out.Body = parsed
		out.JSON = true
	}
	return out
}
