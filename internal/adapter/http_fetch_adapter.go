package adapter

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

const (
	// DefaultFetchTimeout bounds every request end to end.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes int64 = 64 << 20

	// DefaultUserAgent is sent unless the policy headers override it.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ErrBodyTooLarge is returned when a response body exceeds the fetcher's limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Response is the part of an HTTP response the pipeline cares about.
type Response struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher issues a single request and returns the response without retrying.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the per-request timeout. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithRateLimit throttles requests to perSecond. Zero disables throttling.
func WithRateLimit(perSecond float64) FetcherOption {
	return func(f *HTTPFetcher) {
		if perSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) FetcherOption {
	return func(f *HTTPFetcher) {
		if strings.TrimSpace(userAgent) != "" {
			f.userAgent = userAgent
		}
	}
}

// WithInsecureTLS disables certificate verification.
func WithInsecureTLS(insecure bool) FetcherOption {
	return func(f *HTTPFetcher) {
		f.insecure = insecure
	}
}

// WithMaxBodyBytes caps the response body size.
func WithMaxBodyBytes(limit int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if limit > 0 {
			f.maxBody = limit
		}
	}
}

// WithHTTPClient replaces the underlying client. The timeout option is
// ignored for the transport but still applied per request.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// HTTPFetcher is the net/http backed Fetcher. Method and headers come from
// the run policy.
type HTTPFetcher struct {
	client    *http.Client
	method    string
	headers   http.Header
	userAgent string
	timeout   time.Duration
	maxBody   int64
	insecure  bool
	limiter   *rate.Limiter
}

// NewHTTPFetcher builds a fetcher for the given policy.
func NewHTTPFetcher(policy m.Policy, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		method:    policy.HTTPMethod(),
		headers:   policy.Headers.Clone(),
		userAgent: DefaultUserAgent,
		timeout:   DefaultFetchTimeout,
		maxBody:   DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{Transport: f.newTransport()}
	}

	return f
}

func (f *HTTPFetcher) newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		// #nosec G402 - opt-in via --insecure for scanning hosts with broken TLS
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: f.insecure},
		ResponseHeaderTimeout: f.timeout,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, f.method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	for name, values := range f.headers {
		req.Header.Del(name)

		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	slog.Debug("fetching", "method", f.method, "url", url)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// A truncated script loses its trailing directive, so oversize is an error.
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, f.maxBody)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("unexpected status", "url", url, "status", resp.StatusCode)
	}

	return &Response{
		URL:        finalURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// ParseHeader splits a "Name: Value" string on its first colon. Colons in the
// value are kept.
func ParseHeader(raw string) (string, string, error) {
	name, value, found := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)

	if !found || name == "" {
		return "", "", fmt.Errorf("invalid header %q, expected 'Name: Value'", raw)
	}

	return name, strings.TrimSpace(value), nil
}

// ParseHeaders builds an http.Header from "Name: Value" strings. Invalid
// entries are returned separately so the caller can warn about them.
func ParseHeaders(raw []string) (http.Header, []string) {
	headers := http.Header{}

	var invalid []string

	for _, h := range raw {
		name, value, err := ParseHeader(h)
		if err != nil {
			invalid = append(invalid, h)
			continue
		}

		headers.Add(name, value)
	}

	return headers, invalid
}
