package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/nao1215/sitemapcrawl/internal/config"
)

// Fetcher retrieves one URL. Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// Response is a 2xx response with its body fully read.
type Response struct {
	// URL is the requested URL. Redirects do not change it, so relative
	// loc values resolve against the URL the sitemap was listed under.
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HTTPFetcher is the Fetcher used for real crawls.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// Option configures an HTTPFetcher.
type Option func(*fetcherOptions)

type fetcherOptions struct {
	timeout      time.Duration
	userAgent    string
	maxBodySize  int64
	proxyAddress string
	sites        *config.File
	client       *http.Client
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *fetcherOptions) {
		o.timeout = d
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *fetcherOptions) {
		o.userAgent = ua
	}
}

// WithMaxBodySize sets the largest accepted response body in bytes.
func WithMaxBodySize(n int64) Option {
	return func(o *fetcherOptions) {
		o.maxBodySize = n
	}
}

// WithProxy routes all connections through a SOCKS5 proxy at "host:port".
func WithProxy(address string) Option {
	return func(o *fetcherOptions) {
		o.proxyAddress = address
	}
}

// WithSiteConfigs applies per-host headers, cookies and User-Agent.
func WithSiteConfigs(sites *config.File) Option {
	return func(o *fetcherOptions) {
		o.sites = sites
	}
}

// WithHTTPClient replaces the underlying client. The timeout and proxy
// options are ignored when it is used.
func WithHTTPClient(c *http.Client) Option {
	return func(o *fetcherOptions) {
		o.client = c
	}
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts ...Option) (*HTTPFetcher, error) {
	o := fetcherOptions{
		timeout:     config.DefaultTimeout,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	client := o.client
	if client == nil {
		transport, err := newTransport(o.proxyAddress)
		if err != nil {
			return nil, err
		}
		client = &http.Client{
			Transport:     transport,
			Timeout:       o.timeout,
			CheckRedirect: checkRedirect,
		}
	}

	if o.sites != nil {
		base := client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *client
		wrapped.Transport = &siteTransport{base: base, sites: o.sites}
		client = &wrapped
	}

	return &HTTPFetcher{
		client:      client,
		userAgent:   o.userAgent,
		maxBodySize: o.maxBodySize,
	}, nil
}

// Fetch performs one GET request for rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", config.DefaultAccept)
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, &TransportError{URL: rawURL, Err: &StatusError{StatusCode: resp.StatusCode}}
	}

	body, err := f.readBody(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	return &Response{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (f *HTTPFetcher) readBody(r io.Reader) ([]byte, error) {
	if f.maxBodySize <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, f.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}
