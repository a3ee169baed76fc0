// Package proxy sends composed requests to arbitrary target servers and
// relays the raw response.
package proxy

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

var (
	// ErrTimeout means the target did not answer before the request deadline.
	ErrTimeout = errors.New("outbound request timed out")
	// ErrTransport covers DNS, connection and TLS failures. HTTP error
	// statuses are not transport failures.
	ErrTransport = errors.New("outbound transport failure")
	// ErrPrivateTarget is returned when a connection to a private address is refused.
	ErrPrivateTarget = errors.New("requests to private IP addresses are not allowed")
)

// OutboundRequest represents a request to be sent to an external service.
type OutboundRequest struct {
	Method  string
	URL     *url.URL
	Headers http.Header
	Body    []byte
	Timeout time.Duration
}

// Response is the relayed answer of the target server.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Truncated  bool
	ReadErr    error
	Duration   time.Duration
	Timestamp  time.Time
}

type Options struct {
	MaxRedirects        int
	MaxBodyBytes        int64
	AllowPrivateTargets bool
	RateLimit           float64 // requests per second, <= 0 disables limiting
	RateBurst           int
}

type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxBodyBytes int64
}

func NewClient(opts Options) *Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if !opts.AllowPrivateTargets {
		dialer.Control = denyPrivate
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	maxRedirects := opts.MaxRedirects
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		limiter:      limiter,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Do sends the request. Every HTTP status is returned as a Response; only
// timeouts (ErrTimeout) and transport failures (ErrTransport) are errors.
func (c *Client) Do(ctx context.Context, out *OutboundRequest) (*Response, error) {
	startTime := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, out.Timeout)
	defer cancel()

	if err := c.limiter.Wait(reqCtx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %v", ErrTimeout, err)
	}

	var bodyReader io.Reader
	if len(out.Body) > 0 {
		bodyReader = bytes.NewReader(out.Body)
	}

	httpRequest, err := http.NewRequestWithContext(reqCtx, out.Method, out.URL.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create http request: %v", ErrTransport, err)
	}
	httpRequest.Header = out.Headers

	httpResponse, err := c.httpClient.Do(httpRequest)
	duration := time.Since(startTime)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if errors.Is(err, ErrPrivateTarget) {
			return nil, fmt.Errorf("%w: %w", ErrTransport, ErrPrivateTarget)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer httpResponse.Body.Close()

	resp := &Response{
		StatusCode: httpResponse.StatusCode,
		Headers:    httpResponse.Header.Clone(),
		Duration:   duration,
		Timestamp:  startTime,
	}
	resp.Body, resp.Truncated, resp.ReadErr = c.readBody(httpResponse)
	return resp, nil
}

func (c *Client) readBody(resp *http.Response) ([]byte, bool, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		// the transport only decodes gzip it asked for itself
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	if c.maxBodyBytes <= 0 {
		body, err := io.ReadAll(reader)
		return body, false, err
	}

	limited := &io.LimitedReader{R: reader, N: c.maxBodyBytes + 1}
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return body[:c.maxBodyBytes], true, nil
	}
	return body, false, nil
}

// IsPrivateIP reports whether ip is loopback, link-local, unspecified or in a
// private range.
func IsPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast()
}

func denyPrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return ErrPrivateTarget
	}
	return nil
}
