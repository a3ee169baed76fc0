package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/config"
	"github.com/suar-net/suar-studio/internal/model"
	"github.com/suar-net/suar-studio/internal/proxy"
)

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodPatch:   true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Credentials must go through the auth field, not raw headers.
var blockedHeaders = map[string]bool{
	"Authorization":       true,
	"Cookie":              true,
	"Proxy-Authorization": true,
	"X-Forwarded-For":     true,
}

// outboundSpec is the common shape of ad-hoc and stored requests before validation.
type outboundSpec struct {
	Method      string
	URL         string
	Headers     http.Header
	Body        []byte
	QueryParams []model.QueryParam
	Auth        *model.Auth
	TimeoutMs   int
}

type HTTPProxyService struct {
	client         *proxy.Client
	lookupIP       func(ctx context.Context, host string) ([]net.IP, error)
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	allowPrivate   bool
	metrics        *Metrics
	logger         *zap.Logger
}

func NewHTTPProxyService(cfg config.ProxyConfig, metrics *Metrics, logger *zap.Logger) *HTTPProxyService {
	return &HTTPProxyService{
		client: proxy.NewClient(proxy.Options{
			MaxRedirects:        cfg.MaxRedirects,
			MaxBodyBytes:        cfg.MaxBodyBytes,
			AllowPrivateTargets: cfg.AllowPrivateTargets,
			RateLimit:           cfg.RateLimit,
			RateBurst:           cfg.RateBurst,
		}),
		lookupIP: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip", host)
		},
		defaultTimeout: cfg.DefaultTimeout,
		maxTimeout:     cfg.MaxTimeout,
		allowPrivate:   cfg.AllowPrivateTargets,
		metrics:        metrics,
		logger:         logger,
	}
}

// ProcessRequest sends an ad-hoc request.
func (s *HTTPProxyService) ProcessRequest(ctx context.Context, dto *model.DTORequest) (*model.DTOResponse, error) {
	headers := make(http.Header)
	for key, values := range dto.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}

	return s.send(ctx, &outboundSpec{
		Method:      dto.Method,
		URL:         dto.URL,
		Headers:     headers,
		Body:        dto.Body,
		QueryParams: dto.QueryParams,
		Auth:        dto.Auth,
		TimeoutMs:   dto.Timeout,
	}, dto.Select)
}

// SendStored sends a persisted request with its query params and auth applied.
func (s *HTTPProxyService) SendStored(ctx context.Context, request *model.Request, opts *model.DTOSendOptions) (*model.DTOResponse, error) {
	if opts == nil {
		opts = &model.DTOSendOptions{}
	}

	headers := make(http.Header)
	for key, value := range request.Headers {
		headers.Set(key, value)
	}
	auth := request.Auth

	return s.send(ctx, &outboundSpec{
		Method:      request.Method,
		URL:         request.URL,
		Headers:     headers,
		Body:        request.Body,
		QueryParams: request.QueryParams,
		Auth:        &auth,
		TimeoutMs:   opts.Timeout,
	}, opts.Select)
}

func (s *HTTPProxyService) send(ctx context.Context, spec *outboundSpec, selectPath string) (*model.DTOResponse, error) {
	outboundRequest, err := s.newOutboundRequest(ctx, spec)
	if err != nil {
		s.countOutbound(err)
		return nil, err
	}

	resp, err := s.client.Do(ctx, outboundRequest)
	if err != nil {
		switch {
		case errors.Is(err, proxy.ErrTimeout):
			err = fmt.Errorf("%w: %v", ErrRequestTimeout, err)
		case errors.Is(err, proxy.ErrTransport):
			err = fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		default:
			err = fmt.Errorf("failed to execute request to target server: %w", err)
		}
		s.countOutbound(err)
		return nil, err
	}
	s.countOutbound(nil)

	s.logger.Debug("outbound request completed",
		zap.String("method", outboundRequest.Method),
		zap.String("host", outboundRequest.URL.Host),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", resp.Duration),
	)

	return toDTOResponse(resp, selectPath), nil
}

func (s *HTTPProxyService) newOutboundRequest(ctx context.Context, spec *outboundSpec) (*proxy.OutboundRequest, error) {
	// HTTP Method Validation
	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if !allowedMethods[method] {
		return nil, fmt.Errorf("%w: invalid or unsupported HTTP method: %s", ErrInvalidInput, spec.Method)
	}

	// URL Validation
	if strings.TrimSpace(spec.URL) == "" {
		return nil, fmt.Errorf("%w: URL cannot be empty", ErrInvalidInput)
	}
	parsedURL, err := url.Parse(strings.TrimSpace(spec.URL))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse URL: %v", ErrInvalidInput, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: invalid URL scheme: %s. Only 'http' and 'https' are allowed", ErrInvalidInput, parsedURL.Scheme)
	}
	if parsedURL.Hostname() == "" {
		return nil, fmt.Errorf("%w: URL has no host", ErrInvalidInput)
	}

	// SSRF protection; the dialer re-checks every connection, including redirects.
	if !s.allowPrivate {
		ips, err := s.lookupIP(ctx, parsedURL.Hostname())
		if err != nil {
			return nil, fmt.Errorf("%w: could not resolve hostname: %v", ErrUpstreamUnavailable, err)
		}
		for _, ip := range ips {
			if proxy.IsPrivateIP(ip) {
				return nil, fmt.Errorf("%w: requests to private IP addresses are not allowed", ErrInvalidInput)
			}
		}
	}

	// Timeout Validation
	var timeout time.Duration
	if spec.TimeoutMs <= 0 {
		timeout = s.defaultTimeout
	} else {
		timeout = time.Duration(spec.TimeoutMs) * time.Millisecond
	}
	if timeout > s.maxTimeout {
		return nil, fmt.Errorf("%w: timeout of %v exceeds the maximum allowed limit of %v", ErrInvalidInput, timeout, s.maxTimeout)
	}

	appendQueryParams(parsedURL, spec.QueryParams)

	headers := make(http.Header)
	for key, values := range spec.Headers {
		if !blockedHeaders[http.CanonicalHeaderKey(key)] {
			headers[http.CanonicalHeaderKey(key)] = values
		}
	}
	if err := applyAuth(headers, spec.Auth); err != nil {
		return nil, err
	}
	if len(spec.Body) > 0 && headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", "application/json")
	}

	return &proxy.OutboundRequest{
		Method:  method,
		URL:     parsedURL,
		Headers: headers,
		Body:    spec.Body,
		Timeout: timeout,
	}, nil
}

func (s *HTTPProxyService) countOutbound(err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidInput):
		outcome = "invalid"
	case errors.Is(err, ErrRequestTimeout):
		outcome = "timeout"
	case errors.Is(err, ErrUpstreamUnavailable):
		outcome = "unreachable"
	default:
		outcome = "error"
	}
	s.metrics.OutboundRequests.WithLabelValues(outcome).Inc()
}

// appendQueryParams adds the enabled params in their given order.
func appendQueryParams(u *url.URL, params []model.QueryParam) {
	var pairs []string
	for _, p := range params {
		if !p.Enabled || p.Key == "" {
			continue
		}
		pairs = append(pairs, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	if len(pairs) == 0 {
		return
	}
	extra := strings.Join(pairs, "&")
	if u.RawQuery == "" {
		u.RawQuery = extra
	} else {
		u.RawQuery += "&" + extra
	}
}

func applyAuth(headers http.Header, auth *model.Auth) error {
	if auth == nil {
		return nil
	}
	switch auth.Type {
	case "", model.AuthNone:
	case model.AuthBearer:
		if auth.Token == "" {
			return fmt.Errorf("%w: bearer auth requires a token", ErrInvalidInput)
		}
		headers.Set("Authorization", "Bearer "+auth.Token)
	case model.AuthBasic:
		creds := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		headers.Set("Authorization", "Basic "+creds)
	default:
		return fmt.Errorf("%w: unsupported auth type: %q", ErrInvalidInput, auth.Type)
	}
	return nil
}

func toDTOResponse(resp *proxy.Response, selectPath string) *model.DTOResponse {
	headers := make(map[string][]string, len(resp.Headers))
	for key, values := range resp.Headers {
		headers[key] = values
	}

	dtoResponse := &model.DTOResponse{
		StatusCode: resp.StatusCode,
		Duration:   resp.Duration,
		Timestamp:  resp.Timestamp,
		Headers:    headers,
	}

	if resp.ReadErr != nil {
		dtoResponse.Error = resp.ReadErr.Error()
		return dtoResponse
	}

	dtoResponse.Size = int64(len(resp.Body))
	dtoResponse.Body = string(resp.Body)
	if resp.Truncated {
		dtoResponse.Error = "response body truncated due to size limit"
	}

	if selectPath != "" && gjson.ValidBytes(resp.Body) {
		if r := gjson.GetBytes(resp.Body, selectPath); r.Exists() {
			dtoResponse.Selected = json.RawMessage(r.Raw)
		}
	}
	return dtoResponse
}
