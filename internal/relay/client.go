package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"api-relay/internal/config"
	"api-relay/internal/validator"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	// DefaultAccept mirrors what browser-side HTTP clients send by default.
	DefaultAccept = "application/json, text/plain, */*"

	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second
)

var ErrTooManyRedirects = errors.New("maximum number of redirects exceeded")

// Client dispatches OutboundRequests. It is safe for concurrent use.
type Client struct {
	resty   *resty.Client
	timeout time.Duration
}

// Response is an upstream answer with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	guard := validator.AddressGuard{
		AllowLocalhost:  cfg.AllowLocalhost,
		AllowPrivateIPs: cfg.AllowPrivateIPs,
	}

	dialer := &net.Dialer{
		Timeout:   cfg.RequestTimeout,
		KeepAlive: 30 * time.Second,
	}
	if !guard.Permissive() {
		dialer.Control = guard.Control
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	maxRedirects := cfg.MaxRedirects
	client := resty.New().
		SetTransport(transport).
		SetTimeout(cfg.RequestTimeout).
		SetLogger(log).
		SetDisableWarn(true).
		SetHeader("Accept", DefaultAccept).
		SetResponseBodyLimit(int(cfg.MaxResponseSize)).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("%w (%d)", ErrTooManyRedirects, maxRedirects)
			}
			return nil
		}))

	return &Client{
		resty:   client,
		timeout: cfg.RequestTimeout,
	}
}

// Timeout is the bound on a single dispatch.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Do performs the request. Any response the upstream sends is returned,
// whatever its status; err is set only when no usable response was obtained.
func (c *Client) Do(ctx context.Context, out *OutboundRequest) (*Response, error) {
	req := c.resty.R().
		SetContext(ctx).
		SetQueryParams(out.Params).
		SetHeaders(out.Headers)

	if out.HasBody && out.Body != nil {
		req.SetBody(out.Body)
	}
	if out.BearerToken != "" {
		req.SetAuthToken(out.BearerToken)
	}
	if out.BasicAuth != nil {
		req.SetBasicAuth(out.BasicAuth.Username, out.BasicAuth.Password)
	}

	resp, err := req.Execute(out.Method, out.URL)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}
