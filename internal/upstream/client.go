package upstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aviroy619/rabbitloader-chat/pkg/clients"
	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

const callTimeout = 15 * time.Second

// Request describes one upstream API call.
type Request struct {
	Service  string // "v1" or "v2"
	Method   string
	Path     string
	Query    url.Values
	JWT      string
	DomainID string
}

// Response is a completed upstream call. Status is always 2xx; non-2xx
// responses surface as *Error instead.
type Response struct {
	Status    int
	Body      []byte
	LatencyMs int64
	URL       string
}

// Error reports a failed upstream call with enough detail to log and
// to map onto a chat-facing answer.
type Error struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream call failed (%s %s) [%d]: %s", e.Method, e.URL, e.Status, e.Message)
}

// Config holds the upstream bases and the DNS fallback policy.
type Config struct {
	V1Base      string
	V2Base      string
	Origin      string
	DNSFallback bool
	Resolvers   []string
}

// Client calls the v1/v2 upstream APIs. When the local resolver cannot
// find the API host it retries once through public DNS, calling the
// resolved IP directly while preserving the Host header and TLS SNI so
// CDN routing and certificates still line up.
type Client struct {
	cfg      Config
	client   *http.Client
	logger   logging.Logger
	resolveA func(ctx context.Context, host string) (string, error)
}

func NewClient(cfg Config, logger logging.Logger) *Client {
	c := &Client{
		cfg: cfg,
		client: &http.Client{
			Transport: clients.DefaultTransport(),
			Timeout:   callTimeout,
		},
		logger: logger,
	}
	c.resolveA = c.resolvePublic
	return c
}

func (c *Client) base(service string) string {
	if service == "v2" {
		return strings.TrimRight(c.cfg.V2Base, "/")
	}
	return strings.TrimRight(c.cfg.V1Base, "/")
}

// Call performs the request and returns the raw response body. The
// final URL (including query) is recorded on both success and failure.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.base(req.Service) + path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	resp, err := c.do(ctx, method, fullURL, req)
	if err == nil {
		return resp, nil
	}

	if c.cfg.DNSFallback && isDNSFailure(err) {
		resp, fbErr := c.callByIP(ctx, method, fullURL, req)
		if fbErr == nil {
			return resp, nil
		}
		var upErr *Error
		if errors.As(fbErr, &upErr) {
			upErr.Message = "after DNS fallback: " + upErr.Message
			return nil, upErr
		}
		return nil, &Error{Method: method, URL: fullURL, Status: http.StatusBadGateway,
			Message: "after DNS fallback: " + fbErr.Error()}
	}

	var upErr *Error
	if errors.As(err, &upErr) {
		return nil, upErr
	}
	return nil, &Error{Method: method, URL: fullURL, Status: http.StatusBadGateway, Message: err.Error()}
}

func (c *Client) do(ctx context.Context, method, fullURL string, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq, req)
	return c.send(httpReq, method, fullURL)
}

// callByIP resolves the host via public DNS and retries against the IP
// URL. Host header and SNI stay on the original hostname.
func (c *Client) callByIP(ctx context.Context, method, fullURL string, req Request) (*Response, error) {
	parsed, err := url.Parse(fullURL)
	if err != nil {
		return nil, err
	}
	host := parsed.Hostname()

	ip, err := c.resolveA(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("public DNS lookup for %s: %w", host, err)
	}

	ipURL := parsed
	if port := parsed.Port(); port != "" {
		ipURL.Host = net.JoinHostPort(ip, port)
	} else {
		ipURL.Host = ip
	}

	c.logger.WithFields(logging.Fields{"host": host, "ip": ip}).Warn("Upstream DNS fallback engaged")

	httpReq, err := http.NewRequestWithContext(ctx, method, ipURL.String(), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq, req)
	httpReq.Host = host

	transport := clients.DefaultTransport()
	transport.TLSClientConfig = &tls.Config{ServerName: host}
	fallbackClient := &http.Client{Transport: transport, Timeout: callTimeout}

	return sendWith(fallbackClient, httpReq, method, fullURL)
}

func (c *Client) setHeaders(httpReq *http.Request, req Request) {
	httpReq.Header.Set("Accept", "application/json")
	if req.JWT != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.JWT)
	}
	if req.DomainID != "" {
		httpReq.Header.Set("x-domain-id", req.DomainID)
	}
	if c.cfg.Origin != "" {
		httpReq.Header.Set("Origin", c.cfg.Origin)
	}
}

func (c *Client) send(httpReq *http.Request, method, reportURL string) (*Response, error) {
	return sendWith(c.client, httpReq, method, reportURL)
}

func sendWith(client *http.Client, httpReq *http.Request, method, reportURL string) (*Response, error) {
	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return nil, &Error{Method: method, URL: reportURL, Status: resp.StatusCode, Message: msg}
	}

	return &Response{
		Status:    resp.StatusCode,
		Body:      body,
		LatencyMs: time.Since(start).Milliseconds(),
		URL:       reportURL,
	}, nil
}

// resolvePublic looks up the first A record for host through the
// configured public resolvers, trying each in order.
func (c *Client) resolvePublic(ctx context.Context, host string) (string, error) {
	var lastErr error
	for _, server := range c.cfg.Resolvers {
		resolver := &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				d := net.Dialer{Timeout: 3 * time.Second}
				return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
			},
		}
		ips, err := resolver.LookupIP(ctx, "ip4", host)
		if err != nil {
			lastErr = err
			continue
		}
		if len(ips) > 0 {
			return ips[0].String(), nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no A records for %s", host)
	}
	return "", lastErr
}

func isDNSFailure(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return strings.Contains(err.Error(), "no such host")
}
