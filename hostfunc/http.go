package hostfunc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultMaxURLLength   = 8192
	DefaultMaxBodySize    = 1 << 20 // 1MB
	DefaultRequestTimeout = 30 * time.Second
)

// HTTPConfig controls outbound network access. An empty AllowedHosts
// list disables requests entirely.
type HTTPConfig struct {
	AllowedHosts   []string
	MaxBodySize    int64
	MaxURLLength   int
	RequestTimeout time.Duration
}

func (c HTTPConfig) withDefaults() HTTPConfig {
	if c.MaxBodySize == 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.MaxURLLength == 0 {
		c.MaxURLLength = DefaultMaxURLLength
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodPatch:   true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// HTTP performs outbound requests on behalf of scripts, restricted to
// an allowlist of hosts.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTP(cfg HTTPConfig) *HTTP {
	cfg = cfg.withDefaults()
	return &HTTP{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// checkTarget validates the raw URL against the length, scheme, and
// allowlist rules. Validation order is fixed so error messages are
// stable for scripts that match on them.
func (h *HTTP) checkTarget(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("url required")
	}
	if len(rawURL) > h.cfg.MaxURLLength {
		return nil, fmt.Errorf("url exceeds max length")
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url")
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("scheme must be http or https")
	}

	if len(h.cfg.AllowedHosts) == 0 {
		return nil, fmt.Errorf("http not enabled")
	}
	if host := target.Hostname(); !h.isHostAllowed(host) {
		return nil, fmt.Errorf("host not allowed: %s", host)
	}
	return target, nil
}

// Request issues one HTTP request. Args: url (required), method
// (default GET), body, headers. The response is a table with status,
// body, and headers fields.
func (h *HTTP) Request(ctx context.Context, args map[string]any) (any, error) {
	method, _ := args["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)
	if !allowedMethods[method] {
		return nil, fmt.Errorf("unsupported method: %s", method)
	}

	rawURL, _ := args["url"].(string)
	if _, err := h.checkTarget(rawURL); err != nil {
		return nil, err
	}

	var body io.Reader
	if bodyStr, ok := args["body"].(string); ok && bodyStr != "" {
		if int64(len(bodyStr)) > h.cfg.MaxBodySize {
			return nil, fmt.Errorf("request body exceeds max size")
		}
		body = strings.NewReader(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if headers, ok := args["headers"].(map[string]any); ok {
		for name, v := range headers {
			if value, ok := v.(string); ok {
				req.Header.Set(name, value)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return h.buildResponse(resp)
}

func (h *HTTP) buildResponse(resp *http.Response) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, h.cfg.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	headers := make(map[string]any, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	return map[string]any{
		"status":  resp.StatusCode,
		"body":    string(body),
		"headers": headers,
	}, nil
}

// isHostAllowed matches host against the allowlist. IP entries compare
// by parsed value so alternate textual forms cannot slip through, and
// an IP host never matches a domain entry via the subdomain rule.
func (h *HTTP) isHostAllowed(host string) bool {
	hostIP := net.ParseIP(host)
	for _, allowed := range h.cfg.AllowedHosts {
		if allowedIP := net.ParseIP(allowed); allowedIP != nil {
			if hostIP != nil && hostIP.Equal(allowedIP) {
				return true
			}
			continue
		}
		if hostIP != nil {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// NewHTTPGet returns a Func pinned to the GET method, for exposing
// fetch-only access.
func NewHTTPGet(cfg HTTPConfig) Func {
	h := NewHTTP(cfg)
	return func(ctx context.Context, args map[string]any) (any, error) {
		args["method"] = "GET"
		return h.Request(ctx, args)
	}
}
