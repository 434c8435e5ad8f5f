package webfetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/nvaccaro/floe/workflow"
)

const (
	// DefaultUserAgent is the default User-Agent header value
	DefaultUserAgent = "floe-webfetch/1.0"
	// MaxBodySize is the maximum response body size (10MB)
	MaxBodySize = 10 * 1024 * 1024
	// DialTimeout is the maximum time to wait for a TCP connection
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the maximum time to wait for TLS handshake
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is the maximum time to wait for response headers
	ResponseHeaderTimeout = 10 * time.Second
	// IdleConnTimeout is the maximum time an idle connection can be reused
	IdleConnTimeout = 90 * time.Second
	// maxRedirects bounds redirect following
	maxRedirects = 10
)

// KeyURL and KeyContent are the default state keys written by the node: the
// final URL after redirects, and the page content as Markdown.
const (
	KeyURL     = "url"
	KeyContent = "content"
)

type config struct {
	userAgent   string
	maxBodySize int64
	includeHTML bool
	client      *http.Client
}

// Option configures the fetch node.
type Option func(*config)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(cfg *config) {
		if userAgent != "" {
			cfg.userAgent = userAgent
		}
	}
}

// WithMaxBodySize overrides the response body cap.
func WithMaxBodySize(limit int64) Option {
	return func(cfg *config) {
		if limit > 0 {
			cfg.maxBodySize = limit
		}
	}
}

// WithHTML also stores the raw HTML under "content_html".
func WithHTML() Option {
	return func(cfg *config) {
		cfg.includeHTML = true
	}
}

// WithClient replaces the default hardened HTTP client, mostly for tests.
func WithClient(client *http.Client) Option {
	return func(cfg *config) {
		if client != nil {
			cfg.client = client
		}
	}
}

// Node returns a workflow node that fetches the given URL and merges
// {"url", "content"} into the state. Partial URLs are normalized by
// prepending "https://". The overall request deadline comes from the node's
// context, so the engine's per-node timeout applies end to end.
func Node(url string, opts ...Option) workflow.NodeFunc {
	cfg := newConfig(opts)

	return func(ctx context.Context, _ *workflow.GraphState) (map[string]any, error) {
		return fetch(ctx, cfg, url)
	}
}

// NodeFromState is like Node but resolves the URL from the state at run
// time, so an upstream node can decide what to fetch.
func NodeFromState(urlKey string, opts ...Option) workflow.NodeFunc {
	cfg := newConfig(opts)

	return func(ctx context.Context, state *workflow.GraphState) (map[string]any, error) {
		raw, exists := state.Get(urlKey)
		if !exists {
			return nil, fmt.Errorf("webfetch: state key %q not set", urlKey)
		}
		url, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("webfetch: state key %q is %T, want string", urlKey, raw)
		}
		return fetch(ctx, cfg, url)
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{
		userAgent:   DefaultUserAgent,
		maxBodySize: MaxBodySize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.client == nil {
		cfg.client = newHardenedClient()
	}
	return cfg
}

// newHardenedClient builds an HTTP client with timeouts on every phase of
// the request, so a slow or unresponsive server can never block a node
// beyond its deadline.
func newHardenedClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			IdleConnTimeout:       IdleConnTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (>%d)", maxRedirects)
			}
			return nil
		},
	}
}

func fetch(ctx context.Context, cfg *config, url string) (map[string]any, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("webfetch: URL cannot be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("webfetch: create request: %w", err)
	}
	request.Header.Set("User-Agent", cfg.userAgent)

	response, err := cfg.client.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("webfetch: request canceled: %w", err)
		}
		return nil, fmt.Errorf("webfetch: fetch %s: %w", url, err)
	}
	defer closeWithLog(response.Body)

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webfetch: unexpected status code: %d %s", response.StatusCode, response.Status)
	}

	htmlBytes, err := readBody(ctx, response.Body, cfg.maxBodySize)
	if err != nil {
		return nil, err
	}

	markdown, err := htmltomarkdown.ConvertString(string(htmlBytes))
	if err != nil {
		return nil, fmt.Errorf("webfetch: convert HTML to Markdown: %w", err)
	}

	payload := map[string]any{
		KeyURL:     response.Request.URL.String(),
		KeyContent: markdown,
	}
	if cfg.includeHTML {
		payload["content_html"] = string(htmlBytes)
	}
	return payload, nil
}

// readBody reads up to limit bytes, in a goroutine so cancellation is
// honored even during a slow read.
func readBody(ctx context.Context, body io.Reader, limit int64) ([]byte, error) {
	type readResult struct {
		data []byte
		err  error
	}

	limited := io.LimitReader(body, limit)
	readChan := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(limited)
		readChan <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("webfetch: canceled while reading response body: %w", ctx.Err())
	case result := <-readChan:
		if result.err != nil {
			return nil, fmt.Errorf("webfetch: read response body: %w", result.err)
		}
		if int64(len(result.data)) == limit {
			return nil, fmt.Errorf("webfetch: response body exceeds maximum size of %d bytes", limit)
		}
		return result.data, nil
	}
}

func closeWithLog(closer io.Closer) {
	if err := closer.Close(); err != nil {
		slog.Warn("webfetch: failed to close response body", "error", err)
	}
}
