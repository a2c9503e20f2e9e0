package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/avashisht/veridoc/internal/cache"
	"github.com/avashisht/veridoc/internal/model"
	"github.com/avashisht/veridoc/internal/worker"
)

// Fetcher is the fast, non-rendering page fetcher: plain GET, visible text
// extracted from the HTML. Pages behind client-side rendering come back thin
// here and escalate to the browser fetcher. Fetches respect robots.txt, are
// rate limited per domain, and cache page text by URL.
type Fetcher struct {
	client   *http.Client
	cache    cache.Cache
	limiter  *worker.Limiter
	robots   *RobotsGate
	ua       string
	maxBytes int64
	cacheTTL time.Duration
}

// NewFetcher builds the fast fetcher from the HTTP config. pageCache may be
// nil to disable page caching.
func NewFetcher(cfg model.HTTPConfig, cacheTTL time.Duration, pageCache cache.Cache, limiter *worker.Limiter, robots *RobotsGate) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		cache:    pageCache,
		limiter:  limiter,
		robots:   robots,
		ua:       cfg.UserAgent,
		maxBytes: maxBytes,
		cacheTTL: cacheTTL,
	}
}

// FetchText GETs the URL and returns its visible text.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(cache.CacheKey(rawURL)); ok {
			return string(cached), nil
		}
	}

	if f.robots != nil {
		allowed, delay := f.robots.Allowed(ctx, rawURL)
		if !allowed {
			return "", &model.NetworkError{URL: rawURL, Err: fmt.Errorf("disallowed by robots.txt")}
		}
		if f.limiter != nil {
			if err := f.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
				return "", &model.NetworkError{URL: rawURL, Err: err}
			}
		}
	} else if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return "", &model.NetworkError{URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &model.NetworkError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &model.NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &model.NetworkError{URL: rawURL, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", &model.NetworkError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	text := VisibleText(string(body))
	if f.cache != nil && text != "" {
		_ = f.cache.Set(cache.CacheKey(rawURL), []byte(text), f.cacheTTL)
	}
	return text, nil
}

// VisibleText extracts the rendered-text content of an HTML document,
// skipping script, style, and other non-visible subtrees.
func VisibleText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "head", "template":
				return
			}
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
