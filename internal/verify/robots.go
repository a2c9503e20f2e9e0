package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsGate checks robots.txt before the verifier fetches a certificate
// page. Robots data is cached per host for the process lifetime; hosts whose
// robots.txt cannot be fetched are allowed.
type RobotsGate struct {
	mu        sync.RWMutex
	byHost    map[string]*robotstxt.RobotsData
	client    *http.Client
	userAgent string
}

// NewRobotsGate creates a robots.txt gate with its own short-timeout client.
func NewRobotsGate(userAgent string, timeout time.Duration) *RobotsGate {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RobotsGate{
		byHost:    make(map[string]*robotstxt.RobotsData),
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Allowed reports whether rawURL may be fetched, plus any crawl delay the
// host requests.
func (g *RobotsGate) Allowed(ctx context.Context, rawURL string) (bool, time.Duration) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false, 0
	}

	data, err := g.robotsFor(ctx, parsed)
	if err != nil {
		return true, 0
	}

	delay := time.Duration(0)
	if group := data.FindGroup(g.userAgent); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(parsed.Path, g.userAgent), delay
}

func (g *RobotsGate) robotsFor(ctx context.Context, page *url.URL) (*robotstxt.RobotsData, error) {
	g.mu.RLock()
	data, ok := g.byHost[page.Host]
	g.mu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", page.Scheme, page.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.byHost[page.Host] = data
	g.mu.Unlock()
	return data, nil
}
