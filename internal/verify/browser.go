package verify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/avashisht/veridoc/internal/model"
)

// Browser is the rendering fetcher: a headless Chrome session per fetch. It
// exists for certificate pages that return a skeleton to plain GETs and only
// materialize the holder's name client-side. Each fetch also captures a
// full-page screenshot for the visual-OCR fallback.
type Browser struct {
	cfg model.VerifyConfig
	ua  string
}

// NewBrowser creates a rendering fetcher.
func NewBrowser(cfg model.VerifyConfig, userAgent string) *Browser {
	return &Browser{cfg: cfg, ua: userAgent}
}

// FetchRendered navigates to the URL in a fresh headless session and returns
// the rendered body text plus a full-page screenshot. It first waits for the
// network to go idle; when the page never settles (ad and analytics traffic),
// it falls back to DOM-ready plus a fixed settle delay and proceeds with
// whatever has rendered.
func (b *Browser) FetchRendered(ctx context.Context, rawURL string) (string, []byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(b.ua),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	if b.cfg.BrowserTimeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, b.cfg.BrowserTimeout)
		defer cancel()
	}

	tracker := trackNetwork(tabCtx)
	if err := chromedp.Run(tabCtx, network.Enable(), chromedp.Navigate(rawURL)); err != nil {
		return "", nil, &model.NetworkError{URL: rawURL, Err: err}
	}

	if err := tracker.waitIdle(tabCtx, b.cfg.NetworkIdleWait); err != nil {
		if err := chromedp.Run(tabCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err == nil {
			_ = chromedp.Run(tabCtx, chromedp.Sleep(b.cfg.SettleDelay))
		}
	}

	var (
		text string
		shot []byte
	)
	if err := chromedp.Run(tabCtx,
		chromedp.Text("body", &text, chromedp.ByQuery),
		chromedp.FullScreenshot(&shot, 90),
	); err != nil {
		return "", nil, &model.NetworkError{URL: rawURL, Err: err}
	}
	return text, shot, nil
}

// networkTracker counts in-flight requests on a tab so the fetch can wait for
// the network to quiesce.
type networkTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastDone time.Time
}

func trackNetwork(ctx context.Context) *networkTracker {
	t := &networkTracker{
		inflight: make(map[network.RequestID]struct{}),
		lastDone: time.Now(),
	}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		t.mu.Lock()
		defer t.mu.Unlock()
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			t.inflight[e.RequestID] = struct{}{}
		case *network.EventLoadingFinished:
			delete(t.inflight, e.RequestID)
			t.lastDone = time.Now()
		case *network.EventLoadingFailed:
			delete(t.inflight, e.RequestID)
			t.lastDone = time.Now()
		}
	})
	return t
}

// waitIdle blocks until no request has been in flight for half a second, or
// errors when the page never settles within max.
func (t *networkTracker) waitIdle(ctx context.Context, max time.Duration) error {
	const quiet = 500 * time.Millisecond
	if max <= 0 {
		max = 15 * time.Second
	}
	deadline := time.Now().Add(max)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.mu.Lock()
			idle := len(t.inflight) == 0 && time.Since(t.lastDone) >= quiet
			t.mu.Unlock()
			if idle {
				return nil
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("network not idle after %s", max)
			}
		}
	}
}
