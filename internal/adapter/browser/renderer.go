package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Renderer loads pages in headless Chrome so script-built content is
// present in the returned markup. One browser process is shared; every
// Render call gets its own tab.
type Renderer struct {
	browserCtx  context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
	startOnce   sync.Once
	startErr    error
	logger      *slog.Logger
}

// New prepares the allocator and browser context. Chrome itself starts on
// the first Render. execPath may be empty to use the Chrome found on PATH.
func New(execPath string) *Renderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	return &Renderer{
		browserCtx:  browserCtx,
		cancel:      cancel,
		cancelAlloc: cancelAlloc,
		logger:      slog.Default().With("component", "browser"),
	}
}

func (r *Renderer) start() error {
	r.startOnce.Do(func() {
		r.startErr = chromedp.Run(r.browserCtx)
	})
	return r.startErr
}

// Render opens url in a new tab and returns body.innerHTML as soon as the
// DOM content is loaded. Subresources still loading are not waited for.
// A non-2xx main document response is an error.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	if err := r.start(); err != nil {
		return "", fmt.Errorf("start browser: %w", err)
	}

	tabCtx, cancel := chromedp.NewContext(r.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	nav := newNavigation()
	chromedp.ListenTarget(tabCtx, nav.observe)

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.ActionFunc(func(c context.Context) error {
			return nav.run(c, url)
		}),
		chromedp.Evaluate(`document.body ? document.body.innerHTML : ""`, &html),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	r.logger.DebugContext(ctx, "page rendered", "url", url, "bytes", len(html))
	return html, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() {
	r.cancel()
	r.cancelAlloc()
}

// navigation tracks one page load in a tab: the main document status and
// the DOMContentLoaded event.
type navigation struct {
	mu      sync.Mutex
	started bool
	status  int64
	ready   chan struct{}
	once    sync.Once
}

func newNavigation() *navigation {
	return &navigation{ready: make(chan struct{})}
}

func (n *navigation) observe(ev interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.started {
		return
	}
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		// The first document response of a fresh tab is the main frame;
		// redirects never surface here.
		if e.Type == network.ResourceTypeDocument && n.status == 0 && e.Response != nil {
			n.status = e.Response.Status
		}
	case *page.EventDomContentEventFired:
		n.once.Do(func() { close(n.ready) })
	}
}

func (n *navigation) mainStatus() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

func (n *navigation) run(ctx context.Context, url string) error {
	n.mu.Lock()
	n.started = true
	n.mu.Unlock()

	var res page.NavigateReturns
	if err := cdp.Execute(ctx, page.CommandNavigate, page.Navigate(url), &res); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if res.ErrorText != "" {
		return fmt.Errorf("navigate: %s", res.ErrorText)
	}

	select {
	case <-n.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	if s := n.mainStatus(); s != 0 && (s < 200 || s > 299) {
		return fmt.Errorf("unexpected status %d", s)
	}
	return nil
}
