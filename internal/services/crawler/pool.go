package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// BrowserPool manages headless Chrome allocator contexts. Each crawl worker
// opens its own tab off a pooled allocator via NewTab; allocators are
// assigned round-robin.
type BrowserPool struct {
	allocators       []context.Context
	allocatorCancels []context.CancelFunc
	mu               sync.Mutex
	currentIndex     int
	userAgent        string
	logger           arbor.ILogger
	initialized      bool
}

// NewBrowserPool creates an uninitialized pool
func NewBrowserPool(userAgent string, logger arbor.ILogger) *BrowserPool {
	return &BrowserPool{
		userAgent: userAgent,
		logger:    logger,
	}
}

// Init launches size headless browser allocators
func (p *BrowserPool) Init(size int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("browser pool already initialized")
	}
	if size <= 0 {
		return fmt.Errorf("pool size must be positive, got %d", size)
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", false),
		chromedp.Flag("disable-backgrounding-occluded-windows", false),
		chromedp.Flag("disable-renderer-backgrounding", false),
		chromedp.UserAgent(p.userAgent),
	)

	for i := 0; i < size; i++ {
		allocatorCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
		p.allocators = append(p.allocators, allocatorCtx)
		p.allocatorCancels = append(p.allocatorCancels, cancel)
	}

	p.initialized = true
	p.logger.Info().
		Int("pool_size", size).
		Str("user_agent", p.userAgent).
		Msg("Browser pool initialized")
	return nil
}

// NewTab opens a fresh browser tab on the next allocator. The returned
// cancel must be called when the page is done; it closes only the tab.
func (p *BrowserPool) NewTab() (context.Context, context.CancelFunc, error) {
	p.mu.Lock()
	if !p.initialized || len(p.allocators) == 0 {
		p.mu.Unlock()
		return nil, nil, fmt.Errorf("browser pool not initialized")
	}
	index := p.currentIndex % len(p.allocators)
	p.currentIndex = (p.currentIndex + 1) % len(p.allocators)
	allocator := p.allocators[index]
	p.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(allocator)
	return tabCtx, cancel, nil
}

// Shutdown cancels every allocator, closing the browsers
func (p *BrowserPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}

	start := time.Now()
	for _, cancel := range p.allocatorCancels {
		cancel()
	}
	p.allocators = nil
	p.allocatorCancels = nil
	p.currentIndex = 0
	p.initialized = false

	p.logger.Info().
		Dur("shutdown_time", time.Since(start)).
		Msg("Browser pool shut down")
}
