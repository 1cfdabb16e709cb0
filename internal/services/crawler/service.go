package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/common"
	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/services/markdown"
)

// Service crawls one hotel website per run: bounded same-origin BFS from
// the seed, one browser tab per in-flight page, canonical markdown and
// checksums persisted per URL, and an active-set sweep at the end.
type Service struct {
	config         *common.CrawlerConfig
	pool           *BrowserPool
	pages          interfaces.PageStorage
	markdown       *markdown.Converter
	retry          *RetryPolicy
	requestTimeout time.Duration
	logger         arbor.ILogger
}

// NewService creates the crawler service and launches its browser pool
func NewService(config *common.CrawlerConfig, pages interfaces.PageStorage, converter *markdown.Converter, logger arbor.ILogger) (*Service, error) {
	pool := NewBrowserPool(config.UserAgent, logger)
	if err := pool.Init(config.MaxConcurrency); err != nil {
		return nil, fmt.Errorf("failed to initialize browser pool: %w", err)
	}

	return &Service{
		config:         config,
		pool:           pool,
		pages:          pages,
		markdown:       converter,
		retry:          NewRetryPolicy(config.MaxRetries),
		requestTimeout: config.RequestTimeout,
		logger:         logger,
	}, nil
}

// Close shuts down the browser pool
func (s *Service) Close() {
	s.pool.Shutdown()
}

// Crawl runs the full crawl for one hotel and returns the run summary.
// All scraping completes before the caller may start extraction.
func (s *Service) Crawl(ctx context.Context, hotelID, seedURL string) (*RunSummary, error) {
	if hotelID == "" {
		return nil, fmt.Errorf("hotel id must not be empty")
	}
	seed, err := url.Parse(seedURL)
	if err != nil || seed.Hostname() == "" {
		return nil, fmt.Errorf("invalid seed url %q", seedURL)
	}

	start := time.Now()
	summary := &RunSummary{
		RunID:   uuid.NewString(),
		HotelID: hotelID,
		SeedURL: seedURL,
	}

	queue := NewURLQueue()
	queue.Push(&URLQueueItem{URL: seedURL, Depth: 0})

	var mu sync.Mutex
	visited := make(map[string]bool)
	saved := make(map[string]bool)

	// pending counts queued-but-unfinished items; when it reaches zero the
	// frontier is exhausted and the queue closes, releasing all workers.
	pending := 1
	addPending := func(delta int) {
		mu.Lock()
		pending += delta
		drained := pending == 0
		mu.Unlock()
		if drained {
			queue.Close()
		}
	}

	s.logger.Info().
		Str("run_id", summary.RunID).
		Str("hotel_id", hotelID).
		Str("seed", seedURL).
		Int("max_depth", s.config.MaxDepth).
		Int("concurrency", s.config.MaxConcurrency).
		Msg("Crawl started")

	var wg sync.WaitGroup
	for i := 0; i < s.config.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.workerLoop(ctx, hotelID, queue, &mu, visited, saved, summary, addPending)
		}()
	}
	wg.Wait()
	queue.Close()

	// Only URLs actually written this run stay in the active set. The
	// visited map also holds dedupe-only aliases (pre-redirect addresses);
	// those were not saved and must not shield stale rows from the sweep.
	savedURLs := make([]string, 0, len(saved))
	mu.Lock()
	for u := range saved {
		savedURLs = append(savedURLs, u)
	}
	mu.Unlock()

	deactivated, err := s.pages.DeactivateMissing(ctx, hotelID, savedURLs)
	if err != nil {
		s.logger.Warn().Err(err).Str("hotel_id", hotelID).Msg("Deactivation sweep failed")
	}
	summary.Deactivated = deactivated
	summary.Duration = time.Since(start)

	s.logger.Info().
		Str("run_id", summary.RunID).
		Str("hotel_id", hotelID).
		Int("scraped", summary.PagesScraped).
		Int("failed", summary.PagesFailed).
		Int("skipped", summary.PagesSkipped).
		Int("enqueued", summary.LinksEnqueued).
		Int("deactivated", summary.Deactivated).
		Dur("duration", summary.Duration).
		Msg("Crawl finished")

	return summary, ctx.Err()
}

// recordScrape marks a completed scrape. The post-redirect final URL is the
// storage key, so it alone joins the saved set consulted by the deactivation
// sweep; the requested URL is remembered only to dedupe later queue items.
// Returns false when another worker already stored the same final URL.
func recordScrape(mu *sync.Mutex, visited, saved map[string]bool, summary *RunSummary, requestedURL, finalURL string) bool {
	mu.Lock()
	defer mu.Unlock()
	if visited[finalURL] {
		summary.PagesSkipped++
		return false
	}
	visited[requestedURL] = true
	visited[finalURL] = true
	saved[finalURL] = true
	summary.PagesScraped++
	return true
}

// workerLoop drains the frontier until the queue closes or the context ends
func (s *Service) workerLoop(ctx context.Context, hotelID string, queue *URLQueue, mu *sync.Mutex, visited, saved map[string]bool, summary *RunSummary, addPending func(int)) {
	for {
		item, err := queue.Pop(ctx)
		if err != nil || item == nil {
			return
		}

		s.handleItem(ctx, hotelID, item, queue, mu, visited, saved, summary, addPending)
		addPending(-1)
	}
}

func (s *Service) handleItem(ctx context.Context, hotelID string, item *URLQueueItem, queue *URLQueue, mu *sync.Mutex, visited, saved map[string]bool, summary *RunSummary, addPending func(int)) {
	if s.config.MaxDepth != common.MaxDepthUnlimited && item.Depth > s.config.MaxDepth {
		mu.Lock()
		summary.PagesSkipped++
		mu.Unlock()
		return
	}

	mu.Lock()
	if visited[item.URL] {
		summary.PagesSkipped++
		mu.Unlock()
		return
	}
	mu.Unlock()

	var result *pageResult
	err := s.retry.Execute(ctx, s.logger, func() error {
		var runErr error
		result, runErr = s.processURL(ctx, hotelID, item)
		return runErr
	})
	if err != nil {
		mu.Lock()
		summary.PagesFailed++
		mu.Unlock()
		s.logger.Warn().
			Str("url", item.URL).
			Int("depth", item.Depth).
			Err(err).
			Msg("Page scrape failed")
		return
	}

	if !recordScrape(mu, visited, saved, summary, item.URL, result.finalURL) {
		return
	}
	queue.MarkSeen(result.finalURL)

	nextDepth := item.Depth + 1
	if s.config.MaxDepth != common.MaxDepthUnlimited && nextDepth > s.config.MaxDepth {
		return
	}
	for _, link := range result.links {
		mu.Lock()
		if visited[link] {
			mu.Unlock()
			continue
		}
		mu.Unlock()
		// Count the item into pending before Push so the frontier cannot
		// drain to zero while its children are still being added.
		addPending(1)
		if queue.Push(&URLQueueItem{URL: link, Depth: nextDepth}) {
			mu.Lock()
			summary.LinksEnqueued++
			mu.Unlock()
		} else {
			addPending(-1)
		}
	}

	s.logger.Debug().
		Str("url", result.finalURL).
		Int("depth", item.Depth).
		Int("links", len(result.links)).
		Msg("Page scraped")
}
