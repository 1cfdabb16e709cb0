package crawler

import "time"

// URLQueueItem is one unit of crawl work
type URLQueueItem struct {
	URL     string
	Depth   int
	AddedAt time.Time
}

// RunSummary holds per-run counters, logged at crawl completion
type RunSummary struct {
	RunID         string
	HotelID       string
	SeedURL       string
	PagesScraped  int
	PagesFailed   int
	PagesSkipped  int
	LinksEnqueued int
	Deactivated   int
	Duration      time.Duration
}

// stabilizerParams tune the DOM quiet-window wait. The entry page gets a
// longer budget because hero sections and booking widgets load late.
type stabilizerParams struct {
	quiet       time.Duration
	timeout     time.Duration
	minInterval time.Duration
}

func stabilizerParamsForDepth(depth int) stabilizerParams {
	if depth == 0 {
		return stabilizerParams{
			quiet:       6 * time.Second,
			timeout:     12 * time.Second,
			minInterval: 400 * time.Millisecond,
		}
	}
	return stabilizerParams{
		quiet:       4 * time.Second,
		timeout:     8 * time.Second,
		minInterval: 400 * time.Millisecond,
	}
}
