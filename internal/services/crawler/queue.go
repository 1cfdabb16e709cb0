package crawler

import (
	"container/heap"
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// URLQueue is the BFS frontier: a depth-ordered priority queue with
// normalized-URL deduplication. Shallower items drain first so the crawl
// stays breadth-bounded.
type URLQueue struct {
	items  *itemHeap
	seen   map[string]bool
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
}

type itemHeap []*URLQueueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].AddedAt.Before(h[j].AddedAt)
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *itemHeap) Push(x interface{}) {
	*h = append(*h, x.(*URLQueueItem))
}

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// NewURLQueue creates a new URL queue
func NewURLQueue() *URLQueue {
	h := &itemHeap{}
	heap.Init(h)
	q := &URLQueue{
		items: h,
		seen:  make(map[string]bool),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a URL to the frontier; returns false when the normalized URL
// was already seen or the queue is closed.
func (q *URLQueue) Push(item *URLQueueItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	normalized := normalizeURL(item.URL)
	if q.seen[normalized] {
		return false
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	q.seen[normalized] = true
	heap.Push(q.items, item)
	q.cond.Signal()
	return true
}

// MarkSeen records a URL without enqueueing it. Used for post-redirect
// URLs so the effective address is not crawled twice.
func (q *URLQueue) MarkSeen(rawURL string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seen[normalizeURL(rawURL)] = true
}

// Seen reports whether a URL has been seen (after normalization)
func (q *URLQueue) Seen(rawURL string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seen[normalizeURL(rawURL)]
}

// Pop blocks until an item is available, the queue closes (nil, nil), or
// the context is cancelled. A periodic wakeup re-checks the context so a
// cancelled caller never blocks indefinitely on the condition variable.
func (q *URLQueue) Pop(ctx context.Context) (*URLQueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	const wakeInterval = 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if q.items.Len() > 0 {
			return heap.Pop(q.items).(*URLQueueItem), nil
		}

		if q.closed {
			return nil, nil
		}

		timer := time.AfterFunc(wakeInterval, func() {
			q.cond.Broadcast()
		})
		q.cond.Wait()
		timer.Stop()
	}
}

// Len returns the number of queued items
func (q *URLQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close closes the queue and wakes all blocked Pop calls
func (q *URLQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// normalizeURL canonicalizes URLs for deduplication: lowercase, fragment
// stripped, query parameters sorted.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}

	u.Fragment = ""

	if u.RawQuery != "" {
		query := u.Query()
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := url.Values{}
		for _, k := range keys {
			values[k] = query[k]
		}
		u.RawQuery = values.Encode()
	}

	return strings.ToLower(u.String())
}
