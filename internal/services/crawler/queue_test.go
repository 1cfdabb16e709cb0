package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLQueue_PushPop(t *testing.T) {
	q := NewURLQueue()
	assert.True(t, q.Push(&URLQueueItem{URL: "https://example.com/a", Depth: 0}))

	item, err := q.Pop(context.Background())
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "https://example.com/a", item.URL)
}

func TestURLQueue_DepthOrdering(t *testing.T) {
	q := NewURLQueue()
	q.Push(&URLQueueItem{URL: "https://example.com/deep", Depth: 2})
	q.Push(&URLQueueItem{URL: "https://example.com/shallow", Depth: 0})
	q.Push(&URLQueueItem{URL: "https://example.com/mid", Depth: 1})

	ctx := context.Background()
	first, _ := q.Pop(ctx)
	second, _ := q.Pop(ctx)
	third, _ := q.Pop(ctx)

	assert.Equal(t, 0, first.Depth)
	assert.Equal(t, 1, second.Depth)
	assert.Equal(t, 2, third.Depth)
}

func TestURLQueue_Deduplication(t *testing.T) {
	q := NewURLQueue()
	assert.True(t, q.Push(&URLQueueItem{URL: "https://example.com/page"}))
	assert.False(t, q.Push(&URLQueueItem{URL: "https://example.com/page"}))
	assert.False(t, q.Push(&URLQueueItem{URL: "https://EXAMPLE.com/page#section"}),
		"fragment and case differences normalize to the same URL")
	assert.Equal(t, 1, q.Len())
}

func TestURLQueue_QueryParameterOrderNormalizes(t *testing.T) {
	q := NewURLQueue()
	assert.True(t, q.Push(&URLQueueItem{URL: "https://example.com/?b=2&a=1"}))
	assert.False(t, q.Push(&URLQueueItem{URL: "https://example.com/?a=1&b=2"}))
}

func TestURLQueue_MarkSeen(t *testing.T) {
	q := NewURLQueue()
	q.MarkSeen("https://example.com/redirected")
	assert.True(t, q.Seen("https://example.com/redirected"))
	assert.False(t, q.Push(&URLQueueItem{URL: "https://example.com/redirected"}))
	assert.Equal(t, 0, q.Len())
}

func TestURLQueue_CloseReleasesPop(t *testing.T) {
	q := NewURLQueue()
	done := make(chan struct{})

	go func() {
		item, err := q.Pop(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, item)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not return after Close")
	}
}

func TestURLQueue_PopHonorsContextCancellation(t *testing.T) {
	q := NewURLQueue()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Pop(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	q.Close()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not return after cancellation")
	}
}

func TestURLQueue_DrainsRemainingItemsAfterClose(t *testing.T) {
	q := NewURLQueue()
	q.Push(&URLQueueItem{URL: "https://example.com/a"})
	q.Close()

	item, err := q.Pop(context.Background())
	require.NoError(t, err)
	require.NotNil(t, item, "closed queue still drains queued items")

	item, err = q.Pop(context.Background())
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestURLQueue_PushAfterClose(t *testing.T) {
	q := NewURLQueue()
	q.Close()
	assert.False(t, q.Push(&URLQueueItem{URL: "https://example.com/late"}))
}
