package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelbrief/hotelbrief/internal/common"
)

func TestRetryPolicy_SucceedsFirstAttempt(t *testing.T) {
	p := NewRetryPolicy(2)
	calls := 0
	err := p.Execute(context.Background(), common.GetLogger(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_RetriesTransientErrors(t *testing.T) {
	p := NewRetryPolicy(2)
	p.InitialBackoff = time.Millisecond

	calls := 0
	err := p.Execute(context.Background(), common.GetLogger(), func() error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	p := NewRetryPolicy(1)
	p.InitialBackoff = time.Millisecond

	calls := 0
	err := p.Execute(context.Background(), common.GetLogger(), func() error {
		calls++
		return context.DeadlineExceeded
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls, "one retry after the first attempt")
}

func TestRetryPolicy_PermanentErrorFailsImmediately(t *testing.T) {
	p := NewRetryPolicy(3)
	calls := 0
	permanent := fmt.Errorf("error page: status=404")
	err := p.Execute(context.Background(), common.GetLogger(), func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ContextCancellationStopsRetries(t *testing.T) {
	p := NewRetryPolicy(5)
	p.InitialBackoff = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := p.Execute(ctx, common.GetLogger(), func() error {
		calls++
		return context.DeadlineExceeded
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff_Bounded(t *testing.T) {
	p := NewRetryPolicy(2)
	for attempt := 0; attempt < 10; attempt++ {
		backoff := p.CalculateBackoff(attempt)
		assert.Greater(t, backoff, time.Duration(0))
		assert.LessOrEqual(t, backoff, time.Duration(float64(p.MaxBackoff)*1.25))
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(context.DeadlineExceeded))
	assert.True(t, isRetryableError(&net.OpError{Op: "read", Err: errors.New("reset")}))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(errors.New("error page: status=500")))
	assert.False(t, isRetryableError(nil))
}
