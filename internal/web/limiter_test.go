package web

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLimiterAcquireRelease(t *testing.T) {
	l := newRunLimiter(2, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.acquire(ctx))
	require.NoError(t, l.acquire(ctx))
	assert.Equal(t, 2, l.activeCount())

	err := l.acquire(ctx)
	assert.ErrorIs(t, err, ErrTooManyUploads)

	l.release()
	assert.Equal(t, 1, l.activeCount())
	require.NoError(t, l.acquire(ctx))
}

func TestRunLimiterCancelledContext(t *testing.T) {
	l := newRunLimiter(1, time.Minute)
	require.NoError(t, l.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
