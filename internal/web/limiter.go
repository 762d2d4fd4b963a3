package web

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyUploads is returned when every ingestion slot is taken and
// the wait window expires. Callers get a 429 and should retry later.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

// runLimiter bounds how many ingestion runs execute at once. An upload
// holds the database and a file stream for its whole run, so unbounded
// parallelism exhausts pool connections under load.
type runLimiter struct {
	sem     chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
}

func newRunLimiter(maxConcurrent int, maxWait time.Duration) *runLimiter {
	return &runLimiter{
		sem:     make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// acquire claims an ingestion slot, waiting up to maxWait. The caller
// must release() after a successful acquire.
func (l *runLimiter) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.sem <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyUploads
	}
}

func (l *runLimiter) release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.sem
}

func (l *runLimiter) activeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
