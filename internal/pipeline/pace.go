package pipeline

import (
	"context"
	"sync"
	"time"
)

// pacer spaces calls at least delay apart across every document and run
// sharing the pipeline. The first call never waits.
type pacer struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
}

func newPacer(delay time.Duration) *pacer {
	return &pacer{delay: delay}
}

// Wait blocks until delay has passed since the previous call, then records
// the current call.
func (p *pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if err := sleep(ctx, time.Until(p.last.Add(p.delay))); err != nil {
			return err
		}
	}
	p.last = time.Now()
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
