package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var ErrClosed = errors.New("denial log closed")

// AsyncDenialLog takes Record off the request path. Records are queued and
// written by one background worker; a full queue drops the record instead
// of slowing down the rejection. Recent and Stats first wait until every
// record queued before them has been written.
type AsyncDenialLog struct {
	inner DenialLog
	log   *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan asyncItem
	done   chan struct{}

	dropped atomic.Int64
}

type asyncItem struct {
	d       Denial
	barrier chan struct{}
}

func NewAsyncDenialLog(inner DenialLog, size int, log *slog.Logger) *AsyncDenialLog {
	if size <= 0 {
		size = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	a := &AsyncDenialLog{
		inner: inner,
		log:   log,
		queue: make(chan asyncItem, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncDenialLog) run() {
	defer close(a.done)
	for it := range a.queue {
		if it.barrier != nil {
			close(it.barrier)
			continue
		}
		if err := a.inner.Record(context.Background(), it.d); err != nil {
			a.log.Error("record denial failed", "err", err, "reason", it.d.Reason)
		}
	}
}

// Record never blocks. The ID and timestamp are assigned here so they
// reflect the request, not the write.
func (a *AsyncDenialLog) Record(ctx context.Context, d Denial) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- asyncItem{d: stamp(d)}:
	default:
		if n := a.dropped.Add(1); n&(n-1) == 0 {
			a.log.Warn("denial queue full, dropping records", "dropped", n)
		}
	}
	return nil
}

// Dropped counts records lost to a full queue.
func (a *AsyncDenialLog) Dropped() int64 {
	return a.dropped.Load()
}

func (a *AsyncDenialLog) Recent(ctx context.Context, limit int) ([]Denial, error) {
	if err := a.Flush(ctx); err != nil {
		return nil, err
	}
	return a.inner.Recent(ctx, limit)
}

func (a *AsyncDenialLog) Stats(ctx context.Context) (map[string]int64, error) {
	if err := a.Flush(ctx); err != nil {
		return nil, err
	}
	return a.inner.Stats(ctx)
}

// Flush waits until everything queued so far has been written.
func (a *AsyncDenialLog) Flush(ctx context.Context) error {
	b := make(chan struct{})

	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		b = a.done
	} else {
		select {
		case a.queue <- asyncItem{barrier: b}:
		case <-ctx.Done():
			a.mu.RUnlock()
			return ctx.Err()
		}
		a.mu.RUnlock()
	}

	select {
	case <-b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes what is queued and stops the worker.
func (a *AsyncDenialLog) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	<-a.done
	return nil
}
