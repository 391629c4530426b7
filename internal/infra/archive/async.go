package archive

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yanqian/power-predictor/internal/domain/prediction"
)

const (
	defaultQueueSize = 256
	putTimeout       = 30 * time.Second
)

var (
	errBacklogFull = errors.New("archive backlog is full")
	errClosed      = errors.New("archive is closed")
)

// Async hands records to a background worker so uploads never delay a submission.
type Async struct {
	next   prediction.Archive
	jobs   chan prediction.Record
	logger *slog.Logger
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts the worker draining into next.
func NewAsync(next prediction.Archive, size int, logger *slog.Logger) *Async {
	if size <= 0 {
		size = defaultQueueSize
	}
	a := &Async{
		next:   next,
		jobs:   make(chan prediction.Record, size),
		logger: logger.With("component", "archive.async"),
		done:   make(chan struct{}),
	}
	go a.consume()
	return a
}

// Put enqueues record without blocking. It fails once the backlog is full.
func (a *Async) Put(_ context.Context, record prediction.Record) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return errClosed
	}
	select {
	case a.jobs <- record:
		return nil
	default:
		return errBacklogFull
	}
}

// Close stops accepting records and waits for the backlog to drain.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.jobs)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *Async) consume() {
	defer close(a.done)
	for record := range a.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), putTimeout)
		if err := a.next.Put(ctx, record); err != nil {
			a.logger.Warn("archive upload failed", "record_id", record.ID, "error", err)
		}
		cancel()
	}
}

var _ prediction.Archive = (*Async)(nil)
