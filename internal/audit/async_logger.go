package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scopeauth/go-core/pkg/types"
)

// asyncLogger delivers events through a ring buffer and a background
// flusher. Enqueueing is non-blocking; the oldest event is dropped when the
// buffer is full.
type asyncLogger struct {
	writer  Writer
	retries int

	buffer []*types.AuditEvent
	size   int
	head   int
	tail   int
	mu     sync.Mutex

	flushCh chan struct{}
	doneCh  chan struct{}
	wg      sync.WaitGroup
}

// newAsyncLogger creates an async logger and starts its flusher
func newAsyncLogger(writer Writer, cfg Config) *asyncLogger {
	l := &asyncLogger{
		writer:  writer,
		retries: cfg.WriteRetries,
		buffer:  make([]*types.AuditEvent, cfg.BufferSize),
		size:    cfg.BufferSize,
		flushCh: make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.run(cfg.FlushInterval)

	return l
}

// Log enqueues an event, filling in id and timestamp when absent
func (l *asyncLogger) Log(event *types.AuditEvent) {
	if event == nil {
		return
	}
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.buffer[l.tail] = event
	l.tail = (l.tail + 1) % l.size
	if l.tail == l.head {
		// Buffer full: drop the oldest event rather than block the caller
		l.head = (l.head + 1) % l.size
	}
	l.mu.Unlock()

	select {
	case l.flushCh <- struct{}{}:
	default:
	}
}

func (l *asyncLogger) run(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = l.flush()
		case <-l.flushCh:
			_ = l.flush()
		case <-l.doneCh:
			_ = l.flush()
			return
		}
	}
}

// Flush writes all pending events
func (l *asyncLogger) Flush() error {
	return l.flush()
}

func (l *asyncLogger) flush() error {
	l.mu.Lock()
	events := l.drain()
	l.mu.Unlock()

	var lastErr error
	for _, event := range events {
		var err error
		for attempt := 0; attempt <= l.retries; attempt++ {
			if err = l.writer.Write(event); err == nil {
				break
			}
		}
		if err != nil {
			// A persistently failing sink must not fail the flush of the
			// remaining events
			lastErr = err
		}
	}
	return lastErr
}

// drain must be called with l.mu held
func (l *asyncLogger) drain() []*types.AuditEvent {
	if l.head == l.tail {
		return nil
	}

	var events []*types.AuditEvent
	for i := l.head; i != l.tail; i = (i + 1) % l.size {
		events = append(events, l.buffer[i])
		l.buffer[i] = nil
	}
	l.head = l.tail
	return events
}

// Close flushes remaining events and closes the writer
func (l *asyncLogger) Close() error {
	close(l.doneCh)
	l.wg.Wait()
	return l.writer.Close()
}
