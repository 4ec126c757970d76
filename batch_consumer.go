package analytics

import (
	"context"
	"sync"
	"time"
)

// Batching defaults.
const (
	// DefaultBatchSize is the default number of records buffered before an
	// automatic flush to the wrapped consumer.
	DefaultBatchSize = 50

	// MaxBatchSize is the maximum allowed batch size.
	MaxBatchSize = 1000

	// DefaultDrainTimeout bounds the final drain performed by Close.
	DefaultDrainTimeout = 10 * time.Second
)

// BatchConsumer is a Consumer decorator that buffers records and forwards
// them to the wrapped consumer in batches.
//
// Buffering policy: Send appends to an in-memory buffer; when the buffer
// reaches the batch size it is drained to the wrapped consumer within the
// same call. Flush drains unconditionally, then flushes the wrapped
// consumer. If a record fails mid-drain, already-forwarded records stay
// forwarded and the remainder stays buffered for the next attempt.
//
// With a flush interval configured, a background goroutine drains the
// buffer periodically. That goroutine is owned entirely by the
// BatchConsumer, is stopped by Close, and reports failures through the
// configured error handler (stderr fallback if none is set). The Tracker
// above remains synchronous and single-threaded.
type BatchConsumer struct {
	next Consumer
	max  int

	mu     sync.Mutex
	buf    [][]byte
	closed bool

	// Background flusher, present only when an interval is configured.
	interval     time.Duration
	stop         chan struct{}
	done         chan struct{}
	errorHandler func(error)
}

// BatchOption configures a BatchConsumer.
type BatchOption func(*BatchConsumer)

// WithBatchSize sets the number of records buffered before an automatic
// drain. Values outside (0, MaxBatchSize] are clamped.
func WithBatchSize(size int) BatchOption {
	return func(c *BatchConsumer) {
		if size > 0 {
			c.max = size
		}
		if c.max > MaxBatchSize {
			c.max = MaxBatchSize
		}
	}
}

// WithBatchFlushInterval enables a background flusher draining the buffer
// every interval. The goroutine is stopped by Close.
func WithBatchFlushInterval(interval time.Duration) BatchOption {
	return func(c *BatchConsumer) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithBatchErrorHandler sets the callback invoked when a background drain
// fails. Without one, failures are logged to stderr.
func WithBatchErrorHandler(handler func(error)) BatchOption {
	return func(c *BatchConsumer) {
		c.errorHandler = handler
	}
}

// NewBatchConsumer wraps next in a batching decorator.
func NewBatchConsumer(next Consumer, opts ...BatchOption) (*BatchConsumer, error) {
	if next == nil {
		return nil, ErrNilConsumer
	}

	c := &BatchConsumer{
		next: next,
		max:  DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.interval > 0 {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.flushLoop()
	}
	return c, nil
}

// flushLoop periodically drains buffered records.
func (c *BatchConsumer) flushLoop() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), DefaultDrainTimeout)
			err := c.drainBuffered(ctx)
			cancel()
			if err != nil && err != ErrConsumerClosed {
				c.handleAsyncError(err)
			}
		}
	}
}

// handleAsyncError reports a background drain failure. Errors are never
// silently dropped: without a handler they go to stderr.
func (c *BatchConsumer) handleAsyncError(err error) {
	if c.errorHandler != nil {
		c.errorHandler(err)
		return
	}
	defaultStderrLogger.Printf("background flush error: %v", err)
}

// drainBuffered acquires the lock and drains the buffer.
func (c *BatchConsumer) drainBuffered(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	return c.drainLocked(ctx)
}

// drainLocked forwards buffered records to the wrapped consumer.
// On failure the unsent remainder stays buffered. Caller holds the lock.
func (c *BatchConsumer) drainLocked(ctx context.Context) error {
	for i, payload := range c.buf {
		if err := c.next.Send(ctx, payload); err != nil {
			c.buf = c.buf[i:]
			return err
		}
	}
	c.buf = c.buf[:0]
	return nil
}

// Send buffers one record, draining the batch to the wrapped consumer when
// the batch size is reached.
func (c *BatchConsumer) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}

	// The payload is retained past the call; copy defensively.
	buf := make([]byte, len(payload))
	copy(buf, payload)
	c.buf = append(c.buf, buf)

	if len(c.buf) >= c.max {
		return c.drainLocked(ctx)
	}
	return nil
}

// Flush drains all buffered records and flushes the wrapped consumer.
func (c *BatchConsumer) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	if err := c.drainLocked(ctx); err != nil {
		return err
	}
	return c.next.Flush(ctx)
}

// Pending returns the number of records currently buffered.
func (c *BatchConsumer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// Close stops the background flusher, drains remaining records, and closes
// the wrapped consumer. The drain is bounded by DefaultDrainTimeout.
func (c *BatchConsumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsumerClosed
	}
	c.closed = true
	c.mu.Unlock()

	// Stop the flusher before the final drain so they cannot interleave.
	if c.stop != nil {
		close(c.stop)
		<-c.done
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultDrainTimeout)
	defer cancel()

	c.mu.Lock()
	drainErr := c.drainLocked(ctx)
	c.mu.Unlock()

	closeErr := c.next.Close()
	if drainErr != nil {
		return drainErr
	}
	if closeErr != nil {
		return closeErr
	}
	return nil
}

// Ensure BatchConsumer implements Consumer.
var _ Consumer = (*BatchConsumer)(nil)
