package analytics

import (
	"context"
	"io"
	"sync"
)

// DebugConsumer writes one newline-delimited record per Send to an
// io.Writer. It is meant for development and tests: point it at os.Stderr
// or a bytes.Buffer to see exactly what would be delivered.
//
// Buffering policy: none. Every Send is written through immediately, so
// Flush only forwards to the writer when it happens to implement a
// Flush() error method.
//
// DebugConsumer is safe for concurrent use.
type DebugConsumer struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewDebugConsumer creates a consumer writing records to w.
func NewDebugConsumer(w io.Writer) (*DebugConsumer, error) {
	if w == nil {
		return nil, NewValidationError("writer", "cannot be nil")
	}
	return &DebugConsumer{w: w}, nil
}

// Send writes one record followed by a newline.
func (c *DebugConsumer) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return NewResultError("send", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	// Separate writes: appending '\n' to payload could scribble into the
	// caller's backing array when it has spare capacity.
	if _, err := c.w.Write(payload); err != nil {
		return NewResultError("send", err)
	}
	if _, err := c.w.Write([]byte{'\n'}); err != nil {
		return NewResultError("send", err)
	}
	return nil
}

// Flush forwards to the underlying writer if it supports flushing.
func (c *DebugConsumer) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return NewResultError("flush", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	if f, ok := c.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return NewResultError("flush", err)
		}
	}
	return nil
}

// Close marks the consumer closed. The underlying writer is not closed;
// the caller owns it.
func (c *DebugConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	c.closed = true
	return nil
}

// Ensure DebugConsumer implements Consumer.
var _ Consumer = (*DebugConsumer)(nil)
