package analytics

import (
	"bufio"
	"context"
	"os"
	"sync"
	"time"
)

// DefaultLogBufferSize is the default size of the LogConsumer write buffer.
const DefaultLogBufferSize = 64 * 1024

// rotationLayout is the date suffix appended to rotated log files.
const rotationLayout = "2006-01-02"

// LogConsumer is the reference Consumer implementation. It appends one
// newline-delimited serialized record per Send to a file.
//
// Buffering policy: writes go through a buffered writer; Flush drains the
// buffer and fsyncs the file, so a flushed record is on durable storage.
// Records sent but not yet flushed may be lost on a crash.
//
// With daily rotation enabled, records are written to path.YYYY-MM-DD and
// a new file is opened when the date changes.
//
// LogConsumer is safe for concurrent use.
type LogConsumer struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	w       *bufio.Writer
	bufSize int
	rotate  bool
	day     string
	timeFn  func() time.Time
	closed  bool
}

// LogConsumerOption configures a LogConsumer.
type LogConsumerOption func(*LogConsumer)

// WithDailyRotation enables daily file rotation. Records are written to
// path.YYYY-MM-DD instead of path directly.
func WithDailyRotation() LogConsumerOption {
	return func(c *LogConsumer) {
		c.rotate = true
	}
}

// WithLogBufferSize sets the size of the write buffer.
func WithLogBufferSize(size int) LogConsumerOption {
	return func(c *LogConsumer) {
		if size > 0 {
			c.bufSize = size
		}
	}
}

// withLogClock overrides the clock used for rotation decisions. Test hook.
func withLogClock(fn func() time.Time) LogConsumerOption {
	return func(c *LogConsumer) {
		c.timeFn = fn
	}
}

// NewLogConsumer creates a consumer appending newline-delimited records to
// the file at path. It returns a validation error if path is empty, and a
// ResultError if the file cannot be opened.
func NewLogConsumer(path string, opts ...LogConsumerOption) (*LogConsumer, error) {
	if err := ValidateRequired("path", path); err != nil {
		return nil, err
	}

	c := &LogConsumer{
		path:    path,
		bufSize: DefaultLogBufferSize,
		timeFn:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

// open opens the current target file. Caller holds the lock (or is the
// constructor, before the consumer is shared).
func (c *LogConsumer) open() error {
	target := c.path
	if c.rotate {
		c.day = c.timeFn().Format(rotationLayout)
		target = c.path + "." + c.day
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return NewResultError("open", err)
	}
	c.file = file
	c.w = bufio.NewWriterSize(file, c.bufSize)
	return nil
}

// rotateIfNeeded switches to a new file when the date changed.
// Caller holds the lock.
func (c *LogConsumer) rotateIfNeeded() error {
	if !c.rotate {
		return nil
	}
	day := c.timeFn().Format(rotationLayout)
	if day == c.day {
		return nil
	}
	if err := c.w.Flush(); err != nil {
		return NewResultError("rotate", err)
	}
	if err := c.file.Close(); err != nil {
		return NewResultError("rotate", err)
	}
	return c.open()
}

// Send writes one record followed by a newline to the log file.
func (c *LogConsumer) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return NewResultError("send", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	if err := c.rotateIfNeeded(); err != nil {
		return err
	}
	if _, err := c.w.Write(payload); err != nil {
		return NewResultError("send", err)
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return NewResultError("send", err)
	}
	return nil
}

// Flush drains the write buffer and forces the file contents to durable
// storage.
func (c *LogConsumer) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return NewResultError("flush", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	if err := c.w.Flush(); err != nil {
		return NewResultError("flush", err)
	}
	if err := c.file.Sync(); err != nil {
		return NewResultError("flush", err)
	}
	return nil
}

// Close flushes buffered records and releases the file handle.
// Closing an already-closed consumer returns ErrConsumerClosed.
func (c *LogConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConsumerClosed
	}
	c.closed = true

	flushErr := c.w.Flush()
	closeErr := c.file.Close()
	if flushErr != nil {
		return NewResultError("close", flushErr)
	}
	if closeErr != nil {
		return NewResultError("close", closeErr)
	}
	return nil
}

// Path returns the configured log path (without any rotation suffix).
func (c *LogConsumer) Path() string {
	return c.path
}

// Ensure LogConsumer implements Consumer.
var _ Consumer = (*LogConsumer)(nil)
