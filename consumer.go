package analytics

import (
	"context"
	"fmt"
)

// Consumer is the pluggable sink that turns serialized records into bytes
// delivered to a destination. The Tracker owns exactly one Consumer and
// funnels every emitted record through it.
//
// Send delivers one serialized record. It must not block indefinitely;
// implementations that buffer or batch document their policy. Flush forces
// any buffered records toward the destination. Close releases held
// resources; after Close, all methods return [ErrConsumerClosed].
//
// Implementations in this package: [LogConsumer] (newline-delimited file),
// [DebugConsumer] (io.Writer), and the [BatchConsumer] and [RetryConsumer]
// decorators. Anything else implementing the interface plugs in the same
// way.
type Consumer interface {
	// Send delivers one serialized record payload.
	Send(ctx context.Context, payload []byte) error

	// Flush forces buffered records to the destination.
	Flush(ctx context.Context) error

	// Close flushes and releases resources held by the consumer.
	Close() error
}

// guard invokes fn inside a protected-call boundary: a panic raised by the
// delegate is recovered and converted to a ResultError, and any plain error
// is wrapped as a ResultError for op. Validation errors pass through
// unchanged. No failure propagates past this function as anything other
// than an error value.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewResultError(op, fmt.Errorf("recovered panic: %v", r))
		}
	}()

	callErr := fn()
	if callErr == nil {
		return nil
	}
	if _, ok := AsResultError(callErr); ok {
		return callErr
	}
	if _, ok := AsValidationError(callErr); ok {
		return callErr
	}
	return NewResultError(op, callErr)
}
