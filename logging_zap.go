package analytics

import "go.uber.org/zap"

// ZapAdapter adapts a zap.Logger to the StructuredLogger interface.
//
//	logger, _ := zap.NewProduction()
//	tracker, _ := analytics.NewTracker(consumer,
//	    analytics.WithStructuredLogger(analytics.NewZapAdapter(logger)),
//	)
type ZapAdapter struct {
	sugar *zap.SugaredLogger
}

// NewZapAdapter creates a new ZapAdapter wrapping the given zap.Logger.
// If logger is nil, zap.NewNop() is used.
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Skip the adapter frame so call sites are attributed correctly.
	return &ZapAdapter{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Debug implements StructuredLogger.Debug.
func (a *ZapAdapter) Debug(msg string, args ...any) {
	a.sugar.Debugw(msg, args...)
}

// Info implements StructuredLogger.Info.
func (a *ZapAdapter) Info(msg string, args ...any) {
	a.sugar.Infow(msg, args...)
}

// Warn implements StructuredLogger.Warn.
func (a *ZapAdapter) Warn(msg string, args ...any) {
	a.sugar.Warnw(msg, args...)
}

// Error implements StructuredLogger.Error.
func (a *ZapAdapter) Error(msg string, args ...any) {
	a.sugar.Errorw(msg, args...)
}

// Ensure ZapAdapter implements StructuredLogger.
var _ StructuredLogger = (*ZapAdapter)(nil)
