package analytics

import (
	"context"
	"time"
)

// Tracker is the façade coordinating super properties, event emission,
// profile mutation, and signup linking. It exclusively owns its Consumer
// and ProfileStore.
//
// Property bags passed to Tracker methods are borrowed for the duration of
// the call: the tracker snapshots the values it needs and never retains
// the bag, and the caller stays responsible for disposing it.
//
// Tracker is synchronous: every method invokes the consumer inline and
// returns its result. It is not safe for concurrent use; multiple trackers
// may coexist independently, each with its own consumer and state.
type Tracker struct {
	config     *Config
	consumer   Consumer
	store      ProfileStore
	superProps map[string]PropertyValue
	closed     bool
}

// NewTracker creates a tracker that delivers records through consumer.
func NewTracker(consumer Consumer, opts ...Option) (*Tracker, error) {
	if consumer == nil {
		return nil, ErrNilConsumer
	}

	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Tracker{
		config:     cfg,
		consumer:   consumer,
		store:      cfg.Store,
		superProps: make(map[string]PropertyValue),
	}, nil
}

// Track records one event for distinctID. Super properties registered on
// the tracker are merged into the event's properties, with call-local
// properties winning on key collision. props may be nil for an event with
// no call-local properties.
func (t *Tracker) Track(ctx context.Context, distinctID, event string, props *PropertyBag) error {
	if t.closed {
		return ErrTrackerClosed
	}
	if err := ValidateRequired("distinct_id", distinctID); err != nil {
		return t.reject(err)
	}
	if err := ValidateEventName("event", event); err != nil {
		return t.reject(err)
	}
	if err := validateBag("properties", props, false); err != nil {
		return t.reject(err)
	}

	rec := t.newRecord(RecordTypeTrack, distinctID, t.mergeSuper(props), 2)
	rec.Event = event
	return t.deliver(ctx, rec)
}

// TrackSignup links the previously-anonymous originID to the newly-known
// distinctID and records the signup event. The linking itself is a
// downstream concern; this layer emits one distinguished record carrying
// both identities. Call it once per anonymous-to-known transition.
func (t *Tracker) TrackSignup(ctx context.Context, distinctID, originID string, props *PropertyBag) error {
	if t.closed {
		return ErrTrackerClosed
	}
	if err := ValidateRequired("distinct_id", distinctID); err != nil {
		return t.reject(err)
	}
	if err := ValidateRequired("original_id", originID); err != nil {
		return t.reject(err)
	}
	if err := validateBag("properties", props, false); err != nil {
		return t.reject(err)
	}

	rec := t.newRecord(RecordTypeTrackSignup, distinctID, t.mergeSuper(props), 2)
	rec.Event = "$SignUp"
	rec.OriginalID = originID
	return t.deliver(ctx, rec)
}

// ProfileSet overwrites the listed profile properties for distinctID.
func (t *Tracker) ProfileSet(ctx context.Context, distinctID string, props *PropertyBag) error {
	return t.profileMutation(ctx, RecordTypeProfileSet, distinctID, props,
		func(snapshot map[string]PropertyValue) error {
			return t.store.Set(distinctID, snapshot)
		})
}

// ProfileSetOnce sets only the listed profile properties that are not
// already present for distinctID; existing values are left untouched.
func (t *Tracker) ProfileSetOnce(ctx context.Context, distinctID string, props *PropertyBag) error {
	return t.profileMutation(ctx, RecordTypeProfileSetOnce, distinctID, props,
		func(snapshot map[string]PropertyValue) error {
			return t.store.SetOnce(distinctID, snapshot)
		})
}

// ProfileIncrement adds signed numeric deltas to the stored profile
// values, creating a property at its delta when absent. Every property in
// props must be an int or number.
func (t *Tracker) ProfileIncrement(ctx context.Context, distinctID string, props *PropertyBag) error {
	return t.profileMutation(ctx, RecordTypeProfileIncrement, distinctID, props,
		func(snapshot map[string]PropertyValue) error {
			if err := validateKind("properties", snapshot, KindInt, KindNumber); err != nil {
				return err
			}
			return t.store.Increment(distinctID, snapshot)
		})
}

// ProfileAppend extends stored profile lists with the given elements,
// creating a property when absent. Every property in props must be a list.
func (t *Tracker) ProfileAppend(ctx context.Context, distinctID string, props *PropertyBag) error {
	return t.profileMutation(ctx, RecordTypeProfileAppend, distinctID, props,
		func(snapshot map[string]PropertyValue) error {
			if err := validateKind("properties", snapshot, KindList); err != nil {
				return err
			}
			return t.store.Append(distinctID, snapshot)
		})
}

// profileMutation is the shared path for profile operations taking a bag:
// validate, snapshot, apply to the store, then emit the mutation record.
func (t *Tracker) profileMutation(ctx context.Context, typ RecordType, distinctID string, props *PropertyBag, apply func(map[string]PropertyValue) error) error {
	if t.closed {
		return ErrTrackerClosed
	}
	if err := ValidateRequired("distinct_id", distinctID); err != nil {
		return t.reject(err)
	}
	if err := validateBag("properties", props, true); err != nil {
		return t.reject(err)
	}

	snapshot := props.snapshot()
	if err := apply(snapshot); err != nil {
		if _, ok := AsValidationError(err); ok {
			return t.reject(err)
		}
		t.logError("profile store failed", "type", string(typ), "error", err)
		return err
	}
	// One extra frame: the public profile method sits above this helper.
	return t.deliver(ctx, t.newRecord(typ, distinctID, snapshot, 3))
}

// ProfileUnset removes one named property from the profile for
// distinctID. Removing an absent property is not an error.
func (t *Tracker) ProfileUnset(ctx context.Context, distinctID, key string) error {
	if t.closed {
		return ErrTrackerClosed
	}
	if err := ValidateRequired("distinct_id", distinctID); err != nil {
		return t.reject(err)
	}
	if err := ValidateKey("key", key); err != nil {
		return t.reject(err)
	}

	if err := t.store.Unset(distinctID, key); err != nil {
		t.logError("profile store failed", "type", string(RecordTypeProfileUnset), "error", err)
		return err
	}
	rec := t.newRecord(RecordTypeProfileUnset, distinctID,
		map[string]PropertyValue{key: BoolValue(true)}, 2)
	return t.deliver(ctx, rec)
}

// ProfileDelete removes the entire profile for distinctID.
func (t *Tracker) ProfileDelete(ctx context.Context, distinctID string) error {
	if t.closed {
		return ErrTrackerClosed
	}
	if err := ValidateRequired("distinct_id", distinctID); err != nil {
		return t.reject(err)
	}

	if err := t.store.Delete(distinctID); err != nil {
		t.logError("profile store failed", "type", string(RecordTypeProfileDelete), "error", err)
		return err
	}
	return t.deliver(ctx, t.newRecord(RecordTypeProfileDelete, distinctID, map[string]PropertyValue{}, 2))
}

// Profile returns a copy of the stored profile for distinctID.
// An unknown ID yields an empty map.
func (t *Tracker) Profile(distinctID string) (map[string]PropertyValue, error) {
	if t.closed {
		return nil, ErrTrackerClosed
	}
	if err := ValidateRequired("distinct_id", distinctID); err != nil {
		return nil, t.reject(err)
	}
	return t.store.Get(distinctID)
}

// RegisterSuperProperties merges props into the super-property registry.
// Registered properties are attached to every subsequently tracked event;
// already-emitted records are unaffected.
func (t *Tracker) RegisterSuperProperties(props *PropertyBag) error {
	if t.closed {
		return ErrTrackerClosed
	}
	if err := validateBag("properties", props, true); err != nil {
		return t.reject(err)
	}
	for k, v := range props.snapshot() {
		t.superProps[k] = v
	}
	return nil
}

// UnregisterSuperProperties removes one key from the super-property
// registry. Removing an absent key is a no-op.
func (t *Tracker) UnregisterSuperProperties(key string) error {
	if t.closed {
		return ErrTrackerClosed
	}
	if err := ValidateKey("key", key); err != nil {
		return t.reject(err)
	}
	delete(t.superProps, key)
	return nil
}

// ClearSuperProperties removes all super properties.
func (t *Tracker) ClearSuperProperties() error {
	if t.closed {
		return ErrTrackerClosed
	}
	t.superProps = make(map[string]PropertyValue)
	return nil
}

// Flush forwards to the consumer's Flush, forcing buffered records toward
// their destination. Call it before process shutdown.
func (t *Tracker) Flush(ctx context.Context) error {
	if t.closed {
		return ErrTrackerClosed
	}
	err := guard("flush", func() error {
		return t.consumer.Flush(ctx)
	})
	if err != nil {
		t.handleError(err)
		return err
	}
	return nil
}

// Close closes the consumer and the profile store. The first call closes;
// every later call, and any other tracker operation after Close, returns
// ErrTrackerClosed.
func (t *Tracker) Close() error {
	if t.closed {
		return ErrTrackerClosed
	}
	t.closed = true

	consumerErr := guard("close", func() error {
		return t.consumer.Close()
	})
	storeErr := t.store.Close()

	if consumerErr != nil {
		t.handleError(consumerErr)
		return consumerErr
	}
	if storeErr != nil {
		t.handleError(storeErr)
		return storeErr
	}
	return nil
}

// mergeSuper merges the super-property registry with a call-local bag,
// call-local values winning on collision.
func (t *Tracker) mergeSuper(props *PropertyBag) map[string]PropertyValue {
	merged := make(map[string]PropertyValue, len(t.superProps)+props.Len())
	for k, v := range t.superProps {
		merged[k] = v.clone()
	}
	for k, v := range props.snapshot() {
		merged[k] = v
	}
	return merged
}

// newRecord builds an immutable record snapshot stamped with the emission
// time, a fresh track ID, and call-site metadata. skip counts the stack
// frames between newRecord and the user's call site: 2 when called from a
// public Tracker method, one more per intermediate helper frame.
func (t *Tracker) newRecord(typ RecordType, distinctID string, props map[string]PropertyValue, skip int) *Record {
	caller := ""
	if !t.config.DisableCallSite {
		caller = callerInfo(skip)
	}
	return &Record{
		Type:       typ,
		DistinctID: distinctID,
		Token:      t.config.ProjectToken,
		TrackID:    t.config.IDFunc(),
		Time:       t.config.TimeFunc().UnixMilli(),
		Properties: props,
		Lib: LibInfo{
			Name:    SDKName,
			Version: Version,
			Caller:  caller,
		},
	}
}

// deliver serializes the record and hands it to the consumer inside the
// protected-call boundary. Failures are logged and returned; they never
// terminate the caller.
func (t *Tracker) deliver(ctx context.Context, rec *Record) error {
	payload, err := rec.Marshal()
	if err != nil {
		t.handleError(err)
		return err
	}

	start := t.config.TimeFunc()
	err = guard("send", func() error {
		return t.consumer.Send(ctx, payload)
	})
	if err != nil {
		t.handleError(err)
		return err
	}

	if t.config.Metrics != nil {
		t.config.Metrics.IncrementCounter("analytics.records.sent", 1)
		t.config.Metrics.RecordDuration("analytics.send.duration", time.Since(start))
	}
	t.logDebug("record sent", "type", string(rec.Type), "distinct_id", rec.DistinctID)
	return nil
}

// reject records a validation failure: metric, debug log, error returned.
// The consumer is never touched on this path.
func (t *Tracker) reject(err error) error {
	if t.config.Metrics != nil {
		t.config.Metrics.IncrementCounter("analytics.validation.rejected", 1)
	}
	t.logDebug("parameter rejected", "error", err)
	return err
}

// handleError reports a delivery or store failure. Errors are never
// silently dropped: without any configured handler they go to stderr.
func (t *Tracker) handleError(err error) {
	handled := false

	if t.config.ErrorHandler != nil {
		t.config.ErrorHandler(err)
		handled = true
	}
	if t.config.StructuredLogger != nil {
		t.config.StructuredLogger.Error("operation failed", "error", err)
		handled = true
	} else if t.config.Logger != nil {
		t.config.Logger.Printf("error: %v", err)
		handled = true
	}
	if t.config.Metrics != nil {
		t.config.Metrics.IncrementCounter("analytics.consumer.errors", 1)
	}

	if !handled {
		defaultStderrLogger.Printf("unhandled error: %v", err)
	}
}

// logDebug logs a debug-level message if logging is configured.
func (t *Tracker) logDebug(msg string, args ...any) {
	if t.config.StructuredLogger != nil {
		t.config.StructuredLogger.Debug(msg, args...)
	} else if t.config.Logger != nil {
		t.config.Logger.Printf(msg + formatArgs(args))
	}
}

// logError logs an error-level message if logging is configured.
func (t *Tracker) logError(msg string, args ...any) {
	if t.config.StructuredLogger != nil {
		t.config.StructuredLogger.Error(msg, args...)
	} else if t.config.Logger != nil {
		t.config.Logger.Printf("[ERROR] " + msg + formatArgs(args))
	}
}
