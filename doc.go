// Package analytics provides a client SDK for tracking analytics events.
//
// The SDK is built around three pieces: a typed [PropertyBag] that holds
// validated event properties, a [Tracker] façade that emits event and
// profile records, and a pluggable [Consumer] that delivers serialized
// records to a sink (file, stderr, or anything else implementing the
// interface).
//
// # Quick Start
//
// Create a consumer and a tracker, then record events:
//
//	consumer, err := analytics.NewLogConsumer("events.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tracker, err := analytics.NewTracker(consumer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracker.Close()
//
//	props := analytics.NewPropertyBag()
//	props.AddString("plan", "pro")
//	props.AddInt("seats", 5)
//
//	if err := tracker.Track(ctx, "user-123", "SubscriptionStarted", props); err != nil {
//	    log.Printf("track failed: %v", err)
//	}
//
// # Super Properties
//
// Properties registered with [Tracker.RegisterSuperProperties] are merged
// into every subsequently tracked event. Call-local properties win on key
// collision.
//
// # Profiles
//
// Profile operations (set, set-once, increment, append, unset, delete)
// mutate the per-user property set held by the tracker's [ProfileStore]
// and also emit a record of the mutation to the consumer. The default
// store is in-memory; use [NewSQLiteProfileStore] for a durable one.
//
// # Error Handling
//
// Every operation returns an error value; nothing panics across the API
// boundary. Validation failures are *[ValidationError] (fix the input and
// retry), delivery failures are *[ResultError] (log and continue). Use
// [AsValidationError] and [AsResultError] to inspect them.
//
// # Concurrency
//
// Tracker and PropertyBag are not safe for concurrent use; each goroutine
// should own its bags, and a Tracker should be driven from one goroutine.
// Consumers may introduce their own internal concurrency ([BatchConsumer]
// runs an optional background flusher) and are responsible for it.
package analytics

// Version is the current SDK version.
// This is stamped into the lib block of every emitted record.
const Version = "0.1.0"

// SDKName identifies this library in emitted records.
const SDKName = "analytics-go"
