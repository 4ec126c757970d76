package analytics

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
)

// RecordType identifies the operation a record was produced by.
type RecordType string

// Record types.
const (
	RecordTypeTrack            RecordType = "track"
	RecordTypeTrackSignup      RecordType = "track_signup"
	RecordTypeProfileSet       RecordType = "profile_set"
	RecordTypeProfileSetOnce   RecordType = "profile_set_once"
	RecordTypeProfileIncrement RecordType = "profile_increment"
	RecordTypeProfileAppend    RecordType = "profile_append"
	RecordTypeProfileUnset     RecordType = "profile_unset"
	RecordTypeProfileDelete    RecordType = "profile_delete"
)

// IsProfile reports whether the record type is a profile operation.
func (t RecordType) IsProfile() bool {
	switch t {
	case RecordTypeProfileSet, RecordTypeProfileSetOnce, RecordTypeProfileIncrement,
		RecordTypeProfileAppend, RecordTypeProfileUnset, RecordTypeProfileDelete:
		return true
	default:
		return false
	}
}

// LibInfo is the diagnostic metadata stamped onto every record: which SDK
// produced it and from where in the caller's code. It affects nothing
// downstream; it exists so a record in a sink can be traced back to the
// call site that emitted it.
type LibInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Caller  string `json:"caller,omitempty"`
}

// Record is an immutable snapshot of one tracking or profile operation,
// taken at emission time. It is produced by the Tracker, serialized, and
// handed to the Consumer; it is never mutated after creation.
type Record struct {
	// Type is the operation that produced the record.
	Type RecordType `json:"type"`

	// Event is the event name. Set only for track and track_signup records.
	Event string `json:"event,omitempty"`

	// DistinctID is the identity the record is attributed to.
	DistinctID string `json:"distinct_id"`

	// OriginalID is the previously-anonymous identity being linked.
	// Set only for track_signup records.
	OriginalID string `json:"original_id,omitempty"`

	// Token identifies the project the record belongs to, when configured.
	Token string `json:"token,omitempty"`

	// TrackID uniquely identifies this record.
	TrackID string `json:"track_id"`

	// Time is the emission time in Unix milliseconds.
	Time int64 `json:"time"`

	// Properties is the merged property set at emission time.
	Properties map[string]PropertyValue `json:"properties"`

	// Lib is the SDK and call-site metadata.
	Lib LibInfo `json:"lib"`
}

// Marshal serializes the record to its JSON wire form.
func (r *Record) Marshal() ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, WrapError(err, "marshal record")
	}
	return payload, nil
}

// callerInfo returns a "file.go:123 func" description of the frame skip
// levels above the caller. Returns "" if the frame cannot be resolved.
func callerInfo(skip int) string {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	name := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = " " + filepath.Base(fn.Name())
	}
	return fmt.Sprintf("%s:%d%s", filepath.Base(file), line, name)
}
