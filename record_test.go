package analytics

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRecordMarshal(t *testing.T) {
	rec := &Record{
		Type:       RecordTypeTrack,
		Event:      "PageView",
		DistinctID: "user-1",
		TrackID:    "tid-1",
		Time:       1700000000000,
		Properties: map[string]PropertyValue{
			"plan":  StringValue("pro"),
			"seats": IntValue(5),
			"ratio": NumberValue(0.5),
			"beta":  BoolValue(true),
			"tags":  ListValue("a", "b"),
		},
		Lib: LibInfo{Name: SDKName, Version: Version, Caller: "app.go:10 main.main"},
	}

	payload, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("round-trip unmarshal failed: %v", err)
	}

	if decoded["type"] != "track" {
		t.Errorf("type = %v, want track", decoded["type"])
	}
	if decoded["event"] != "PageView" {
		t.Errorf("event = %v, want PageView", decoded["event"])
	}
	if decoded["distinct_id"] != "user-1" {
		t.Errorf("distinct_id = %v, want user-1", decoded["distinct_id"])
	}
	if decoded["time"].(float64) != 1700000000000 {
		t.Errorf("time = %v, want 1700000000000", decoded["time"])
	}
	if _, ok := decoded["original_id"]; ok {
		t.Error("original_id should be omitted for track records")
	}
	if _, ok := decoded["token"]; ok {
		t.Error("token should be omitted when unset")
	}

	props := decoded["properties"].(map[string]any)
	if props["plan"] != "pro" {
		t.Errorf("properties.plan = %v, want pro", props["plan"])
	}
	if props["seats"].(float64) != 5 {
		t.Errorf("properties.seats = %v, want 5", props["seats"])
	}
	if props["beta"] != true {
		t.Errorf("properties.beta = %v, want true", props["beta"])
	}
	tags := props["tags"].([]any)
	if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("properties.tags = %v, want [a b]", tags)
	}

	lib := decoded["lib"].(map[string]any)
	if lib["name"] != SDKName {
		t.Errorf("lib.name = %v, want %s", lib["name"], SDKName)
	}
}

func TestRecordMarshalSignup(t *testing.T) {
	rec := &Record{
		Type:       RecordTypeTrackSignup,
		Event:      "$SignUp",
		DistinctID: "user-1",
		OriginalID: "anon-9",
		TrackID:    "tid-2",
		Time:       1,
		Properties: map[string]PropertyValue{},
	}

	payload, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(payload), `"original_id":"anon-9"`) {
		t.Errorf("payload missing original_id: %s", payload)
	}
	if !strings.Contains(string(payload), `"type":"track_signup"`) {
		t.Errorf("payload missing type: %s", payload)
	}
}

func TestRecordMarshalDateFormat(t *testing.T) {
	rec := &Record{
		Type:       RecordTypeProfileSet,
		DistinctID: "u",
		TrackID:    "t",
		Properties: map[string]PropertyValue{
			// 2023-11-14 22:13:20 UTC plus 123456 microseconds.
			"joined": DateValue(1700000000, 123456),
		},
	}
	payload, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(payload), `"2023-11-14 22:13:20.123456"`) {
		t.Errorf("payload has wrong date encoding: %s", payload)
	}
}

func TestRecordTypeIsProfile(t *testing.T) {
	profile := []RecordType{
		RecordTypeProfileSet, RecordTypeProfileSetOnce, RecordTypeProfileIncrement,
		RecordTypeProfileAppend, RecordTypeProfileUnset, RecordTypeProfileDelete,
	}
	for _, typ := range profile {
		if !typ.IsProfile() {
			t.Errorf("%s.IsProfile() = false, want true", typ)
		}
	}
	if RecordTypeTrack.IsProfile() || RecordTypeTrackSignup.IsProfile() {
		t.Error("track types must not be profile types")
	}
}

func TestCallerInfo(t *testing.T) {
	info := callerInfo(0)
	if !strings.Contains(info, "record_test.go") {
		t.Errorf("callerInfo() = %q, should name this file", info)
	}
}
