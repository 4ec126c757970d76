package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileSetOverwrites(t *testing.T) {
	tracker, consumer := newTestTracker(t)
	ctx := context.Background()

	first := NewPropertyBag()
	first.AddInt("k", 1)
	require.NoError(t, tracker.ProfileSet(ctx, "user-1", first))

	second := NewPropertyBag()
	second.AddInt("k", 2)
	require.NoError(t, tracker.ProfileSet(ctx, "user-1", second))

	profile, err := tracker.Profile("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile["k"].Int())

	// Each mutation also emitted a record.
	assert.Equal(t, 2, consumer.count())
	assert.Equal(t, "profile_set", consumer.record(t, 0)["type"])
}

func TestProfileSetOnceFirstWriteWins(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	first := NewPropertyBag()
	first.AddInt("k", 1)
	require.NoError(t, tracker.ProfileSetOnce(ctx, "user-1", first))

	second := NewPropertyBag()
	second.AddInt("k", 2)
	second.AddString("new", "v")
	require.NoError(t, tracker.ProfileSetOnce(ctx, "user-1", second))

	profile, err := tracker.Profile("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile["k"].Int(), "existing key must keep its first value")
	assert.Equal(t, "v", profile["new"].Str(), "absent key must be created")
}

func TestProfileIncrement(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	up := NewPropertyBag()
	up.AddInt("n", 5)
	require.NoError(t, tracker.ProfileIncrement(ctx, "user-1", up))

	down := NewPropertyBag()
	down.AddInt("n", -2)
	require.NoError(t, tracker.ProfileIncrement(ctx, "user-1", down))

	profile, err := tracker.Profile("user-1")
	require.NoError(t, err)
	assert.Equal(t, KindInt, profile["n"].Kind())
	assert.Equal(t, int64(3), profile["n"].Int())
}

func TestProfileIncrementMixedNumeric(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	a := NewPropertyBag()
	a.AddInt("n", 1)
	require.NoError(t, tracker.ProfileIncrement(ctx, "user-1", a))

	b := NewPropertyBag()
	b.AddNumber("n", 0.5)
	require.NoError(t, tracker.ProfileIncrement(ctx, "user-1", b))

	profile, err := tracker.Profile("user-1")
	require.NoError(t, err)
	assert.Equal(t, KindNumber, profile["n"].Kind())
	assert.InDelta(t, 1.5, profile["n"].Number(), 1e-9)
}

func TestProfileIncrementRejectsNonNumeric(t *testing.T) {
	tracker, consumer := newTestTracker(t)

	bad := NewPropertyBag()
	bad.AddString("n", "five")
	err := tracker.ProfileIncrement(context.Background(), "user-1", bad)

	_, ok := AsValidationError(err)
	assert.True(t, ok, "expected ValidationError, got %v", err)
	assert.Equal(t, 0, consumer.count(), "no record may be emitted for a rejected increment")

	profile, getErr := tracker.Profile("user-1")
	require.NoError(t, getErr)
	assert.Empty(t, profile)
}

func TestProfileIncrementRejectsNonNumericStored(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	seed := NewPropertyBag()
	seed.AddString("n", "text")
	require.NoError(t, tracker.ProfileSet(ctx, "user-1", seed))

	delta := NewPropertyBag()
	delta.AddInt("n", 1)
	err := tracker.ProfileIncrement(ctx, "user-1", delta)
	_, ok := AsValidationError(err)
	assert.True(t, ok, "incrementing a stored string must fail, got %v", err)
}

func TestProfileAppend(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	a := NewPropertyBag()
	a.AppendList("tags", "alpha")
	require.NoError(t, tracker.ProfileAppend(ctx, "user-1", a))

	b := NewPropertyBag()
	b.AppendList("tags", "beta")
	b.AppendList("tags", "gamma")
	require.NoError(t, tracker.ProfileAppend(ctx, "user-1", b))

	profile, err := tracker.Profile("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, profile["tags"].List())
}

func TestProfileAppendRejectsNonList(t *testing.T) {
	tracker, consumer := newTestTracker(t)

	bad := NewPropertyBag()
	bad.AddString("tags", "oops")
	err := tracker.ProfileAppend(context.Background(), "user-1", bad)

	_, ok := AsValidationError(err)
	assert.True(t, ok, "expected ValidationError, got %v", err)
	assert.Equal(t, 0, consumer.count())
}

func TestProfileUnset(t *testing.T) {
	tracker, consumer := newTestTracker(t)
	ctx := context.Background()

	seed := NewPropertyBag()
	seed.AddInt("keep", 1)
	seed.AddInt("drop", 2)
	require.NoError(t, tracker.ProfileSet(ctx, "user-1", seed))

	require.NoError(t, tracker.ProfileUnset(ctx, "user-1", "drop"))

	profile, err := tracker.Profile("user-1")
	require.NoError(t, err)
	assert.Contains(t, profile, "keep")
	assert.NotContains(t, profile, "drop")

	// Unsetting an absent key is a no-op, not an error.
	require.NoError(t, tracker.ProfileUnset(ctx, "user-1", "missing"))

	last := consumer.record(t, consumer.count()-1)
	assert.Equal(t, "profile_unset", last["type"])
}

func TestProfileDelete(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	seed := NewPropertyBag()
	seed.AddInt("k", 1)
	require.NoError(t, tracker.ProfileSet(ctx, "user-1", seed))
	require.NoError(t, tracker.ProfileDelete(ctx, "user-1"))

	profile, err := tracker.Profile("user-1")
	require.NoError(t, err)
	assert.Empty(t, profile)
}

func TestProfileOpsRequireBag(t *testing.T) {
	tracker, consumer := newTestTracker(t)
	ctx := context.Background()

	ops := map[string]func() error{
		"ProfileSet":       func() error { return tracker.ProfileSet(ctx, "u", nil) },
		"ProfileSetOnce":   func() error { return tracker.ProfileSetOnce(ctx, "u", nil) },
		"ProfileIncrement": func() error { return tracker.ProfileIncrement(ctx, "u", nil) },
		"ProfileAppend":    func() error { return tracker.ProfileAppend(ctx, "u", nil) },
	}
	for name, op := range ops {
		err := op()
		_, ok := AsValidationError(err)
		assert.True(t, ok, "%s(nil bag) = %v, want ValidationError", name, err)
	}
	assert.Equal(t, 0, consumer.count())
}

func TestProfileOpsRequireDistinctID(t *testing.T) {
	tracker, consumer := newTestTracker(t)
	ctx := context.Background()
	bag := NewPropertyBag()
	bag.AddInt("k", 1)

	ops := map[string]func() error{
		"ProfileSet":    func() error { return tracker.ProfileSet(ctx, "", bag) },
		"ProfileUnset":  func() error { return tracker.ProfileUnset(ctx, "", "k") },
		"ProfileDelete": func() error { return tracker.ProfileDelete(ctx, "") },
	}
	for name, op := range ops {
		err := op()
		_, ok := AsValidationError(err)
		assert.True(t, ok, "%s with empty id = %v, want ValidationError", name, err)
	}
	assert.Equal(t, 0, consumer.count())
}

func TestMemoryProfileStoreIsolation(t *testing.T) {
	store := NewMemoryProfileStore()

	require.NoError(t, store.Set("a", map[string]PropertyValue{"k": IntValue(1)}))
	require.NoError(t, store.Set("b", map[string]PropertyValue{"k": IntValue(2)}))

	profileA, err := store.Get("a")
	require.NoError(t, err)
	profileB, err := store.Get("b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), profileA["k"].Int())
	assert.Equal(t, int64(2), profileB["k"].Int())

	// Returned profiles are copies; mutating them must not touch the store.
	profileA["k"] = IntValue(99)
	fresh, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh["k"].Int())

	require.NoError(t, store.Close())
}

func TestMemoryProfileStoreUnknownID(t *testing.T) {
	store := NewMemoryProfileStore()
	profile, err := store.Get("nobody")
	require.NoError(t, err)
	assert.NotNil(t, profile)
	assert.Empty(t, profile)
}

func TestMemoryProfileStoreIncrementAtomic(t *testing.T) {
	store := NewMemoryProfileStore()
	require.NoError(t, store.Set("u", map[string]PropertyValue{
		"good": IntValue(10),
		"bad":  StringValue("text"),
	}))

	// One key in the call targets a non-numeric stored value; the whole
	// call must fail without touching the conforming key.
	err := store.Increment("u", map[string]PropertyValue{
		"good": IntValue(1),
		"bad":  IntValue(1),
	})
	_, ok := AsValidationError(err)
	require.True(t, ok, "expected ValidationError, got %v", err)

	profile, getErr := store.Get("u")
	require.NoError(t, getErr)
	assert.Equal(t, int64(10), profile["good"].Int(), "rejected call must leave all keys unchanged")
	assert.Equal(t, "text", profile["bad"].Str())
}

func TestMemoryProfileStoreAppendAtomic(t *testing.T) {
	store := NewMemoryProfileStore()
	require.NoError(t, store.Set("u", map[string]PropertyValue{
		"tags": ListValue("a"),
		"name": StringValue("Ada"),
	}))

	err := store.Append("u", map[string]PropertyValue{
		"tags": ListValue("b"),
		"name": ListValue("c"),
	})
	_, ok := AsValidationError(err)
	require.True(t, ok, "expected ValidationError, got %v", err)

	profile, getErr := store.Get("u")
	require.NoError(t, getErr)
	assert.Equal(t, []string{"a"}, profile["tags"].List(), "rejected call must leave all keys unchanged")
}
