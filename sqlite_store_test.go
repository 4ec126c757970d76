package analytics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) (*SQLiteProfileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.db")
	store, err := NewSQLiteProfileStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestNewSQLiteProfileStoreEmptyPath(t *testing.T) {
	_, err := NewSQLiteProfileStore("")
	_, ok := AsValidationError(err)
	assert.True(t, ok, "expected ValidationError, got %v", err)
}

func TestSQLiteProfileStoreRoundTrip(t *testing.T) {
	store, _ := newSQLiteStore(t)

	props := map[string]PropertyValue{
		"name":   StringValue("Ada"),
		"logins": IntValue(3),
		"score":  NumberValue(0.75),
		"vip":    BoolValue(true),
		"joined": DateValue(1700000000, 123456),
		"tags":   ListValue("a", "b"),
	}
	require.NoError(t, store.Set("user-1", props))

	got, err := store.Get("user-1")
	require.NoError(t, err)
	require.Len(t, got, 6)

	assert.Equal(t, "Ada", got["name"].Str())
	assert.Equal(t, KindInt, got["logins"].Kind())
	assert.Equal(t, int64(3), got["logins"].Int())
	assert.Equal(t, KindNumber, got["score"].Kind())
	assert.InDelta(t, 0.75, got["score"].Number(), 1e-9)
	assert.True(t, got["vip"].Bool())

	sec, usec := got["joined"].Date()
	assert.Equal(t, int64(1700000000), sec)
	assert.Equal(t, int64(123456), usec)
	assert.Equal(t, []string{"a", "b"}, got["tags"].List())
}

func TestSQLiteProfileStoreUnknownID(t *testing.T) {
	store, _ := newSQLiteStore(t)
	got, err := store.Get("nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteProfileStoreSetOnce(t *testing.T) {
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.SetOnce("u", map[string]PropertyValue{"k": IntValue(1)}))
	require.NoError(t, store.SetOnce("u", map[string]PropertyValue{
		"k":   IntValue(2),
		"new": StringValue("v"),
	}))

	got, err := store.Get("u")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got["k"].Int())
	assert.Equal(t, "v", got["new"].Str())
}

func TestSQLiteProfileStoreIncrement(t *testing.T) {
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.Increment("u", map[string]PropertyValue{"n": IntValue(5)}))
	require.NoError(t, store.Increment("u", map[string]PropertyValue{"n": IntValue(-2)}))

	got, err := store.Get("u")
	require.NoError(t, err)
	assert.Equal(t, KindInt, got["n"].Kind())
	assert.Equal(t, int64(3), got["n"].Int())

	// A validation failure rolls the transaction back.
	err = store.Increment("u", map[string]PropertyValue{"n": StringValue("x")})
	_, ok := AsValidationError(err)
	assert.True(t, ok, "expected ValidationError, got %v", err)

	got, err = store.Get("u")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got["n"].Int(), "failed mutation must not change stored state")
}

func TestSQLiteProfileStoreAppend(t *testing.T) {
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.Append("u", map[string]PropertyValue{"tags": ListValue("a")}))
	require.NoError(t, store.Append("u", map[string]PropertyValue{"tags": ListValue("b", "c")}))

	got, err := store.Get("u")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got["tags"].List())
}

func TestSQLiteProfileStoreUnsetAndDelete(t *testing.T) {
	store, _ := newSQLiteStore(t)

	require.NoError(t, store.Set("u", map[string]PropertyValue{
		"keep": IntValue(1),
		"drop": IntValue(2),
	}))

	require.NoError(t, store.Unset("u", "drop"))
	got, err := store.Get("u")
	require.NoError(t, err)
	assert.Contains(t, got, "keep")
	assert.NotContains(t, got, "drop")

	require.NoError(t, store.Delete("u"))
	got, err = store.Get("u")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteProfileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.db")

	store, err := NewSQLiteProfileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("u", map[string]PropertyValue{"k": StringValue("v")}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteProfileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("u")
	require.NoError(t, err)
	assert.Equal(t, "v", got["k"].Str())
}

func TestTrackerWithSQLiteStore(t *testing.T) {
	store, _ := newSQLiteStore(t)
	consumer := &captureConsumer{}
	tracker, err := NewTracker(consumer, WithProfileStore(store))
	require.NoError(t, err)
	ctx := context.Background()

	bag := NewPropertyBag()
	bag.AddInt("logins", 1)
	require.NoError(t, tracker.ProfileIncrement(ctx, "user-1", bag))
	require.NoError(t, tracker.ProfileIncrement(ctx, "user-1", bag))

	profile, err := tracker.Profile("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile["logins"].Int())
	assert.Equal(t, 2, consumer.count())
}
