package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// PropertyKind identifies the kind of value held by a PropertyValue.
type PropertyKind int

// Property value kinds.
const (
	// KindInvalid is the zero value; it never appears in a valid bag.
	KindInvalid PropertyKind = iota

	// KindBool is a boolean value.
	KindBool

	// KindInt is a 64-bit signed integer value.
	KindInt

	// KindNumber is a double-precision float value.
	KindNumber

	// KindString is a UTF-8 string value. Embedded NUL bytes are preserved.
	KindString

	// KindDate is a timestamp with seconds and microseconds, both non-negative.
	KindDate

	// KindList is an ordered list of strings.
	KindList
)

// String returns a string representation of the kind.
func (k PropertyKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// dateLayout is the wire representation of date property values.
const dateLayout = "2006-01-02 15:04:05.000000"

// PropertyValue is a tagged union over the value kinds a property may hold.
// Checking the kind at construction time removes the class of bugs where a
// wrongly-typed value reaches the delivery path: a value either has exactly
// one valid kind or it does not exist.
//
// The zero PropertyValue has KindInvalid.
type PropertyValue struct {
	kind PropertyKind
	b    bool
	i    int64
	f    float64
	s    string
	sec  int64
	usec int64
	list []string
}

// BoolValue returns a boolean property value.
func BoolValue(v bool) PropertyValue {
	return PropertyValue{kind: KindBool, b: v}
}

// IntValue returns an integer property value.
func IntValue(v int64) PropertyValue {
	return PropertyValue{kind: KindInt, i: v}
}

// NumberValue returns a floating-point property value.
func NumberValue(v float64) PropertyValue {
	return PropertyValue{kind: KindNumber, f: v}
}

// StringValue returns a string property value.
// The full string is authoritative; embedded NUL bytes are preserved.
func StringValue(v string) PropertyValue {
	return PropertyValue{kind: KindString, s: v}
}

// DateValue returns a date property value from Unix seconds and a
// microsecond component. Both must be non-negative; use
// [PropertyBag.AddDate] for a validated path.
func DateValue(seconds, microseconds int64) PropertyValue {
	return PropertyValue{kind: KindDate, sec: seconds, usec: microseconds}
}

// ListValue returns a list property value holding a copy of elems.
func ListValue(elems ...string) PropertyValue {
	list := make([]string, len(elems))
	copy(list, elems)
	return PropertyValue{kind: KindList, list: list}
}

// Kind returns the kind of the value.
func (v PropertyValue) Kind() PropertyKind {
	return v.kind
}

// Bool returns the boolean value, or false if the kind is not KindBool.
func (v PropertyValue) Bool() bool {
	return v.b
}

// Int returns the integer value, or 0 if the kind is not KindInt.
func (v PropertyValue) Int() int64 {
	return v.i
}

// Number returns the float value, or 0 if the kind is not KindNumber.
func (v PropertyValue) Number() float64 {
	return v.f
}

// Str returns the string value, or "" if the kind is not KindString.
func (v PropertyValue) Str() string {
	return v.s
}

// Date returns the seconds and microseconds of a date value,
// or zeros if the kind is not KindDate.
func (v PropertyValue) Date() (seconds, microseconds int64) {
	return v.sec, v.usec
}

// List returns a copy of the list elements,
// or nil if the kind is not KindList.
func (v PropertyValue) List() []string {
	if v.kind != KindList {
		return nil
	}
	list := make([]string, len(v.list))
	copy(list, v.list)
	return list
}

// String returns a human-readable representation for debugging.
func (v PropertyValue) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("bool(%t)", v.b)
	case KindInt:
		return fmt.Sprintf("int(%d)", v.i)
	case KindNumber:
		return fmt.Sprintf("number(%g)", v.f)
	case KindString:
		return fmt.Sprintf("string(%q)", v.s)
	case KindDate:
		return fmt.Sprintf("date(%d.%06d)", v.sec, v.usec)
	case KindList:
		return fmt.Sprintf("list(%q)", v.list)
	default:
		return "invalid"
	}
}

// MarshalJSON encodes the value in its wire form: bools, ints and numbers
// as JSON numbers/booleans, strings as JSON strings, dates as formatted
// timestamps, lists as JSON arrays.
func (v PropertyValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindNumber:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindDate:
		t := time.Unix(v.sec, v.usec*int64(time.Microsecond)).UTC()
		return json.Marshal(t.Format(dateLayout))
	case KindList:
		if v.list == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.list)
	default:
		return nil, fmt.Errorf("analytics: cannot marshal invalid property value")
	}
}

// clone returns a deep copy of the value. Only lists carry shared state.
func (v PropertyValue) clone() PropertyValue {
	if v.kind == KindList {
		list := make([]string, len(v.list))
		copy(list, v.list)
		v.list = list
	}
	return v
}

// PropertyBag is a mutable collection of named, typed property values.
// It is the unit passed to every tracking and profile operation.
//
// A bag is created empty, mutated through the typed Add setters, handed to
// exactly one Tracker call (which copies what it needs and never retains
// the bag), and finally released with Dispose. A disposed bag rejects all
// further use.
//
// Re-adding a key overwrites the prior value (last write wins), except
// AppendList which accumulates.
//
// PropertyBag is not safe for concurrent use.
type PropertyBag struct {
	props    map[string]PropertyValue
	disposed bool
}

// NewPropertyBag creates an empty property bag.
func NewPropertyBag() *PropertyBag {
	return &PropertyBag{
		props: make(map[string]PropertyValue),
	}
}

// checkUsable rejects operations on a disposed bag.
func (b *PropertyBag) checkUsable(field string) error {
	if b.disposed {
		return NewValidationErrorWithCause(field, "bag has been disposed", ErrBagDisposed)
	}
	return nil
}

// AddBool sets key to a boolean value.
func (b *PropertyBag) AddBool(key string, value bool) error {
	if err := b.checkUsable("bag"); err != nil {
		return err
	}
	if err := ValidateKey("key", key); err != nil {
		return err
	}
	b.props[key] = BoolValue(value)
	return nil
}

// AddInt sets key to a 64-bit integer value.
func (b *PropertyBag) AddInt(key string, value int64) error {
	if err := b.checkUsable("bag"); err != nil {
		return err
	}
	if err := ValidateKey("key", key); err != nil {
		return err
	}
	b.props[key] = IntValue(value)
	return nil
}

// AddNumber sets key to a double-precision float value.
func (b *PropertyBag) AddNumber(key string, value float64) error {
	if err := b.checkUsable("bag"); err != nil {
		return err
	}
	if err := ValidateKey("key", key); err != nil {
		return err
	}
	b.props[key] = NumberValue(value)
	return nil
}

// AddString sets key to a string value. The full string, including any
// embedded NUL bytes, is preserved as-is.
func (b *PropertyBag) AddString(key, value string) error {
	if err := b.checkUsable("bag"); err != nil {
		return err
	}
	if err := ValidateKey("key", key); err != nil {
		return err
	}
	b.props[key] = StringValue(value)
	return nil
}

// AddDate sets key to a date value given as Unix seconds plus a
// microsecond component. Negative seconds or microseconds are rejected
// and the bag is left unchanged.
func (b *PropertyBag) AddDate(key string, seconds, microseconds int64) error {
	if err := b.checkUsable("bag"); err != nil {
		return err
	}
	if err := ValidateKey("key", key); err != nil {
		return err
	}
	if err := ValidateTimestamp(key, seconds, microseconds); err != nil {
		return err
	}
	b.props[key] = DateValue(seconds, microseconds)
	return nil
}

// AddTime sets key to a date value taken from t.
func (b *PropertyBag) AddTime(key string, t time.Time) error {
	return b.AddDate(key, t.Unix(), int64(t.Nanosecond())/int64(time.Microsecond))
}

// AppendList appends value to the list held at key. An absent key becomes
// a single-element list. A key holding a non-list value is rejected: the
// existing value is kept and no coercion happens.
func (b *PropertyBag) AppendList(key, value string) error {
	if err := b.checkUsable("bag"); err != nil {
		return err
	}
	if err := ValidateKey("key", key); err != nil {
		return err
	}
	existing, ok := b.props[key]
	if !ok {
		b.props[key] = ListValue(value)
		return nil
	}
	if existing.Kind() != KindList {
		return NewValidationError(key,
			fmt.Sprintf("cannot append to a %s value", existing.Kind()))
	}
	existing.list = append(existing.list, value)
	b.props[key] = existing
	return nil
}

// Get returns the value stored at key and whether it exists.
func (b *PropertyBag) Get(key string) (PropertyValue, bool) {
	v, ok := b.props[key]
	return v, ok
}

// Len returns the number of properties in the bag.
// A nil bag has zero properties.
func (b *PropertyBag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.props)
}

// Keys returns the property keys in sorted order.
func (b *PropertyBag) Keys() []string {
	keys := make([]string, 0, len(b.props))
	for k := range b.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Remove deletes key from the bag. Removing an absent key is a no-op.
func (b *PropertyBag) Remove(key string) {
	delete(b.props, key)
}

// Dispose marks the bag as released. All further setters and any Tracker
// operation given this bag will fail with a validation error wrapping
// [ErrBagDisposed]. Dispose is idempotent.
func (b *PropertyBag) Dispose() {
	b.disposed = true
	b.props = nil
}

// Disposed reports whether the bag has been disposed.
func (b *PropertyBag) Disposed() bool {
	return b.disposed
}

// snapshot returns a deep copy of the bag's properties. The Tracker calls
// this so it never retains the caller's bag past the call.
func (b *PropertyBag) snapshot() map[string]PropertyValue {
	if b == nil || b.props == nil {
		return map[string]PropertyValue{}
	}
	out := make(map[string]PropertyValue, len(b.props))
	for k, v := range b.props {
		out[k] = v.clone()
	}
	return out
}
