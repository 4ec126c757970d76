package analytics

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property-based round-trip coverage: for any non-empty key and any value
// of a single kind, adding then reading yields the same (kind, value).
func TestPropertyBagRoundTripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("bool values round-trip", prop.ForAll(
		func(key string, value bool) bool {
			bag := NewPropertyBag()
			if err := bag.AddBool(key, value); err != nil {
				return false
			}
			got, ok := bag.Get(key)
			return ok && got.Kind() == KindBool && got.Bool() == value
		},
		gen.Identifier(),
		gen.Bool(),
	))

	properties.Property("int values round-trip", prop.ForAll(
		func(key string, value int64) bool {
			bag := NewPropertyBag()
			if err := bag.AddInt(key, value); err != nil {
				return false
			}
			got, ok := bag.Get(key)
			return ok && got.Kind() == KindInt && got.Int() == value
		},
		gen.Identifier(),
		gen.Int64(),
	))

	properties.Property("string values round-trip", prop.ForAll(
		func(key, value string) bool {
			bag := NewPropertyBag()
			if err := bag.AddString(key, value); err != nil {
				return false
			}
			got, ok := bag.Get(key)
			return ok && got.Kind() == KindString && got.Str() == value
		},
		gen.Identifier(),
		gen.AnyString(),
	))

	properties.Property("valid dates round-trip", prop.ForAll(
		func(key string, seconds, micros int64) bool {
			bag := NewPropertyBag()
			if err := bag.AddDate(key, seconds, micros); err != nil {
				return false
			}
			got, ok := bag.Get(key)
			if !ok || got.Kind() != KindDate {
				return false
			}
			gotSec, gotMicros := got.Date()
			return gotSec == seconds && gotMicros == micros
		},
		gen.Identifier(),
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 999999),
	))

	properties.Property("negative dates are always rejected", prop.ForAll(
		func(key string, seconds int64) bool {
			bag := NewPropertyBag()
			err := bag.AddDate(key, seconds, 0)
			_, isValidation := AsValidationError(err)
			_, exists := bag.Get(key)
			return isValidation && !exists
		},
		gen.Identifier(),
		gen.Int64Range(-(1<<40), -1),
	))

	properties.Property("appended elements keep order", prop.ForAll(
		func(key string, elems []string) bool {
			bag := NewPropertyBag()
			for _, e := range elems {
				if err := bag.AppendList(key, e); err != nil {
					return false
				}
			}
			got, ok := bag.Get(key)
			if len(elems) == 0 {
				return !ok
			}
			if !ok || got.Kind() != KindList {
				return false
			}
			list := got.List()
			if len(list) != len(elems) {
				return false
			}
			for i := range elems {
				if list[i] != elems[i] {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}
