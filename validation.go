package analytics

import (
	"fmt"
	"unicode/utf8"
)

// Validation limits for keys and event names.
const (
	// MaxKeyLength is the maximum allowed length for property keys.
	MaxKeyLength = 255

	// MaxEventNameLength is the maximum allowed length for event names.
	MaxEventNameLength = 255
)

// Validation rules.
//
// These are pure functions with no state and no side effects. Every public
// Tracker and PropertyBag operation runs its inputs through them before
// doing anything else, so a rejected call leaves the world untouched: no
// partial mutation, no consumer invocation.

// ValidateRequired validates that a required string field is not empty.
func ValidateRequired(field, value string) error {
	if value == "" {
		return NewValidationError(field, "is required")
	}
	return nil
}

// ValidateKey validates a property key: non-empty and within length limits.
func ValidateKey(field, key string) error {
	if key == "" {
		return NewValidationError(field, "cannot be empty")
	}
	if utf8.RuneCountInString(key) > MaxKeyLength {
		return NewValidationError(field, fmt.Sprintf("exceeds maximum length of %d characters", MaxKeyLength))
	}
	return nil
}

// ValidateEventName validates an event name: non-empty and within length
// limits.
func ValidateEventName(field, value string) error {
	if value == "" {
		return NewValidationError(field, "is required")
	}
	if utf8.RuneCountInString(value) > MaxEventNameLength {
		return NewValidationError(field, fmt.Sprintf("exceeds maximum length of %d characters", MaxEventNameLength))
	}
	return nil
}

// ValidateNonNegative validates that a numeric field is not negative.
func ValidateNonNegative(field string, value int64) error {
	if value < 0 {
		return NewValidationError(field, "must be non-negative")
	}
	return nil
}

// ValidateTimestamp validates the seconds and microseconds of a date value.
func ValidateTimestamp(field string, seconds, microseconds int64) error {
	if seconds < 0 {
		return NewValidationError(field, "seconds must be non-negative")
	}
	if microseconds < 0 {
		return NewValidationError(field, "microseconds must be non-negative")
	}
	return nil
}

// validateBag validates a property bag parameter. A nil bag is allowed when
// required is false (it stands for an empty property set); a disposed bag
// is never allowed.
func validateBag(field string, bag *PropertyBag, required bool) error {
	if bag == nil {
		if required {
			return NewValidationErrorWithCause(field, "cannot be nil", ErrNilBag)
		}
		return nil
	}
	if bag.Disposed() {
		return NewValidationErrorWithCause(field, "has been disposed", ErrBagDisposed)
	}
	return nil
}

// validateKind validates that every value in props has one of the wanted
// kinds. Used by profile increment (numeric only) and append (list only).
func validateKind(field string, props map[string]PropertyValue, wanted ...PropertyKind) error {
	for key, value := range props {
		ok := false
		for _, k := range wanted {
			if value.Kind() == k {
				ok = true
				break
			}
		}
		if !ok {
			return NewValidationError(field,
				fmt.Sprintf("property %q has kind %s, want %s", key, value.Kind(), kindList(wanted)))
		}
	}
	return nil
}

// kindList formats a list of kinds for error messages.
func kindList(kinds []PropertyKind) string {
	if len(kinds) == 1 {
		return kinds[0].String()
	}
	s := ""
	for i, k := range kinds {
		if i > 0 {
			s += " or "
		}
		s += k.String()
	}
	return s
}
