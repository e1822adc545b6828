// Package ticket handles ticket key normalization. A key like "mdt-66"
// identifies ticket 66 of the project with code MDT; the canonical form
// upper-cases the code and zero-pads the number to three digits.
package ticket

import (
	"fmt"
	"regexp"
	"strings"
)

var keyPattern = regexp.MustCompile(`^([A-Z]+)-(\d+)$`)

// Key is a normalized ticket key.
type Key struct {
	// Code is the project code, uppercase.
	Code string

	// Number is the ticket number, zero-padded to at least three digits.
	Number string
}

func (k Key) String() string {
	return k.Code + "-" + k.Number
}

// Normalize parses and canonicalizes a ticket key. ok is false when the
// input is not of the form CODE-NUMBER.
func Normalize(raw string) (Key, bool) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	m := keyPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return Key{}, false
	}
	number := m[2]
	for len(number) < 3 {
		number = "0" + number
	}
	return Key{Code: m[1], Number: number}, true
}

// FormatError builds the user-facing message for an invalid key.
func FormatError(raw string) string {
	return fmt.Sprintf("invalid ticket format: %q, expected CODE-NUMBER (e.g. MDT-066)", raw)
}
