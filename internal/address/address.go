// Package address validates and decomposes "Name <email>" and bare email
// strings.
package address

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalid is returned when a string is not an acceptable address.
var ErrInvalid = errors.New("invalid address")

// pattern accepts an optional display name followed by a single whitespace
// character, then an email that may be wrapped in angle brackets.
var pattern = regexp.MustCompile(
	`(?i)^(?:(?P<name>[\p{L}0-9\s#№.-]{2,50})\s|)<?(?P<email>[a-z0-9.-]{2,50}@[a-z0-9.-]{2,50}\.[a-z]{2,20})>?$`,
)

// Address is a validated mailbox.
type Address struct {
	// Name is the trimmed display name, empty when none was given.
	Name string

	// Email is always lower case.
	Email string
}

// Parse trims raw and validates it against the address pattern.
func Parse(raw string) (Address, error) {
	m := pattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Address{}, ErrInvalid
	}

	return Address{
		Name:  strings.TrimSpace(m[pattern.SubexpIndex("name")]),
		Email: strings.ToLower(m[pattern.SubexpIndex("email")]),
	}, nil
}

// String renders the address in "Name <email>" form, or the bare email when
// there is no display name. The name is not encoded.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}
