// Package guestcount encodes a party size into free-text calendar fields and
// reads it back. External calendars have no party-size field, so this text
// marker is the only place the count lives.
//
// Marker format v1:
//
//	summary:     "<title> (<n> guest)" or "<title> (<n> guests)", marker last
//	description: a line "GuestCount: <n>", written after all free text
//
// Both markers are read from the end of their field, so guest-supplied text
// placed before them (name, notes) cannot override the count. Decode also
// accepts the Spanish summary form "(<n> comensal|comensales)" written by
// earlier versions of the site.
package guestcount

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	Version   = 1
	MarkerKey = "GuestCount"
)

var (
	summaryRe     = regexp.MustCompile(`(?i)\((\d+)\s*(?:guests?|comensal(?:es)?)\)\s*$`)
	descriptionRe = regexp.MustCompile(`(?m)^\s*` + MarkerKey + `:\s*(\d+)\s*$`)
)

// Unit returns the pluralized unit noun for n.
func Unit(n int) string {
	if n == 1 {
		return "guest"
	}
	return "guests"
}

// Summary appends the summary marker to title.
func Summary(title string, n int) string {
	return fmt.Sprintf("%s (%d %s)", strings.TrimSpace(title), n, Unit(n))
}

// Marker returns the description line for n.
func Marker(n int) string {
	return fmt.Sprintf("%s: %d", MarkerKey, n)
}

// Description appends the marker line to a free-text body.
func Description(body string, n int) string {
	body = strings.TrimRight(body, "\n")
	if body == "" {
		return Marker(n)
	}
	return body + "\n\n" + Marker(n)
}

// Decode recovers the guest count from an event's summary and description.
// The last description marker wins, then a trailing summary marker. ok is
// false when neither is present.
func Decode(summary, description string) (n int, ok bool) {
	if ms := descriptionRe.FindAllStringSubmatch(description, -1); len(ms) > 0 {
		if v, err := strconv.Atoi(ms[len(ms)-1][1]); err == nil {
			return v, true
		}
	}
	if m := summaryRe.FindStringSubmatch(summary); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v, true
		}
	}
	return 0, false
}
