// Package dates parses the publication timestamps found in feeds, listing
// pages and channel views.
package dates

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Epoch is the instant assigned to entries without a usable date.
var Epoch = time.Unix(0, 0).UTC()

var monthNames = strings.NewReplacer(
	"января", "January", "февраля", "February", "марта", "March",
	"апреля", "April", "мая", "May", "июня", "June",
	"июля", "July", "августа", "August", "сентября", "September",
	"октября", "October", "ноября", "November", "декабря", "December",
)

var layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006, 15:04",
	"15:04, 02.01.2006",
	"02.01.2006",
	"2 January 2006, 15:04",
	"2 January 2006 15:04",
	"15:04, 2 January 2006",
	"2 January 2006",
}

// Parse resolves s to a UTC instant. Timestamps without a zone are taken as
// UTC. ok is false when nothing could be parsed or the result falls before
// Epoch, which is how lenient parsing of fragments like "0000" shows up.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if lower := strings.ToLower(s); monthNames.Replace(lower) != lower {
		s = monthNames.Replace(lower)
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return checked(t)
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return checked(t)
}

func checked(t time.Time) (time.Time, bool) {
	t = t.UTC()
	if t.Before(Epoch) {
		return time.Time{}, false
	}
	return t, true
}

// ParseOrEpoch is Parse with Epoch as the fallback.
func ParseOrEpoch(s string) time.Time {
	if t, ok := Parse(s); ok {
		return t
	}
	return Epoch
}
