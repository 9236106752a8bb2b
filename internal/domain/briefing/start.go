package briefing

import (
	"strings"
	"time"
)

// displayLayouts are the human-formatted start strings the calendar adapters emit.
// None of them carry a year; the current year is assumed.
var displayLayouts = []string{
	"Mon, Jan 2, 3:04 PM",
	"Mon, Jan 2 3:04 PM",
	"Mon Jan 2 3:04 PM",
	"Monday, January 2, 3:04 PM",
	"Monday, January 2 3:04 PM",
	"Jan 2, 3:04 PM",
	"Jan 2 3:04 PM",
	"January 2, 3:04 PM",
	"Mon, Jan 2, 15:04",
	"Jan 2 15:04",
}

// ResolveStart returns the event's start time. The machine-readable field wins;
// otherwise the display string is parsed in now's location with now's year.
// All-day or unparseable starts report false.
//
// The display fallback is fragile across year boundaries and locales.
func ResolveStart(e Event, now time.Time) (time.Time, bool) {
	if e.StartRaw != nil && !e.StartRaw.IsZero() {
		return *e.StartRaw, true
	}
	display := strings.TrimSpace(e.Start)
	if display == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, display); err == nil {
		return t, true
	}
	for _, layout := range displayLayouts {
		t, err := time.ParseInLocation(layout, display, now.Location())
		if err != nil {
			continue
		}
		return time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), true
	}
	return time.Time{}, false
}

// IsVirtualLocation reports whether a location string names a video call
func IsVirtualLocation(location string) bool {
	l := strings.ToLower(location)
	return strings.Contains(l, "zoom") || strings.Contains(l, "teams") || strings.Contains(l, "meet")
}

// HasPhysicalLocation reports whether the event happens somewhere you need to travel to
func HasPhysicalLocation(e Event) bool {
	return strings.TrimSpace(e.Location) != "" && !IsVirtualLocation(e.Location)
}
