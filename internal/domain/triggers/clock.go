package triggers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Default trigger times
const (
	DefaultMorning = "07:00"
	DefaultEvening = "18:00"
)

// ErrInvalidClock is returned for times that are not HH:MM on a 24 hour clock
var ErrInvalidClock = errors.New("triggers: time must be HH:MM")

// ParseClock splits an HH:MM string into hour and minute
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 ||
		!allDigits(parts[0]) || !allDigits(parts[1]) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hour, minute, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidClock reports whether s is a usable HH:MM time
func ValidClock(s string) bool {
	_, _, err := ParseClock(s)
	return err == nil
}

// CronSpec converts HH:MM into a daily cron expression. An invalid value falls
// back to fallback; the normalised time actually used is returned alongside.
func CronSpec(hhmm, fallback string) (spec, used string) {
	hour, minute, err := ParseClock(hhmm)
	if err != nil {
		hour, minute, _ = ParseClock(fallback)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), fmt.Sprintf("%02d:%02d", hour, minute)
}
