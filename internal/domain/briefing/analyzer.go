package briefing

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	assumedMeetingLength = 60 * time.Minute
	backToBackGap        = 5 * time.Minute
	travelBuffer         = 30 * time.Minute
	overdueAfter         = 3 * 24 * time.Hour
	overdueTitleLimit    = 3
	rainThreshold        = 60
	heavyDayEvents       = 4
)

type timedEvent struct {
	Event
	start time.Time
}

// AnalyzeAt derives advisory strings from a snapshot. Rules run in a fixed order
// and each one appends independently.
func AnalyzeAt(s *Snapshot, now time.Time) []string {
	suggestions := []string{}
	if s == nil {
		return suggestions
	}

	timed := timedEvents(s.Events, now)

	// Event end times are unknown, so every event is assumed to last an hour.
	for i := 0; i+1 < len(timed); i++ {
		end := timed[i].start.Add(assumedMeetingLength)
		gap := timed[i+1].start.Sub(end)
		if gap > 0 && gap < backToBackGap {
			suggestions = append(suggestions, fmt.Sprintf(
				"Back-to-back meetings: %q ends around %s and %q starts %d min later. Consider a short break.",
				timed[i].Title, end.Format("3:04 PM"), timed[i+1].Title, int(gap.Minutes())))
		}
	}

	for i := 1; i < len(timed); i++ {
		if !HasPhysicalLocation(timed[i].Event) {
			continue
		}
		prevEnd := timed[i-1].start.Add(assumedMeetingLength)
		if timed[i].start.Sub(prevEnd) < travelBuffer {
			suggestions = append(suggestions, fmt.Sprintf(
				"Possible travel conflict: %q at %s starts soon after %q ends. Leave time to get there.",
				timed[i].Title, timed[i].Location, timed[i-1].Title))
		}
	}

	var overdue []string
	for _, t := range s.Tasks {
		if t.Completed || t.Due == nil {
			continue
		}
		if now.Sub(*t.Due) > overdueAfter {
			overdue = append(overdue, t.Title)
		}
	}
	if len(overdue) > 0 {
		shown := overdue
		suffix := ""
		if len(shown) > overdueTitleLimit {
			shown = shown[:overdueTitleLimit]
			suffix = " and more"
		}
		suggestions = append(suggestions, fmt.Sprintf(
			"You have %d overdue task(s): %s%s.", len(overdue), strings.Join(shown, ", "), suffix))
	}

	if s.Weather != nil && s.Weather.PrecipitationProbability >= rainThreshold {
		for _, e := range s.Events {
			if HasPhysicalLocation(e) {
				suggestions = append(suggestions, fmt.Sprintf(
					"%d%% chance of rain today. Bring an umbrella for %q at %s.",
					s.Weather.PrecipitationProbability, e.Title, e.Location))
				break
			}
		}
	}

	if len(s.Events) >= heavyDayEvents {
		suggestions = append(suggestions, fmt.Sprintf(
			"Heavy day: %d events on your calendar. Block focus time between meetings.", len(s.Events)))
	}

	return suggestions
}

func timedEvents(events []Event, now time.Time) []timedEvent {
	timed := make([]timedEvent, 0, len(events))
	for _, e := range events {
		if start, ok := ResolveStart(e, now); ok {
			timed = append(timed, timedEvent{Event: e, start: start})
		}
	}
	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].start.Before(timed[j].start)
	})
	return timed
}
