package briefing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countContaining(items []string, substr string) int {
	n := 0
	for _, s := range items {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

func daysAgo(d int) *time.Time {
	t := fixedNow.Add(-time.Duration(d) * 24 * time.Hour)
	return &t
}

func TestAnalyzeRules(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *Snapshot
		substr   string
		expected int
	}{
		{
			name: "four events is a heavy day",
			snapshot: &Snapshot{Events: []Event{
				{Title: "A", StartRaw: at(8, 0)},
				{Title: "B", StartRaw: at(10, 0)},
				{Title: "C", StartRaw: at(12, 0)},
				{Title: "D", StartRaw: at(14, 0)},
			}},
			substr:   "focus time",
			expected: 1,
		},
		{
			name: "three events is not a heavy day",
			snapshot: &Snapshot{Events: []Event{
				{Title: "A"}, {Title: "B"}, {Title: "C"},
			}},
			substr:   "focus time",
			expected: 0,
		},
		{
			name: "three minute gap is back-to-back",
			snapshot: &Snapshot{Events: []Event{
				{Title: "Planning", StartRaw: at(10, 0)},
				{Title: "Review", StartRaw: at(11, 3)},
			}},
			substr:   "Back-to-back",
			expected: 1,
		},
		{
			name: "zero gap is not back-to-back",
			snapshot: &Snapshot{Events: []Event{
				{Title: "Planning", StartRaw: at(10, 0)},
				{Title: "Review", StartRaw: at(11, 0)},
			}},
			substr:   "Back-to-back",
			expected: 0,
		},
		{
			name: "unsorted input is ordered by start",
			snapshot: &Snapshot{Events: []Event{
				{Title: "Review", StartRaw: at(11, 4)},
				{Title: "Planning", StartRaw: at(10, 0)},
			}},
			substr:   "Back-to-back",
			expected: 1,
		},
		{
			name: "physical location right after a meeting",
			snapshot: &Snapshot{Events: []Event{
				{Title: "Standup", StartRaw: at(9, 0)},
				{Title: "Dentist", StartRaw: at(10, 15), Location: "12 Main St"},
			}},
			substr:   "travel conflict",
			expected: 1,
		},
		{
			name: "video call needs no travel",
			snapshot: &Snapshot{Events: []Event{
				{Title: "Standup", StartRaw: at(9, 0)},
				{Title: "Sync", StartRaw: at(10, 15), Location: "Zoom Meeting"},
			}},
			substr:   "travel conflict",
			expected: 0,
		},
		{
			name: "enough buffer before physical location",
			snapshot: &Snapshot{Events: []Event{
				{Title: "Standup", StartRaw: at(9, 0)},
				{Title: "Dentist", StartRaw: at(10, 30), Location: "12 Main St"},
			}},
			substr:   "travel conflict",
			expected: 0,
		},
		{
			name: "rain with an in-person event",
			snapshot: &Snapshot{
				Weather: &Weather{PrecipitationProbability: 60},
				Events: []Event{
					{Title: "Sync", Location: "Google Meet"},
					{Title: "Lunch", Location: "Cafe Roma"},
				},
			},
			substr:   "umbrella for \"Lunch\"",
			expected: 1,
		},
		{
			name: "rain with only video calls",
			snapshot: &Snapshot{
				Weather: &Weather{PrecipitationProbability: 90},
				Events:  []Event{{Title: "Sync", Location: "Microsoft Teams"}},
			},
			substr:   "umbrella",
			expected: 0,
		},
		{
			name: "light rain chance",
			snapshot: &Snapshot{
				Weather: &Weather{PrecipitationProbability: 59},
				Events:  []Event{{Title: "Lunch", Location: "Cafe Roma"}},
			},
			substr:   "umbrella",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeAt(tt.snapshot, fixedNow)
			assert.Equal(t, tt.expected, countContaining(got, tt.substr), "suggestions: %v", got)
		})
	}
}

func TestAnalyzeOverdueTasks(t *testing.T) {
	snap := &Snapshot{Tasks: []Task{
		{Title: "One", Due: daysAgo(4)},
		{Title: "Two", Due: daysAgo(5)},
		{Title: "Three", Due: daysAgo(10)},
		{Title: "Four", Due: daysAgo(30)},
		{Title: "Recent", Due: daysAgo(1)},
		{Title: "Done", Due: daysAgo(9), Completed: true},
		{Title: "Undated"},
	}}

	got := AnalyzeAt(snap, fixedNow)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "4 overdue")
	assert.Contains(t, got[0], "One, Two, Three and more")
	assert.NotContains(t, got[0], "Four")
	assert.NotContains(t, got[0], "Recent")
}

func TestAnalyzeOverdueNotTruncated(t *testing.T) {
	snap := &Snapshot{Tasks: []Task{{Title: "Renew passport", Due: daysAgo(7)}}}

	got := AnalyzeAt(snap, fixedNow)
	require.Len(t, got, 1)
	assert.NotContains(t, got[0], "and more")
	assert.Contains(t, got[0], "Renew passport")
}

func TestAnalyzeRuleOrder(t *testing.T) {
	snap := &Snapshot{
		Weather: &Weather{PrecipitationProbability: 80},
		Tasks:   []Task{{Title: "Old", Due: daysAgo(5)}},
		Events: []Event{
			{Title: "A", StartRaw: at(9, 0)},
			{Title: "B", StartRaw: at(10, 2), Location: "Office"},
			{Title: "C", StartRaw: at(13, 0)},
			{Title: "D", StartRaw: at(15, 0)},
		},
	}

	got := AnalyzeAt(snap, fixedNow)
	require.Len(t, got, 5)
	assert.Contains(t, got[0], "Back-to-back")
	assert.Contains(t, got[1], "travel conflict")
	assert.Contains(t, got[2], "overdue")
	assert.Contains(t, got[3], "umbrella")
	assert.Contains(t, got[4], "focus time")
}

func TestAnalyzeEmpty(t *testing.T) {
	assert.Empty(t, AnalyzeAt(&Snapshot{}, fixedNow))
	assert.NotNil(t, AnalyzeAt(nil, fixedNow))
}

func TestResolveStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		event  Event
		want   time.Time
		wantOK bool
	}{
		{
			name:   "raw start wins",
			event:  Event{Start: "Mon, Jan 5, 9:00 AM", StartRaw: at(14, 30)},
			want:   *at(14, 30),
			wantOK: true,
		},
		{
			name:   "rfc3339 display",
			event:  Event{Start: "2026-03-10T16:00:00Z"},
			want:   time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "display string assumes current year",
			event:  Event{Start: "Tue, Mar 10, 3:30 PM"},
			want:   time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "all-day event",
			event:  Event{Start: "All day"},
			wantOK: false,
		},
		{
			name:   "empty",
			event:  Event{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveStart(tt.event, now)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			}
		})
	}
}
