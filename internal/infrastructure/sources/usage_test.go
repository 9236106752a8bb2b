package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUsageRollsOverDaily(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	u := NewUsage()
	u.now = func() time.Time { return now }

	u.Record(100, 50, 0.01)
	u.Record(200, 25, 0.02)

	got := u.Today()
	assert.Equal(t, int64(300), got.InputTokens)
	assert.Equal(t, int64(75), got.OutputTokens)
	assert.InDelta(t, 0.03, got.CostUSD, 1e-9)
	assert.Equal(t, int64(2), got.Requests)

	now = now.Add(2 * time.Minute)
	assert.Zero(t, u.Today().Requests)
}
