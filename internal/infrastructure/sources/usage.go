package sources

import (
	"sync"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
)

// Usage tracks today's LLM token and cost usage in process memory.
// Counters reset when the local date changes.
type Usage struct {
	mu    sync.Mutex
	day   string
	stats briefing.UsageStats
	now   func() time.Time
}

// NewUsage creates an empty tracker
func NewUsage() *Usage {
	return &Usage{now: time.Now}
}

// Record adds one request's usage
func (u *Usage) Record(inputTokens, outputTokens int64, costUSD float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rollover()
	u.stats.InputTokens += inputTokens
	u.stats.OutputTokens += outputTokens
	u.stats.CostUSD += costUSD
	u.stats.Requests++
}

// Today returns the totals for the current day
func (u *Usage) Today() briefing.UsageStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rollover()
	return u.stats
}

func (u *Usage) rollover() {
	day := u.now().Format("2006-01-02")
	if day != u.day {
		u.day = day
		u.stats = briefing.UsageStats{}
	}
}
