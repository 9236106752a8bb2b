package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"go.uber.org/zap"
)

// BriefingEventChannel carries dashboard invalidations between instances
const BriefingEventChannel = "briefing:events"

const sessionKeyPrefix = "briefing:session:"

// BriefingEvent is published on BriefingEventChannel
type BriefingEvent struct {
	Type      string    `json:"type"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// EventDashboardInvalidated asks every instance to drop its dashboard entry
const EventDashboardInvalidated = "dashboard_invalidated"

// SessionKey is the un-prefixed key a session snapshot is stored under
func SessionKey(id string) string {
	return sessionKeyPrefix + id
}

// SaveSnapshot mirrors a session snapshot. Session entries never expire.
func (r *RedisClient) SaveSnapshot(ctx context.Context, id string, s *briefing.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.Set(ctx, SessionKey(id), string(data), 0)
}

// LoadSnapshot reads a mirrored session snapshot
func (r *RedisClient) LoadSnapshot(ctx context.Context, id string) (*briefing.Snapshot, error) {
	data, err := r.Get(ctx, SessionKey(id))
	if err != nil {
		return nil, err
	}
	var s briefing.Snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// PublishInvalidation announces a dashboard invalidation to other instances
func (r *RedisClient) PublishInvalidation(ctx context.Context) error {
	data, err := json.Marshal(BriefingEvent{
		Type:      EventDashboardInvalidated,
		Origin:    r.instanceID,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := r.withContext(ctx)
	defer cancel()
	return r.client.Publish(ctx, BriefingEventChannel, data).Err()
}

// SubscribeInvalidations calls onInvalidate for every invalidation published by
// another instance. It returns once the subscription is confirmed; delivery runs
// until ctx is done.
func (r *RedisClient) SubscribeInvalidations(ctx context.Context, onInvalidate func(BriefingEvent)) error {
	pubsub := r.client.Subscribe(ctx, BriefingEventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", BriefingEventChannel, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event BriefingEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					r.logger.Warn("Ignoring malformed briefing event", zap.Error(err))
					continue
				}
				if event.Origin == r.instanceID || event.Type != EventDashboardInvalidated {
					continue
				}
				onInvalidate(event)
			}
		}
	}()
	return nil
}

// IsNotFound reports whether err is a cache miss
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCacheNotFound)
}
