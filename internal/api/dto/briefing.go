package dto

import (
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// BriefingResponse wraps a snapshot with its cache metadata
type BriefingResponse struct {
	Snapshot  *briefing.Snapshot `json:"snapshot"`
	FetchedAt *time.Time         `json:"fetched_at,omitempty"`
}

// RefreshRequest asks for a fresh snapshot stored under a session id
type RefreshRequest struct {
	SessionID string `json:"session_id" validate:"required,not_empty,max=128"`
}

// CacheStatusResponse describes the dashboard cache
type CacheStatusResponse struct {
	Cached    bool       `json:"cached"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	Redis     any        `json:"redis,omitempty"`
}
