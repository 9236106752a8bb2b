package briefing

import "time"

// Event is a calendar entry as seen by the briefing and the alert scheduler
type Event struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Start    string     `json:"start"`               // human-formatted display string
	StartRaw *time.Time `json:"start_raw,omitempty"` // machine-readable start, preferred when present
	Location string     `json:"location,omitempty"`
}

// Email is an unread message, pre-flagged by the mail adapter
type Email struct {
	ID        string    `json:"id"`
	Account   string    `json:"account"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Snippet   string    `json:"snippet,omitempty"`
	Received  time.Time `json:"received"`
	Important bool      `json:"important"`
}

// Task is an open to-do item
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Due       *time.Time `json:"due,omitempty"`
	Completed bool       `json:"completed"`
}

// Weather is the forecast for today
type Weather struct {
	Condition                string  `json:"condition"`
	TemperatureHigh          float64 `json:"temperature_high"`
	TemperatureLow           float64 `json:"temperature_low"`
	PrecipitationProbability int     `json:"precipitation_probability"` // percent, 0-100
}

// Article is a single news item
type Article struct {
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`
}

// UsageStats is today's LLM token and cost usage
type UsageStats struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	Requests     int64   `json:"requests"`
}

// Package is a tracked shipment found in mail
type Package struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
	Description    string `json:"description,omitempty"`
}

// Snapshot is one immutable aggregation of the user's day.
// Every field has a usable zero value; a failed source leaves its field empty.
type Snapshot struct {
	Events          []Event              `json:"events"`
	Emails          []Email              `json:"emails"`
	ImportantEmails []Email              `json:"important_emails"`
	News            map[string][]Article `json:"news"`
	Weather         *Weather             `json:"weather,omitempty"`
	Tasks           []Task               `json:"tasks"`
	Usage           UsageStats           `json:"usage"`
	Suggestions     []string             `json:"suggestions"`
	Packages        []Package            `json:"packages"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// CacheEntry pairs a snapshot with the time it was stored
type CacheEntry struct {
	Data      *Snapshot `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
}
