package sources

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/alerts"
	"github.com/tidwall/gjson"
)

// DefaultMapsURL is the Google Maps API base
const DefaultMapsURL = "https://maps.googleapis.com"

// heavyDelayRatio marks traffic as heavy once the delay reaches this share of free-flow time
const heavyDelayRatio = 0.25

// Traffic estimates drive times with the Distance Matrix API
type Traffic struct {
	baseURL string
	apiKey  string
	fetch   fetcher
}

// NewTraffic creates a traffic adapter. Without an API key every lookup
// reports no estimate.
func NewTraffic(baseURL, apiKey string, client *http.Client) *Traffic {
	if baseURL == "" {
		baseURL = DefaultMapsURL
	}
	return &Traffic{baseURL: baseURL, apiKey: apiKey, fetch: newFetcher(client)}
}

// LiveDriveDuration returns the current drive estimate, or nil when no route
// is available.
func (t *Traffic) LiveDriveDuration(ctx context.Context, origin, destination string) (*alerts.TrafficEstimate, error) {
	if t.apiKey == "" || origin == "" || destination == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("origins", origin)
	q.Set("destinations", destination)
	q.Set("mode", "driving")
	q.Set("departure_time", "now")
	q.Set("traffic_model", "best_guess")
	q.Set("key", t.apiKey)

	body, err := t.fetch.get(ctx, t.baseURL+"/maps/api/distancematrix/json?"+q.Encode(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("traffic: %w", err)
	}

	if status := gjson.GetBytes(body, "status").String(); status != "OK" {
		return nil, fmt.Errorf("traffic: api status %s: %s", status, gjson.GetBytes(body, "error_message").String())
	}
	element := gjson.GetBytes(body, "rows.0.elements.0")
	if element.Get("status").String() != "OK" {
		return nil, nil
	}

	freeFlow := minutes(element.Get("duration.value").Float())
	aware := freeFlow
	if inTraffic := element.Get("duration_in_traffic.value"); inTraffic.Exists() {
		aware = minutes(inTraffic.Float())
	}
	delay := aware - freeFlow
	if delay < 0 {
		delay = 0
	}
	return &alerts.TrafficEstimate{
		FreeFlowMinutes:     freeFlow,
		TrafficAwareMinutes: aware,
		DelayMinutes:        delay,
		Heavy:               freeFlow > 0 && float64(delay) >= heavyDelayRatio*float64(freeFlow),
	}, nil
}

func minutes(seconds float64) int {
	return int(math.Round(seconds / 60))
}
