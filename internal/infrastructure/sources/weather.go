package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/tidwall/gjson"
)

// DefaultWeatherURL is the Open-Meteo API base
const DefaultWeatherURL = "https://api.open-meteo.com"

// Weather reads today's forecast from Open-Meteo. No API key is needed.
type Weather struct {
	baseURL  string
	lat, lng float64
	fetch    fetcher
}

// NewWeather creates a weather adapter for a fixed location
func NewWeather(baseURL string, lat, lng float64, client *http.Client) *Weather {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	return &Weather{baseURL: baseURL, lat: lat, lng: lng, fetch: newFetcher(client)}
}

// Forecast returns today's condition, high/low and precipitation chance
func (w *Weather) Forecast(ctx context.Context) (*briefing.Weather, error) {
	if w.lat == 0 && w.lng == 0 {
		return nil, briefing.ErrSourceNotConfigured
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(w.lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(w.lng, 'f', 4, 64))
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "1")

	body, err := w.fetch.get(ctx, w.baseURL+"/v1/forecast?"+q.Encode(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}

	daily := gjson.GetBytes(body, "daily")
	if !daily.Exists() {
		return nil, fmt.Errorf("weather: response has no daily forecast")
	}
	return &briefing.Weather{
		Condition:                describeWeatherCode(int(daily.Get("weather_code.0").Int())),
		TemperatureHigh:          daily.Get("temperature_2m_max.0").Float(),
		TemperatureLow:           daily.Get("temperature_2m_min.0").Float(),
		PrecipitationProbability: int(daily.Get("precipitation_probability_max.0").Int()),
	}, nil
}

// describeWeatherCode maps a WMO weather interpretation code to a short label
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code <= 2:
		return "Partly cloudy"
	case code == 3:
		return "Overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67, code >= 80 && code <= 82:
		return "Rain"
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return "Snow"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
