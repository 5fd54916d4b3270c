package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/klabast/wb-services/newsletter/internal/calendar"
)

// DefaultBaseURL is the Open-Meteo daily forecast endpoint
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

const dailyFields = "temperature_2m_max,temperature_2m_min,precipitation_probability_max,weathercode"

// Daily is the provider's per-day parallel-array block
type Daily struct {
	Time                        []string  `json:"time"`
	TemperatureMax              []float64 `json:"temperature_2m_max"`
	TemperatureMin              []float64 `json:"temperature_2m_min"`
	PrecipitationProbabilityMax []float64 `json:"precipitation_probability_max"`
	WeatherCode                 []int     `json:"weathercode"`
}

// Len is the number of days every array covers
func (d *Daily) Len() int {
	if d == nil {
		return 0
	}
	return min(len(d.Time), len(d.TemperatureMax), len(d.TemperatureMin),
		len(d.PrecipitationProbabilityMax), len(d.WeatherCode))
}

// Forecast is the decoded provider response
type Forecast struct {
	Daily *Daily `json:"daily"`
}

// Location is the fixed point forecasts are requested for
type Location struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}

// Client requests daily forecasts from Open-Meteo
type Client struct {
	baseURL  string
	location Location
	http     *http.Client
}

// NewClient creates a forecast client; an empty baseURL uses DefaultBaseURL
func NewClient(baseURL string, loc Location, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		location: loc,
		http:     &http.Client{Timeout: timeout},
	}
}

// Fetch issues one request for the inclusive date range [start, end]
func (c *Client) Fetch(ctx context.Context, start, end time.Time) (*Forecast, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.location.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.location.Longitude, 'f', -1, 64))
	q.Set("daily", dailyFields)
	q.Set("temperature_unit", "fahrenheit")
	q.Set("timezone", c.location.Timezone)
	q.Set("start_date", calendar.FormatDate(start))
	q.Set("end_date", calendar.FormatDate(end))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build forecast request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "forecast request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast request: unexpected status %d", resp.StatusCode)
	}

	var f Forecast
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode forecast")
	}
	return &f, nil
}
