// Package weather fetches current conditions from the Open-Meteo public
// API and renders them as a short plain-text report sized for a LoRa
// channel message.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrLocationNotFound = errors.New("weather: location not found")
	ErrBadStatus        = errors.New("weather: unexpected response status")
)

const (
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	defaultTimeout      = 10 * time.Second
)

// Config overrides the API endpoints and HTTP client. The zero value
// targets the public Open-Meteo service.
type Config struct {
	GeocodingURL string
	ForecastURL  string
	HTTPClient   *http.Client
}

type Client struct {
	geocodingURL string
	forecastURL  string
	http         *http.Client
}

func NewClient(cfg Config) *Client {
	c := &Client{
		geocodingURL: cfg.GeocodingURL,
		forecastURL:  cfg.ForecastURL,
		http:         cfg.HTTPClient,
	}
	if c.geocodingURL == "" {
		c.geocodingURL = defaultGeocodingURL
	}
	if c.forecastURL == "" {
		c.forecastURL = defaultForecastURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

// Location is one geocoding match.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Current holds the subset of forecast fields the report uses.
type Current struct {
	Temperature         float64 `json:"temperature_2m"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	Humidity            float64 `json:"relative_humidity_2m"`
	Precipitation       float64 `json:"precipitation"`
	WeatherCode         int     `json:"weather_code"`
	WindSpeed           float64 `json:"wind_speed_10m"`
	WindDirection       float64 `json:"wind_direction_10m"`
}

// Geocode resolves a free-text place name to its best match.
func (c *Client) Geocode(ctx context.Context, name string) (Location, error) {
	q := url.Values{
		"name":     {name},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}
	var body struct {
		Results []Location `json:"results"`
	}
	if err := c.getJSON(ctx, c.geocodingURL, q, &body); err != nil {
		return Location{}, err
	}
	if len(body.Results) == 0 {
		return Location{}, fmt.Errorf("%w: %s", ErrLocationNotFound, name)
	}
	return body.Results[0], nil
}

// Current fetches current conditions for a coordinate.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Current, error) {
	q := url.Values{
		"latitude":  {formatFloat(lat)},
		"longitude": {formatFloat(lon)},
		"current": {"temperature_2m,apparent_temperature," +
			"relative_humidity_2m,precipitation," +
			"weather_code,wind_speed_10m,wind_direction_10m"},
		"timezone": {"auto"},
	}
	var body struct {
		Current Current `json:"current"`
	}
	if err := c.getJSON(ctx, c.forecastURL, q, &body); err != nil {
		return Current{}, err
	}
	return body.Current, nil
}

// Report geocodes location and formats its current conditions.
func (c *Client) Report(ctx context.Context, location string) (string, error) {
	loc, err := c.Geocode(ctx, location)
	if err != nil {
		return "", err
	}
	cur, err := c.Current(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return "", err
	}
	log.Debug().Str("location", loc.Name).Int("code", cur.WeatherCode).Msg("forecast fetched")
	return formatReport(loc, cur), nil
}

func formatReport(loc Location, cur Current) string {
	place := loc.Name
	if loc.Country != "" {
		place = loc.Name + ", " + loc.Country
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", place)
	fmt.Fprintf(&b, "Conditions: %s\n", Describe(cur.WeatherCode))
	fmt.Fprintf(&b, "Temp: %s°C (feels like %s°C)\n",
		formatFloat(cur.Temperature), formatFloat(cur.ApparentTemperature))
	fmt.Fprintf(&b, "Humidity: %s%%\n", formatFloat(cur.Humidity))
	fmt.Fprintf(&b, "Wind: %s km/h at %s°\n",
		formatFloat(cur.WindSpeed), formatFloat(cur.WindDirection))
	fmt.Fprintf(&b, "Precipitation: %s mm", formatFloat(cur.Precipitation))
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Client) getJSON(ctx context.Context, base string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("weather: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("weather: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("weather: decode response: %w", err)
	}
	return nil
}
