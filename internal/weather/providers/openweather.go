package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-notifier/internal/weather"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap current weather.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// Option customizes an OpenWeatherProvider.
type Option func(*OpenWeatherProvider)

// WithBaseURL points the provider at another endpoint, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(p *OpenWeatherProvider) {
		p.baseURL = u
	}
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...Option) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: openWeatherURL,
		client:  client,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.circuit = newCircuitBreaker(p.name)
	return p
}

// Name identifies the provider in logs and names its circuit breaker.
func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// FetchByCity queries the current weather by free-form city name.
func (p *OpenWeatherProvider) FetchByCity(ctx context.Context, name string) (weather.Report, error) {
	values := url.Values{}
	values.Set("q", name)
	return p.fetch(ctx, values)
}

// FetchByCoordinates queries the current weather at the given point.
func (p *OpenWeatherProvider) FetchByCoordinates(ctx context.Context, lat, lon float64) (weather.Report, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return p.fetch(ctx, values)
}

func (p *OpenWeatherProvider) fetch(ctx context.Context, values url.Values) (weather.Report, error) {
	if p.apiKey == "" {
		return weather.Report{}, fmt.Errorf("%w: openweather api key is not configured", weather.ErrUnavailable)
	}

	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())

	resp, err := doRequest(ctx, p.client, p.circuit, u)
	if err != nil {
		return weather.Report{}, err
	}
	defer resp.Body.Close()

	return decodeCurrentWeather(json.NewDecoder(resp.Body))
}

// decodeCurrentWeather extracts the required fields. Pointers distinguish a missing field from a zero value.
func decodeCurrentWeather(dec *json.Decoder) (weather.Report, error) {
	var payload struct {
		Name    *string `json:"name"`
		Weather []struct {
			Description *string `json:"description"`
		} `json:"weather"`
		Main *struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
	}

	if err := dec.Decode(&payload); err != nil {
		return weather.Report{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}

	switch {
	case payload.Name == nil:
		return weather.Report{}, fmt.Errorf("%w: missing name", weather.ErrMalformedResponse)
	case len(payload.Weather) == 0 || payload.Weather[0].Description == nil:
		return weather.Report{}, fmt.Errorf("%w: missing weather description", weather.ErrMalformedResponse)
	case payload.Main == nil || payload.Main.Temp == nil:
		return weather.Report{}, fmt.Errorf("%w: missing main.temp", weather.ErrMalformedResponse)
	}

	return weather.Report{
		LocationName: *payload.Name,
		Description:  *payload.Weather[0].Description,
		TemperatureC: *payload.Main.Temp,
	}, nil
}
