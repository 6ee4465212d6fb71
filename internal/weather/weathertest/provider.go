// Package weathertest provides a programmable weather.Provider for tests.
package weathertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/i474232898/weather-notifier/internal/weather"
)

// Call records one provider invocation.
type Call struct {
	Kind weather.LocationKind
	City string
	Lat  float64
	Lon  float64
}

// Provider answers from fixed tables. Cities and points missing from the tables fail with weather.ErrUnavailable.
type Provider struct {
	mu sync.Mutex

	Cities map[string]weather.Report
	Points map[[2]float64]weather.Report

	// Errors overrides the answer for a location key (see weather.Location.Key).
	Errors map[string]error

	calls []Call
}

// NewProvider returns an empty Provider.
func NewProvider() *Provider {
	return &Provider{
		Cities: make(map[string]weather.Report),
		Points: make(map[[2]float64]weather.Report),
		Errors: make(map[string]error),
	}
}

func (p *Provider) FetchByCity(ctx context.Context, name string) (weather.Report, error) {
	p.record(Call{Kind: weather.KindCity, City: name})
	if err := ctx.Err(); err != nil {
		return weather.Report{}, fmt.Errorf("%w: %v", weather.ErrUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.Errors[weather.CityLocation(name).Key()]; ok {
		return weather.Report{}, err
	}
	r, ok := p.Cities[name]
	if !ok {
		return weather.Report{}, fmt.Errorf("%w: city %q not configured", weather.ErrUnavailable, name)
	}
	return r, nil
}

func (p *Provider) FetchByCoordinates(ctx context.Context, lat, lon float64) (weather.Report, error) {
	p.record(Call{Kind: weather.KindCoordinates, Lat: lat, Lon: lon})
	if err := ctx.Err(); err != nil {
		return weather.Report{}, fmt.Errorf("%w: %v", weather.ErrUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.Errors[weather.CoordinatesLocation(lat, lon).Key()]; ok {
		return weather.Report{}, err
	}
	r, ok := p.Points[[2]float64{lat, lon}]
	if !ok {
		return weather.Report{}, fmt.Errorf("%w: point %v,%v not configured", weather.ErrUnavailable, lat, lon)
	}
	return r, nil
}

// Calls returns a copy of every invocation so far.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Call(nil), p.calls...)
}

func (p *Provider) record(c Call) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
}
