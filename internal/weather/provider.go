package weather

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the provider cannot be reached or answers with a non-2xx status.
	ErrUnavailable = errors.New("weather provider unavailable")

	// ErrMalformedResponse is returned when a 2xx response lacks a required field.
	ErrMalformedResponse = errors.New("malformed weather provider response")

	// ErrUnknownLocation is returned by Fetch for a Location with no variant set.
	ErrUnknownLocation = errors.New("unknown location kind")
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap).
// Implementations never retry; retry policy belongs to the caller.
type Provider interface {
	FetchByCity(ctx context.Context, name string) (Report, error)
	FetchByCoordinates(ctx context.Context, lat, lon float64) (Report, error)
}

// Store is the contract the in-memory location store (and any future persistent store) must satisfy.
type Store interface {
	Set(chatID int64, loc Location)
	Get(chatID int64) (Location, bool)
	Snapshot() []Subscription
	Len() int
}

// Fetch dispatches on the location variant.
func Fetch(ctx context.Context, p Provider, loc Location) (Report, error) {
	switch loc.Kind {
	case KindCity:
		return p.FetchByCity(ctx, loc.City)
	case KindCoordinates:
		return p.FetchByCoordinates(ctx, loc.Lat, loc.Lon)
	default:
		return Report{}, fmt.Errorf("%w: %d", ErrUnknownLocation, loc.Kind)
	}
}
