package weather

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// LocationKind tells which variant of Location is populated.
type LocationKind int

const (
	KindUnknown LocationKind = iota
	KindCity
	KindCoordinates
)

func (k LocationKind) String() string {
	switch k {
	case KindCity:
		return "city"
	case KindCoordinates:
		return "coordinates"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name in JSON.
func (k LocationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *LocationKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "city":
		*k = KindCity
	case "coordinates":
		*k = KindCoordinates
	case "unknown":
		*k = KindUnknown
	default:
		return fmt.Errorf("unknown location kind %q", text)
	}
	return nil
}

// Location identifies a place either by city name or by latitude/longitude.
// Build it with CityLocation or CoordinatesLocation so that exactly one variant is set.
type Location struct {
	Kind LocationKind `json:"kind"`
	City string       `json:"city,omitempty"`
	Lat  float64      `json:"lat,omitempty"`
	Lon  float64      `json:"lon,omitempty"`
}

// MarshalJSON writes only the fields of l's kind; zero coordinates are kept.
func (l Location) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case KindCity:
		return json.Marshal(struct {
			Kind LocationKind `json:"kind"`
			City string       `json:"city"`
		}{l.Kind, l.City})
	case KindCoordinates:
		return json.Marshal(struct {
			Kind LocationKind `json:"kind"`
			Lat  float64      `json:"lat"`
			Lon  float64      `json:"lon"`
		}{l.Kind, l.Lat, l.Lon})
	default:
		return json.Marshal(struct {
			Kind LocationKind `json:"kind"`
		}{l.Kind})
	}
}

// CityLocation returns a Location resolved by the provider from a free-form city name.
func CityLocation(name string) Location {
	return Location{Kind: KindCity, City: name}
}

// CoordinatesLocation returns a Location for the given latitude and longitude.
func CoordinatesLocation(lat, lon float64) Location {
	return Location{Kind: KindCoordinates, Lat: lat, Lon: lon}
}

// Key returns a human-readable key, used in logs.
func (l Location) Key() string {
	switch l.Kind {
	case KindCity:
		return "city:" + l.City
	case KindCoordinates:
		return fmt.Sprintf("coords:%f,%f", l.Lat, l.Lon)
	default:
		return "unknown"
	}
}

// Subscription is a chat registered for the daily broadcast together with its last known location.
type Subscription struct {
	ChatID   int64    `json:"chatId"`
	Location Location `json:"location"`
}

// Report is the normalized result of a successful provider lookup.
type Report struct {
	LocationName string  `json:"locationName"`
	Description  string  `json:"description"`
	TemperatureC float64 `json:"temperatureC"`
}

// String renders the report as the text sent to chats.
func (r Report) String() string {
	return fmt.Sprintf("Weather in %s: %s, temperature: %s°C",
		r.LocationName, r.Description, strconv.FormatFloat(r.TemperatureC, 'f', -1, 64))
}
