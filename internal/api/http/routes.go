package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-notifier/internal/broadcast"
	"github.com/i474232898/weather-notifier/internal/weather"
)

var validate = validator.New()

const previewTimeout = 10 * time.Second

// Broadcaster runs a broadcast on demand.
type Broadcaster interface {
	RunDailyBroadcast(ctx context.Context) (broadcast.Summary, error)
}

// Deps are the components the admin API reads from.
type Deps struct {
	Store       weather.Store
	Provider    weather.Provider
	Broadcaster Broadcaster

	// NextRun reports the next scheduled broadcast; optional.
	NextRun func() time.Time
}

// NewApp builds the fiber app with the centralized JSON error handler.
func NewApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	app.Use(recover.New())
	return app
}

// RegisterRoutes wires the admin handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/subscriptions", func(c *fiber.Ctx) error {
		subs := deps.Store.Snapshot()
		return c.JSON(fiber.Map{
			"count":         len(subs),
			"subscriptions": subs,
		})
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		var q weatherQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := q.toLocation()

		ctx, cancel := context.WithTimeout(c.UserContext(), previewTimeout)
		defer cancel()

		report, err := weather.Fetch(ctx, deps.Provider, loc)
		if err != nil {
			switch {
			case errors.Is(err, weather.ErrMalformedResponse):
				return fiber.NewError(fiber.StatusBadGateway, "weather provider returned a malformed response")
			case errors.Is(err, weather.ErrUnavailable):
				return fiber.NewError(fiber.StatusBadGateway, "weather provider unavailable")
			default:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
			}
		}

		return c.JSON(fiber.Map{
			"location": loc,
			"report":   report,
			"text":     report.String(),
		})
	})

	v1.Post("/broadcast", func(c *fiber.Ctx) error {
		summary, err := deps.Broadcaster.RunDailyBroadcast(c.UserContext())
		if errors.Is(err, broadcast.ErrRunInProgress) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to run broadcast")
		}
		return c.JSON(summary)
	})

	v1.Get("/schedule", func(c *fiber.Ctx) error {
		if deps.NextRun == nil {
			return fiber.NewError(fiber.StatusNotFound, "scheduler not configured")
		}
		return c.JSON(fiber.Map{
			"nextRun": deps.NextRun(),
		})
	})
}

// weatherQuery holds the query parameters of the weather preview endpoint:
// either city, or lat and lon together.
type weatherQuery struct {
	City string
	Lat  *float64 `validate:"omitempty,min=-90,max=90"`
	Lon  *float64 `validate:"omitempty,min=-180,max=180"`
}

func (q *weatherQuery) bind(c *fiber.Ctx) error {
	q.City = c.Query("city")

	var err error
	if q.Lat, err = parseFloatQuery(c, "lat"); err != nil {
		return err
	}
	if q.Lon, err = parseFloatQuery(c, "lon"); err != nil {
		return err
	}

	if err := validate.Struct(q); err != nil {
		return err
	}

	hasPoint := q.Lat != nil && q.Lon != nil
	switch {
	case q.City != "" && (q.Lat != nil || q.Lon != nil):
		return errors.New("use either city or lat/lon, not both")
	case q.City == "" && !hasPoint:
		return errors.New("city or lat and lon query parameters are required")
	}
	return nil
}

func (q weatherQuery) toLocation() weather.Location {
	if q.City != "" {
		return weather.CityLocation(q.City)
	}
	return weather.CoordinatesLocation(*q.Lat, *q.Lon)
}

func parseFloatQuery(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New("invalid " + key + ": must be a number")
	}
	return &v, nil
}
