package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/noah-isme/backend-tour/internal/common"
	"github.com/noah-isme/backend-tour/internal/itinerary"
)

const defaultCalendarID = "primary"

var (
	// ErrMissingToken is returned when no Google access token is supplied.
	ErrMissingToken = errors.New("calendar: google access token required")
	// ErrMissingStartDate is returned when the itinerary has no start date.
	ErrMissingStartDate = errors.New("calendar: itinerary start date required")
)

// CreatedEvent identifies an event inserted for one itinerary day.
type CreatedEvent struct {
	Day      int    `json:"day"`
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink,omitempty"`
}

// Exporter writes itinerary days to a Google calendar on behalf of the caller.
type Exporter struct {
	// Endpoint overrides the Calendar API base URL.
	Endpoint string
	TimeZone string
	Timeout  time.Duration
	Log      zerolog.Logger
}

// BuildEvents maps every day to one all-day event starting on the
// itinerary start date.
func BuildEvents(it itinerary.TourItinerary, timeZone string) ([]*gcal.Event, error) {
	if strings.TrimSpace(it.StartDate) == "" {
		return nil, ErrMissingStartDate
	}
	start, err := time.Parse(itinerary.DateLayout, it.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	events := make([]*gcal.Event, 0, len(it.Days))
	for i, day := range it.Days {
		date := start.AddDate(0, 0, i)
		events = append(events, &gcal.Event{
			Summary:     fmt.Sprintf("%s — Day %d", it.Name, day.Day),
			Description: strings.Join(day.Lines(), "\n"),
			Start:       &gcal.EventDateTime{Date: date.Format(itinerary.DateLayout), TimeZone: timeZone},
			End:         &gcal.EventDateTime{Date: date.AddDate(0, 0, 1).Format(itinerary.DateLayout), TimeZone: timeZone},
		})
	}
	return events, nil
}

// Export inserts one event per day into calendarID using the caller's token.
// Events inserted before a failure are kept and reported in the error log.
func (e *Exporter) Export(ctx context.Context, accessToken, calendarID string, it itinerary.TourItinerary) ([]CreatedEvent, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, common.NewValidationError(ErrMissingToken.Error(), ErrMissingToken)
	}
	events, err := BuildEvents(it, e.TimeZone)
	if err != nil {
		return nil, common.NewValidationError("itinerary start date must be formatted as YYYY-MM-DD", err)
	}
	if calendarID == "" {
		calendarID = defaultCalendarID
	}
	svc, err := e.service(ctx, accessToken)
	if err != nil {
		return nil, common.NewDependencyError("failed to reach google calendar", err)
	}

	created := make([]CreatedEvent, 0, len(events))
	for i, ev := range events {
		out, err := svc.Events.Insert(calendarID, ev).Context(ctx).Do()
		if err != nil {
			e.Log.Error().Err(err).Str("itinerary_id", it.ID).Int("day", it.Days[i].Day).Int("inserted", len(created)).Msg("calendar export failed")
			return created, common.NewDependencyError("failed to create calendar event", err)
		}
		created = append(created, CreatedEvent{Day: it.Days[i].Day, ID: out.Id, HTMLLink: out.HtmlLink})
	}
	e.Log.Info().Str("itinerary_id", it.ID).Int("events", len(created)).Msg("itinerary exported to calendar")
	return created, nil
}

func (e *Exporter) service(ctx context.Context, accessToken string) (*gcal.Service, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)
	client.Timeout = timeout

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if e.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(e.Endpoint))
	}
	return gcal.NewService(ctx, opts...)
}
