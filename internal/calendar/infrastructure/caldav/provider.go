// Package caldav implements the calendar provider contract against CalDAV
// servers (Apple Calendar, Fastmail, Nextcloud, etc.).
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
)

// Common CalDAV server URLs
const (
	AppleCalDAVURL    = "https://caldav.icloud.com"
	FastmailCalDAVURL = "https://caldav.fastmail.com"
)

// Provider talks to one CalDAV account with basic auth (app-specific password
// for Apple). The provider's calendarID is the CalDAV collection path; an
// empty path resolves to the account's first calendar.
type Provider struct {
	baseURL  string
	username string
	password string
	logger   *slog.Logger
}

// NewProvider creates a CalDAV provider.
func NewProvider(baseURL, username, password string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		baseURL:  baseURL,
		username: username,
		password: password,
		logger:   logger,
	}
}

// FreeBusy derives busy intervals from the VEVENTs inside the window.
// Cancelled and transparent events do not block.
func (p *Provider) FreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]calendarApp.BusyInterval, error) {
	client, err := p.getClient()
	if err != nil {
		return nil, err
	}
	calPath, err := p.resolveCalendarPath(ctx, client, calendarID)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{
				{
					Name:  "VEVENT",
					Props: []string{"UID", "DTSTART", "DTEND", "STATUS", "TRANSP"},
				},
			},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: start,
					End:   end,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var busy []calendarApp.BusyInterval
	for _, obj := range objects {
		interval, blocking := parseBusyInterval(&obj)
		if blocking {
			busy = append(busy, interval)
		}
	}
	return busy, nil
}

// CreateEvent writes a new VEVENT. CalDAV has no conferencing, so the result
// carries only the event id.
func (p *Provider) CreateEvent(ctx context.Context, calendarID string, spec calendarApp.EventSpec) (*calendarApp.EventResult, error) {
	client, err := p.getClient()
	if err != nil {
		return nil, err
	}
	calPath, err := p.resolveCalendarPath(ctx, client, calendarID)
	if err != nil {
		return nil, err
	}

	uid := uuid.New().String()
	eventPath := eventPathFor(calPath, uid)
	if _, err := client.PutCalendarObject(ctx, eventPath, toICalendar(uid, spec)); err != nil {
		return nil, fmt.Errorf("failed to write calendar object: %w", err)
	}

	return &calendarApp.EventResult{EventID: eventPath}, nil
}

// UpdateEvent overwrites the event at the given path.
func (p *Provider) UpdateEvent(ctx context.Context, calendarID, eventID string, spec calendarApp.EventSpec) (string, error) {
	client, err := p.getClient()
	if err != nil {
		return "", err
	}

	uid := uidFromPath(eventID)
	if _, err := client.PutCalendarObject(ctx, eventID, toICalendar(uid, spec)); err != nil {
		return "", fmt.Errorf("failed to update calendar object: %w", err)
	}
	return eventID, nil
}

// DeleteEvent removes the event at the given path.
func (p *Provider) DeleteEvent(ctx context.Context, calendarID, eventID string) (bool, error) {
	client, err := p.getClient()
	if err != nil {
		return false, err
	}
	if err := client.RemoveAll(ctx, eventID); err != nil {
		if httpErrorIs(err, http.StatusNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete calendar object: %w", err)
	}
	return true, nil
}

func (p *Provider) getClient() (*caldav.Client, error) {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &basicAuthTransport{
			username: p.username,
			password: p.password,
			base:     http.DefaultTransport,
		},
	}

	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, p.username, p.password), p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	return client, nil
}

func (p *Provider) resolveCalendarPath(ctx context.Context, client *caldav.Client, calendarID string) (string, error) {
	if calendarID != "" && strings.HasPrefix(calendarID, "/") {
		return calendarID, nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", fmt.Errorf("no calendars found")
	}

	// Use first calendar as default
	return cals[0].Path, nil
}

func eventPathFor(calPath, uid string) string {
	if !strings.HasSuffix(calPath, "/") {
		calPath += "/"
	}
	return fmt.Sprintf("%s%s.ics", calPath, uid)
}

func uidFromPath(eventPath string) string {
	base := eventPath
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.TrimSuffix(base, ".ics")
}

func parseBusyInterval(obj *caldav.CalendarObject) (calendarApp.BusyInterval, bool) {
	if obj == nil || obj.Data == nil {
		return calendarApp.BusyInterval{}, false
	}

	for _, child := range obj.Data.Children {
		if child.Name != ical.CompEvent {
			continue
		}

		if props := child.Props["STATUS"]; len(props) > 0 &&
			strings.EqualFold(props[0].Value, "CANCELLED") {
			return calendarApp.BusyInterval{}, false
		}
		if props := child.Props["TRANSP"]; len(props) > 0 &&
			strings.EqualFold(props[0].Value, "TRANSPARENT") {
			return calendarApp.BusyInterval{}, false
		}

		icalEvent := &ical.Event{Component: child}
		start, err := icalEvent.DateTimeStart(time.UTC)
		if err != nil {
			return calendarApp.BusyInterval{}, false
		}
		end, err := icalEvent.DateTimeEnd(time.UTC)
		if err != nil {
			return calendarApp.BusyInterval{}, false
		}
		return calendarApp.BusyInterval{Start: start.UTC(), End: end.UTC()}, true
	}
	return calendarApp.BusyInterval{}, false
}

func toICalendar(uid string, spec calendarApp.EventSpec) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//SlotWise//Booking Engine//EN")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, spec.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, spec.End.UTC())
	event.Props.SetText(ical.PropSummary, spec.Title)
	if spec.Description != "" {
		event.Props.SetText(ical.PropDescription, spec.Description)
	}
	for _, email := range spec.Attendees {
		if email == "" {
			continue
		}
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + email
		event.Props.Add(prop)
	}

	cal.Children = append(cal.Children, event.Component)
	return cal
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// httpErrorIs reports whether err carries the given HTTP status. go-webdav
// wraps response failures in an internal error type we cannot name, so this
// matches on the "<code> <status text>" prefix its Error() renders.
func httpErrorIs(err error, status int) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), fmt.Sprintf("%d %s", status, http.StatusText(status)))
}
