// Package google implements the calendar provider contract against the
// Google Calendar v3 REST API.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"

	calendarApp "github.com/slotwise/slotwise/internal/calendar/application"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Circuit breakers live in a package-level registry keyed by account, so a
// fresh Client built for every request still accumulates failures against the
// same breaker and can actually trip.
var (
	breakersMu sync.Mutex
	breakers   = map[string]*gobreaker.CircuitBreaker[*http.Response]{}
)

func breakerFor(account string) *gobreaker.CircuitBreaker[*http.Response] {
	breakersMu.Lock()
	defer breakersMu.Unlock()
	if breaker, ok := breakers[account]; ok {
		return breaker
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "google-calendar:" + account,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	breakers[account] = breaker
	return breaker
}

// Client talks to one Google Calendar account through an OAuth token source.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient creates a Google Calendar client for the given token source.
// account identifies the remote calendar account for breaker sharing.
func NewClient(account string, source oauth2.TokenSource, logger *slog.Logger) *Client {
	return NewClientWithBaseURL(account, source, logger, defaultBaseURL)
}

// NewClientWithBaseURL creates a client with a custom base URL (used in tests).
func NewClientWithBaseURL(account string, source oauth2.TokenSource, logger *slog.Logger, baseURL string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &oauthTransport{
				base:   http.DefaultTransport,
				source: source,
			},
		},
		baseURL: baseURL,
		logger:  logger,
		breaker: breakerFor(account),
	}
}

// FreeBusy queries busy intervals for the calendar within the window.
func (c *Client) FreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]calendarApp.BusyInterval, error) {
	reqBody := struct {
		TimeMin string           `json:"timeMin"`
		TimeMax string           `json:"timeMax"`
		Items   []map[string]any `json:"items"`
	}{
		TimeMin: start.UTC().Format(time.RFC3339),
		TimeMax: end.UTC().Format(time.RFC3339),
		Items:   []map[string]any{{"id": calendarID}},
	}

	var payload struct {
		Calendars map[string]struct {
			Busy []struct {
				Start string `json:"start"`
				End   string `json:"end"`
			} `json:"busy"`
			Errors []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"calendars"`
	}

	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/freeBusy", c.baseURL), reqBody, &payload); err != nil {
		return nil, err
	}

	cal, ok := payload.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("free/busy response missing calendar %s", calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("free/busy query rejected: %s", cal.Errors[0].Reason)
	}

	busy := make([]calendarApp.BusyInterval, 0, len(cal.Busy))
	for _, interval := range cal.Busy {
		s, err := time.Parse(time.RFC3339, interval.Start)
		if err != nil {
			continue
		}
		e, err := time.Parse(time.RFC3339, interval.End)
		if err != nil {
			continue
		}
		busy = append(busy, calendarApp.BusyInterval{Start: s.UTC(), End: e.UTC()})
	}
	return busy, nil
}

// CreateEvent inserts an event into the calendar.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, spec calendarApp.EventSpec) (*calendarApp.EventResult, error) {
	var payload eventPayload
	url := fmt.Sprintf("%s/calendars/%s/events?conferenceDataVersion=1", c.baseURL, calendarID)
	if err := c.doJSON(ctx, http.MethodPost, url, toGoogleEvent(spec), &payload); err != nil {
		return nil, err
	}
	return payload.toResult(), nil
}

// UpdateEvent updates an existing event in place.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, spec calendarApp.EventSpec) (string, error) {
	var payload eventPayload
	url := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, calendarID, eventID)
	if err := c.doJSON(ctx, http.MethodPut, url, toGoogleEvent(spec), &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return eventID, nil
	}
	return payload.ID, nil
}

// DeleteEvent removes an event. A missing event is reported as not deleted
// without an error.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) (bool, error) {
	url := fmt.Sprintf("%s/calendars/%s/events/%s", c.baseURL, calendarID, eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, nil
	default:
		return false, responseError(resp)
	}
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		// Server-side failures count against the breaker; client errors do not.
		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("calendar request failed: status=%d body=%s", resp.StatusCode, string(body))
		}
		return resp, nil
	})
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("calendar request failed: status=%d body=%s", resp.StatusCode, string(body))
}

type eventPayload struct {
	ID             string `json:"id"`
	HangoutLink    string `json:"hangoutLink"`
	ConferenceData struct {
		EntryPoints []struct {
			EntryPointType string `json:"entryPointType"`
			URI            string `json:"uri"`
			PIN            string `json:"pin"`
		} `json:"entryPoints"`
	} `json:"conferenceData"`
}

func (p eventPayload) toResult() *calendarApp.EventResult {
	result := &calendarApp.EventResult{
		EventID:  p.ID,
		JoinLink: p.HangoutLink,
	}
	for _, entry := range p.ConferenceData.EntryPoints {
		switch entry.EntryPointType {
		case "video":
			if result.JoinLink == "" {
				result.JoinLink = entry.URI
			}
		case "phone":
			result.JoinPhone = entry.URI
			result.JoinPIN = entry.PIN
		}
	}
	return result
}

type googleEvent struct {
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Start       struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone,omitempty"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone,omitempty"`
	} `json:"end"`
	Attendees []struct {
		Email string `json:"email"`
	} `json:"attendees,omitempty"`
}

func toGoogleEvent(spec calendarApp.EventSpec) googleEvent {
	event := googleEvent{
		Summary:     spec.Title,
		Description: spec.Description,
	}
	event.Start.DateTime = spec.Start.Format(time.RFC3339)
	event.Start.TimeZone = spec.Timezone
	event.End.DateTime = spec.End.Format(time.RFC3339)
	event.End.TimeZone = spec.Timezone

	for _, email := range spec.Attendees {
		if email == "" {
			continue
		}
		event.Attendees = append(event.Attendees, struct {
			Email string `json:"email"`
		}{Email: email})
	}
	return event
}

type oauthTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *oauthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return t.base.RoundTrip(req)
}
