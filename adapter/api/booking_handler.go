package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/slotwise/internal/booking/application/commands"
	"github.com/slotwise/slotwise/internal/booking/application/queries"
)

// BookingHandler serves the booking lifecycle endpoints.
type BookingHandler struct {
	create       *commands.CreateBookingHandler
	cancel       *commands.CancelBookingHandler
	reschedule   *commands.RescheduleBookingHandler
	getByToken   *queries.GetBookingByTokenHandler
	listUpcoming *queries.ListUpcomingBookingsHandler
	limiter      RateLimiter
	logger       *slog.Logger
}

// NewBookingHandler creates a booking handler.
func NewBookingHandler(
	create *commands.CreateBookingHandler,
	cancel *commands.CancelBookingHandler,
	reschedule *commands.RescheduleBookingHandler,
	getByToken *queries.GetBookingByTokenHandler,
	listUpcoming *queries.ListUpcomingBookingsHandler,
	limiter RateLimiter,
	logger *slog.Logger,
) *BookingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = AllowAllLimiter{}
	}
	return &BookingHandler{
		create:       create,
		cancel:       cancel,
		reschedule:   reschedule,
		getByToken:   getByToken,
		listUpcoming: listUpcoming,
		limiter:      limiter,
		logger:       logger,
	}
}

type createBookingRequest struct {
	EventType    string     `json:"event_type"`
	StartTime    time.Time  `json:"start_time"`
	Timezone     string     `json:"timezone"`
	InviteeName  string     `json:"invitee_name"`
	InviteeEmail string     `json:"invitee_email"`
	InviteePhone string     `json:"invitee_phone"`
	Notes        string     `json:"notes"`
	TeamID       *uuid.UUID `json:"team_id"`
}

type bookingResponse struct {
	Booking        queries.BookingView `json:"booking"`
	ManageToken    string              `json:"manage_token,omitempty"`
	CalendarSynced bool                `json:"calendar_synced"`
	JoinLink       string              `json:"join_link,omitempty"`
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	allowed, err := h.limiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		// A broken limiter must not take bookings down with it.
		h.logger.Warn("rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limited", Message: "too many booking attempts, slow down"})
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: "malformed request body"})
		return
	}

	result, err := h.create.Handle(r.Context(), commands.CreateBookingCommand{
		EventTypeSlug: req.EventType,
		StartTime:     req.StartTime,
		Timezone:      req.Timezone,
		InviteeName:   req.InviteeName,
		InviteeEmail:  req.InviteeEmail,
		InviteePhone:  req.InviteePhone,
		Notes:         req.Notes,
		TeamID:        req.TeamID,
	})
	if err != nil {
		writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookingResponse{
		Booking:        queries.NewBookingView(result.Booking),
		ManageToken:    result.Booking.ManageToken().String(),
		CalendarSynced: result.CalendarSynced,
		JoinLink:       result.JoinLink,
	})
}

// GetBooking handles GET /api/v1/bookings/{token}.
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	view, err := h.getByToken.Handle(r.Context(), r.PathValue("token"))
	if err != nil {
		writeTypedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": view})
}

// CancelBooking handles POST /api/v1/bookings/{token}/cancel.
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.cancel.Handle(r.Context(), commands.CancelBookingCommand{
		ManageToken: r.PathValue("token"),
	})
	if err != nil {
		writeTypedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": queries.NewBookingView(booking)})
}

type rescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
}

// RescheduleBooking handles POST /api/v1/bookings/{token}/reschedule.
func (h *BookingHandler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: "malformed request body"})
		return
	}

	result, err := h.reschedule.Handle(r.Context(), commands.RescheduleBookingCommand{
		ManageToken:  r.PathValue("token"),
		NewStartTime: req.StartTime,
	})
	if err != nil {
		writeTypedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookingResponse{
		Booking:        queries.NewBookingView(result.Booking),
		CalendarSynced: result.CalendarSynced,
	})
}

// ListUpcoming handles GET /api/v1/bookings/upcoming?member=.
func (h *BookingHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(r.URL.Query().Get("member"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: "member must be a valid id"})
		return
	}

	views, err := h.listUpcoming.Handle(r.Context(), memberID)
	if err != nil {
		writeTypedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": views})
}
