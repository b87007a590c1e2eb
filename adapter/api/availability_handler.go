package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	schedulingApp "github.com/slotwise/slotwise/internal/scheduling/application"
	schedulingDomain "github.com/slotwise/slotwise/internal/scheduling/domain"
)

// AvailabilityHandler serves the merged availability view.
type AvailabilityHandler struct {
	eventTypes schedulingDomain.EventTypeRepository
	teams      schedulingDomain.TeamRepository
	selector   *schedulingApp.Selector
}

// NewAvailabilityHandler creates an availability handler.
func NewAvailabilityHandler(
	eventTypes schedulingDomain.EventTypeRepository,
	teams schedulingDomain.TeamRepository,
	selector *schedulingApp.Selector,
) *AvailabilityHandler {
	return &AvailabilityHandler{
		eventTypes: eventTypes,
		teams:      teams,
		selector:   selector,
	}
}

type slotResponse struct {
	Start              time.Time   `json:"start"`
	End                time.Time   `json:"end"`
	AvailableMemberIDs []uuid.UUID `json:"available_member_ids"`
}

// GetAvailability handles GET /api/v1/availability.
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	slug := query.Get("event_type")
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: "event_type is required"})
		return
	}

	timezone := query.Get("timezone")
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: "unknown timezone"})
		return
	}

	date, err := time.Parse("2006-01-02", query.Get("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: "date must be YYYY-MM-DD"})
		return
	}
	loc, _ := time.LoadLocation(timezone)
	date = time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc)

	eventType, err := h.eventTypes.FindBySlug(r.Context(), slug)
	if err != nil {
		writeTypedError(w, err)
		return
	}
	if eventType == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "unknown event type"})
		return
	}

	var teamID *uuid.UUID
	if teamSlug := query.Get("team"); teamSlug != "" {
		team, err := h.teams.FindBySlug(r.Context(), teamSlug)
		if err != nil {
			writeTypedError(w, err)
			return
		}
		if team == nil {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "unknown team"})
			return
		}
		id := team.ID()
		teamID = &id
	}

	slots, err := h.selector.CombinedAvailability(r.Context(), eventType, date, timezone, teamID)
	if err != nil {
		writeTypedError(w, err)
		return
	}

	response := make([]slotResponse, 0, len(slots))
	for _, slot := range slots {
		response = append(response, slotResponse{
			Start:              slot.Start,
			End:                slot.End,
			AvailableMemberIDs: slot.AvailableMemberIDs,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": response})
}
