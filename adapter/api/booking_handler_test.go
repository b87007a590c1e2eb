package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, error) { return false, nil }

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) { return false, assert.AnError }

func TestBookingHandler_CreateBooking_RateLimit(t *testing.T) {
	t.Run("over the limit", func(t *testing.T) {
		handler := NewBookingHandler(nil, nil, nil, nil, nil, denyLimiter{}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{}"))
		handler.CreateBooking(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "rate_limited")
	})

	t.Run("broken limiter fails open on malformed body", func(t *testing.T) {
		handler := NewBookingHandler(nil, nil, nil, nil, nil, brokenLimiter{}, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("not json"))
		handler.CreateBooking(rec, req)

		// The limiter error is swallowed; the request proceeds to validation.
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBookingHandler_CreateBooking_MalformedBody(t *testing.T) {
	handler := NewBookingHandler(nil, nil, nil, nil, nil, AllowAllLimiter{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{invalid"))
	handler.CreateBooking(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestBookingHandler_RescheduleBooking_MalformedBody(t *testing.T) {
	handler := NewBookingHandler(nil, nil, nil, nil, nil, AllowAllLimiter{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/tok/reschedule", strings.NewReader("{invalid"))
	handler.RescheduleBooking(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandler_ListUpcoming_InvalidMember(t *testing.T) {
	handler := NewBookingHandler(nil, nil, nil, nil, nil, AllowAllLimiter{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/upcoming?member=not-a-uuid", nil)
	handler.ListUpcoming(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}
