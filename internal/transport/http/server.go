package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"slotline/backend/internal/domain"
	"slotline/backend/internal/service/bookings"
)

// bookingService is the slice of the booking engine the transport consumes.
type bookingService interface {
	ValidateSlot(ctx context.Context, providerID, serviceID uuid.UUID, start time.Time) (domain.ValidationResult, error)
	AvailableSlots(ctx context.Context, providerID, serviceID uuid.UUID, date time.Time) ([]domain.TimeSlot, error)
	SuggestedSlots(ctx context.Context, providerID, serviceID uuid.UUID, preferredDate time.Time) ([]domain.TimeSlot, error)
	CreateBooking(ctx context.Context, in bookings.CreateInput) (bookings.BookingResult, error)
	CreateBookingWithLock(ctx context.Context, in bookings.CreateInput) (bookings.BookingResult, error)
	UpdateBooking(ctx context.Context, bookingID uuid.UUID, in bookings.UpdateInput) (bookings.BookingResult, error)
	UpdateBookingState(ctx context.Context, bookingID uuid.UUID, target domain.BookingStatus, actor domain.Actor, reason string) (bookings.StateResult, error)
	CreateRecurringBookings(ctx context.Context, in bookings.SeriesInput) (bookings.SeriesResult, error)
	CreateGroupBooking(ctx context.Context, in bookings.GroupInput) (bookings.GroupResult, error)
	AddToWaitlist(ctx context.Context, in bookings.WaitlistInput) (domain.WaitlistEntry, error)
}

type Server struct {
	svc     bookingService
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics *requestMetrics
}

func NewServer(svc bookingService, log *slog.Logger, reg *prometheus.Registry) *Server {
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{
		svc:     svc,
		log:     log.With(slog.String("component", "http")),
		reg:     reg,
		metrics: newRequestMetrics(reg),
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.measureRequests)

	r.HandleFunc("/v1/bookings/validate", s.handleValidateSlot).Methods(http.MethodPost)
	r.HandleFunc("/v1/bookings/recurring", s.handleCreateRecurring).Methods(http.MethodPost)
	r.HandleFunc("/v1/bookings/group", s.handleCreateGroup).Methods(http.MethodPost)
	r.HandleFunc("/v1/bookings", s.handleCreateBooking).Methods(http.MethodPost)
	r.HandleFunc("/v1/bookings/{id}", s.handleUpdateBooking).Methods(http.MethodPatch)
	r.HandleFunc("/v1/bookings/{id}/status", s.handleUpdateBookingState).Methods(http.MethodPost)
	r.HandleFunc("/v1/providers/{id}/slots", s.handleAvailableSlots).Methods(http.MethodGet)
	r.HandleFunc("/v1/providers/{id}/slots/suggestions", s.handleSuggestedSlots).Methods(http.MethodGet)
	r.HandleFunc("/v1/waitlist", s.handleAddToWaitlist).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}
