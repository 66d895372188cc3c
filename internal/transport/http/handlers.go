package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"slotline/backend/internal/domain"
	"slotline/backend/internal/service/bookings"
	"slotline/backend/internal/store"
)

const dateLayout = "2006-01-02"

type bookingPayload struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	ProviderID   string     `json:"provider_id"`
	ServiceID    string     `json:"service_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Status       string     `json:"status"`
	TotalAmount  float64    `json:"total_amount"`
	Notes        string     `json:"notes,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy  *string    `json:"cancelled_by,omitempty"`
	CancelReason *string    `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toBookingPayload(b domain.Booking) bookingPayload {
	return bookingPayload{
		ID:           b.ID.String(),
		ClientID:     b.ClientID,
		ProviderID:   b.ProviderID.String(),
		ServiceID:    b.ServiceID.String(),
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Status:       string(b.Status),
		TotalAmount:  b.TotalAmount,
		Notes:        b.Notes,
		ConfirmedAt:  b.ConfirmedAt,
		CompletedAt:  b.CompletedAt,
		CancelledAt:  b.CancelledAt,
		CancelledBy:  b.CancelledBy,
		CancelReason: b.CancelReason,
		CreatedAt:    b.CreatedAt,
	}
}

func toBookingPayloads(bs []domain.Booking) []bookingPayload {
	out := make([]bookingPayload, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingPayload(b))
	}
	return out
}

type conflictPayload struct {
	Type                 string  `json:"type"`
	Message              string  `json:"message"`
	ConflictingBookingID *string `json:"conflicting_booking_id,omitempty"`
}

func toConflictPayloads(cs []domain.Conflict) []conflictPayload {
	out := make([]conflictPayload, 0, len(cs))
	for _, c := range cs {
		p := conflictPayload{Type: string(c.Type), Message: c.Message}
		if c.ConflictingBooking != nil {
			id := c.ConflictingBooking.ID.String()
			p.ConflictingBookingID = &id
		}
		out = append(out, p)
	}
	return out
}

type slotPayload struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func toSlotPayloads(slots []domain.TimeSlot) []slotPayload {
	out := make([]slotPayload, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotPayload{Start: s.Start, End: s.End})
	}
	return out
}

type validateSlotRequest struct {
	ProviderID string    `json:"provider_id"`
	ServiceID  string    `json:"service_id"`
	StartTime  time.Time `json:"start_time"`
}

func (s *Server) handleValidateSlot(w http.ResponseWriter, r *http.Request) {
	var req validateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	providerID, serviceID, ok := s.parseIDs(w, req.ProviderID, req.ServiceID)
	if !ok {
		return
	}

	result, err := s.svc.ValidateSlot(r.Context(), providerID, serviceID, req.StartTime)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"valid":     result.Valid,
		"conflicts": toConflictPayloads(result.Conflicts),
	})
}

type createBookingRequest struct {
	ClientID   string    `json:"client_id"`
	ProviderID string    `json:"provider_id"`
	ServiceID  string    `json:"service_id"`
	StartTime  time.Time `json:"start_time"`
	Notes      string    `json:"notes"`
	Unlocked   bool      `json:"unlocked"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	providerID, serviceID, ok := s.parseIDs(w, req.ProviderID, req.ServiceID)
	if !ok {
		return
	}

	in := bookings.CreateInput{
		ClientID:   req.ClientID,
		ProviderID: providerID,
		ServiceID:  serviceID,
		StartTime:  req.StartTime,
		Notes:      req.Notes,
	}

	create := s.svc.CreateBookingWithLock
	if req.Unlocked {
		create = s.svc.CreateBooking
	}
	result, err := create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !result.OK() {
		// Offer alternatives alongside the rejection; suggestion errors
		// must not mask the conflict response.
		suggested, serr := s.svc.SuggestedSlots(r.Context(), providerID, serviceID, req.StartTime)
		if serr != nil {
			s.log.Warn("suggested slots failed", slog.Any("err", serr))
			suggested = nil
		}
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"success":         false,
			"conflicts":       toConflictPayloads(result.Conflicts),
			"suggested_slots": toSlotPayloads(suggested),
		})
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"booking": toBookingPayload(result.Booking),
	})
}

type updateBookingRequest struct {
	StartTime *time.Time `json:"start_time"`
	Notes     *string    `json:"notes"`
}

func (s *Server) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := s.parsePathID(w, r, "id")
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.svc.UpdateBooking(r.Context(), bookingID, bookings.UpdateInput{
		StartTime: req.StartTime,
		Notes:     req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !result.OK() {
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"success":   false,
			"conflicts": toConflictPayloads(result.Conflicts),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"booking": toBookingPayload(result.Booking),
	})
}

type updateStateRequest struct {
	Status    string `json:"status"`
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
	Reason    string `json:"reason"`
}

func (s *Server) handleUpdateBookingState(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := s.parsePathID(w, r, "id")
	if !ok {
		return
	}
	var req updateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}

	actor := domain.Actor{ID: req.ActorID, Role: domain.ActorRole(req.ActorRole)}
	result, err := s.svc.UpdateBookingState(r.Context(), bookingID, domain.BookingStatus(req.Status), actor, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !result.OK() {
		rejections := make([]map[string]string, 0, len(result.Rejections))
		for _, rej := range result.Rejections {
			rejections = append(rejections, map[string]string{
				"code":    string(rej.Code),
				"message": rej.Message,
			})
		}
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"success":    false,
			"rejections": rejections,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"booking": toBookingPayload(result.Booking),
	})
}

func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	providerID, ok := s.parsePathID(w, r, "id")
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(r.URL.Query().Get("service_id"))
	if err != nil {
		s.writeBadRequest(w, "valid service_id query parameter is required")
		return
	}
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		s.writeBadRequest(w, "date query parameter must be YYYY-MM-DD")
		return
	}

	slots, err := s.svc.AvailableSlots(r.Context(), providerID, serviceID, date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.Format(dateLayout),
		"slots": toSlotPayloads(slots),
	})
}

func (s *Server) handleSuggestedSlots(w http.ResponseWriter, r *http.Request) {
	providerID, ok := s.parsePathID(w, r, "id")
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(r.URL.Query().Get("service_id"))
	if err != nil {
		s.writeBadRequest(w, "valid service_id query parameter is required")
		return
	}
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		s.writeBadRequest(w, "date query parameter must be YYYY-MM-DD")
		return
	}

	slots, err := s.svc.SuggestedSlots(r.Context(), providerID, serviceID, date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"slots": toSlotPayloads(slots)})
}

type createRecurringRequest struct {
	ClientID    string     `json:"client_id"`
	ProviderID  string     `json:"provider_id"`
	ServiceID   string     `json:"service_id"`
	StartTime   time.Time  `json:"start_time"`
	Frequency   string     `json:"frequency"`
	Occurrences int        `json:"occurrences"`
	EndDate     *time.Time `json:"end_date"`
	Notes       string     `json:"notes"`
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	providerID, serviceID, ok := s.parseIDs(w, req.ProviderID, req.ServiceID)
	if !ok {
		return
	}

	result, err := s.svc.CreateRecurringBookings(r.Context(), bookings.SeriesInput{
		ClientID:   req.ClientID,
		ProviderID: providerID,
		ServiceID:  serviceID,
		StartTime:  req.StartTime,
		Rule: domain.SeriesRule{
			Frequency:   domain.SeriesFrequency(req.Frequency),
			Occurrences: req.Occurrences,
			EndDate:     req.EndDate,
		},
		Notes: req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	failed := make([]map[string]any, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, map[string]any{
			"start_time": f.StartTime,
			"conflicts":  toConflictPayloads(f.Conflicts),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"series_tag": result.SeriesTag,
		"created":    toBookingPayloads(result.Created),
		"failed":     failed,
	})
}

type createGroupRequest struct {
	ClientIDs       []string  `json:"client_ids"`
	ProviderID      string    `json:"provider_id"`
	ServiceID       string    `json:"service_id"`
	StartTime       time.Time `json:"start_time"`
	MaxParticipants int       `json:"max_participants"`
	Notes           string    `json:"notes"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	providerID, serviceID, ok := s.parseIDs(w, req.ProviderID, req.ServiceID)
	if !ok {
		return
	}

	result, err := s.svc.CreateGroupBooking(r.Context(), bookings.GroupInput{
		ClientIDs:       req.ClientIDs,
		ProviderID:      providerID,
		ServiceID:       serviceID,
		StartTime:       req.StartTime,
		MaxParticipants: req.MaxParticipants,
		Notes:           req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	failed := make([]map[string]any, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, map[string]any{
			"client_id": f.ClientID,
			"conflicts": toConflictPayloads(f.Conflicts),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"group_tag": result.GroupTag,
		"created":   toBookingPayloads(result.Created),
		"failed":    failed,
	})
}

type addToWaitlistRequest struct {
	ClientID      string  `json:"client_id"`
	ProviderID    string  `json:"provider_id"`
	ServiceID     string  `json:"service_id"`
	PreferredDate string  `json:"preferred_date"`
	RangeStart    *string `json:"range_start"`
	RangeEnd      *string `json:"range_end"`
}

func (s *Server) handleAddToWaitlist(w http.ResponseWriter, r *http.Request) {
	var req addToWaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	providerID, serviceID, ok := s.parseIDs(w, req.ProviderID, req.ServiceID)
	if !ok {
		return
	}
	preferredDate, err := time.Parse(dateLayout, req.PreferredDate)
	if err != nil {
		s.writeBadRequest(w, "preferred_date must be YYYY-MM-DD")
		return
	}

	entry, err := s.svc.AddToWaitlist(r.Context(), bookings.WaitlistInput{
		ClientID:      req.ClientID,
		ProviderID:    providerID,
		ServiceID:     serviceID,
		PreferredDate: preferredDate,
		RangeStart:    req.RangeStart,
		RangeEnd:      req.RangeEnd,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"id":             entry.ID.String(),
		"client_id":      entry.ClientID,
		"provider_id":    entry.ProviderID.String(),
		"service_id":     entry.ServiceID.String(),
		"preferred_date": entry.PreferredDate.Format(dateLayout),
		"status":         string(entry.Status),
	})
}

func (s *Server) parseIDs(w http.ResponseWriter, providerID, serviceID string) (uuid.UUID, uuid.UUID, bool) {
	pid, err := uuid.Parse(providerID)
	if err != nil {
		s.writeBadRequest(w, "valid provider_id is required")
		return uuid.Nil, uuid.Nil, false
	}
	sid, err := uuid.Parse(serviceID)
	if err != nil {
		s.writeBadRequest(w, "valid service_id is required")
		return uuid.Nil, uuid.Nil, false
	}
	return pid, sid, true
}

func (s *Server) parsePathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		s.writeBadRequest(w, "valid "+name+" path parameter is required")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("response encode failed", slog.Any("err", err))
	}
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg})
}

// writeError maps infrastructure failures: caller mistakes to 400, missing
// records to 404, everything else to 500. Domain rejections never reach
// here; they travel as structured results.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *bookings.ValidationError
	if errors.As(err, &vErr) {
		s.writeBadRequest(w, vErr.Error())
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	s.log.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("err", err),
	)
	s.writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}
