package bookings

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"slotline/backend/internal/domain"
)

type RejectionCode string

const (
	RejectionInvalidTransition  RejectionCode = "invalid_transition"
	RejectionRoleNotAllowed     RejectionCode = "role_not_allowed"
	RejectionNotStarted         RejectionCode = "not_started"
	RejectionAlreadyStarted     RejectionCode = "already_started"
	RejectionTooFarFromEnd      RejectionCode = "too_far_from_end"
	RejectionCancellationWindow RejectionCode = "cancellation_window"
)

// Rejection is the structured reason a state change was refused. Like slot
// conflicts, these are expected outcomes for the caller to render, not
// errors.
type Rejection struct {
	Code    RejectionCode
	Message string
}

type StateResult struct {
	Booking    domain.Booking
	Rejections []Rejection
}

func (r StateResult) OK() bool {
	return len(r.Rejections) == 0
}

func rejected(code RejectionCode, format string, args ...any) StateResult {
	return StateResult{Rejections: []Rejection{{Code: code, Message: fmt.Sprintf(format, args...)}}}
}

// UpdateBookingState validates and applies a status transition: the
// transition table first, then the actor's role relative to the booking,
// then the per-target time guards. On success the matching audit timestamp
// is set and reminder cleanup is delegated to the notifier.
func (s *Service) UpdateBookingState(ctx context.Context, bookingID uuid.UUID, target domain.BookingStatus, actor domain.Actor, reason string) (StateResult, error) {
	if bookingID == uuid.Nil {
		return StateResult{}, validationError("booking_id is required")
	}
	if strings.TrimSpace(actor.ID) == "" {
		return StateResult{}, validationError("actor_id is required")
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return StateResult{}, err
	}

	transition, ok := s.policy.Transitions[target]
	if !ok || !slices.Contains(transition.From, booking.Status) {
		return rejected(RejectionInvalidTransition, "cannot move a %s booking to %s", booking.Status, target), nil
	}

	role, ok := s.resolveRole(booking, actor)
	if !ok || !slices.Contains(transition.Roles, role) {
		return rejected(RejectionRoleNotAllowed, "%s is not allowed to set status %s", actor.Role, target), nil
	}

	now := s.now()
	if r, ok := s.guardTransition(booking, target, role, now); !ok {
		return r, nil
	}

	booking.Status = target
	switch target {
	case domain.BookingStatusConfirmed:
		booking.ConfirmedAt = &now
	case domain.BookingStatusCompleted:
		booking.CompletedAt = &now
	case domain.BookingStatusCancelled, domain.BookingStatusNoShow:
		booking.CancelledAt = &now
		booking.CancelledBy = &actor.ID
		if trimmed := strings.TrimSpace(reason); trimmed != "" {
			booking.CancelReason = &trimmed
		}
	}

	updated, err := s.repo.UpdateBooking(ctx, booking)
	if err != nil {
		return StateResult{}, err
	}

	if target == domain.BookingStatusCancelled || target == domain.BookingStatusCompleted || target == domain.BookingStatusNoShow {
		s.notifier.CancelReminders(ctx, updated)
	}

	s.log.Info("booking state changed",
		slog.String("booking_id", updated.ID.String()),
		slog.String("status", string(target)),
		slog.String("actor_role", string(role)),
	)
	return StateResult{Booking: updated}, nil
}

// resolveRole checks that the actor's claimed role actually relates to this
// booking: clients must own it, providers must be its provider. Admin is
// trusted as-is.
func (s *Service) resolveRole(booking domain.Booking, actor domain.Actor) (domain.ActorRole, bool) {
	switch actor.Role {
	case domain.ActorRoleAdmin:
		return domain.ActorRoleAdmin, true
	case domain.ActorRoleClient:
		return domain.ActorRoleClient, actor.ID == booking.ClientID
	case domain.ActorRoleProvider:
		return domain.ActorRoleProvider, actor.ID == booking.ProviderID.String()
	default:
		return "", false
	}
}

func (s *Service) guardTransition(booking domain.Booking, target domain.BookingStatus, role domain.ActorRole, now time.Time) (StateResult, bool) {
	switch target {
	case domain.BookingStatusConfirmed:
		if !booking.StartTime.After(now) {
			return rejected(RejectionAlreadyStarted, "booking already started, cannot confirm"), false
		}
	case domain.BookingStatusCompleted:
		if booking.StartTime.After(now) {
			return rejected(RejectionNotStarted, "booking has not started, cannot complete"), false
		}
		if booking.EndTime.Sub(now) > s.policy.CompletionGrace {
			return rejected(RejectionTooFarFromEnd, "booking can only be completed within %d minutes of its end", int(s.policy.CompletionGrace.Minutes())), false
		}
	case domain.BookingStatusCancelled:
		// Providers and admins may cancel late; the window binds clients only.
		if role == domain.ActorRoleClient && booking.StartTime.Sub(now) < s.policy.CancellationWindow {
			return rejected(RejectionCancellationWindow, "bookings must be cancelled at least %d hours in advance", int(s.policy.CancellationWindow.Hours())), false
		}
	}
	return StateResult{}, true
}
