package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"slotline/backend/internal/domain"
	"slotline/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Service is the booking engine: slot validation and enumeration, race-safe
// reservation, lifecycle transitions, and the series/group/waitlist
// orchestrations on top of them.
type Service struct {
	repo     store.BookingRepository
	notifier Notifier
	policy   Policy
	now      func() time.Time
	log      *slog.Logger
}

func NewService(repo store.BookingRepository, notifier Notifier, policy Policy, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if policy.Transitions == nil {
		policy.Transitions = DefaultTransitions()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		policy:   policy,
		now:      time.Now,
		log:      log.With(slog.String("component", "bookings")),
	}
}

// BookingResult is the structured outcome of a create or reschedule. A
// non-empty conflict list means the request was rejected without mutation.
type BookingResult struct {
	Booking   domain.Booking
	Conflicts []domain.Conflict
}

func (r BookingResult) OK() bool {
	return len(r.Conflicts) == 0
}

func conflictResult(conflicts []domain.Conflict) BookingResult {
	return BookingResult{Conflicts: conflicts}
}

// ValidateSlot runs the full conflict diagnosis for a candidate start time.
// All three rule families (working hours, breaks, overlap/buffer) are
// evaluated unconditionally so the caller sees every violated rule.
func (s *Service) ValidateSlot(ctx context.Context, providerID, serviceID uuid.UUID, start time.Time) (domain.ValidationResult, error) {
	return s.validateSlot(ctx, providerID, serviceID, start, uuid.Nil)
}

func (s *Service) validateSlot(ctx context.Context, providerID, serviceID uuid.UUID, start time.Time, excludeID uuid.UUID) (domain.ValidationResult, error) {
	provider, svc, err := s.lookupProviderService(ctx, providerID, serviceID)
	if err != nil {
		return domain.ValidationResult{}, err
	}

	end := start.Add(svc.Duration())
	buffer := s.policy.bufferFor(provider)

	existing, err := s.repo.ListOverlapping(ctx, providerID, start.Add(-buffer), end.Add(buffer), excludeID)
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("list overlapping bookings: %w", err)
	}

	conflicts, err := checkCandidate(provider, buffer, start, end, existing)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return domain.ValidationResult{Valid: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// checkCandidate is the pure conflict checker. existing must already be
// filtered to the provider's active bookings near [start, end); the buffer
// expansion is applied here, so callers should query with the interval
// widened by buffer on both ends.
func checkCandidate(provider domain.Provider, buffer time.Duration, start, end time.Time, existing []domain.Booking) ([]domain.Conflict, error) {
	loc, err := provider.Location()
	if err != nil {
		return nil, fmt.Errorf("provider timezone: %w", err)
	}

	var conflicts []domain.Conflict

	localStart := start.In(loc)
	day := provider.Schedule.For(localStart.Weekday())
	if !day.Open {
		conflicts = append(conflicts, domain.Conflict{
			Type:    domain.ConflictOutsideHours,
			Message: fmt.Sprintf("provider is closed on %s", domain.WeekdayName(localStart.Weekday())),
		})
	} else {
		open, err := domain.ParseTimeOfDay(day.OpenTime)
		if err != nil {
			return nil, fmt.Errorf("provider schedule: %w", err)
		}
		clos, err := domain.ParseTimeOfDay(day.CloseTime)
		if err != nil {
			return nil, fmt.Errorf("provider schedule: %w", err)
		}

		openAt := open.On(localStart, loc)
		closeAt := clos.On(localStart, loc)
		if start.Before(openAt) || end.After(closeAt) {
			conflicts = append(conflicts, domain.Conflict{
				Type:    domain.ConflictOutsideHours,
				Message: fmt.Sprintf("requested time is outside working hours %s-%s", open, clos),
			})
		}

		for _, br := range day.Breaks {
			brStart, err := domain.ParseTimeOfDay(br.Start)
			if err != nil {
				return nil, fmt.Errorf("provider schedule: %w", err)
			}
			brEnd, err := domain.ParseTimeOfDay(br.End)
			if err != nil {
				return nil, fmt.Errorf("provider schedule: %w", err)
			}
			if domain.Overlaps(start, end, brStart.On(localStart, loc), brEnd.On(localStart, loc)) {
				conflicts = append(conflicts, domain.Conflict{
					Type:    domain.ConflictBreakTime,
					Message: fmt.Sprintf("requested time falls in the %s-%s break", brStart, brEnd),
				})
			}
		}
	}

	for i := range existing {
		b := existing[i]
		if !b.Active() {
			continue
		}
		if domain.Overlaps(start, end, b.StartTime, b.EndTime) {
			conflicts = append(conflicts, domain.Conflict{
				Type:               domain.ConflictOverlap,
				Message:            "requested time overlaps an existing booking",
				ConflictingBooking: &b,
			})
			continue
		}
		if domain.Overlaps(start, end, b.StartTime.Add(-buffer), b.EndTime.Add(buffer)) {
			conflicts = append(conflicts, domain.Conflict{
				Type:               domain.ConflictBufferViolation,
				Message:            fmt.Sprintf("%d minutes are required between bookings", int(buffer.Minutes())),
				ConflictingBooking: &b,
			})
		}
	}

	return conflicts, nil
}

type CreateInput struct {
	ClientID   string
	ProviderID uuid.UUID
	ServiceID  uuid.UUID
	StartTime  time.Time
	Notes      string
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.ClientID) == "" {
		return validationError("client_id is required")
	}
	if in.ProviderID == uuid.Nil {
		return validationError("provider_id is required")
	}
	if in.ServiceID == uuid.Nil {
		return validationError("service_id is required")
	}
	if in.StartTime.IsZero() {
		return validationError("start_time is required")
	}
	return nil
}

// CreateBooking validates the slot and inserts the booking without any
// cross-request exclusion. Two racing requests can both pass the check;
// callers that may race must use CreateBookingWithLock.
func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (BookingResult, error) {
	if err := in.validate(); err != nil {
		return BookingResult{}, err
	}

	provider, svc, err := s.lookupProviderService(ctx, in.ProviderID, in.ServiceID)
	if err != nil {
		return BookingResult{}, err
	}

	start := in.StartTime.UTC()
	end := start.Add(svc.Duration())
	buffer := s.policy.bufferFor(provider)

	existing, err := s.repo.ListOverlapping(ctx, in.ProviderID, start.Add(-buffer), end.Add(buffer), uuid.Nil)
	if err != nil {
		return BookingResult{}, fmt.Errorf("list overlapping bookings: %w", err)
	}
	conflicts, err := checkCandidate(provider, buffer, start, end, existing)
	if err != nil {
		return BookingResult{}, err
	}
	if len(conflicts) > 0 {
		return conflictResult(conflicts), nil
	}

	created, err := s.repo.CreateBooking(ctx, s.newBooking(in, svc, start, end))
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return conflictResult(overlapLost()), nil
		}
		return BookingResult{}, err
	}

	s.notifier.ScheduleReminders(ctx, created)
	return BookingResult{Booking: created}, nil
}

// CreateBookingWithLock is the race-safe variant: after an optimistic
// pre-check it re-runs the conflict checker inside an exclusive lock scoped
// to the provider and the buffer-widened interval, and only then inserts.
// The pre-check alone is a classic check-then-act race.
func (s *Service) CreateBookingWithLock(ctx context.Context, in CreateInput) (BookingResult, error) {
	if err := in.validate(); err != nil {
		return BookingResult{}, err
	}

	provider, svc, err := s.lookupProviderService(ctx, in.ProviderID, in.ServiceID)
	if err != nil {
		return BookingResult{}, err
	}

	start := in.StartTime.UTC()
	end := start.Add(svc.Duration())
	buffer := s.policy.bufferFor(provider)

	// Optimistic pre-check, lock-free. Rejects the common case without
	// contending for the interval lock.
	existing, err := s.repo.ListOverlapping(ctx, in.ProviderID, start.Add(-buffer), end.Add(buffer), uuid.Nil)
	if err != nil {
		return BookingResult{}, fmt.Errorf("list overlapping bookings: %w", err)
	}
	conflicts, err := checkCandidate(provider, buffer, start, end, existing)
	if err != nil {
		return BookingResult{}, err
	}
	if len(conflicts) > 0 {
		return conflictResult(conflicts), nil
	}

	var result BookingResult
	err = s.repo.InProviderIntervalLock(ctx, in.ProviderID, start.Add(-buffer), end.Add(buffer), func(ctx context.Context, tx store.BookingTx) error {
		current, err := tx.ListOverlapping(ctx, in.ProviderID, start.Add(-buffer), end.Add(buffer), uuid.Nil)
		if err != nil {
			return fmt.Errorf("list overlapping bookings: %w", err)
		}
		conflicts, err := checkCandidate(provider, buffer, start, end, current)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			result = conflictResult(conflicts)
			return nil
		}

		created, err := tx.CreateBooking(ctx, s.newBooking(in, svc, start, end))
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				result = conflictResult(overlapLost())
				return nil
			}
			return err
		}
		result = BookingResult{Booking: created}
		return nil
	})
	if err != nil {
		return BookingResult{}, err
	}

	if result.OK() {
		s.notifier.ScheduleReminders(ctx, result.Booking)
	}
	return result, nil
}

type UpdateInput struct {
	StartTime *time.Time
	Notes     *string
}

// UpdateBooking applies a partial update. A start-time change is a
// reschedule: the new interval is re-validated under the interval lock with
// the booking excluded, so it cannot conflict with itself.
func (s *Service) UpdateBooking(ctx context.Context, bookingID uuid.UUID, in UpdateInput) (BookingResult, error) {
	if bookingID == uuid.Nil {
		return BookingResult{}, validationError("booking_id is required")
	}
	if in.StartTime == nil && in.Notes == nil {
		return BookingResult{}, validationError("nothing to update")
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return BookingResult{}, err
	}
	if !booking.Active() {
		return BookingResult{}, validationError(fmt.Sprintf("booking in status %s cannot be updated", booking.Status))
	}

	if in.Notes != nil {
		booking.Notes = *in.Notes
	}

	if in.StartTime == nil {
		updated, err := s.repo.UpdateBooking(ctx, booking)
		if err != nil {
			return BookingResult{}, err
		}
		return BookingResult{Booking: updated}, nil
	}

	provider, svc, err := s.lookupProviderService(ctx, booking.ProviderID, booking.ServiceID)
	if err != nil {
		return BookingResult{}, err
	}

	start := in.StartTime.UTC()
	end := start.Add(svc.Duration())
	buffer := s.policy.bufferFor(provider)

	var result BookingResult
	err = s.repo.InProviderIntervalLock(ctx, booking.ProviderID, start.Add(-buffer), end.Add(buffer), func(ctx context.Context, tx store.BookingTx) error {
		current, err := tx.ListOverlapping(ctx, booking.ProviderID, start.Add(-buffer), end.Add(buffer), booking.ID)
		if err != nil {
			return fmt.Errorf("list overlapping bookings: %w", err)
		}
		conflicts, err := checkCandidate(provider, buffer, start, end, current)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			result = conflictResult(conflicts)
			return nil
		}

		booking.StartTime = start
		booking.EndTime = end
		updated, err := tx.UpdateBooking(ctx, booking)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				result = conflictResult(overlapLost())
				return nil
			}
			return err
		}
		result = BookingResult{Booking: updated}
		return nil
	})
	if err != nil {
		return BookingResult{}, err
	}
	return result, nil
}

func (s *Service) newBooking(in CreateInput, svc domain.Service, start, end time.Time) domain.Booking {
	return domain.Booking{
		ClientID:    strings.TrimSpace(in.ClientID),
		ProviderID:  in.ProviderID,
		ServiceID:   in.ServiceID,
		StartTime:   start,
		EndTime:     end,
		Status:      domain.BookingStatusPending,
		TotalAmount: svc.Price,
		Notes:       in.Notes,
	}
}

func (s *Service) lookupProviderService(ctx context.Context, providerID, serviceID uuid.UUID) (domain.Provider, domain.Service, error) {
	provider, err := s.repo.GetProvider(ctx, providerID)
	if err != nil {
		return domain.Provider{}, domain.Service{}, fmt.Errorf("provider %s: %w", providerID, err)
	}
	svc, err := s.repo.GetService(ctx, serviceID)
	if err != nil {
		return domain.Provider{}, domain.Service{}, fmt.Errorf("service %s: %w", serviceID, err)
	}
	if svc.ProviderID != providerID {
		return domain.Provider{}, domain.Service{}, fmt.Errorf("service %s: %w", serviceID, store.ErrNotFound)
	}
	return provider, svc, nil
}

// overlapLost covers the rare case where the DB exclusion constraint fires
// despite the checks, e.g. a write that bypassed the interval lock.
func overlapLost() []domain.Conflict {
	return []domain.Conflict{{
		Type:    domain.ConflictOverlap,
		Message: "the slot was taken by a concurrent booking",
	}}
}
