package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"slotline/backend/internal/domain"
)

// AvailableSlots enumerates the bookable intervals for one provider-local
// calendar day, stepping from opening time in fixed increments. It shares
// the checker's interval predicate but queries the day's bookings once
// instead of revalidating every candidate through ValidateSlot; a slot it
// returns always passes ValidateSlot for the same arguments.
func (s *Service) AvailableSlots(ctx context.Context, providerID, serviceID uuid.UUID, date time.Time) ([]domain.TimeSlot, error) {
	provider, svc, err := s.lookupProviderService(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	loc, err := provider.Location()
	if err != nil {
		return nil, fmt.Errorf("provider timezone: %w", err)
	}

	// date carries a calendar date: its year/month/day are taken as-is in
	// the provider's timezone. Noon keeps DST shifts away from the anchor.
	y, m, d := date.Date()
	localDay := time.Date(y, m, d, 12, 0, 0, 0, loc)
	day := provider.Schedule.For(localDay.Weekday())
	if !day.Open {
		return []domain.TimeSlot{}, nil
	}

	open, err := domain.ParseTimeOfDay(day.OpenTime)
	if err != nil {
		return nil, fmt.Errorf("provider schedule: %w", err)
	}
	clos, err := domain.ParseTimeOfDay(day.CloseTime)
	if err != nil {
		return nil, fmt.Errorf("provider schedule: %w", err)
	}
	openAt := open.On(localDay, loc)
	closeAt := clos.On(localDay, loc)

	type span struct{ start, end time.Time }
	blocks := make([]span, 0, len(day.Breaks))
	for _, br := range day.Breaks {
		brStart, err := domain.ParseTimeOfDay(br.Start)
		if err != nil {
			return nil, fmt.Errorf("provider schedule: %w", err)
		}
		brEnd, err := domain.ParseTimeOfDay(br.End)
		if err != nil {
			return nil, fmt.Errorf("provider schedule: %w", err)
		}
		blocks = append(blocks, span{start: brStart.On(localDay, loc), end: brEnd.On(localDay, loc)})
	}

	buffer := s.policy.bufferFor(provider)
	existing, err := s.repo.ListOverlapping(ctx, providerID, openAt.Add(-buffer), closeAt.Add(buffer), uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}
	for _, b := range existing {
		if !b.Active() {
			continue
		}
		// An interval clear of the buffer-expanded booking is clear of the
		// raw booking too, so one expanded span covers both checks.
		blocks = append(blocks, span{start: b.StartTime.Add(-buffer), end: b.EndTime.Add(buffer)})
	}

	out := make([]domain.TimeSlot, 0)
	duration := svc.Duration()
	for cursor := openAt; ; cursor = cursor.Add(s.policy.slotStep()) {
		end := cursor.Add(duration)
		if end.Add(buffer).After(closeAt) {
			break
		}

		free := true
		for _, bl := range blocks {
			if domain.Overlaps(cursor, end, bl.start, bl.end) {
				free = false
				break
			}
		}
		if free {
			out = append(out, domain.TimeSlot{Start: cursor, End: end})
		}
	}

	return out, nil
}

// SuggestedSlots probes successive days starting at preferredDate, keeping
// at most SuggestionsPerDay slots per day, until MaxSuggestions slots are
// collected or SuggestionDays days are exhausted.
func (s *Service) SuggestedSlots(ctx context.Context, providerID, serviceID uuid.UUID, preferredDate time.Time) ([]domain.TimeSlot, error) {
	out := make([]domain.TimeSlot, 0, s.policy.MaxSuggestions)

	for offset := 0; offset < s.policy.SuggestionDays; offset++ {
		slots, err := s.AvailableSlots(ctx, providerID, serviceID, preferredDate.AddDate(0, 0, offset))
		if err != nil {
			return nil, err
		}
		for i, slot := range slots {
			if i >= s.policy.SuggestionsPerDay {
				break
			}
			out = append(out, slot)
			if len(out) >= s.policy.MaxSuggestions {
				return out, nil
			}
		}
	}

	return out, nil
}
