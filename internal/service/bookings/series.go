package bookings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"slotline/backend/internal/domain"
)

type SeriesInput struct {
	ClientID   string
	ProviderID uuid.UUID
	ServiceID  uuid.UUID
	StartTime  time.Time
	Rule       domain.SeriesRule
	Notes      string
}

type FailedOccurrence struct {
	StartTime time.Time
	Conflicts []domain.Conflict
}

// SeriesResult reports the outcome per occurrence. Partial success is
// normal: the caller decides whether to keep what was created.
type SeriesResult struct {
	SeriesTag string
	Created   []domain.Booking
	Failed    []FailedOccurrence
}

// CreateRecurringBookings expands the rule into occurrence times and books
// each one independently under the interval lock. Every occurrence is
// attempted; one collision never aborts the rest.
func (s *Service) CreateRecurringBookings(ctx context.Context, in SeriesInput) (SeriesResult, error) {
	base := CreateInput{
		ClientID:   in.ClientID,
		ProviderID: in.ProviderID,
		ServiceID:  in.ServiceID,
		StartTime:  in.StartTime,
		Notes:      in.Notes,
	}
	if err := base.validate(); err != nil {
		return SeriesResult{}, err
	}

	occurrences, err := in.Rule.OccurrenceTimes(in.StartTime.UTC())
	if err != nil {
		return SeriesResult{}, validationError(err.Error())
	}
	if len(occurrences) > s.policy.MaxOccurrences {
		return SeriesResult{}, validationError(fmt.Sprintf("series exceeds %d occurrences", s.policy.MaxOccurrences))
	}

	seriesID, err := uuid.NewV7()
	if err != nil {
		return SeriesResult{}, err
	}
	result := SeriesResult{SeriesTag: "series:" + seriesID.String()}

	for _, occ := range occurrences {
		occIn := base
		occIn.StartTime = occ
		occIn.Notes = taggedNotes(in.Notes, result.SeriesTag)

		r, err := s.CreateBookingWithLock(ctx, occIn)
		if err != nil {
			return SeriesResult{}, fmt.Errorf("occurrence %s: %w", occ.Format(time.RFC3339), err)
		}
		if r.OK() {
			result.Created = append(result.Created, r.Booking)
		} else {
			result.Failed = append(result.Failed, FailedOccurrence{StartTime: occ, Conflicts: r.Conflicts})
		}
	}

	return result, nil
}

type GroupInput struct {
	ClientIDs       []string
	ProviderID      uuid.UUID
	ServiceID       uuid.UUID
	StartTime       time.Time
	MaxParticipants int
	Notes           string
}

type FailedParticipant struct {
	ClientID  string
	Conflicts []domain.Conflict
}

type GroupResult struct {
	GroupTag string
	Created  []domain.Booking
	Failed   []FailedParticipant
}

// CreateGroupBooking books the same slot once per participant as N
// independent bookings. Participants are not exempt from each other's
// overlap and buffer rules, so on a provider that admits a single booking
// per slot only the first participant will succeed; modeling parallel
// capacity is the caller's schedule design, not enforced here.
func (s *Service) CreateGroupBooking(ctx context.Context, in GroupInput) (GroupResult, error) {
	if len(in.ClientIDs) == 0 {
		return GroupResult{}, validationError("at least one client_id is required")
	}
	limit := s.policy.MaxGroupSize
	if in.MaxParticipants > 0 && in.MaxParticipants < limit {
		limit = in.MaxParticipants
	}
	if len(in.ClientIDs) > limit {
		return GroupResult{}, validationError(fmt.Sprintf("group exceeds %d participants", limit))
	}

	groupID, err := uuid.NewV7()
	if err != nil {
		return GroupResult{}, err
	}
	result := GroupResult{GroupTag: "group:" + groupID.String()}

	for _, clientID := range in.ClientIDs {
		r, err := s.CreateBookingWithLock(ctx, CreateInput{
			ClientID:   clientID,
			ProviderID: in.ProviderID,
			ServiceID:  in.ServiceID,
			StartTime:  in.StartTime,
			Notes:      taggedNotes(in.Notes, result.GroupTag),
		})
		if err != nil {
			return GroupResult{}, fmt.Errorf("participant %s: %w", clientID, err)
		}
		if r.OK() {
			result.Created = append(result.Created, r.Booking)
		} else {
			result.Failed = append(result.Failed, FailedParticipant{ClientID: clientID, Conflicts: r.Conflicts})
		}
	}

	return result, nil
}

type WaitlistInput struct {
	ClientID      string
	ProviderID    uuid.UUID
	ServiceID     uuid.UUID
	PreferredDate time.Time
	RangeStart    *string
	RangeEnd      *string
}

// AddToWaitlist records unmet demand. No slot validation and no lock: an
// entry is not a reservation.
func (s *Service) AddToWaitlist(ctx context.Context, in WaitlistInput) (domain.WaitlistEntry, error) {
	if strings.TrimSpace(in.ClientID) == "" {
		return domain.WaitlistEntry{}, validationError("client_id is required")
	}
	if in.ProviderID == uuid.Nil {
		return domain.WaitlistEntry{}, validationError("provider_id is required")
	}
	if in.ServiceID == uuid.Nil {
		return domain.WaitlistEntry{}, validationError("service_id is required")
	}
	if in.PreferredDate.IsZero() {
		return domain.WaitlistEntry{}, validationError("preferred_date is required")
	}
	for _, t := range []*string{in.RangeStart, in.RangeEnd} {
		if t == nil {
			continue
		}
		if _, err := domain.ParseTimeOfDay(*t); err != nil {
			return domain.WaitlistEntry{}, validationError(err.Error())
		}
	}

	return s.repo.CreateWaitlistEntry(ctx, domain.WaitlistEntry{
		ClientID:      strings.TrimSpace(in.ClientID),
		ProviderID:    in.ProviderID,
		ServiceID:     in.ServiceID,
		PreferredDate: in.PreferredDate.UTC(),
		RangeStart:    in.RangeStart,
		RangeEnd:      in.RangeEnd,
		Status:        domain.WaitlistStatusWaiting,
	})
}

func taggedNotes(notes, tag string) string {
	if strings.TrimSpace(notes) == "" {
		return tag
	}
	return notes + " " + tag
}
