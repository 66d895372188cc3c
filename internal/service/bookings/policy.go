package bookings

import (
	"time"

	"slotline/backend/internal/domain"
)

// Transition describes who may move a booking into a target status, and
// from which source statuses.
type Transition struct {
	From  []domain.BookingStatus
	Roles []domain.ActorRole
}

// Policy collects the deployment-tunable booking rules. Everything here has
// a default; tests and deployments override single fields as needed.
type Policy struct {
	BufferMinutes      int
	SlotStepMinutes    int
	CancellationWindow time.Duration
	CompletionGrace    time.Duration
	SuggestionDays     int
	SuggestionsPerDay  int
	MaxSuggestions     int
	MaxGroupSize       int
	MaxOccurrences     int
	Transitions        map[domain.BookingStatus]Transition
}

func DefaultPolicy() Policy {
	return Policy{
		BufferMinutes:      15,
		SlotStepMinutes:    15,
		CancellationWindow: 24 * time.Hour,
		CompletionGrace:    30 * time.Minute,
		SuggestionDays:     7,
		SuggestionsPerDay:  3,
		MaxSuggestions:     10,
		MaxGroupSize:       10,
		MaxOccurrences:     52,
		Transitions:        DefaultTransitions(),
	}
}

// DefaultTransitions is the booking state machine: no transition leads back
// to pending, and terminal states have no exits.
func DefaultTransitions() map[domain.BookingStatus]Transition {
	return map[domain.BookingStatus]Transition{
		domain.BookingStatusConfirmed: {
			From:  []domain.BookingStatus{domain.BookingStatusPending},
			Roles: []domain.ActorRole{domain.ActorRoleProvider, domain.ActorRoleAdmin},
		},
		domain.BookingStatusCompleted: {
			From:  []domain.BookingStatus{domain.BookingStatusConfirmed},
			Roles: []domain.ActorRole{domain.ActorRoleProvider, domain.ActorRoleAdmin},
		},
		domain.BookingStatusCancelled: {
			From:  []domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusConfirmed},
			Roles: []domain.ActorRole{domain.ActorRoleClient, domain.ActorRoleProvider, domain.ActorRoleAdmin},
		},
		domain.BookingStatusNoShow: {
			From:  []domain.BookingStatus{domain.BookingStatusConfirmed},
			Roles: []domain.ActorRole{domain.ActorRoleProvider, domain.ActorRoleAdmin},
		},
	}
}

func (p Policy) buffer() time.Duration {
	return time.Duration(p.BufferMinutes) * time.Minute
}

func (p Policy) slotStep() time.Duration {
	return time.Duration(p.SlotStepMinutes) * time.Minute
}

// bufferFor resolves the effective buffer for a provider, preferring the
// provider's own override.
func (p Policy) bufferFor(provider domain.Provider) time.Duration {
	if provider.BufferMinutes != nil {
		return time.Duration(*provider.BufferMinutes) * time.Minute
	}
	return p.buffer()
}
