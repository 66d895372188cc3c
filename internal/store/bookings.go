package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"slotline/backend/internal/domain"
)

// BookingRepository is the storage contract the booking engine depends on.
// ListOverlapping returns pending/confirmed bookings for the provider whose
// raw interval intersects [start, end); excludeID filters out the booking
// being rescheduled (pass uuid.Nil otherwise).
type BookingRepository interface {
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	GetProvider(ctx context.Context, id uuid.UUID) (domain.Provider, error)
	GetService(ctx context.Context, id uuid.UUID) (domain.Service, error)

	ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Booking, error)
	CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)

	// InProviderIntervalLock runs fn inside a transaction holding an
	// exclusive lock covering every booking of the provider that could
	// overlap [start, end). The lock is released when the transaction
	// commits or rolls back, on every exit path.
	InProviderIntervalLock(ctx context.Context, providerID uuid.UUID, start, end time.Time, fn func(ctx context.Context, tx BookingTx) error) error

	CreateWaitlistEntry(ctx context.Context, e domain.WaitlistEntry) (domain.WaitlistEntry, error)
}

// BookingTx is the slice of the repository available inside an interval
// lock. Reads through it see the locked, current state.
type BookingTx interface {
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Booking, error)
	CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
}
