package bookings

import (
	"context"

	"slotline/backend/internal/domain"
)

// Notifier is the outbound reminder hook. Calls are fire-and-forget: the
// methods return nothing and must never influence the booking transaction
// they follow.
type Notifier interface {
	ScheduleReminders(ctx context.Context, b domain.Booking)
	CancelReminders(ctx context.Context, b domain.Booking)
}

type noopNotifier struct{}

func (noopNotifier) ScheduleReminders(ctx context.Context, b domain.Booking) {}
func (noopNotifier) CancelReminders(ctx context.Context, b domain.Booking)   {}
