package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// ActiveStatuses are the statuses that hold a slot. Only these participate
// in overlap and buffer checks.
var ActiveStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID           uuid.UUID     `bun:"id,pk,type:uuid"`
	ClientID     string        `bun:"client_id,notnull"`
	ProviderID   uuid.UUID     `bun:"provider_id,notnull,type:uuid"`
	ServiceID    uuid.UUID     `bun:"service_id,notnull,type:uuid"`
	StartTime    time.Time     `bun:"start_time,notnull"`
	EndTime      time.Time     `bun:"end_time,notnull"`
	Status       BookingStatus `bun:"status,notnull"`
	TotalAmount  float64       `bun:"total_amount,notnull"`
	Notes        string        `bun:"notes"`
	ConfirmedAt  *time.Time    `bun:"confirmed_at"`
	CompletedAt  *time.Time    `bun:"completed_at"`
	CancelledAt  *time.Time    `bun:"cancelled_at"`
	CancelledBy  *string       `bun:"cancelled_by"`
	CancelReason *string       `bun:"cancel_reason"`
	CreatedAt    time.Time     `bun:"created_at,notnull"`
	UpdatedAt    time.Time     `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// Active reports whether the booking currently holds its slot.
func (b *Booking) Active() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

type Provider struct {
	bun.BaseModel `bun:"table:providers"`

	ID            uuid.UUID    `bun:"id,pk,type:uuid"`
	Name          string       `bun:"name,notnull"`
	Timezone      string       `bun:"timezone,notnull"`
	Schedule      WeekSchedule `bun:"schedule,type:jsonb"`
	BufferMinutes *int         `bun:"buffer_minutes"`
	CreatedAt     time.Time    `bun:"created_at,notnull"`
	UpdatedAt     time.Time    `bun:"updated_at,notnull"`
}

func (p *Provider) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if p.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			p.ID = id
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}

func (p *Provider) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(p.Timezone)
}

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	ProviderID      uuid.UUID `bun:"provider_id,notnull,type:uuid"`
	Name            string    `bun:"name,notnull"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	Price           float64   `bun:"price,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type ActorRole string

const (
	ActorRoleClient   ActorRole = "client"
	ActorRoleProvider ActorRole = "provider"
	ActorRoleAdmin    ActorRole = "admin"
)

// Actor identifies who is asking for a state change. The ID is matched
// against the booking's client or provider depending on the role.
type Actor struct {
	ID   string
	Role ActorRole
}
