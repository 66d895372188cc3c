package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type WaitlistStatus string

const (
	WaitlistStatusWaiting WaitlistStatus = "waiting"
)

// WaitlistEntry records unmet demand for a slot. It is not a reservation:
// no conflict validation happens when one is created, and matching entries
// to freed slots is handled outside this service.
type WaitlistEntry struct {
	bun.BaseModel `bun:"table:waitlist_entries"`

	ID            uuid.UUID      `bun:"id,pk,type:uuid"`
	ClientID      string         `bun:"client_id,notnull"`
	ProviderID    uuid.UUID      `bun:"provider_id,notnull,type:uuid"`
	ServiceID     uuid.UUID      `bun:"service_id,notnull,type:uuid"`
	PreferredDate time.Time      `bun:"preferred_date,notnull"`
	RangeStart    *string        `bun:"range_start"`
	RangeEnd      *string        `bun:"range_end"`
	Status        WaitlistStatus `bun:"status,notnull"`
	CreatedAt     time.Time      `bun:"created_at,notnull"`
}

func (w *WaitlistEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if w.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		w.ID = id
	}
	if w.Status == "" {
		w.Status = WaitlistStatusWaiting
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	return nil
}
