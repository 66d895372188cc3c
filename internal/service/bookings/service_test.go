package bookings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"slotline/backend/internal/domain"
	"slotline/backend/internal/store"
)

var (
	testProviderID = uuid.MustParse("019509aa-0000-7000-8000-000000000001")
	testServiceID  = uuid.MustParse("019509aa-0000-7000-8000-000000000002")
)

// memRepo is an in-memory BookingRepository. The interval lock is a single
// mutex held for the duration of fn, which is enough to reproduce the
// locked re-validation behavior in tests.
type memRepo struct {
	mu     sync.Mutex
	lockMu sync.Mutex

	providers map[uuid.UUID]domain.Provider
	services  map[uuid.UUID]domain.Service
	bookings  map[uuid.UUID]domain.Booking
	waitlist  []domain.WaitlistEntry
}

func newMemRepo() *memRepo {
	return &memRepo{
		providers: make(map[uuid.UUID]domain.Provider),
		services:  make(map[uuid.UUID]domain.Service),
		bookings:  make(map[uuid.UUID]domain.Booking),
	}
}

func (r *memRepo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (r *memRepo) GetProvider(ctx context.Context, id uuid.UUID) (domain.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return domain.Provider{}, store.ErrNotFound
	}
	return p, nil
}

func (r *memRepo) GetService(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return domain.Service{}, store.ErrNotFound
	}
	return s, nil
}

func (r *memRepo) ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if b.ProviderID != providerID || !b.Active() || b.ID == excludeID {
			continue
		}
		if domain.Overlaps(b.StartTime, b.EndTime, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memRepo) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Booking{}, err
		}
		b.ID = id
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	r.bookings[b.ID] = b
	return b, nil
}

func (r *memRepo) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	r.bookings[b.ID] = b
	return b, nil
}

func (r *memRepo) InProviderIntervalLock(ctx context.Context, providerID uuid.UUID, start, end time.Time, fn func(ctx context.Context, tx store.BookingTx) error) error {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	return fn(ctx, memTx{repo: r})
}

func (r *memRepo) CreateWaitlistEntry(ctx context.Context, e domain.WaitlistEntry) (domain.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := uuid.NewV7()
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	e.ID = id
	e.CreatedAt = time.Now().UTC()
	r.waitlist = append(r.waitlist, e)
	return e, nil
}

func (r *memRepo) bookingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

type memTx struct {
	repo *memRepo
}

func (t memTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return t.repo.GetBooking(ctx, id)
}

func (t memTx) ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Booking, error) {
	return t.repo.ListOverlapping(ctx, providerID, start, end, excludeID)
}

func (t memTx) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	return t.repo.CreateBooking(ctx, b)
}

func (t memTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	return t.repo.UpdateBooking(ctx, b)
}

type recordingNotifier struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
	cancelled []uuid.UUID
}

func (n *recordingNotifier) ScheduleReminders(ctx context.Context, b domain.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scheduled = append(n.scheduled, b.ID)
}

func (n *recordingNotifier) CancelReminders(ctx context.Context, b domain.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, b.ID)
}

// newTestRepo seeds a UTC provider open Monday and Tuesday 09:00-18:00 with
// a 13:00-14:00 break on Tuesday, closed on Sunday, offering a 30 minute
// service. In January 2026 the 5th is a Monday.
func newTestRepo() *memRepo {
	repo := newMemRepo()
	repo.providers[testProviderID] = domain.Provider{
		ID:       testProviderID,
		Name:     "Test Provider",
		Timezone: "UTC",
		Schedule: domain.WeekSchedule{
			"monday":  {Open: true, OpenTime: "09:00", CloseTime: "18:00"},
			"tuesday": {Open: true, OpenTime: "09:00", CloseTime: "18:00", Breaks: []domain.BreakWindow{{Start: "13:00", End: "14:00"}}},
		},
	}
	repo.services[testServiceID] = domain.Service{
		ID:              testServiceID,
		ProviderID:      testProviderID,
		Name:            "Consultation",
		DurationMinutes: 30,
		Price:           50,
	}
	return repo
}

func newTestService(repo *memRepo) *Service {
	return NewService(repo, nil, DefaultPolicy(), nil)
}

func seedBooking(t *testing.T, repo *memRepo, start, end time.Time, status domain.BookingStatus) domain.Booking {
	t.Helper()
	b, err := repo.CreateBooking(context.Background(), domain.Booking{
		ClientID:   "client-existing",
		ProviderID: testProviderID,
		ServiceID:  testServiceID,
		StartTime:  start,
		EndTime:    end,
		Status:     status,
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func mondayAt(hour, minute int) time.Time {
	return time.Date(2026, 1, 5, hour, minute, 0, 0, time.UTC)
}

func tuesdayAt(hour, minute int) time.Time {
	return time.Date(2026, 1, 6, hour, minute, 0, 0, time.UTC)
}

func TestValidateSlot_DetectsOverlap(t *testing.T) {
	repo := newTestRepo()
	existing := seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	res, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, mondayAt(10, 20))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	if res.Valid {
		t.Fatalf("expected 10:20 to be invalid against a 10:00-10:30 booking")
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1: %+v", len(res.Conflicts), res.Conflicts)
	}
	c := res.Conflicts[0]
	if c.Type != domain.ConflictOverlap {
		t.Fatalf("conflict type = %s, want %s", c.Type, domain.ConflictOverlap)
	}
	if c.ConflictingBooking == nil || c.ConflictingBooking.ID != existing.ID {
		t.Fatalf("conflict does not reference the existing booking: %+v", c)
	}
}

func TestValidateSlot_DetectsBufferViolation(t *testing.T) {
	repo := newTestRepo()
	seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	res, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, mondayAt(10, 35))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1: %+v", len(res.Conflicts), res.Conflicts)
	}
	if res.Conflicts[0].Type != domain.ConflictBufferViolation {
		t.Fatalf("conflict type = %s, want %s", res.Conflicts[0].Type, domain.ConflictBufferViolation)
	}
}

func TestValidateSlot_AcceptsSlotClearOfBuffer(t *testing.T) {
	repo := newTestRepo()
	seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	res, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, mondayAt(10, 45))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected 10:45 to be valid, got conflicts %+v", res.Conflicts)
	}
}

func TestValidateSlot_ClosedDay(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	sunday := time.Date(2026, 1, 4, 10, 0, 0, 0, time.UTC)
	res, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, sunday)
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1: %+v", len(res.Conflicts), res.Conflicts)
	}
	if res.Conflicts[0].Type != domain.ConflictOutsideHours {
		t.Fatalf("conflict type = %s, want %s", res.Conflicts[0].Type, domain.ConflictOutsideHours)
	}
}

func TestValidateSlot_BreakTime(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	res, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, tuesdayAt(13, 30))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1: %+v", len(res.Conflicts), res.Conflicts)
	}
	if res.Conflicts[0].Type != domain.ConflictBreakTime {
		t.Fatalf("conflict type = %s, want %s", res.Conflicts[0].Type, domain.ConflictBreakTime)
	}
}

func TestValidateSlot_TouchingSlotEndIsNotAnOverlap(t *testing.T) {
	repo := newTestRepo()
	seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	// 10:30-11:00 touches the booking's end. With a zero buffer that is
	// allowed; intervals are half-open.
	zeroBuffer := 0
	p := repo.providers[testProviderID]
	p.BufferMinutes = &zeroBuffer
	repo.providers[testProviderID] = p

	res, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, mondayAt(10, 30))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected a touching slot to be valid with zero buffer, got %+v", res.Conflicts)
	}
}

func TestValidateSlot_ReportsEveryConflict(t *testing.T) {
	repo := newTestRepo()
	seedBooking(t, repo, tuesdayAt(14, 0), tuesdayAt(14, 30), domain.BookingStatusPending)
	svc := newTestService(repo)

	// 13:45-14:15 runs into both the 13:00-14:00 break and the 14:00
	// booking; both must be reported.
	res, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, tuesdayAt(13, 45))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	if len(res.Conflicts) != 2 {
		t.Fatalf("conflicts = %d, want 2: %+v", len(res.Conflicts), res.Conflicts)
	}
	types := map[domain.ConflictType]bool{}
	for _, c := range res.Conflicts {
		types[c.Type] = true
	}
	if !types[domain.ConflictBreakTime] || !types[domain.ConflictOverlap] {
		t.Fatalf("conflict types = %v, want break_time and overlap", types)
	}
}

func TestValidateSlot_IgnoresInactiveBookings(t *testing.T) {
	repo := newTestRepo()
	seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusCancelled)
	svc := newTestService(repo)

	res, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, mondayAt(10, 0))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("cancelled booking should not block the slot: %+v", res.Conflicts)
	}
}

func TestValidateSlot_Idempotent(t *testing.T) {
	repo := newTestRepo()
	seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	before := repo.bookingCount()
	first, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, mondayAt(10, 20))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	second, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, mondayAt(10, 20))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}

	if repo.bookingCount() != before {
		t.Fatalf("validation mutated the store: %d bookings, want %d", repo.bookingCount(), before)
	}
	if first.Valid != second.Valid || len(first.Conflicts) != len(second.Conflicts) {
		t.Fatalf("validation not repeatable: first %+v, second %+v", first, second)
	}
}

func TestCreateBooking_PersistsPending(t *testing.T) {
	repo := newTestRepo()
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, DefaultPolicy(), nil)

	res, err := svc.CreateBooking(context.Background(), CreateInput{
		ClientID:   "client-1",
		ProviderID: testProviderID,
		ServiceID:  testServiceID,
		StartTime:  mondayAt(10, 0),
		Notes:      "first visit",
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("unexpected conflicts: %+v", res.Conflicts)
	}

	b := res.Booking
	if b.Status != domain.BookingStatusPending {
		t.Fatalf("status = %s, want %s", b.Status, domain.BookingStatusPending)
	}
	if !b.EndTime.Equal(mondayAt(10, 30)) {
		t.Fatalf("end = %v, want %v", b.EndTime, mondayAt(10, 30))
	}
	if b.TotalAmount != 50 {
		t.Fatalf("total amount = %v, want 50", b.TotalAmount)
	}
	if repo.bookingCount() != 1 {
		t.Fatalf("bookings = %d, want 1", repo.bookingCount())
	}
	if len(notifier.scheduled) != 1 || notifier.scheduled[0] != b.ID {
		t.Fatalf("reminders scheduled = %v, want [%s]", notifier.scheduled, b.ID)
	}
}

func TestCreateBooking_RejectedWithoutMutation(t *testing.T) {
	repo := newTestRepo()
	seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, DefaultPolicy(), nil)

	res, err := svc.CreateBooking(context.Background(), CreateInput{
		ClientID:   "client-1",
		ProviderID: testProviderID,
		ServiceID:  testServiceID,
		StartTime:  mondayAt(10, 20),
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if res.OK() {
		t.Fatalf("expected conflicts")
	}
	if repo.bookingCount() != 1 {
		t.Fatalf("bookings = %d, want the seeded 1 only", repo.bookingCount())
	}
	if len(notifier.scheduled) != 0 {
		t.Fatalf("reminders scheduled for a rejected booking: %v", notifier.scheduled)
	}
}

func TestCreateBooking_InputValidation(t *testing.T) {
	svc := newTestService(newTestRepo())

	cases := []struct {
		name string
		in   CreateInput
		want string
	}{
		{
			name: "missing client",
			in:   CreateInput{ProviderID: testProviderID, ServiceID: testServiceID, StartTime: mondayAt(10, 0)},
			want: "client_id is required",
		},
		{
			name: "missing provider",
			in:   CreateInput{ClientID: "c", ServiceID: testServiceID, StartTime: mondayAt(10, 0)},
			want: "provider_id is required",
		},
		{
			name: "missing service",
			in:   CreateInput{ClientID: "c", ProviderID: testProviderID, StartTime: mondayAt(10, 0)},
			want: "service_id is required",
		},
		{
			name: "missing start",
			in:   CreateInput{ClientID: "c", ProviderID: testProviderID, ServiceID: testServiceID},
			want: "start_time is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBooking(context.Background(), tc.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if vErr.Error() != tc.want {
				t.Fatalf("message = %q, want %q", vErr.Error(), tc.want)
			}
		})
	}
}

func TestCreateBooking_UnknownService(t *testing.T) {
	svc := newTestService(newTestRepo())

	_, err := svc.CreateBooking(context.Background(), CreateInput{
		ClientID:   "client-1",
		ProviderID: testProviderID,
		ServiceID:  uuid.MustParse("019509aa-0000-7000-8000-00000000dead"),
		StartTime:  mondayAt(10, 0),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateBooking_ServiceOfAnotherProvider(t *testing.T) {
	repo := newTestRepo()
	otherService := uuid.MustParse("019509aa-0000-7000-8000-000000000042")
	repo.services[otherService] = domain.Service{
		ID:              otherService,
		ProviderID:      uuid.MustParse("019509aa-0000-7000-8000-00000000beef"),
		DurationMinutes: 30,
	}
	svc := newTestService(repo)

	_, err := svc.CreateBooking(context.Background(), CreateInput{
		ClientID:   "client-1",
		ProviderID: testProviderID,
		ServiceID:  otherService,
		StartTime:  mondayAt(10, 0),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for a foreign service", err)
	}
}

func TestCreateBookingWithLock_ConcurrentRequests(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	type outcome struct {
		res BookingResult
		err error
	}
	results := make([]outcome, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.CreateBookingWithLock(context.Background(), CreateInput{
				ClientID:   fmt.Sprintf("client-%d", i),
				ProviderID: testProviderID,
				ServiceID:  testServiceID,
				StartTime:  mondayAt(10, 0),
			})
			results[i] = outcome{res: res, err: err}
		}(i)
	}
	wg.Wait()

	var winners, losers []outcome
	for _, o := range results {
		if o.err != nil {
			t.Fatalf("CreateBookingWithLock error: %v", o.err)
		}
		if o.res.OK() {
			winners = append(winners, o)
		} else {
			losers = append(losers, o)
		}
	}

	if len(winners) != 1 || len(losers) != 1 {
		t.Fatalf("winners = %d, losers = %d, want exactly one of each", len(winners), len(losers))
	}
	if repo.bookingCount() != 1 {
		t.Fatalf("bookings = %d, want 1", repo.bookingCount())
	}

	conflicts := losers[0].res.Conflicts
	if len(conflicts) != 1 || conflicts[0].Type != domain.ConflictOverlap {
		t.Fatalf("loser conflicts = %+v, want a single overlap", conflicts)
	}
	if conflicts[0].ConflictingBooking == nil || conflicts[0].ConflictingBooking.ID != winners[0].res.Booking.ID {
		t.Fatalf("loser conflict does not reference the winner's booking")
	}
}

func TestUpdateBooking_NotesOnly(t *testing.T) {
	repo := newTestRepo()
	b := seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	notes := "bring paperwork"
	res, err := svc.UpdateBooking(context.Background(), b.ID, UpdateInput{Notes: &notes})
	if err != nil {
		t.Fatalf("UpdateBooking error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("unexpected conflicts: %+v", res.Conflicts)
	}
	if res.Booking.Notes != notes {
		t.Fatalf("notes = %q, want %q", res.Booking.Notes, notes)
	}
	if !res.Booking.StartTime.Equal(b.StartTime) {
		t.Fatalf("start changed on a notes-only update")
	}
}

func TestUpdateBooking_RescheduleExcludesSelf(t *testing.T) {
	repo := newTestRepo()
	b := seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	// Moving by 15 minutes overlaps the booking's own old interval; that
	// must not count as a conflict.
	newStart := mondayAt(10, 15)
	res, err := svc.UpdateBooking(context.Background(), b.ID, UpdateInput{StartTime: &newStart})
	if err != nil {
		t.Fatalf("UpdateBooking error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("unexpected conflicts: %+v", res.Conflicts)
	}
	if !res.Booking.StartTime.Equal(newStart) || !res.Booking.EndTime.Equal(mondayAt(10, 45)) {
		t.Fatalf("interval = [%v, %v), want [10:15, 10:45)", res.Booking.StartTime, res.Booking.EndTime)
	}
}

func TestUpdateBooking_RescheduleConflictLeavesBookingUntouched(t *testing.T) {
	repo := newTestRepo()
	b := seedBooking(t, repo, mondayAt(9, 0), mondayAt(9, 30), domain.BookingStatusConfirmed)
	seedBooking(t, repo, mondayAt(11, 0), mondayAt(11, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	newStart := mondayAt(11, 15)
	res, err := svc.UpdateBooking(context.Background(), b.ID, UpdateInput{StartTime: &newStart})
	if err != nil {
		t.Fatalf("UpdateBooking error: %v", err)
	}
	if res.OK() {
		t.Fatalf("expected a conflict rescheduling onto 11:00-11:30")
	}

	stored, err := repo.GetBooking(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetBooking error: %v", err)
	}
	if !stored.StartTime.Equal(mondayAt(9, 0)) {
		t.Fatalf("booking moved despite the conflict: start = %v", stored.StartTime)
	}
}

func TestUpdateBooking_InactiveRejected(t *testing.T) {
	repo := newTestRepo()
	b := seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusCancelled)
	svc := newTestService(repo)

	notes := "x"
	_, err := svc.UpdateBooking(context.Background(), b.ID, UpdateInput{Notes: &notes})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestUpdateBooking_NothingToUpdate(t *testing.T) {
	repo := newTestRepo()
	b := seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	_, err := svc.UpdateBooking(context.Background(), b.ID, UpdateInput{})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if vErr.Error() != "nothing to update" {
		t.Fatalf("message = %q, want %q", vErr.Error(), "nothing to update")
	}
}

func TestValidateSlot_ProviderBufferOverride(t *testing.T) {
	repo := newTestRepo()
	thirty := 30
	p := repo.providers[testProviderID]
	p.BufferMinutes = &thirty
	repo.providers[testProviderID] = p
	seedBooking(t, repo, mondayAt(10, 0), mondayAt(10, 30), domain.BookingStatusConfirmed)
	svc := newTestService(repo)

	// 10:45 clears the default 15 minute buffer but not the provider's 30.
	res, err := svc.ValidateSlot(context.Background(), testProviderID, testServiceID, mondayAt(10, 45))
	if err != nil {
		t.Fatalf("ValidateSlot error: %v", err)
	}
	if res.Valid {
		t.Fatalf("expected a buffer violation with the provider's 30 minute buffer")
	}
	if res.Conflicts[0].Type != domain.ConflictBufferViolation {
		t.Fatalf("conflict type = %s, want %s", res.Conflicts[0].Type, domain.ConflictBufferViolation)
	}
}
