package domain

import "time"

type ConflictType string

const (
	ConflictOverlap         ConflictType = "overlap"
	ConflictBufferViolation ConflictType = "buffer_violation"
	ConflictOutsideHours    ConflictType = "outside_hours"
	ConflictBreakTime       ConflictType = "break_time"
)

// Conflict explains why a candidate interval was rejected. For overlap and
// buffer conflicts the colliding booking is attached for diagnostics.
type Conflict struct {
	Type               ConflictType
	Message            string
	ConflictingBooking *Booking
}

type ValidationResult struct {
	Valid     bool
	Conflicts []Conflict
}

// TimeSlot is an ephemeral candidate interval produced by slot enumeration.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not count.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
