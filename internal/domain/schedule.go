package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a minute-resolution wall-clock time in a provider's local
// timezone, parsed from "HH:MM" (24h).
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if len(s) != 5 || s[2] != ':' {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.MinuteOfDay() < o.MinuteOfDay()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On anchors the wall-clock time to the calendar date of day in loc and
// returns the resulting instant.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	local := day.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), t.Hour, t.Minute, 0, 0, loc)
}

type BreakWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DaySchedule struct {
	Open      bool          `json:"is_open"`
	OpenTime  string        `json:"open_time,omitempty"`
	CloseTime string        `json:"close_time,omitempty"`
	Breaks    []BreakWindow `json:"breaks,omitempty"`
}

// WeekSchedule maps lowercase weekday names ("monday".."sunday") to the
// provider's working hours for that day. Days without an entry are closed.
type WeekSchedule map[string]DaySchedule

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func WeekdayName(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

func (ws WeekSchedule) For(wd time.Weekday) DaySchedule {
	day, ok := ws[WeekdayName(wd)]
	if !ok {
		return DaySchedule{Open: false}
	}
	return day
}

// Validate reports every violation in the schedule rather than stopping at
// the first, so callers can surface the full list at once.
func (ws WeekSchedule) Validate() []error {
	var errs []error

	for name, day := range ws {
		if _, ok := weekdayNames[name]; !ok {
			errs = append(errs, fmt.Errorf("%s: unknown weekday", name))
			continue
		}
		if !day.Open {
			continue
		}

		open, openErr := ParseTimeOfDay(day.OpenTime)
		if openErr != nil {
			errs = append(errs, fmt.Errorf("%s: open_time: %w", name, openErr))
		}
		clos, closeErr := ParseTimeOfDay(day.CloseTime)
		if closeErr != nil {
			errs = append(errs, fmt.Errorf("%s: close_time: %w", name, closeErr))
		}
		if openErr == nil && closeErr == nil && !open.Before(clos) {
			errs = append(errs, fmt.Errorf("%s: open_time %s must be before close_time %s", name, open, clos))
		}

		type span struct {
			index      int
			start, end int
		}
		parsed := make([]span, 0, len(day.Breaks))
		for i, br := range day.Breaks {
			brStart, startErr := ParseTimeOfDay(br.Start)
			if startErr != nil {
				errs = append(errs, fmt.Errorf("%s: break %d: start: %w", name, i, startErr))
			}
			brEnd, endErr := ParseTimeOfDay(br.End)
			if endErr != nil {
				errs = append(errs, fmt.Errorf("%s: break %d: end: %w", name, i, endErr))
			}
			if startErr != nil || endErr != nil {
				continue
			}
			if !brStart.Before(brEnd) {
				errs = append(errs, fmt.Errorf("%s: break %d: start %s must be before end %s", name, i, brStart, brEnd))
			}
			if openErr == nil && closeErr == nil {
				if brStart.Before(open) || clos.Before(brEnd) {
					errs = append(errs, fmt.Errorf("%s: break %d: %s-%s outside working hours %s-%s", name, i, brStart, brEnd, open, clos))
				}
			}
			parsed = append(parsed, span{index: i, start: brStart.MinuteOfDay(), end: brEnd.MinuteOfDay()})
		}
		for i := 0; i < len(parsed); i++ {
			for j := i + 1; j < len(parsed); j++ {
				if parsed[i].start < parsed[j].end && parsed[i].end > parsed[j].start {
					errs = append(errs, fmt.Errorf("%s: breaks %d and %d overlap", name, parsed[i].index, parsed[j].index))
				}
			}
		}
	}

	return errs
}
