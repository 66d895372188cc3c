package domain

import (
	"errors"
	"time"
)

type SeriesFrequency string

const (
	SeriesFrequencyDaily    SeriesFrequency = "daily"
	SeriesFrequencyWeekly   SeriesFrequency = "weekly"
	SeriesFrequencyBiweekly SeriesFrequency = "biweekly"
	SeriesFrequencyMonthly  SeriesFrequency = "monthly"
)

// SeriesRule describes a recurring booking series. Either Occurrences or
// EndDate must bound the series; when both are set, whichever limit is hit
// first wins.
type SeriesRule struct {
	Frequency   SeriesFrequency
	Occurrences int
	EndDate     *time.Time
}

// OccurrenceTimes expands the rule into concrete start times, beginning at
// start. Daily, weekly and biweekly advance by a fixed number of days;
// monthly advances by calendar month, so the 15th stays the 15th.
func (r SeriesRule) OccurrenceTimes(start time.Time) ([]time.Time, error) {
	if r.Occurrences < 1 && r.EndDate == nil {
		return nil, errors.New("occurrences or end_date is required")
	}

	var advance func(time.Time) time.Time
	switch r.Frequency {
	case SeriesFrequencyDaily:
		advance = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case SeriesFrequencyWeekly:
		advance = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case SeriesFrequencyBiweekly:
		advance = func(t time.Time) time.Time { return t.AddDate(0, 0, 14) }
	case SeriesFrequencyMonthly:
		advance = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	default:
		return nil, errors.New("unsupported series frequency")
	}

	out := make([]time.Time, 0, 8)
	cur := start
	for {
		if r.EndDate != nil && cur.After(*r.EndDate) {
			break
		}
		out = append(out, cur)
		if r.Occurrences > 0 && len(out) >= r.Occurrences {
			break
		}
		cur = advance(cur)
	}

	return out, nil
}
