package domain

import (
	"fmt"
	"time"
)

// PeriodLayout formats an hour window as a zero-padded key that sorts in
// chronological order, e.g. 2024-03-15-14.
const PeriodLayout = "2006-01-02-15"

// PeriodWindow is the aggregation granularity.
const PeriodWindow = time.Hour

// PeriodKey returns the key of the window containing t, in loc.
func PeriodKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(PeriodLayout)
}

// ParsePeriodKey returns the start of the window named by key, in loc.
func ParsePeriodKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(PeriodLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, key)
	}
	return t, nil
}
