package service

import (
	"time"

	"github.com/set-night/txrollup/internal/domain"
)

// Clock derives period keys from wall-clock time in a fixed location.
type Clock struct {
	now func() time.Time
	loc *time.Location
}

func NewClock(loc *time.Location) *Clock {
	return NewClockFunc(time.Now, loc)
}

// NewClockFunc builds a Clock reading time from now. Tests pass a fixed function.
func NewClockFunc(now func() time.Time, loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{now: now, loc: loc}
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

// CurrentPeriod is the key of the window open for writes.
func (c *Clock) CurrentPeriod() string {
	return domain.PeriodKey(c.now(), c.loc)
}

// PreviousPeriod is the key of the window that ended at the start of the
// current one.
func (c *Clock) PreviousPeriod() string {
	return domain.PeriodKey(c.now().Add(-domain.PeriodWindow), c.loc)
}
