package service

import (
	"time"

	"lunara/internal/models"
)

// Clock supplies the current time and the family calendar's time zone
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock returns a Clock on wall time in loc
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Today returns the current local calendar date
func (c Clock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return c.now().In(loc)
}

// TodayString returns the current local date in storage form
func (c Clock) TodayString() string {
	return c.Today().Format(models.DateLayout)
}
