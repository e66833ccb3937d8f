package utils

import "time"

// Clock supplies the current date for appointment and restock arithmetic
type Clock interface {
	Today() time.Time
}

type SystemClock struct{}

// Today returns midnight UTC of the current day
func (SystemClock) Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// FixedClock always reports the same day
type FixedClock struct {
	Day time.Time
}

func (c FixedClock) Today() time.Time {
	return c.Day
}
