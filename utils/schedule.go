package utils

import (
	"fmt"
	"math"
	"time"
)

const (
	scheduleStartHour = 8
	scheduleEndHour   = 20

	// restock dates further out than this are not meaningful
	maxRestockDays = 100 * 366

	// DateLayout is the wire format for calendar dates
	DateLayout = "2006-01-02"
)

// CalculateSchedule returns the dose times for a daily frequency. Frequencies
// up to four use fixed, sleep-safe slots; anything above is spread evenly from
// 08:00 with a whole-hour gap of floor(12 / (frequency-1)).
func CalculateSchedule(frequency int) []string {
	switch frequency {
	case 1:
		return []string{"09:00"}
	case 2:
		return []string{"09:00", "20:00"}
	case 3:
		return []string{"08:00", "14:00", "20:00"}
	case 4:
		return []string{"08:00", "12:00", "16:00", "20:00"}
	}

	if frequency <= 0 {
		return []string{}
	}

	gap := (scheduleEndHour - scheduleStartHour) / (frequency - 1)
	times := make([]string, 0, frequency)
	for i := 0; i < frequency; i++ {
		times = append(times, fmt.Sprintf("%02d:00", scheduleStartHour+i*gap))
	}
	return times
}

// RestockDate is the day the supply runs out: start plus the number of whole
// days the tablets last. ok is false when daily consumption is not positive,
// does not fit in an int, or the supply outlasts maxRestockDays.
func RestockDate(start time.Time, totalTablets, dosage, frequency int) (time.Time, bool) {
	if dosage <= 0 || frequency <= 0 || totalTablets < 0 {
		return time.Time{}, false
	}
	if dosage > math.MaxInt/frequency {
		return time.Time{}, false
	}
	days := totalTablets / (dosage * frequency)
	if days > maxRestockDays {
		return time.Time{}, false
	}
	return start.AddDate(0, 0, days), true
}

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// FormatDate renders t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
