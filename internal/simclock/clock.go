// Package simclock holds the arithmetic for the backend-maintained
// virtual clock. The clock only moves when an operator submits a
// collection command; persistence lives in the db package.
package simclock

import (
	"fmt"
	"time"

	"github.com/HanKun113/AN6007-dic/internal/model"
)

// Genesis is the epoch of the simulation.
var Genesis = time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

// Advance moves t forward by value units. value must be positive.
func Advance(t time.Time, value int, unit model.IncrementUnit) (time.Time, error) {
	if value < 1 {
		return time.Time{}, fmt.Errorf("increment value %d must be at least 1", value)
	}
	switch unit {
	case model.UnitMinutes:
		return t.Add(time.Duration(value) * time.Minute), nil
	case model.UnitHours:
		return t.Add(time.Duration(value) * time.Hour), nil
	case model.UnitDays:
		return t.AddDate(0, 0, value), nil
	case model.UnitMonths:
		return AddMonths(t, value), nil
	default:
		return time.Time{}, fmt.Errorf("invalid time unit %q", unit)
	}
}

// AddMonths adds n calendar months, clamping the day of month to the
// target month's length (May 31 + 1 month = June 30, never July 1).
func AddMonths(t time.Time, n int) time.Time {
	year := t.Year()
	month := int(t.Month()) + n
	for month > 12 {
		month -= 12
		year++
	}
	for month < 1 {
		month += 12
		year--
	}

	day := t.Day()
	if max := DaysInMonth(year, time.Month(month)); day > max {
		day = max
	}
	return time.Date(year, time.Month(month), day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

// DaysInMonth returns the number of days in the given calendar month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Format renders t for the /current_time endpoint.
func Format(t time.Time) model.SimulationTime {
	return model.SimulationTime{
		Date:    t.Format("2006-01-02"),
		Time:    t.Format("15:04:05"),
		Weekday: t.Weekday().String(),
	}
}
