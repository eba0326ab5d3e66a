package simclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HanKun113/AN6007-dic/internal/model"
)

func TestAdvanceUnits(t *testing.T) {
	base := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

	got, err := Advance(base, 45, model.UnitMinutes)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 1, 10, 45, 0, 0, time.UTC), got)

	got, err = Advance(base, 3, model.UnitHours)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 1, 13, 0, 0, 0, time.UTC), got)

	got, err = Advance(base, 7, model.UnitDays)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 8, 10, 0, 0, 0, time.UTC), got)

	got, err = Advance(base, 2, model.UnitMonths)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.July, 1, 10, 0, 0, 0, time.UTC), got)
}

func TestAdvanceRejectsNonPositiveValue(t *testing.T) {
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	_, err := Advance(base, 0, model.UnitDays)
	assert.Error(t, err)

	_, err = Advance(base, -3, model.UnitHours)
	assert.Error(t, err)
}

func TestAdvanceRejectsUnknownUnit(t *testing.T) {
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	_, err := Advance(base, 1, model.IncrementUnit("weeks"))
	assert.Error(t, err)
}

func TestAddMonthsClampsDayOfMonth(t *testing.T) {
	may31 := time.Date(2024, time.May, 31, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.June, 30, 12, 30, 0, 0, time.UTC), AddMonths(may31, 1))

	jan31 := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), AddMonths(jan31, 1), "2024 is a leap year")

	jan31 = time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), AddMonths(jan31, 1))
}

func TestAddMonthsCrossesYears(t *testing.T) {
	nov := time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), AddMonths(nov, 2))

	mar := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), AddMonths(mar, -3))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(2024, time.May))
	assert.Equal(t, 30, DaysInMonth(2024, time.June))
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2025, time.February))
	assert.Equal(t, 31, DaysInMonth(2024, time.December))
}

func TestFormat(t *testing.T) {
	st := Format(Genesis)
	assert.Equal(t, model.SimulationTime{
		Date:    "2024-05-01",
		Time:    "00:00:00",
		Weekday: "Wednesday",
	}, st)
}
