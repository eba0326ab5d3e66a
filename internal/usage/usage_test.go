package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/HanKun113/AN6007-dic/internal/model"
)

func TestRound3(t *testing.T) {
	assert.Equal(t, 3.871, Round3(120.0/31.0))
	assert.Equal(t, 0.333, Round3(1.0/3.0))
	assert.Equal(t, 120.0, Round3(120.0))
	assert.Equal(t, 0.0, Round3(0.0001))
}

func TestDateRange(t *testing.T) {
	now := time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, []string{"2024-05-15"}, DateRange("today", now))

	last7 := DateRange("last_7_days", now)
	assert.Len(t, last7, 7)
	assert.Equal(t, "2024-05-15", last7[0])
	assert.Equal(t, "2024-05-09", last7[6])

	thisMonth := DateRange("this_month", now)
	assert.Len(t, thisMonth, 15)
	assert.Equal(t, "2024-05-01", thisMonth[0])
	assert.Equal(t, "2024-05-15", thisMonth[14])

	lastMonth := DateRange("last_month", now)
	assert.Len(t, lastMonth, 30, "April has 30 days")
	assert.Equal(t, "2024-04-01", lastMonth[0])
	assert.Equal(t, "2024-04-30", lastMonth[29])

	assert.Nil(t, DateRange("this_year", now))
	assert.Nil(t, DateRange("", now))
}

func reading(ts string, v float64) model.MeterReading {
	t, err := time.Parse(model.TimeLayout, ts)
	if err != nil {
		panic(err)
	}
	return model.MeterReading{MeterID: "111-222-333", ReadingTime: t, MeterValue: v}
}

func TestSeriesTodayGroupsByHalfHour(t *testing.T) {
	readings := []model.MeterReading{
		reading("2024-05-01T01:30:00", 1.0),
		reading("2024-05-01T02:00:00", 2.5),
		reading("2024-05-01T02:30:00", 2.9),
	}

	s := Series(readings, "today")

	assert.Equal(t, []string{"01:30", "02:00", "02:30"}, s.Dates)
	assert.Equal(t, []float64{0, 1.5, 0.4}, s.Usage)
	assert.Equal(t, 1.9, s.TotalUsage)
	assert.Equal(t, 0.633, s.AverageUsage)
}

func TestSeriesDailyGroupsByDate(t *testing.T) {
	readings := []model.MeterReading{
		reading("2024-05-01T01:30:00", 1.0),
		reading("2024-05-01T23:30:00", 4.0),
		reading("2024-05-02T01:30:00", 4.5),
		reading("2024-05-02T23:30:00", 9.5),
	}

	s := Series(readings, "last_7_days")

	assert.Equal(t, []string{"2024-05-01", "2024-05-02"}, s.Dates)
	assert.Equal(t, []float64{3.0, 5.5}, s.Usage)
	assert.Equal(t, 8.5, s.TotalUsage)
	assert.Equal(t, 4.25, s.AverageUsage)
}

func TestSeriesSortsAndClampsNegativeDiffs(t *testing.T) {
	// Out of order input with a meter reset between readings.
	readings := []model.MeterReading{
		reading("2024-05-01T03:00:00", 0.5),
		reading("2024-05-01T02:00:00", 8.0),
		reading("2024-05-01T01:30:00", 6.0),
	}

	s := Series(readings, "today")

	assert.Equal(t, []string{"01:30", "02:00", "03:00"}, s.Dates)
	assert.Equal(t, []float64{0, 2.0, 0}, s.Usage, "reset to a lower value contributes zero")
}

func TestSeriesEmpty(t *testing.T) {
	s := Series(nil, "today")
	assert.Empty(t, s.Dates)
	assert.Empty(t, s.Usage)
	assert.Equal(t, 0.0, s.TotalUsage)
	assert.Equal(t, 0.0, s.AverageUsage)
}

func TestMergeMonthsArchivedWins(t *testing.T) {
	archived := []model.MonthSummary{
		{MeterID: "m", Month: "2024-05", FirstValue: 0, LastValue: 100, Days: 31},
	}
	live := []model.MonthSummary{
		{MeterID: "m", Month: "2024-05", FirstValue: 50, LastValue: 60, Days: 31},
		{MeterID: "m", Month: "2024-06", FirstValue: 100, LastValue: 130, Days: 30},
	}

	merged := MergeMonths(archived, live)

	assert.Len(t, merged, 2)
	assert.Equal(t, "2024-05", merged[0].Month)
	assert.Equal(t, 100.0, merged[0].LastValue, "archived summary takes precedence")
	assert.Equal(t, "2024-06", merged[1].Month)
}

func TestHistoryMath(t *testing.T) {
	h := History([]model.MonthSummary{
		{MeterID: "m", Month: "2024-05", FirstValue: 0, LastValue: 120.0, Days: 31},
		{MeterID: "m", Month: "2024-06", FirstValue: 120.0, LastValue: 100.0, Days: 30},
	})

	assert.Equal(t, []string{"2024-05", "2024-06"}, h.Months)
	assert.Equal(t, []float64{120.0, 0}, h.Usage, "negative month usage clamps to zero")
	assert.Equal(t, []int{31, 30}, h.Days)

	assert.Equal(t, 3.871, Round3(h.Usage[0]/float64(h.Days[0])))
}
