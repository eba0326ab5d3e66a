// Package usage turns cumulative meter readings into the chart-ready
// series consumed by the console pages.
package usage

import (
	"math"
	"sort"
	"time"

	"github.com/HanKun113/AN6007-dic/internal/model"
)

// Round3 rounds to 3 decimals, the precision of everything user-facing.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// DateRange expands a named time range into the list of dates it covers,
// relative to the simulated now. Returns nil for an unknown range.
func DateRange(timeRange string, now time.Time) []string {
	switch timeRange {
	case "today":
		return []string{now.Format("2006-01-02")}
	case "last_7_days":
		dates := make([]string, 0, 7)
		for i := 0; i < 7; i++ {
			dates = append(dates, now.AddDate(0, 0, -i).Format("2006-01-02"))
		}
		return dates
	case "this_month":
		dates := make([]string, 0, now.Day())
		for d := 1; d <= now.Day(); d++ {
			dates = append(dates, time.Date(now.Year(), now.Month(), d, 0, 0, 0, 0, now.Location()).Format("2006-01-02"))
		}
		return dates
	case "last_month":
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		lastMonthEnd := firstOfMonth.AddDate(0, 0, -1)
		dates := make([]string, 0, lastMonthEnd.Day())
		for d := 1; d <= lastMonthEnd.Day(); d++ {
			dates = append(dates, time.Date(lastMonthEnd.Year(), lastMonthEnd.Month(), d, 0, 0, 0, 0, now.Location()).Format("2006-01-02"))
		}
		return dates
	default:
		return nil
	}
}

// Series computes per-interval usage from cumulative readings and groups
// it by half-hour label for "today" or by date otherwise. Negative diffs
// are clamped to zero to absorb meter resets. The first reading anchors
// the series and contributes zero usage.
func Series(readings []model.MeterReading, timeRange string) *model.UsageSeries {
	sorted := make([]model.MeterReading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ReadingTime.Before(sorted[j].ReadingTime)
	})

	s := &model.UsageSeries{Dates: []string{}, Usage: []float64{}}
	prev := 0.0
	for i, r := range sorted {
		diff := 0.0
		if i > 0 {
			diff = r.MeterValue - prev
			if diff < 0 {
				diff = 0
			}
		}
		prev = r.MeterValue

		var label string
		if timeRange == "today" {
			label = r.ReadingTime.Format("15:04")
		} else {
			label = r.ReadingTime.Format("2006-01-02")
		}

		if n := len(s.Dates); n > 0 && s.Dates[n-1] == label {
			s.Usage[n-1] += diff
		} else {
			s.Dates = append(s.Dates, label)
			s.Usage = append(s.Usage, diff)
		}
	}

	total := 0.0
	for i := range s.Usage {
		s.Usage[i] = Round3(s.Usage[i])
		total += s.Usage[i]
	}
	s.TotalUsage = Round3(total)
	if len(s.Usage) > 0 {
		s.AverageUsage = Round3(total / float64(len(s.Usage)))
	}
	return s
}

// MergeMonths combines archived summaries with months derived from raw
// readings. Archived entries win: once a month is summarized, the raw
// rows for it may already be pruned.
func MergeMonths(archived, live []model.MonthSummary) []model.MonthSummary {
	seen := make(map[string]bool, len(archived))
	merged := make([]model.MonthSummary, 0, len(archived)+len(live))
	for _, s := range archived {
		seen[s.Month] = true
		merged = append(merged, s)
	}
	for _, s := range live {
		if !seen[s.Month] {
			merged = append(merged, s)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Month < merged[j].Month })
	return merged
}

// History shapes month summaries into the parallel arrays of the
// /monthly_history response. Monthly usage is last minus first cumulative
// reading, clamped at zero.
func History(summaries []model.MonthSummary) *model.MonthlyHistory {
	h := &model.MonthlyHistory{Months: []string{}, Usage: []float64{}, Days: []int{}}
	for _, s := range summaries {
		u := s.LastValue - s.FirstValue
		if u < 0 {
			u = 0
		}
		h.Months = append(h.Months, s.Month)
		h.Usage = append(h.Usage, Round3(u))
		h.Days = append(h.Days, s.Days)
	}
	return h
}
