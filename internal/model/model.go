package model

import (
	"fmt"
	"regexp"
	"time"
)

// TimeLayout is the wire and storage format for simulated timestamps.
// Second precision, no zone: the simulation clock is zone-less.
const TimeLayout = "2006-01-02T15:04:05"

// MeterIDPattern is the externally issued meter identifier format.
const MeterIDPattern = `^\d{3}-\d{3}-\d{3}$`

var meterIDRe = regexp.MustCompile(MeterIDPattern)

func ValidMeterID(id string) bool {
	return meterIDRe.MatchString(id)
}

type IncrementUnit string

const (
	UnitMinutes IncrementUnit = "minutes"
	UnitHours   IncrementUnit = "hours"
	UnitDays    IncrementUnit = "days"
	UnitMonths  IncrementUnit = "months"
)

func ParseIncrementUnit(s string) (IncrementUnit, error) {
	switch IncrementUnit(s) {
	case UnitMinutes, UnitHours, UnitDays, UnitMonths:
		return IncrementUnit(s), nil
	default:
		return "", fmt.Errorf("invalid time unit %q", s)
	}
}

// MeterReading is one cumulative kWh sample for a meter.
type MeterReading struct {
	MeterID     string
	ReadingTime time.Time
	MeterValue  float64
}

type Account struct {
	MeterID      string `json:"meter_ID"`
	Area         string `json:"area"`
	Dwelling     string `json:"dwelling"`
	RegisterTime string `json:"register_time"`
}

// SimulationTime is the formatted view of the virtual clock returned by
// the /current_time endpoint.
type SimulationTime struct {
	Date    string `json:"Date"`
	Time    string `json:"Time"`
	Weekday string `json:"Weekday"`
}

// SampleReading mirrors the reading echo format of the collection
// response, timestamps rendered as strings.
type SampleReading struct {
	MeterID     string  `json:"meter_ID"`
	ReadingTime string  `json:"reading_time"`
	MeterValue  float64 `json:"meter_value"`
}

type CollectionResult struct {
	Message        string          `json:"message"`
	ReadingsCount  int             `json:"readings_count"`
	SampleReadings []SampleReading `json:"sample_readings"`
	NewTime        string          `json:"new_time"`
}

// UsageSeries holds parallel, chronologically ordered arrays for charting.
type UsageSeries struct {
	Dates        []string  `json:"dates"`
	Usage        []float64 `json:"usage"`
	TotalUsage   float64   `json:"total_usage"`
	AverageUsage float64   `json:"average_usage"`
}

// MonthlyHistory holds parallel arrays; average for a month is
// Usage[i]/Days[i].
type MonthlyHistory struct {
	Months []string  `json:"months"`
	Usage  []float64 `json:"usage"`
	Days   []int     `json:"days"`
}

// MonthSummary is the archived form of a closed month: only the first and
// last cumulative readings of the month are retained.
type MonthSummary struct {
	MeterID    string
	Month      string // "2006-01"
	FirstValue float64
	LastValue  float64
	Days       int
}
