// Package meters generates simulated readings for registered meters when
// an operator advances the clock.
package meters

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/HanKun113/AN6007-dic/db"
	"github.com/HanKun113/AN6007-dic/internal/archive"
	"github.com/HanKun113/AN6007-dic/internal/datadog"
	"github.com/HanKun113/AN6007-dic/internal/model"
	"github.com/HanKun113/AN6007-dic/internal/simclock"
	"github.com/HanKun113/AN6007-dic/internal/usage"
)

// Generator owns the collection operation: advance the clock, emit one
// reading per meter per interval, archive on month rollover.
type Generator struct {
	dbConn          *sql.DB
	interval        time.Duration
	retentionMonths int

	// rng is injectable for deterministic tests.
	rng func() float64
}

func NewGenerator(dbConn *sql.DB, intervalMinutes, retentionMonths int) *Generator {
	return &Generator{
		dbConn:          dbConn,
		interval:        time.Duration(intervalMinutes) * time.Minute,
		retentionMonths: retentionMonths,
		rng:             rand.Float64,
	}
}

// Collect advances the simulation clock by value units and generates the
// readings that would have accumulated over the span. The readings and the
// clock update commit in one transaction.
func (g *Generator) Collect(value int, unit model.IncrementUnit) (*model.CollectionResult, error) {
	from, err := db.GetSimTime(g.dbConn)
	if err != nil {
		return nil, err
	}
	to, err := simclock.Advance(from, value, unit)
	if err != nil {
		return nil, err
	}

	accounts, err := db.GetAllAccounts(g.dbConn)
	if err != nil {
		return nil, err
	}
	latest, err := db.GetLatestValues(g.dbConn)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	readings := generateSpan(accounts, latest, from, to, g.interval, g.rng)

	tx, err := db.StartTransaction(g.dbConn)
	if err != nil {
		return nil, err
	}
	if err := db.InsertReadingsWithTx(tx, readings); err != nil {
		db.RollbackTransaction(tx)
		return nil, err
	}
	if err := db.UpdateSimTimeWithTx(tx, to.Format(model.TimeLayout)); err != nil {
		db.RollbackTransaction(tx)
		return nil, err
	}
	if err := db.CommitTransaction(tx); err != nil {
		return nil, err
	}

	log.Info().
		Str("from", from.Format(model.TimeLayout)).
		Str("to", to.Format(model.TimeLayout)).
		Int("meters", len(accounts)).
		Int("readings", len(readings)).
		Msg("Collection run complete")

	datadog.Count("collection.readings", int64(len(readings)))
	datadog.Gauge("collection.duration_ms", float64(time.Since(start).Milliseconds()))
	datadog.Gauge("simulation.clock_unix", float64(to.Unix()))

	if from.Month() != to.Month() || from.Year() != to.Year() {
		if err := archive.Run(g.dbConn, to, g.retentionMonths); err != nil {
			// Readings are already committed; the next rollover retries.
			log.Error().Err(err).Msg("Monthly archive failed")
		}
	}

	samples := make([]model.SampleReading, 0, 3)
	for _, r := range readings {
		if len(samples) == 3 {
			break
		}
		samples = append(samples, model.SampleReading{
			MeterID:     r.MeterID,
			ReadingTime: r.ReadingTime.Format(model.TimeLayout),
			MeterValue:  r.MeterValue,
		})
	}

	return &model.CollectionResult{
		Message:        fmt.Sprintf("Readings collected from %s to %s", from.Format("2006-01-02 15:04:05"), to.Format("2006-01-02 15:04:05")),
		ReadingsCount:  len(readings),
		SampleReadings: samples,
		NewTime:        to.Format(model.TimeLayout),
	}, nil
}

// generateSpan walks the span day by day so the per-day maintenance rules
// apply at every midnight crossing.
func generateSpan(accounts []model.Account, latest map[string]float64, from, to time.Time, interval time.Duration, rng func() float64) []model.MeterReading {
	var out []model.MeterReading

	if sameDate(from, to) {
		return generateDay(accounts, latest, from, to, interval, rng)
	}

	firstEnd := time.Date(from.Year(), from.Month(), from.Day(), 23, 59, 59, 0, from.Location())
	out = append(out, generateDay(accounts, latest, from, firstEnd, interval, rng)...)

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location()).AddDate(0, 0, 1)
	lastDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	for day.Before(lastDay) {
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, day.Location())
		out = append(out, generateDay(accounts, latest, day, dayEnd, interval, rng)...)
		day = day.AddDate(0, 0, 1)
	}

	out = append(out, generateDay(accounts, latest, lastDay, to, interval, rng)...)
	return out
}

// generateDay emits readings at interval ticks within one day. The hour
// from 00:00 to 01:00 is the maintenance window: a day starting at
// midnight begins at 01:00, and generation stops once the next tick would
// land back at midnight.
func generateDay(accounts []model.Account, latest map[string]float64, start, end time.Time, interval time.Duration, rng func() float64) []model.MeterReading {
	var out []model.MeterReading

	cur := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), 0, 0, 0, start.Location())
	if cur.Hour() == 0 {
		cur = cur.Add(time.Hour)
	}

	for {
		next := cur.Add(interval)
		if next.After(end) {
			break
		}
		if next.Hour() == 0 {
			break
		}

		for _, account := range accounts {
			value := latest[account.MeterID] + rng()
			latest[account.MeterID] = value
			out = append(out, model.MeterReading{
				MeterID:     account.MeterID,
				ReadingTime: next,
				MeterValue:  usage.Round3(value),
			})
		}
		cur = next
	}
	return out
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
