package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/HanKun113/AN6007-dic/internal/model"
	"github.com/HanKun113/AN6007-dic/internal/simclock"
)

// GetSimTime retrieves the current simulation time.
func GetSimTime(dbConn *sql.DB) (time.Time, error) {
	var raw string
	err := dbConn.QueryRow(`SELECT sim_time FROM system WHERE id = 1`).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get simulation time: %w", err)
	}
	t, err := time.Parse(model.TimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse simulation time %q: %w", raw, err)
	}
	return t, nil
}

// AccountExists reports whether a meter is registered.
func AccountExists(dbConn *sql.DB, meterID string) (bool, error) {
	var n int
	err := dbConn.QueryRow(`SELECT COUNT(*) FROM accounts WHERE meter_id = ?`, meterID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check account %s: %w", meterID, err)
	}
	return n > 0, nil
}

// GetAllAccounts retrieves all registered accounts ordered by meter ID.
func GetAllAccounts(dbConn *sql.DB) ([]model.Account, error) {
	rows, err := dbConn.Query(`SELECT meter_id, area, dwelling, register_time FROM accounts ORDER BY meter_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.MeterID, &a.Area, &a.Dwelling, &a.RegisterTime); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetLatestValues returns the most recent cumulative value per meter.
// Insertion order follows simulation time, so the highest rowid per meter
// is the latest reading.
func GetLatestValues(dbConn *sql.DB) (map[string]float64, error) {
	rows, err := dbConn.Query(`
		SELECT meter_id, meter_value FROM readings
		WHERE id IN (SELECT MAX(id) FROM readings GROUP BY meter_id)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest values: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]float64)
	for rows.Next() {
		var id string
		var v float64
		if err := rows.Scan(&id, &v); err != nil {
			return nil, fmt.Errorf("failed to scan latest value: %w", err)
		}
		latest[id] = v
	}
	return latest, rows.Err()
}

// GetReadingsForDates retrieves a meter's readings whose timestamp falls
// on any of the given dates ("2006-01-02"), in chronological order.
func GetReadingsForDates(dbConn *sql.DB, meterID string, dates []string) ([]model.MeterReading, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")
	args := make([]interface{}, 0, len(dates)+1)
	args = append(args, meterID)
	for _, d := range dates {
		args = append(args, d)
	}

	query := fmt.Sprintf(`
		SELECT meter_id, reading_time, meter_value FROM readings
		WHERE meter_id = ? AND substr(reading_time, 1, 10) IN (%s)
		ORDER BY reading_time`, placeholders)

	rows, err := dbConn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings for %s: %w", meterID, err)
	}
	defer rows.Close()

	var readings []model.MeterReading
	for rows.Next() {
		var r model.MeterReading
		var raw string
		if err := rows.Scan(&r.MeterID, &raw, &r.MeterValue); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		if r.ReadingTime, err = time.Parse(model.TimeLayout, raw); err != nil {
			return nil, fmt.Errorf("failed to parse reading time %q: %w", raw, err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// GetMonthSummaries retrieves a meter's archived month summaries ordered
// by month.
func GetMonthSummaries(dbConn *sql.DB, meterID string) ([]model.MonthSummary, error) {
	rows, err := dbConn.Query(`
		SELECT meter_id, month, first_value, last_value, days FROM month_summaries
		WHERE meter_id = ? ORDER BY month`, meterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query month summaries for %s: %w", meterID, err)
	}
	defer rows.Close()

	var summaries []model.MonthSummary
	for rows.Next() {
		var s model.MonthSummary
		if err := rows.Scan(&s.MeterID, &s.Month, &s.FirstValue, &s.LastValue, &s.Days); err != nil {
			return nil, fmt.Errorf("failed to scan month summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// GetLiveMonths derives per-month first/last values from the raw readings
// still held for a meter. Pass an empty meterID for all meters.
func GetLiveMonths(dbConn *sql.DB, meterID string) ([]model.MonthSummary, error) {
	query := `
		SELECT meter_id, substr(reading_time, 1, 7) AS month,
			(SELECT r2.meter_value FROM readings r2
				WHERE r2.meter_id = r.meter_id AND substr(r2.reading_time, 1, 7) = substr(r.reading_time, 1, 7)
				ORDER BY r2.reading_time ASC LIMIT 1),
			(SELECT r3.meter_value FROM readings r3
				WHERE r3.meter_id = r.meter_id AND substr(r3.reading_time, 1, 7) = substr(r.reading_time, 1, 7)
				ORDER BY r3.reading_time DESC LIMIT 1)
		FROM readings r`
	args := []interface{}{}
	if meterID != "" {
		query += ` WHERE meter_id = ?`
		args = append(args, meterID)
	}
	query += ` GROUP BY meter_id, month ORDER BY meter_id, month`

	rows, err := dbConn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query live months: %w", err)
	}
	defer rows.Close()

	var months []model.MonthSummary
	for rows.Next() {
		var s model.MonthSummary
		if err := rows.Scan(&s.MeterID, &s.Month, &s.FirstValue, &s.LastValue); err != nil {
			return nil, fmt.Errorf("failed to scan live month: %w", err)
		}
		m, err := time.Parse("2006-01", s.Month)
		if err != nil {
			return nil, fmt.Errorf("failed to parse month %q: %w", s.Month, err)
		}
		s.Days = simclock.DaysInMonth(m.Year(), m.Month())
		months = append(months, s)
	}
	return months, rows.Err()
}

// CountReadings returns the number of stored readings.
func CountReadings(dbConn *sql.DB) (int, error) {
	var n int
	err := dbConn.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return n, nil
}
