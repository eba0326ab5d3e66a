package db

import (
	"database/sql"
	"fmt"

	"github.com/HanKun113/AN6007-dic/internal/model"
	"github.com/HanKun113/AN6007-dic/internal/simclock"
)

// StartTransaction starts a new database transaction.
func StartTransaction(dbConn *sql.DB) (*sql.Tx, error) {
	tx, err := dbConn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// InsertAccount registers a new meter account.
func InsertAccount(dbConn *sql.DB, a model.Account) error {
	tx, err := dbConn.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO accounts (meter_id, area, dwelling, register_time) VALUES (?, ?, ?, ?)`,
		a.MeterID, a.Area, a.Dwelling, a.RegisterTime)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert account %s: %w", a.MeterID, err)
	}
	return tx.Commit()
}

// InsertReadingsWithTx stores a batch of generated readings.
func InsertReadingsWithTx(tx *sql.Tx, readings []model.MeterReading) error {
	stmt, err := tx.Prepare(`INSERT INTO readings (meter_id, reading_time, meter_value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare reading insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		if _, err := stmt.Exec(r.MeterID, r.ReadingTime.Format(model.TimeLayout), r.MeterValue); err != nil {
			return fmt.Errorf("insert reading for %s: %w", r.MeterID, err)
		}
	}
	return nil
}

// UpdateSimTimeWithTx moves the simulation clock.
func UpdateSimTimeWithTx(tx *sql.Tx, raw string) error {
	if _, err := tx.Exec(`UPDATE system SET sim_time = ? WHERE id = 1`, raw); err != nil {
		return fmt.Errorf("update simulation time: %w", err)
	}
	return nil
}

// InsertMonthSummaryWithTx archives a closed month. Existing summaries are
// left untouched so re-running an archive is harmless.
func InsertMonthSummaryWithTx(tx *sql.Tx, s model.MonthSummary) error {
	_, err := tx.Exec(`INSERT OR IGNORE INTO month_summaries (meter_id, month, first_value, last_value, days) VALUES (?, ?, ?, ?, ?)`,
		s.MeterID, s.Month, s.FirstValue, s.LastValue, s.Days)
	if err != nil {
		return fmt.Errorf("insert month summary %s/%s: %w", s.MeterID, s.Month, err)
	}
	return nil
}

// DeleteReadingsBeforeWithTx prunes raw readings older than the cutoff
// timestamp and returns the number removed.
func DeleteReadingsBeforeWithTx(tx *sql.Tx, cutoff string) (int64, error) {
	res, err := tx.Exec(`DELETE FROM readings WHERE reading_time < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete readings before %s: %w", cutoff, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ResetAll wipes accounts, readings and summaries and rewinds the clock to
// the genesis time.
func ResetAll(dbConn *sql.DB) error {
	tx, err := dbConn.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	for _, stmt := range []string{
		`DELETE FROM readings`,
		`DELETE FROM month_summaries`,
		`DELETE FROM accounts`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("reset: %w", err)
		}
	}
	if err := UpdateSimTimeWithTx(tx, simclock.Genesis.Format(model.TimeLayout)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
