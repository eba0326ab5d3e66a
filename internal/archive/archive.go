// Package archive rolls closed months into summaries and prunes raw
// readings outside the retention window.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/HanKun113/AN6007-dic/db"
	"github.com/HanKun113/AN6007-dic/internal/datadog"
	"github.com/HanKun113/AN6007-dic/internal/model"
	"github.com/HanKun113/AN6007-dic/internal/notifications"
	"github.com/HanKun113/AN6007-dic/internal/simclock"
)

// Run summarizes every closed month that still has raw readings, then
// deletes readings older than retentionMonths calendar months (counting
// the current month). Months already summarized are left alone, so the
// operation is safe to repeat.
func Run(dbConn *sql.DB, now time.Time, retentionMonths int) error {
	currentMonth := now.Format("2006-01")
	genesisMonth := simclock.Genesis.Format("2006-01")

	live, err := db.GetLiveMonths(dbConn, "")
	if err != nil {
		return err
	}

	tx, err := db.StartTransaction(dbConn)
	if err != nil {
		return err
	}

	archived := 0
	for _, s := range live {
		if s.Month >= currentMonth || s.Month < genesisMonth {
			continue
		}
		if err := db.InsertMonthSummaryWithTx(tx, s); err != nil {
			db.RollbackTransaction(tx)
			return err
		}
		archived++
	}

	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	cutoff := simclock.AddMonths(firstOfMonth, -(retentionMonths - 1))
	pruned, err := db.DeleteReadingsBeforeWithTx(tx, cutoff.Format(model.TimeLayout))
	if err != nil {
		db.RollbackTransaction(tx)
		return err
	}

	if err := db.CommitTransaction(tx); err != nil {
		return err
	}

	log.Info().
		Str("month", currentMonth).
		Int("months_archived", archived).
		Int64("readings_pruned", pruned).
		Msg("Monthly archive complete")

	datadog.Count("archive.months", int64(archived))
	datadog.Count("archive.readings_pruned", pruned)

	if archived > 0 || pruned > 0 {
		if err := notifications.Send("Monthly archive",
			fmt.Sprintf("Archived %d month(s), pruned %d reading(s) at %s", archived, pruned, now.Format(model.TimeLayout))); err != nil {
			log.Debug().Err(err).Msg("Archive notification not sent")
		}
	}
	return nil
}
