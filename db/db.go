package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/HanKun113/AN6007-dic/internal/model"
	"github.com/HanKun113/AN6007-dic/internal/simclock"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS system (
	id INTEGER PRIMARY KEY CHECK(id = 1),
	sim_time TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	meter_id TEXT PRIMARY KEY,
	area TEXT NOT NULL,
	dwelling TEXT NOT NULL,
	register_time TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	meter_id TEXT NOT NULL,
	reading_time TEXT NOT NULL,
	meter_value REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_readings_meter_time ON readings(meter_id, reading_time);

CREATE TABLE IF NOT EXISTS month_summaries (
	meter_id TEXT NOT NULL,
	month TEXT NOT NULL,
	first_value REAL NOT NULL,
	last_value REAL NOT NULL,
	days INTEGER NOT NULL,
	PRIMARY KEY (meter_id, month)
);
`

// Open opens the sqlite database at dbPath, applies the schema and seeds
// the simulation clock with the genesis time if the system row is absent.
func Open(dbPath string) (*sql.DB, error) {
	dbConn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := InitSchema(dbConn); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}

func InitSchema(dbConn *sql.DB) error {
	if _, err := dbConn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	_, err := dbConn.Exec(`INSERT OR IGNORE INTO system (id, sim_time) VALUES (1, ?)`,
		simclock.Genesis.Format(model.TimeLayout))
	if err != nil {
		return fmt.Errorf("failed to seed simulation clock: %w", err)
	}
	return nil
}
