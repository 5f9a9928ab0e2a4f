package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"

	"github.com/sallai/pltapp/sensor"
)

const (
	sqliteMeasurementCountInfo = 1000

	sqliteCreateTableTmpl = `CREATE TABLE IF NOT EXISTS measurements (
		"ID"            INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"Identifier"    TEXT NOT NULL,
		"Source"        TEXT NOT NULL,
		"TimeMilli"     INTEGER,
		"FrequencyMHz"  REAL,
		"BandwidthMHz"  REAL,
		"PowerDBm"      REAL
	);`
	sqliteInsertMeasurementTmpl = `INSERT INTO measurements (
		Identifier,
		Source,
		TimeMilli,
		FrequencyMHz,
		BandwidthMHz,
		PowerDBm
	) VALUES (?, ?, ?, ?, ?, ?);`
)

// SQLite stores measurements in a local sqlite DB, creating the table on
// first use.
type SQLite struct {
	DB *sql.DB
}

func (s *SQLite) Write(ctx context.Context, measurements <-chan sensor.Measurement) error {
	if err := sqliteCreateTableIfNotExists(s.DB); err != nil {
		return fmt.Errorf("unable to create table: %s", err)
	}

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for m := range measurements {
		counts["total"] += 1
		if err := sqliteInsertMeasurement(s.DB, m); err != nil {
			counts["error"] += 1
			glog.Warningf("error storing in sqlite DB: %s\n", err)
			continue
		}
		counts["success"] += 1
		if counts["total"]%sqliteMeasurementCountInfo == 0 {
			glog.Infof("Measurement export counts: %+v\n", counts)
		}
	}

	return nil
}

func sqliteCreateTableIfNotExists(db *sql.DB) error {
	statement, err := db.Prepare(sqliteCreateTableTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(); err != nil {
		return err
	}

	return nil
}

func sqliteInsertMeasurement(db *sql.DB, m sensor.Measurement) error {
	statement, err := db.Prepare(sqliteInsertMeasurementTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(m.Identifier, m.Source, m.Time.UnixMilli(), m.FrequencyMHz, m.BandwidthMHz, m.PowerDBm); err != nil {
		return err
	}

	return nil
}
