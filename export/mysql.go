package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"

	"github.com/sallai/pltapp/sensor"
)

const (
	mysqlMeasurementCountInfo = 1000

	mysqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS measurements (
		ID            INTEGER NOT NULL AUTO_INCREMENT PRIMARY KEY,
		Identifier    VARCHAR(64) NOT NULL,
		Source        VARCHAR(64) NOT NULL,
		TimeMilli     BIGINT,
		FrequencyMHz  DOUBLE,
		BandwidthMHz  DOUBLE,
		PowerDBm      DOUBLE
	);`
	mysqlInsertMeasurementTmpl = `INSERT INTO measurements (
		Identifier,
		Source,
		TimeMilli,
		FrequencyMHz,
		BandwidthMHz,
		PowerDBm
	) VALUES (?, ?, ?, ?, ?, ?);`
)

// MySQL stores measurements in a MySQL DB, creating the table on first use.
type MySQL struct {
	DB *sql.DB
}

func (m *MySQL) Write(ctx context.Context, measurements <-chan sensor.Measurement) error {
	if err := mysqlCreateTableIfNotExists(m.DB); err != nil {
		return fmt.Errorf("unable to create table: %s", err)
	}

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for meas := range measurements {
		counts["total"] += 1
		if err := mysqlInsertMeasurement(m.DB, meas); err != nil {
			counts["error"] += 1
			glog.Warningf("error storing in MySQL DB: %s\n", err)
			continue
		}
		counts["success"] += 1
		if counts["total"]%mysqlMeasurementCountInfo == 0 {
			glog.Infof("Measurement export counts: %+v\n", counts)
		}
	}

	return nil
}

func mysqlCreateTableIfNotExists(db *sql.DB) error {
	statement, err := db.Prepare(mysqlCreateTableTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(); err != nil {
		return err
	}

	return nil
}

func mysqlInsertMeasurement(db *sql.DB, m sensor.Measurement) error {
	statement, err := db.Prepare(mysqlInsertMeasurementTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(m.Identifier, m.Source, m.Time.UnixMilli(), m.FrequencyMHz, m.BandwidthMHz, m.PowerDBm); err != nil {
		return err
	}

	return nil
}
