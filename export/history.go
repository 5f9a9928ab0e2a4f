package export

import (
	"database/sql"
	"time"

	"github.com/sallai/pltapp/sensor"
)

const historySelectTmpl = `SELECT
		Identifier,
		Source,
		TimeMilli,
		FrequencyMHz,
		BandwidthMHz,
		PowerDBm
	FROM
		measurements
	WHERE
		Source = ?
		AND FrequencyMHz >= ?
		AND FrequencyMHz <= ?
		AND TimeMilli >= ?
		AND TimeMilli <= ?
	ORDER BY
		TimeMilli ASC;`

// History reads stored measurements back from a sink DB, bounded by source,
// frequency window and time window. Used by the offline snapshot renderer.
func History(db *sql.DB, source string, lowMHz, highMHz float64, start, end time.Time) ([]sensor.Measurement, error) {
	statement, err := db.Prepare(historySelectTmpl)
	if err != nil {
		return nil, err
	}
	rows, err := statement.Query(source, lowMHz, highMHz, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sensor.Measurement
	for rows.Next() {
		var m sensor.Measurement
		var timeMilli int64
		if err := rows.Scan(&m.Identifier, &m.Source, &timeMilli, &m.FrequencyMHz, &m.BandwidthMHz, &m.PowerDBm); err != nil {
			return nil, err
		}
		m.Time = time.Unix(0, timeMilli*int64(time.Millisecond))
		out = append(out, m)
	}
	return out, rows.Err()
}
