package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/sallai/pltapp/sensor"
)

// CSV writes one line per measurement to Out (os.Stdout when nil).
type CSV struct {
	Out io.Writer
}

func (c *CSV) Write(ctx context.Context, measurements <-chan sensor.Measurement) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	w := csv.NewWriter(out)
	w.Write([]string{
		"Identifier",
		"Source",
		"TimeUnixMilli",
		"FrequencyMHz",
		"BandwidthMHz",
		"PowerDBm",
	})

	for m := range measurements {
		if err := w.Write([]string{
			m.Identifier,
			m.Source,
			fmt.Sprintf("%d", m.Time.UnixMilli()),
			fmt.Sprintf("%f", m.FrequencyMHz),
			fmt.Sprintf("%f", m.BandwidthMHz),
			fmt.Sprintf("%f", m.PowerDBm),
		}); err != nil {
			glog.Warningf("error while writing CSV line: %s\n", err)
		}

		w.Flush()
		if err := w.Error(); err != nil {
			glog.Warningf("error flushing CSV: %s\n", err)
		}
	}
	return nil
}
