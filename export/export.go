// Package export persists measurement streams to a history sink.
package export

import (
	"context"

	"github.com/sallai/pltapp/sensor"
)

type Exporter interface {
	Write(context.Context, <-chan sensor.Measurement) error
}
