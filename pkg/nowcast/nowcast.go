// Package nowcast derives a short-horizon forecast band from the rolling
// hourly series: the mean of the most recent day of readings, bracketed by
// one population standard deviation.
package nowcast

import (
	"errors"
	"math"

	"github.com/aircast/aircast/pkg/config"
	"github.com/aircast/aircast/pkg/series"
	"github.com/aircast/aircast/pkg/stats"
)

// ErrNoData signals that the series is empty and no band can be computed
// yet. Callers map this to a service-unavailable response, distinct from a
// server fault.
var ErrNoData = errors.New("nowcast: no data yet")

// Band is the nowcast estimate. Low is clamped at zero because the measured
// quantity cannot be negative.
type Band struct {
	Mean    float64 `json:"mean"`
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	Samples int     `json:"samples"`
}

// Estimate computes the band over the last config.NowcastWindow entries of
// snap (or fewer if the series is shorter — no minimum-sample floor). All
// values are rounded to one decimal place.
func Estimate(snap series.Snapshot) (Band, error) {
	if len(snap) == 0 {
		return Band{}, ErrNoData
	}

	window := snap
	if len(window) > config.NowcastWindow {
		window = window[len(window)-config.NowcastWindow:]
	}

	values := window.Values()
	mean := stats.Mean(values)
	sd := stats.StdDev(values)

	return Band{
		Mean:    stats.Round(mean, 1),
		Low:     stats.Round(math.Max(0, mean-sd), 1),
		High:    stats.Round(mean+sd, 1),
		Samples: len(values),
	}, nil
}
