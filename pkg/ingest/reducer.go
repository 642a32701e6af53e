package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aircast/aircast/pkg/config"
	"github.com/aircast/aircast/pkg/series"
	"github.com/aircast/aircast/pkg/stats"
	"github.com/aircast/aircast/pkg/upstream"
)

// Result is the outcome of one reduction: the target hour and the reduced
// value, or a nil Value when no upstream data was available this cycle.
// An absent value is not an error.
type Result struct {
	Timestamp string   `json:"timestamp"`
	Value     *float64 `json:"value,omitempty"`
}

// Reducer turns a batch of multi-sensor upstream readings into one hourly
// scalar via cross-sensor averaging. Averaging across sensors smooths
// single-sensor noise and outages.
type Reducer struct {
	client *upstream.Client
}

// NewReducer creates a reducer over the given upstream client.
func NewReducer(client *upstream.Client) *Reducer {
	return &Reducer{client: client}
}

// Reduce produces the value for the last full hour at or before now.
//
// The primary strategy queries per-sensor hourly aggregates; if that yields
// nothing (adapter failure or empty result), it falls back to raw
// measurements over a shorter lookback. Both empty is a valid "no data this
// cycle" outcome.
func (r *Reducer) Reduce(ctx context.Context, now time.Time) Result {
	target := series.HourKey(now.UTC().Add(-time.Hour))
	res := Result{Timestamp: target}

	if v, ok := r.fromHourly(ctx, now, target); ok {
		res.Value = &v
		return res
	}
	if v, ok := r.fromRaw(ctx, now, target); ok {
		res.Value = &v
		return res
	}
	return res
}

// fromHourly is the primary strategy: fan out one concurrent query per
// discovered sensor, bucket all returned points by their hour-end
// timestamp, and average the latest bucket at or before target.
func (r *Reducer) fromHourly(ctx context.Context, now time.Time, target string) (float64, bool) {
	sensors, err := r.client.Sensors(ctx, config.RegionBBox, config.Pollutant)
	if err != nil {
		log.Printf("Sensor discovery failed: %v", err)
		return 0, false
	}

	// Cap fan-out to the first MaxSensors unique IDs.
	seen := make(map[int64]bool)
	var ids []int64
	for _, s := range sensors {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		ids = append(ids, s.ID)
		if len(ids) >= config.MaxSensors {
			break
		}
	}

	from := now.Add(-config.PrimaryLookback)

	var (
		mu      sync.Mutex
		samples []upstream.Sample
		wg      sync.WaitGroup
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			got, err := r.client.HourlyAverages(ctx, id, from, now)
			if err != nil {
				// One slow or broken sensor costs only its own data.
				log.Printf("Hourly query failed for sensor %d: %v", id, err)
				return
			}
			mu.Lock()
			samples = append(samples, got...)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	buckets := make(map[string][]float64)
	for _, s := range samples {
		key := s.Timestamp.Format("2006-01-02T15:04:05Z")
		buckets[key] = append(buckets[key], s.Value)
	}
	return reduceBuckets(buckets, target)
}

// fromRaw is the fallback strategy: raw measurements over a short lookback,
// each bucketed into its containing UTC hour.
func (r *Reducer) fromRaw(ctx context.Context, now time.Time, target string) (float64, bool) {
	samples, err := r.client.Measurements(ctx, config.RegionBBox, config.Pollutant,
		now.Add(-config.FallbackLookback), now)
	if err != nil {
		log.Printf("Raw measurement query failed: %v", err)
		return 0, false
	}

	buckets := make(map[string][]float64)
	for _, s := range samples {
		key := series.HourKey(s.Timestamp)
		buckets[key] = append(buckets[key], s.Value)
	}
	return reduceBuckets(buckets, target)
}

// reduceBuckets picks the lexicographically greatest bucket key at or
// before target and averages its values, rounded to two decimals. The
// fixed zero-padded timestamp format makes string order chronological, so
// "latest at or before" tolerates upstream reporting lag without ever
// selecting a future hour.
func reduceBuckets(buckets map[string][]float64, target string) (float64, bool) {
	var best string
	for key := range buckets {
		if key <= target && key > best {
			best = key
		}
	}
	if best == "" {
		return 0, false
	}
	return stats.Round(stats.Mean(buckets[best]), 2), true
}
