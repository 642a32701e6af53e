// Package alert evaluates freshly ingested readings against the spike and
// absolute-threshold rules and delivers best-effort notifications.
package alert

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aircast/aircast/pkg/config"
	"github.com/aircast/aircast/pkg/series"
	"github.com/aircast/aircast/pkg/stats"
)

// Kind identifies which rule produced an event.
type Kind string

const (
	KindSpike    Kind = "spike"
	KindAbsolute Kind = "absolute"
	KindForced   Kind = "forced"
)

// Event is one alert occurrence. Events are transient: delivery is
// fire-and-forget with no retry queue or dedup store.
type Event struct {
	Kind      Kind     `json:"kind"`
	Value     float64  `json:"value"`
	Timestamp string   `json:"timestamp"`
	Baseline  *float64 `json:"baseline,omitempty"`
}

// Message renders the event as notification text.
func (e Event) Message() string {
	switch e.Kind {
	case KindSpike:
		return fmt.Sprintf("PM2.5 spike in %s: %.2f µg/m³ (recent baseline %.2f) at %s",
			config.RegionID, e.Value, *e.Baseline, e.Timestamp)
	case KindAbsolute:
		return fmt.Sprintf("PM2.5 above alert threshold in %s: %.2f µg/m³ at %s",
			config.RegionID, e.Value, e.Timestamp)
	default:
		return fmt.Sprintf("PM2.5 test alert for %s: %.2f µg/m³ at %s",
			config.RegionID, e.Value, e.Timestamp)
	}
}

// Detector applies the two alerting rules to each ingested reading. The
// rules are independent and non-exclusive: both may fire in the same cycle.
//
// Detector is safe for concurrent use; rules may be swapped at runtime via
// SetRules (config hot reload).
type Detector struct {
	mu       sync.Mutex
	rules    config.Rules
	lastFire map[Kind]time.Time
}

// NewDetector creates a detector with the given rules.
func NewDetector(rules config.Rules) *Detector {
	return &Detector{
		rules:    rules,
		lastFire: make(map[Kind]time.Time),
	}
}

// SetRules replaces the active rules.
func (d *Detector) SetRules(rules config.Rules) {
	d.mu.Lock()
	d.rules = rules
	d.mu.Unlock()
}

// Rules returns the active rules.
func (d *Detector) Rules() config.Rules {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rules
}

// SpikeRuleText returns a human-readable description of the spike rule.
func (d *Detector) SpikeRuleText() string {
	r := d.Rules()
	return fmt.Sprintf("fires when the current hour exceeds the mean of the previous %d readings by more than max(%.0f, 2×stddev)",
		config.SpikeWindow, r.SpikeFloor)
}

// Evaluate applies both rules to current against the post-append snapshot.
// The spike baseline is the up-to-5 readings immediately preceding current
// in series order; with no prior readings the baseline equals the current
// value, which neutralizes the rule.
func (d *Detector) Evaluate(snap series.Snapshot, current series.Reading) []Event {
	d.mu.Lock()
	rules := d.rules
	now := time.Now()

	var events []Event

	// Strip the current reading off the tail so the baseline covers only
	// what came before it.
	prior := snap
	if n := len(prior); n > 0 && prior[n-1].Timestamp == current.Timestamp {
		prior = prior[:n-1]
	}
	window := prior
	if len(window) > config.SpikeWindow {
		window = window[len(window)-config.SpikeWindow:]
	}

	baseline := current.Value
	values := window.Values()
	if len(values) > 0 {
		baseline = stats.Mean(values)
	}
	margin := math.Max(rules.SpikeFloor, 2*stats.StdDev(values))

	if current.Value > baseline+margin && d.allowLocked(KindSpike, now, rules.Cooldown) {
		b := baseline
		events = append(events, Event{
			Kind:      KindSpike,
			Value:     current.Value,
			Timestamp: current.Timestamp,
			Baseline:  &b,
		})
	}

	if current.Value >= rules.Threshold && d.allowLocked(KindAbsolute, now, rules.Cooldown) {
		events = append(events, Event{
			Kind:      KindAbsolute,
			Value:     current.Value,
			Timestamp: current.Timestamp,
		})
	}

	d.mu.Unlock()
	return events
}

// allowLocked applies the optional cooldown. Zero cooldown means re-alert
// every cycle. Caller must hold d.mu.
func (d *Detector) allowLocked(kind Kind, now time.Time, cooldown time.Duration) bool {
	if cooldown <= 0 {
		d.lastFire[kind] = now
		return true
	}
	if now.Sub(d.lastFire[kind]) < cooldown {
		return false
	}
	d.lastFire[kind] = now
	return true
}
