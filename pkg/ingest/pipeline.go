package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aircast/aircast/pkg/alert"
	"github.com/aircast/aircast/pkg/series"
)

// ErrNoValue is returned by ForceAlert when no explicit value was given and
// the series holds nothing to fall back to.
var ErrNoValue = errors.New("ingest: no value to alert on")

// Broadcaster pushes ingestion events to live listeners. Optional: a nil
// broadcaster disables the live feed.
type Broadcaster interface {
	Broadcast(v interface{}) error
}

// Pipeline is the ingestion orchestrator: one linear pass of
// reduce → persist → prune → rebuild → detect → notify. Both the hourly
// scheduler and the manual trigger endpoint run this same code path.
//
// There is no mutual exclusion between overlapping passes. Writes are
// idempotent per hour and rebuild always recomputes from persisted truth,
// so an interleaving costs at worst one stale cache until the next pass.
type Pipeline struct {
	reducer  *Reducer
	store    *series.Store
	detector *alert.Detector
	notifier alert.Notifier
	hub      Broadcaster
}

// NewPipeline wires the pipeline. notifier and hub may be nil.
func NewPipeline(reducer *Reducer, store *series.Store, detector *alert.Detector, notifier alert.Notifier, hub Broadcaster) *Pipeline {
	return &Pipeline{
		reducer:  reducer,
		store:    store,
		detector: detector,
		notifier: notifier,
		hub:      hub,
	}
}

// Run executes one ingestion pass. A cycle with no upstream data persists
// nothing, alerts nothing, and still succeeds.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := p.reducer.Reduce(ctx, time.Now())
	if res.Value == nil {
		log.Printf("No upstream data for %s, skipping persist", res.Timestamp)
		return res, nil
	}

	reading := series.Reading{Timestamp: res.Timestamp, Value: *res.Value}
	snap, err := p.store.Append(ctx, reading)
	if err != nil {
		return res, fmt.Errorf("persist reading: %w", err)
	}
	log.Printf("Ingested %s = %.2f µg/m³ (%d readings in window)", reading.Timestamp, reading.Value, len(snap))

	for _, ev := range p.detector.Evaluate(snap, reading) {
		p.dispatch(ev)
	}

	p.broadcast(map[string]interface{}{"type": "reading", "reading": reading})
	return res, nil
}

// ForceAlert sends one forced notification, using value if non-nil, else
// the most recent series value. ErrNoValue when neither resolves.
func (p *Pipeline) ForceAlert(ctx context.Context, value *float64) (alert.Event, error) {
	ev := alert.Event{Kind: alert.KindForced}

	if value != nil {
		ev.Value = *value
		ev.Timestamp = series.HourKey(time.Now())
	} else {
		snap, err := p.store.Get(ctx)
		if err != nil {
			return alert.Event{}, fmt.Errorf("read series: %w", err)
		}
		latest, ok := snap.Latest()
		if !ok {
			return alert.Event{}, ErrNoValue
		}
		ev.Value = latest.Value
		ev.Timestamp = latest.Timestamp
	}

	p.dispatch(ev)
	return ev, nil
}

// dispatch delivers one event asynchronously. Notifier failures are logged
// and discarded; they never block or fail the pass.
func (p *Pipeline) dispatch(ev alert.Event) {
	log.Printf("ALERT [%s] %s", ev.Kind, ev.Message())
	p.broadcast(map[string]interface{}{"type": "alert", "alert": ev})

	if p.notifier == nil {
		return
	}
	go func() {
		if err := p.notifier.Send(ev.Message()); err != nil {
			log.Printf("Alert delivery failed: %v", err)
		}
	}()
}

func (p *Pipeline) broadcast(v interface{}) {
	if p.hub == nil {
		return
	}
	if err := p.hub.Broadcast(v); err != nil {
		log.Printf("Live broadcast failed: %v", err)
	}
}
