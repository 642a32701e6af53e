package series

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aircast/aircast/pkg/config"
	"github.com/aircast/aircast/pkg/kv"
)

// Key layout inside the KV store. Hour keys embed a fixed-width RFC3339
// timestamp, so lexicographic key order equals chronological order.
const (
	hourPrefix = "aq:hour:"
	cacheKey   = "aq:cache:series"
)

// Reading is one hourly value. Timestamp is a hour-truncated UTC instant in
// RFC3339 form (minute and second zeroed).
type Reading struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Snapshot is the ordered rolling view served to consumers: the most recent
// readings, oldest first, at most config.SnapshotWindow entries.
type Snapshot []Reading

// HourKey formats t as the canonical hourly timestamp string.
func HourKey(t time.Time) string {
	return t.UTC().Truncate(time.Hour).Format("2006-01-02T15:00:00Z")
}

// Store maintains the retained hourly series on top of a KV store, with a
// cached snapshot for fast reads. The cache is purely an acceleration
// layer: Rebuild recomputes it from the persisted per-hour entries, which
// are the single source of truth.
type Store struct {
	kv       kv.Store
	capacity int // retention cap in hourly slots
	window   int // snapshot window in hours
}

// New creates a series store. capacity is the retention cap; window is how
// many recent hours a snapshot exposes. Zero values use the defaults.
func New(store kv.Store, capacity, window int) *Store {
	if capacity <= 0 {
		capacity = config.DefaultRetentionCap
	}
	if window <= 0 {
		window = config.SnapshotWindow
	}
	return &Store{kv: store, capacity: capacity, window: window}
}

// Get returns the cached snapshot if present and well-formed, else rebuilds.
func (s *Store) Get(ctx context.Context) (Snapshot, error) {
	data, err := s.kv.Get(ctx, cacheKey)
	if err == nil {
		var snap Snapshot
		if json.Unmarshal(data, &snap) == nil && snap != nil {
			return snap, nil
		}
		// Malformed cache blob: fall through and rebuild.
	}
	return s.Rebuild(ctx)
}

// Rebuild recomputes the snapshot from persisted per-hour entries, writes it
// back to the cache key, and returns it. Unreadable or malformed entries are
// skipped, so holes in the series are tolerated.
func (s *Store) Rebuild(ctx context.Context) (Snapshot, error) {
	keys, err := s.kv.List(ctx, hourPrefix)
	if err != nil {
		return nil, fmt.Errorf("list hour keys: %w", err)
	}
	sort.Strings(keys)

	if len(keys) > s.window {
		keys = keys[len(keys)-s.window:]
	}

	snap := make(Snapshot, 0, len(keys))
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var value float64
		if err := json.Unmarshal(data, &value); err != nil {
			continue
		}
		snap = append(snap, Reading{
			Timestamp: key[len(hourPrefix):],
			Value:     value,
		})
	}

	blob, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.kv.Put(ctx, cacheKey, blob); err != nil {
		return nil, fmt.Errorf("write snapshot cache: %w", err)
	}
	return snap, nil
}

// Append stores a reading under its hour key, prunes entries beyond the
// retention cap (oldest first), and rebuilds the snapshot cache. Appending
// the same hour twice overwrites the stored value.
func (s *Store) Append(ctx context.Context, r Reading) (Snapshot, error) {
	value, err := json.Marshal(r.Value)
	if err != nil {
		return nil, fmt.Errorf("encode reading: %w", err)
	}
	if err := s.kv.Put(ctx, hourPrefix+r.Timestamp, value); err != nil {
		return nil, fmt.Errorf("store reading: %w", err)
	}

	if err := s.prune(ctx); err != nil {
		return nil, err
	}
	return s.Rebuild(ctx)
}

// prune deletes the oldest hour keys until the persisted count is within
// the retention cap.
func (s *Store) prune(ctx context.Context) error {
	keys, err := s.kv.List(ctx, hourPrefix)
	if err != nil {
		return fmt.Errorf("list hour keys: %w", err)
	}
	if len(keys) <= s.capacity {
		return nil
	}

	sort.Strings(keys)
	for _, key := range keys[:len(keys)-s.capacity] {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("prune %q: %w", key, err)
		}
	}
	return nil
}

// Latest returns the most recent reading in the snapshot, if any.
func (snap Snapshot) Latest() (Reading, bool) {
	if len(snap) == 0 {
		return Reading{}, false
	}
	return snap[len(snap)-1], true
}

// Values returns the snapshot's values in series order.
func (snap Snapshot) Values() []float64 {
	out := make([]float64, len(snap))
	for i, r := range snap {
		out[i] = r.Value
	}
	return out
}
