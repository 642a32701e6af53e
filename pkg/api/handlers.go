package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/aircast/aircast/pkg/config"
	"github.com/aircast/aircast/pkg/httpx"
	"github.com/aircast/aircast/pkg/ingest"
	"github.com/aircast/aircast/pkg/nowcast"
	"github.com/aircast/aircast/pkg/series"
)

// Handler exposes the query and trigger endpoints.
type Handler struct {
	store    *series.Store
	pipeline *ingest.Pipeline
	alerts   alertRules
	hub      *Hub
	cache    *responseCache
	started  time.Time
}

// alertRules is what the rules endpoint needs from the detector.
type alertRules interface {
	Rules() config.Rules
	SpikeRuleText() string
}

// NewHandler creates the API handler. hub may be nil to disable the live feed.
func NewHandler(store *series.Store, pipeline *ingest.Pipeline, alerts alertRules, hub *Hub) *Handler {
	return &Handler{
		store:    store,
		pipeline: pipeline,
		alerts:   alerts,
		hub:      hub,
		cache:    newResponseCache(config.ResponseCacheTTL),
		started:  time.Now(),
	}
}

// NowcastResponse is the body of GET /v1/nowcast.
type NowcastResponse struct {
	RegionID string  `json:"region_id"`
	Hour     string  `json:"hour"`
	Mean     float64 `json:"mean"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Samples  int     `json:"samples"`
	Method   string  `json:"method_tag"`
}

// HandleNowcast serves the current forecast band. An empty series is a 503
// ("no data yet"), not a server fault.
func (h *Handler) HandleNowcast(w http.ResponseWriter, r *http.Request) {
	key := cacheKey(r)
	if body, ok := h.cache.Get(key); ok {
		writeCached(w, body)
		return
	}

	snap, err := h.store.Get(r.Context())
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	band, err := nowcast.Estimate(snap)
	if errors.Is(err, nowcast.ErrNoData) {
		httpx.Unavailable(w, "no readings ingested yet")
		return
	}
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	latest, _ := snap.Latest()
	resp := NowcastResponse{
		RegionID: config.RegionID,
		Hour:     latest.Timestamp,
		Mean:     band.Mean,
		Low:      band.Low,
		High:     band.High,
		Samples:  band.Samples,
		Method:   "mean±stddev over last 24h",
	}
	respondCacheable(w, h.cache, key, resp)
}

// TimeseriesResponse is the body of GET /v1/timeseries.
type TimeseriesResponse struct {
	RegionID string           `json:"region_id"`
	Hours    int              `json:"hours"`
	Series   []series.Reading `json:"series"`
}

// HandleTimeseries serves the rolling hourly series. An empty store is a
// valid empty response, in contrast to the nowcast endpoint.
func (h *Handler) HandleTimeseries(w http.ResponseWriter, r *http.Request) {
	hours := config.SnapshotWindow
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpx.BadRequest(w, "hours must be a positive integer")
			return
		}
		hours = parsed
		if hours > config.SnapshotWindow {
			hours = config.SnapshotWindow
		}
	}

	key := cacheKey(r)
	if body, ok := h.cache.Get(key); ok {
		writeCached(w, body)
		return
	}

	snap, err := h.store.Get(r.Context())
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(snap) > hours {
		snap = snap[len(snap)-hours:]
	}

	resp := TimeseriesResponse{
		RegionID: config.RegionID,
		Hours:    len(snap),
		Series:   snap,
	}
	if resp.Series == nil {
		resp.Series = []series.Reading{}
	}
	respondCacheable(w, h.cache, key, resp)
}

// HandleRules describes the active alerting rules.
func (h *Handler) HandleRules(w http.ResponseWriter, r *http.Request) {
	rules := h.alerts.Rules()
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"absolute_threshold": rules.Threshold,
		"spike_rule":         h.alerts.SpikeRuleText(),
		"cooldown":           rules.Cooldown.String(),
	})
}

// HandleForceAlert sends one test notification, using the request's value
// override or the most recent series value.
func (h *Handler) HandleForceAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value *float64 `json:"value"`
	}
	if r.Body != nil {
		// An empty body means "use the latest reading".
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpx.BadRequest(w, "invalid JSON body")
			return
		}
	}

	ev, err := h.pipeline.ForceAlert(r.Context(), req.Value)
	if errors.Is(err, ingest.ErrNoValue) {
		httpx.BadRequest(w, "no value given and no readings to fall back to")
		return
	}
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sent":  true,
		"alert": ev,
	})
}

// HandleRun triggers one ingestion pass. Operators hit this to backfill the
// current hour without waiting for the scheduler.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.Run(r.Context())
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.RespondJSON(w, http.StatusOK, result)
}

// HandleHealth returns service health status.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"region": config.RegionID,
		"uptime": time.Since(h.started).String(),
	})
}

// respondCacheable sends resp and then populates the cache from a goroutine
// (write-behind), so cache writes never delay the response.
func respondCacheable(w http.ResponseWriter, cache *responseCache, key uint64, resp interface{}) {
	body, err := json.Marshal(resp)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeCached(w, body)
	go cache.Put(key, body)
}

func writeCached(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
