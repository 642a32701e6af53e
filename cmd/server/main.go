package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/aircast/aircast/pkg/alert"
	"github.com/aircast/aircast/pkg/api"
	"github.com/aircast/aircast/pkg/config"
	"github.com/aircast/aircast/pkg/ingest"
	kvbadger "github.com/aircast/aircast/pkg/kv/badger"
	"github.com/aircast/aircast/pkg/series"
	"github.com/aircast/aircast/pkg/upstream"
)

const badgerGCInterval = 10 * time.Minute

func main() {
	log.Println("🚀 Starting AirCast server...")

	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("❌ Failed to create data directory: %v", err)
	}
	log.Printf("📁 Data directory: %s", cfg.DataDir)

	store, err := kvbadger.New(kvbadger.Config{
		Path:        cfg.DataDir,
		MaxMemoryMB: cfg.MaxMemoryMB,
	})
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}
	defer store.Close()
	log.Println("💾 BadgerDB store opened")

	seriesStore := series.New(store, cfg.RetentionCap, config.SnapshotWindow)
	client := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey)

	rules := config.DefaultRules()
	rules.Threshold = cfg.Threshold
	if cfg.RulesFile != "" {
		loaded, err := config.LoadRules(cfg.RulesFile)
		if err != nil {
			log.Printf("⚠️  Rules file unreadable, using defaults: %v", err)
		} else {
			rules = loaded
		}
	}
	detector := alert.NewDetector(rules)
	log.Printf("🚨 Alerting ready (threshold %.1f µg/m³)", rules.Threshold)

	notifier := alert.NewWebhook(cfg.NotifyURL, cfg.NotifyToken)
	if !notifier.Configured() {
		log.Println("📣 Notifier credentials absent, alert delivery disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	hub := api.NewHub()
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	pipeline := ingest.NewPipeline(ingest.NewReducer(client), seriesStore, detector, notifier, hub)

	if cfg.RulesFile != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := config.WatchRules(ctx, cfg.RulesFile, detector.SetRules); err != nil {
				log.Printf("⚠️  Rules watcher stopped: %v", err)
			}
		}()
	}

	// Hourly ingestion scheduler, plus one pass at startup so a fresh
	// deployment has data before the first tick.
	wg.Add(1)
	go runScheduler(ctx, pipeline, &wg)

	wg.Add(1)
	go runBadgerGC(ctx, store, &wg)

	handler := api.NewHandler(seriesStore, pipeline, detector, hub)

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/nowcast", handler.HandleNowcast).Methods("GET")
	v1.HandleFunc("/timeseries", handler.HandleTimeseries).Methods("GET")
	v1.HandleFunc("/alerts/rules", handler.HandleRules).Methods("GET")
	v1.HandleFunc("/alerts/test", handler.HandleForceAlert).Methods("POST")
	v1.HandleFunc("/ingest/run", handler.HandleRun).Methods("POST")
	v1.HandleFunc("/health", handler.HandleHealth).Methods("GET")
	v1.HandleFunc("/ws", handler.HandleWS).Methods("GET")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutdown signal received...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Println("✅ All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("⚠️  Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("👋 AirCast server exited cleanly")
}

// runScheduler drives the hourly ingestion pipeline.
func runScheduler(ctx context.Context, pipeline *ingest.Pipeline, wg *sync.WaitGroup) {
	defer wg.Done()

	runPass := func() {
		start := time.Now()
		result, err := pipeline.Run(ctx)
		if err != nil {
			log.Printf("❌ Ingestion pass failed: %v", err)
			return
		}
		if result.Value == nil {
			log.Printf("⏭️  Ingestion pass for %s yielded no data (%v)", result.Timestamp, time.Since(start).Round(time.Millisecond))
			return
		}
		log.Printf("✅ Ingestion pass completed in %v", time.Since(start).Round(time.Millisecond))
	}

	runPass()

	ticker := time.NewTicker(config.IngestInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runPass()
		case <-ctx.Done():
			log.Println("🛑 Stopping ingestion scheduler")
			return
		}
	}
}

// runBadgerGC reclaims value-log disk space periodically.
func runBadgerGC(ctx context.Context, store *kvbadger.Store, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(badgerGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := store.RunGC(0.5); err != nil {
				log.Printf("Badger GC: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
