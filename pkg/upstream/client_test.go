package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSensors(t *testing.T) {
	var gotKey, gotBBox string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sensors" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("X-API-Key")
		gotBBox = r.URL.Query().Get("bbox")
		fmt.Fprint(w, `{"results":[{"id":101,"name":"Mitte"},{"id":102,"name":"Wedding"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "key123")
	sensors, err := c.Sensors(context.Background(), "13.0,52.3,13.8,52.7", "pm25")
	if err != nil {
		t.Fatalf("Sensors failed: %v", err)
	}

	if len(sensors) != 2 || sensors[0].ID != 101 {
		t.Errorf("Unexpected sensors: %+v", sensors)
	}
	if gotKey != "key123" {
		t.Errorf("Expected API key header, got %q", gotKey)
	}
	if gotBBox != "13.0,52.3,13.8,52.7" {
		t.Errorf("Expected bbox param, got %q", gotBBox)
	}
}

func TestHourlyAverages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sensors/101/hours" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"results":[
			{"value":12.5,"datetime_to":"2025-01-01T10:00:00Z"},
			{"value":13.0,"datetime_to":"2025-01-01T11:00:00Z"},
			{"value":0,"datetime_to":"garbage"}
		]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	samples, err := c.HourlyAverages(context.Background(), 101, from, from.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("HourlyAverages failed: %v", err)
	}

	// The unparseable timestamp is dropped, not fatal.
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0].SensorID != "101" || samples[0].Value != 12.5 {
		t.Errorf("Unexpected sample: %+v", samples[0])
	}
}

func TestMeasurements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/measurements" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"results":[{"sensor_id":7,"value":22.5,"datetime":"2025-01-01T10:15:00Z"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	from := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	samples, err := c.Measurements(context.Background(), "bbox", "pm25", from, from.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("Measurements failed: %v", err)
	}
	if len(samples) != 1 || samples[0].Value != 22.5 {
		t.Errorf("Unexpected samples: %+v", samples)
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.Sensors(context.Background(), "bbox", "pm25"); err == nil {
		t.Error("Expected error on HTTP 429")
	}
}
