package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aircast/aircast/pkg/config"
)

// Sensor is one monitoring station returned by the discovery query.
type Sensor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Sample is a single timestamped value from one sensor. Samples are
// ephemeral: the reducer consumes them and they are never persisted.
type Sample struct {
	SensorID  string
	Timestamp time.Time
	Value     float64
}

// Client queries the upstream air-quality API. All methods are best-effort:
// a failure means no data for that call, and callers degrade rather than
// abort the ingestion pass.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates an upstream client. apiKey may be empty for keyless access.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: config.UpstreamTimeout,
		},
	}
}

// Sensors discovers sensors of the given pollutant type inside bbox.
func (c *Client) Sensors(ctx context.Context, bbox, pollutant string) ([]Sensor, error) {
	params := url.Values{}
	params.Set("bbox", bbox)
	params.Set("parameter", pollutant)
	params.Set("limit", "100")

	var resp struct {
		Results []Sensor `json:"results"`
	}
	if err := c.get(ctx, "/sensors", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// HourlyAverages fetches per-hour aggregates for one sensor. Returned
// timestamps mark the end of each hourly window.
func (c *Client) HourlyAverages(ctx context.Context, sensorID int64, from, to time.Time) ([]Sample, error) {
	params := url.Values{}
	params.Set("datetime_from", from.UTC().Format(time.RFC3339))
	params.Set("datetime_to", to.UTC().Format(time.RFC3339))

	var resp struct {
		Results []struct {
			Value      float64 `json:"value"`
			DatetimeTo string  `json:"datetime_to"`
		} `json:"results"`
	}
	path := fmt.Sprintf("/sensors/%d/hours", sensorID)
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	id := strconv.FormatInt(sensorID, 10)
	samples := make([]Sample, 0, len(resp.Results))
	for _, r := range resp.Results {
		ts, err := time.Parse(time.RFC3339, r.DatetimeTo)
		if err != nil {
			continue
		}
		samples = append(samples, Sample{SensorID: id, Timestamp: ts.UTC(), Value: r.Value})
	}
	return samples, nil
}

// Measurements fetches raw (sub-hourly) measurements for the region. Used
// as the fallback when the hourly endpoint yields nothing.
func (c *Client) Measurements(ctx context.Context, bbox, pollutant string, from, to time.Time) ([]Sample, error) {
	params := url.Values{}
	params.Set("bbox", bbox)
	params.Set("parameter", pollutant)
	params.Set("datetime_from", from.UTC().Format(time.RFC3339))
	params.Set("datetime_to", to.UTC().Format(time.RFC3339))
	params.Set("limit", "1000")

	var resp struct {
		Results []struct {
			SensorID int64   `json:"sensor_id"`
			Value    float64 `json:"value"`
			Datetime string  `json:"datetime"`
		} `json:"results"`
	}
	if err := c.get(ctx, "/measurements", params, &resp); err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(resp.Results))
	for _, r := range resp.Results {
		ts, err := time.Parse(time.RFC3339, r.Datetime)
		if err != nil {
			continue
		}
		samples = append(samples, Sample{
			SensorID:  strconv.FormatInt(r.SensorID, 10),
			Timestamp: ts.UTC(),
			Value:     r.Value,
		})
	}
	return samples, nil
}

// get performs one GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
