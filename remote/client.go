// Package remote forwards locations to an HTTP collector.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotblauer/trailhud/params"
	"github.com/rotblauer/trailhud/types"
)

// LocationPayload is the body of a location post.
type LocationPayload struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	SpeedMS    float64 `json:"speedMS"`
	DateString string  `json:"dateString"`
}

func NewLocationPayload(l types.Location) LocationPayload {
	ds := l.DateString
	if ds == "" && !l.Date.IsZero() {
		ds = types.FormatDate(l.Date)
	}
	return LocationPayload{
		Latitude:   l.Latitude,
		Longitude:  l.Longitude,
		SpeedMS:    l.SpeedMS,
		DateString: ds,
	}
}

// LocationResult is a location as the collector returns it.
type LocationResult struct {
	ID         string  `json:"_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	SpeedMS    float64 `json:"speedMS"`
	DateString string  `json:"dateString"`
}

// Location converts a result back into a Location.
// Results without an ID get a fresh one.
func (r LocationResult) Location() types.Location {
	l := types.Location{
		ID:         r.ID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		SpeedMS:    r.SpeedMS,
		DateString: r.DateString,
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if t, err := time.Parse(time.RFC3339, r.DateString); err == nil {
		l.Date = t
	}
	return l
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     *slog.Logger
}

func NewClient(config *params.SyncConfig) (*Client, error) {
	if config == nil {
		config = params.DefaultSyncConfig()
	}
	base := config.URL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("sync url: %w", err)
	}
	return &Client{
		BaseURL:    base,
		HTTPClient: &http.Client{Timeout: config.Timeout},
		logger:     slog.With("d", "sync"),
	}, nil
}

func (c *Client) locationURL() string {
	return c.BaseURL + params.SyncLocationPath
}

// PostLocation sends one location. Any HTTP response counts as delivered;
// the status is only logged.
func (c *Client) PostLocation(ctx context.Context, l types.Location) (int, error) {
	body, err := json.Marshal(NewLocationPayload(l))
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.locationURL(), bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post location: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	c.logger.Debug("Posted location", "status", res.StatusCode, "date", l.DateString)
	return res.StatusCode, nil
}

// FetchLocations lists the collector's locations.
func (c *Client) FetchLocations(ctx context.Context) ([]LocationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.locationURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch locations: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("fetch locations: unexpected status %s", res.Status)
	}
	out := []LocationResult{}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fetch locations: decode: %w", err)
	}
	return out, nil
}
