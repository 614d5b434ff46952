package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

type NominatimGeocoder struct {
	BaseURL     string
	UserAgent   string
	MinInterval time.Duration
	Client      *http.Client

	mu        sync.Mutex
	lastReqAt time.Time
	cache     map[string]nominatimResult
}

type nominatimResult struct {
	Point       Point
	DisplayName string
	Confidence  float64
	Missing     bool
}

type nominatimItem struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (Point, string, float64, error) {
	g.mu.Lock()
	g.applyDefaults()
	if cached, ok := g.cache[query]; ok {
		g.mu.Unlock()
		if cached.Missing {
			return Point{}, "", 0, ErrNotFound
		}
		return cached.Point, cached.DisplayName, cached.Confidence, nil
	}
	wait := time.Until(g.lastReqAt.Add(g.MinInterval))
	g.lastReqAt = time.Now().Add(max(wait, 0))
	g.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Point{}, "", 0, ctx.Err()
		case <-timer.C:
		}
	}

	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.BaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Point{}, "", 0, err
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return Point{}, "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Point{}, "", 0, fmt.Errorf("nominatim http error: %s", resp.Status)
	}

	var items []nominatimItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return Point{}, "", 0, err
	}
	result, err := parseNominatimItems(items)
	if err != nil && err != ErrNotFound {
		return Point{}, "", 0, err
	}

	g.mu.Lock()
	g.cache[query] = result
	g.mu.Unlock()

	if result.Missing {
		return Point{}, "", 0, ErrNotFound
	}
	return result.Point, result.DisplayName, result.Confidence, nil
}

func (g *NominatimGeocoder) applyDefaults() {
	if g.Client == nil {
		g.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if g.BaseURL == "" {
		g.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if g.UserAgent == "" {
		g.UserAgent = "householdpro-backend"
	}
	if g.MinInterval <= 0 {
		g.MinInterval = time.Second
	}
	if g.cache == nil {
		g.cache = map[string]nominatimResult{}
	}
}

// parseNominatimItems returns a Missing result together with ErrNotFound so
// negative lookups can be cached.
func parseNominatimItems(items []nominatimItem) (nominatimResult, error) {
	if len(items) == 0 {
		return nominatimResult{Missing: true}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(items[0].Lat, 64)
	if err != nil {
		return nominatimResult{}, err
	}
	lon, err := strconv.ParseFloat(items[0].Lon, 64)
	if err != nil {
		return nominatimResult{}, err
	}
	if lat == 0 && lon == 0 && items[0].DisplayName == "" {
		return nominatimResult{Missing: true}, ErrNotFound
	}
	return nominatimResult{
		Point:       Point{Lat: lat, Lon: lon},
		DisplayName: items[0].DisplayName,
		Confidence:  items[0].Importance,
	}, nil
}
