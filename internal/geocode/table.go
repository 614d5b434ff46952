package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// defaultCities is the built-in lookup table for service areas.
var defaultCities = map[string]Point{
	"delhi":      {Lat: 28.6139, Lon: 77.2090},
	"new delhi":  {Lat: 28.6139, Lon: 77.2090},
	"noida":      {Lat: 28.5355, Lon: 77.3910},
	"gurgaon":    {Lat: 28.4595, Lon: 77.0266},
	"gurugram":   {Lat: 28.4595, Lon: 77.0266},
	"mumbai":     {Lat: 19.0760, Lon: 72.8777},
	"thane":      {Lat: 19.2183, Lon: 72.9781},
	"pune":       {Lat: 18.5204, Lon: 73.8567},
	"bangalore":  {Lat: 12.9716, Lon: 77.5946},
	"bengaluru":  {Lat: 12.9716, Lon: 77.5946},
	"hyderabad":  {Lat: 17.3850, Lon: 78.4867},
	"chennai":    {Lat: 13.0827, Lon: 80.2707},
	"kolkata":    {Lat: 22.5726, Lon: 88.3639},
	"ahmedabad":  {Lat: 23.0225, Lon: 72.5714},
	"jaipur":     {Lat: 26.9124, Lon: 75.7873},
	"lucknow":    {Lat: 26.8467, Lon: 80.9462},
	"chandigarh": {Lat: 30.7333, Lon: 76.7794},
}

// CityTable resolves a location when a known city name appears as a substring of it.
// Longer names are tried first so "new delhi" wins over "delhi".
type CityTable struct {
	names  []string
	coords map[string]Point
}

func NewCityTable(extra map[string]Point) *CityTable {
	coords := make(map[string]Point, len(defaultCities)+len(extra))
	for k, v := range defaultCities {
		coords[k] = v
	}
	for k, v := range extra {
		key := normalizeKey(k)
		if key == "" {
			continue
		}
		coords[key] = v
	}
	names := make([]string, 0, len(coords))
	for k := range coords {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) == len(names[j]) {
			return names[i] < names[j]
		}
		return len(names[i]) > len(names[j])
	})
	return &CityTable{names: names, coords: coords}
}

func (t *CityTable) Resolve(_ context.Context, text string) (Point, bool) {
	v := normalizeKey(text)
	if v == "" {
		return Point{}, false
	}
	for _, name := range t.names {
		if strings.Contains(v, name) {
			return t.coords[name], true
		}
	}
	return Point{}, false
}

func (t *CityTable) Len() int {
	return len(t.names)
}

// LoadCityCoords reads a JSON object of city name -> [lat, lon].
func LoadCityCoords(path string) (map[string]Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read city coords: %w", err)
	}
	var raw map[string][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode city coords: %w", err)
	}
	out := make(map[string]Point, len(raw))
	for k, v := range raw {
		if len(v) < 2 {
			continue
		}
		out[k] = Point{Lat: v[0], Lon: v[1]}
	}
	return out, nil
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
