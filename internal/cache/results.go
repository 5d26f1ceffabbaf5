package cache

import (
	"encoding/json"
	"time"

	"github.com/lnup/eventscout/internal/model"
)

// Results is a typed wrapper storing aggregated events per city and day.
type Results struct {
	cache Cache
	ttl   time.Duration
}

// NewResults wraps a Cache with event encoding
func NewResults(c Cache, ttl time.Duration) *Results {
	return &Results{cache: c, ttl: ttl}
}

// Get returns the cached events for a city on a given day, if present.
func (r *Results) Get(city, day string) ([]model.Event, bool) {
	data, found := r.cache.Get(CityKey(city, day))
	if !found {
		return nil, false
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		_ = r.cache.Delete(CityKey(city, day))
		return nil, false
	}
	return events, true
}

// Put stores the aggregated events for a city on a given day.
func (r *Results) Put(city, day string, events []model.Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return r.cache.Set(CityKey(city, day), data, r.ttl)
}
