package geo

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// DriverPosition is one driver's last reported location.
type DriverPosition struct {
	DriverID  string    `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Online    bool      `json:"online"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker indexes driver positions for lookup and proximity search.
type Tracker interface {
	Update(ctx context.Context, pos DriverPosition) error
	Locate(ctx context.Context, driverID string) (lat, lng float64, ok bool, err error)
	Nearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]DriverPosition, error)
}

// MemoryTracker is an in-process Tracker backed by a map with a linear
// proximity scan. It serves tests and single-node deployments.
type MemoryTracker struct {
	mu      sync.RWMutex
	drivers map[string]DriverPosition
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{drivers: make(map[string]DriverPosition)}
}

func (t *MemoryTracker) Update(_ context.Context, pos DriverPosition) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos.UpdatedAt = time.Now()
	t.drivers[pos.DriverID] = pos
	return nil
}

func (t *MemoryTracker) Locate(_ context.Context, driverID string) (float64, float64, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.drivers[driverID]
	if !ok || !pos.Online {
		return 0, 0, false, nil
	}
	return pos.Latitude, pos.Longitude, true, nil
}

func (t *MemoryTracker) Nearby(_ context.Context, lat, lng, radiusM float64, limit int) ([]DriverPosition, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	type scored struct {
		pos  DriverPosition
		dist float64
	}
	candidates := make([]scored, 0, len(t.drivers))
	for _, pos := range t.drivers {
		if !pos.Online {
			continue
		}
		dist := haversineMeters(lat, lng, pos.Latitude, pos.Longitude)
		if dist > radiusM {
			continue
		}
		candidates = append(candidates, scored{pos, dist})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]DriverPosition, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.pos)
	}
	return out, nil
}

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusM = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
