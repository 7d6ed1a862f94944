package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTracker implements Tracker on Redis GEO commands, with per-driver
// metadata in a hash alongside the geo set.
type RedisTracker struct {
	client *redis.Client
	key    string
}

func NewRedisTracker(client *redis.Client, key string) *RedisTracker {
	return &RedisTracker{client: client, key: key}
}

func (t *RedisTracker) Update(ctx context.Context, pos DriverPosition) error {
	if err := t.client.GeoAdd(ctx, t.key, &redis.GeoLocation{
		Name:      pos.DriverID,
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
	}).Err(); err != nil {
		return fmt.Errorf("geoadd driver %s: %w", pos.DriverID, err)
	}
	return t.client.HSet(ctx, t.metaKey(pos.DriverID), map[string]interface{}{
		"online":  strconv.FormatBool(pos.Online),
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

func (t *RedisTracker) Locate(ctx context.Context, driverID string) (float64, float64, bool, error) {
	meta, err := t.client.HGetAll(ctx, t.metaKey(driverID)).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("driver meta %s: %w", driverID, err)
	}
	if meta["online"] != "true" {
		return 0, 0, false, nil
	}

	positions, err := t.client.GeoPos(ctx, t.key, driverID).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("geopos driver %s: %w", driverID, err)
	}
	if len(positions) == 0 || positions[0] == nil {
		return 0, 0, false, nil
	}
	return positions[0].Latitude, positions[0].Longitude, true, nil
}

func (t *RedisTracker) Nearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]DriverPosition, error) {
	res, err := t.client.GeoSearchLocation(ctx, t.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Latitude:   lat,
			Longitude:  lng,
			Radius:     radiusM,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch: %w", err)
	}

	out := make([]DriverPosition, 0, len(res))
	for _, loc := range res {
		pos := DriverPosition{
			DriverID:  loc.Name,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		}
		if meta, err := t.client.HGetAll(ctx, t.metaKey(loc.Name)).Result(); err == nil {
			pos.Online = meta["online"] == "true"
			if ts, err := time.Parse(time.RFC3339, meta["updated"]); err == nil {
				pos.UpdatedAt = ts
			}
		}
		if !pos.Online {
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}

func (t *RedisTracker) metaKey(driverID string) string {
	return t.key + ":meta:" + driverID
}
