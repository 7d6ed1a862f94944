package domain

import (
	"math"
)

// Coordinate is a value object representing a geographic location with an
// optional human-readable address. Value objects are immutable.
type Coordinate struct {
	latitude  float64
	longitude float64
	address   string
}

// NewCoordinate creates a new coordinate with validation.
func NewCoordinate(lat, lng float64, address string) (Coordinate, error) {
	if lat < -90 || lat > 90 {
		return Coordinate{}, NewValidationError("latitude must be between -90 and 90, got %v", lat)
	}
	if lng < -180 || lng > 180 {
		return Coordinate{}, NewValidationError("longitude must be between -180 and 180, got %v", lng)
	}
	if lat == 0 && lng == 0 {
		return Coordinate{}, NewValidationError("coordinates cannot be zero")
	}

	return Coordinate{
		latitude:  lat,
		longitude: lng,
		address:   address,
	}, nil
}

func (c Coordinate) Latitude() float64  { return c.latitude }
func (c Coordinate) Longitude() float64 { return c.longitude }
func (c Coordinate) Address() string    { return c.address }

// DistanceTo returns the haversine distance to another coordinate in kilometers.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return haversineKm(c.latitude, c.longitude, other.latitude, other.longitude)
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
