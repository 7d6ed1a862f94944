package domain

// FareQuoter estimates a quoted price for a trip. Used when the client
// requests a ride without supplying its own quote.
type FareQuoter struct {
	baseFare  float64
	perKmRate float64
	perStop   float64
}

// NewFareQuoter returns a quoter with default rates in currency units.
func NewFareQuoter() *FareQuoter {
	return &FareQuoter{
		baseFare:  2.50,
		perKmRate: 1.20,
		perStop:   0.75,
	}
}

func NewFareQuoterWithRates(baseFare, perKmRate, perStop float64) *FareQuoter {
	return &FareQuoter{baseFare: baseFare, perKmRate: perKmRate, perStop: perStop}
}

// Quote estimates the fare for a trip through the given stops. Distance is
// accumulated leg by leg: origin -> stops... -> destination.
func (q *FareQuoter) Quote(origin, destination Coordinate, stops []Coordinate) float64 {
	distanceKm := 0.0
	prev := origin
	for _, stop := range stops {
		distanceKm += prev.DistanceTo(stop)
		prev = stop
	}
	distanceKm += prev.DistanceTo(destination)

	return q.baseFare + distanceKm*q.perKmRate + float64(len(stops))*q.perStop
}
