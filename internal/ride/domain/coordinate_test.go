package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNewCoordinateValidation(t *testing.T) {
	cases := []struct {
		lat, lng float64
		ok       bool
	}{
		{51.5, -0.12, true},
		{-90, 10, true},
		{90.1, 0.1, false},
		{-90.1, 0.1, false},
		{10, 180.5, false},
		{10, -180.5, false},
		{0, 0, false},
	}
	for _, c := range cases {
		_, err := NewCoordinate(c.lat, c.lng, "")
		if c.ok && err != nil {
			t.Errorf("NewCoordinate(%v, %v): unexpected error %v", c.lat, c.lng, err)
		}
		if !c.ok {
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("NewCoordinate(%v, %v): expected ValidationError, got %v", c.lat, c.lng, err)
			}
		}
	}
}

func TestDistanceTo(t *testing.T) {
	// London -> Paris, roughly 344 km.
	london, _ := NewCoordinate(51.5074, -0.1278, "")
	paris, _ := NewCoordinate(48.8566, 2.3522, "")

	d := london.DistanceTo(paris)
	if math.Abs(d-344) > 5 {
		t.Fatalf("expected ~344 km, got %v", d)
	}
	if london.DistanceTo(london) != 0 {
		t.Fatalf("distance to self must be zero")
	}
}

func TestFareQuoter(t *testing.T) {
	q := NewFareQuoter()
	a, _ := NewCoordinate(51.50, -0.12, "")
	b, _ := NewCoordinate(51.51, -0.12, "")
	stop, _ := NewCoordinate(51.505, -0.12, "")

	direct := q.Quote(a, b, nil)
	if direct <= 2.50 {
		t.Fatalf("quote must exceed the base fare, got %v", direct)
	}

	withStop := q.Quote(a, b, []Coordinate{stop})
	if withStop <= direct {
		t.Fatalf("adding a stop must not make the trip cheaper: %v <= %v", withStop, direct)
	}
}
