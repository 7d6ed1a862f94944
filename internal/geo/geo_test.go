package geo

import (
	"context"
	"testing"
)

func TestMemoryTrackerLocate(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	if err := tr.Update(ctx, DriverPosition{DriverID: "d1", Latitude: 51.5, Longitude: -0.12, Online: true}); err != nil {
		t.Fatalf("update: %v", err)
	}

	lat, lng, ok, err := tr.Locate(ctx, "d1")
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if !ok {
		t.Fatal("expected driver to be located")
	}
	if lat != 51.5 || lng != -0.12 {
		t.Fatalf("got (%v, %v)", lat, lng)
	}

	if _, _, ok, _ := tr.Locate(ctx, "missing"); ok {
		t.Fatal("unknown driver should not be located")
	}
}

func TestMemoryTrackerOfflineHidden(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	if err := tr.Update(ctx, DriverPosition{DriverID: "d1", Latitude: 51.5, Longitude: -0.12, Online: false}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, _, ok, _ := tr.Locate(ctx, "d1"); ok {
		t.Fatal("offline driver should not be located")
	}
	near, err := tr.Nearby(ctx, 51.5, -0.12, 1000, 10)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(near) != 0 {
		t.Fatalf("offline driver leaked into nearby: %v", near)
	}
}

func TestMemoryTrackerNearbyOrderAndRadius(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker()

	// London center, a close driver, a farther driver, and one in Paris.
	_ = tr.Update(ctx, DriverPosition{DriverID: "close", Latitude: 51.5075, Longitude: -0.1278, Online: true})
	_ = tr.Update(ctx, DriverPosition{DriverID: "far", Latitude: 51.52, Longitude: -0.10, Online: true})
	_ = tr.Update(ctx, DriverPosition{DriverID: "paris", Latitude: 48.8566, Longitude: 2.3522, Online: true})

	near, err := tr.Nearby(ctx, 51.5074, -0.1278, 5000, 10)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(near) != 2 {
		t.Fatalf("expected 2 drivers within 5km, got %d", len(near))
	}
	if near[0].DriverID != "close" || near[1].DriverID != "far" {
		t.Fatalf("wrong order: %s, %s", near[0].DriverID, near[1].DriverID)
	}

	limited, _ := tr.Nearby(ctx, 51.5074, -0.1278, 5000, 1)
	if len(limited) != 1 || limited[0].DriverID != "close" {
		t.Fatalf("limit not applied: %v", limited)
	}
}
