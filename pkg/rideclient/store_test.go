package rideclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func serveRide(t *testing.T, status int, ride *Ride) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if ride != nil {
			json.NewEncoder(w).Encode(map[string]interface{}{"data": ride})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"error": "operation not allowed"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStoreReflectsServerRide(t *testing.T) {
	ride := &Ride{ID: "r1", RiderID: "rider-1", Status: "REQUESTED", QuotedPrice: 20}
	srv := serveRide(t, http.StatusCreated, ride)
	store := NewStore(New(srv.URL, "token"))

	got, err := store.Create(context.Background(), CreateRideInput{
		OriginLatitude: 51.5, OriginLongitude: -0.12,
		DestinationLatitude: 51.52, DestinationLongitude: -0.1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != "r1" {
		t.Fatalf("ride id = %s", got.ID)
	}

	active := store.ActiveRide()
	if active == nil || active.ID != "r1" || active.Status != "REQUESTED" {
		t.Fatalf("active = %+v", active)
	}
	if store.LastError() != "" {
		t.Fatalf("last error = %q, want empty", store.LastError())
	}
	if store.Loading() {
		t.Fatal("loading should be cleared after the action resolves")
	}
}

func TestStoreRecordsErrorAndRethrows(t *testing.T) {
	srv := serveRide(t, http.StatusConflict, nil)
	store := NewStore(New(srv.URL, "token"))

	_, err := store.Accept(context.Background(), "r1")
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("err = %v", err)
	}
	if store.LastError() == "" {
		t.Fatal("error not recorded in store")
	}
	if store.ActiveRide() != nil {
		t.Fatal("failed action must not replace state")
	}
	if store.Loading() {
		t.Fatal("loading should be cleared after a failure")
	}
}

func TestStoreErrorClearedByNextAction(t *testing.T) {
	failing := serveRide(t, http.StatusConflict, nil)
	store := NewStore(New(failing.URL, "token"))
	_, _ = store.Accept(context.Background(), "r1")
	if store.LastError() == "" {
		t.Fatal("expected recorded error")
	}

	ok := serveRide(t, http.StatusOK, &Ride{ID: "r1", Status: "ACCEPTED"})
	store.client = New(ok.URL, "token")
	if _, err := store.Accept(context.Background(), "r1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if store.LastError() != "" {
		t.Fatalf("last error = %q, want cleared", store.LastError())
	}
}

func TestStoreSingleInFlightAction(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(map[string]interface{}{"data": Ride{ID: "r1", Status: "ACCEPTED"}})
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	store := NewStore(New(srv.URL, "token"))

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := store.Accept(context.Background(), "r1")
		done <- err
	}()
	<-started

	// Let the first action reach the server before probing the guard.
	deadline := time.After(2 * time.Second)
	for !store.Loading() {
		select {
		case <-deadline:
			t.Fatal("first action never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := store.Start(context.Background(), "r1"); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("second action err = %v, want ErrRequestInFlight", err)
	}

	release <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("first action: %v", err)
	}
}

func TestStoreListReplacesRides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []Ride{
			{ID: "r1", Status: "REQUESTED"},
			{ID: "r2", Status: "COMPLETED"},
		}})
	}))
	t.Cleanup(srv.Close)

	store := NewStore(New(srv.URL, "token"))
	rides, err := store.List(context.Background(), ListFilter{RiderID: "rider-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rides) != 2 {
		t.Fatalf("rides = %d, want 2", len(rides))
	}
	held := store.Rides()
	if len(held) != 2 || held[0].ID != "r1" {
		t.Fatalf("held rides = %+v", held)
	}
}

func TestClientSendsAuthAndAction(t *testing.T) {
	var gotAuth, gotAction, gotRideID, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAction = r.URL.Query().Get("action")
		gotRideID = r.URL.Query().Get("rideId")
		gotMethod = r.Method
		json.NewEncoder(w).Encode(map[string]interface{}{"data": Ride{ID: "r1"}})
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, "secret-token")
	if _, err := client.RateRide(context.Background(), "r1", 5, "great"); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotAction != "rate" || gotRideID != "r1" || gotMethod != http.MethodPatch {
		t.Fatalf("request = %s action=%s rideId=%s", gotMethod, gotAction, gotRideID)
	}
}
