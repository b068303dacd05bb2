package airbrb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nhle/airbrb-notify/internal/model"
	"github.com/nhle/airbrb-notify/internal/source"
)

func newBackend(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestAdapter_ListBookings(t *testing.T) {
	t.Parallel()

	ts := newBackend(t, map[string]string{
		"/bookings": `{"bookings":[
			{"id":7,"listingId":101,"email":"guest@x.com","status":"pending","dateRange":{"start":"2026-01-01","end":"2026-01-03"}},
			{"id":"8","listingId":"102","owner":"legacy@x.com","status":"accepted","dateRange":{}}
		]}`,
	})

	bookings, err := NewAdapter(ts.URL, "tok").ListBookings(context.Background())
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}

	want := []model.Booking{
		{
			ID: "7", ListingID: "101", GuestEmail: "guest@x.com",
			Status:    model.BookingPending,
			DateRange: model.DateRange{Start: "2026-01-01", End: "2026-01-03"},
		},
		{ID: "8", ListingID: "102", GuestEmail: "legacy@x.com", Status: model.BookingAccepted},
	}
	if len(bookings) != len(want) {
		t.Fatalf("got %d bookings, want %d", len(bookings), len(want))
	}
	for i := range want {
		if bookings[i] != want[i] {
			t.Errorf("booking[%d] = %+v, want %+v", i, bookings[i], want[i])
		}
	}
}

func TestAdapter_ListBookingsEmpty(t *testing.T) {
	t.Parallel()

	ts := newBackend(t, map[string]string{"/bookings": `{}`})

	bookings, err := NewAdapter(ts.URL, "tok").ListBookings(context.Background())
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(bookings) != 0 {
		t.Errorf("got %d bookings, want 0", len(bookings))
	}
}

func TestAdapter_ListListingsAndDetail(t *testing.T) {
	t.Parallel()

	ts := newBackend(t, map[string]string{
		"/listings":   `{"listings":[{"id":1,"title":"Beach"},{"id":2,"title":"Cabin"}]}`,
		"/listings/1": `{"listing":{"title":"Beach","owner":"host@x.com","price":120.5}}`,
		"/listings/2": `{"listing":null}`,
	})
	a := NewAdapter(ts.URL, "")

	ids, err := a.ListListings(context.Background())
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "2" {
		t.Fatalf("ids = %v, want [1 2]", ids)
	}

	l, err := a.GetListing(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetListing(1): %v", err)
	}
	if l.ID != "1" || l.Owner != "host@x.com" || l.Price != 120.5 {
		t.Errorf("listing = %+v", l)
	}

	if _, err := a.GetListing(context.Background(), "2"); !source.IsFetchFailure(err) {
		t.Errorf("GetListing(2) error = %v, want parse failure", err)
	}
	if _, err := a.GetListing(context.Background(), "3"); !source.IsFetchFailure(err) {
		t.Errorf("GetListing(3) error = %v, want fetch failure", err)
	}
}

func TestFactoryBindsToken(t *testing.T) {
	t.Parallel()

	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"bookings":[]}`))
	}))
	defer ts.Close()

	src := NewFactory(ts.URL)("session-token")
	if _, err := src.ListBookings(context.Background()); err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if gotAuth != "Bearer session-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestFlexID_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want FlexID
	}{
		{in: `42`, want: "42"},
		{in: `"abc"`, want: "abc"},
		{in: `1.5`, want: "1.5"},
		{in: `3.0`, want: "3"},
		{in: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			var id FlexID
			if err := json.Unmarshal([]byte(tt.in), &id); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			if id != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, id, tt.want)
			}
		})
	}

	var id FlexID
	if err := json.Unmarshal([]byte(`{}`), &id); err == nil {
		t.Error("Unmarshal({}) succeeded, want error")
	}
}
