package notify

import (
	"context"
	"sync"

	"github.com/nhle/airbrb-notify/internal/model"
	"github.com/nhle/airbrb-notify/internal/source"
)

// fakeSource is an in-memory backend whose snapshot can be swapped
// between polls.
type fakeSource struct {
	mu          sync.Mutex
	bookings    []model.Booking
	listings    map[string]string // id -> owner
	order       []string
	bookingsErr error
	listingsErr error
	detailErr   map[string]error
	block       chan struct{} // when set, ListBookings waits on it
	entered     chan struct{}
	calls       int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		listings:  make(map[string]string),
		detailErr: make(map[string]error),
	}
}

func (f *fakeSource) addListing(id, owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[id] = owner
	f.order = append(f.order, id)
}

func (f *fakeSource) setBookings(b ...model.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append([]model.Booking(nil), b...)
}

func (f *fakeSource) failBookings(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookingsErr = err
}

func (f *fakeSource) ListBookings(ctx context.Context) ([]model.Booking, error) {
	f.mu.Lock()
	block, entered := f.block, f.entered
	f.calls++
	f.mu.Unlock()

	if block != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &source.FetchError{Kind: source.KindFetch, Op: "GET /bookings", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookingsErr != nil {
		return nil, f.bookingsErr
	}
	return append([]model.Booking(nil), f.bookings...), nil
}

func (f *fakeSource) ListListings(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listingsErr != nil {
		return nil, f.listingsErr
	}
	return append([]string(nil), f.order...), nil
}

func (f *fakeSource) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.detailErr[id]; err != nil {
		return nil, err
	}
	owner, ok := f.listings[id]
	if !ok {
		return nil, &source.FetchError{Kind: source.KindFetch, Op: "GET /listings/" + id, Err: context.Canceled}
	}
	return &model.Listing{ID: id, Owner: owner}, nil
}

func (f *fakeSource) bookingCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func booking(id, listing, guest string, status model.BookingStatus) model.Booking {
	return model.Booking{ID: id, ListingID: listing, GuestEmail: guest, Status: status}
}
