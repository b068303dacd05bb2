package airbrb

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nhle/airbrb-notify/internal/model"
	"github.com/nhle/airbrb-notify/internal/source"
)

// Adapter implements source.Source for the AirBrB backend.
type Adapter struct {
	client *Client
}

// NewAdapter creates a new AirBrB source adapter authenticated with token.
func NewAdapter(baseURL, token string, opts ...ClientOption) *Adapter {
	return &Adapter{client: NewClient(baseURL, token, opts...)}
}

// NewFactory returns a source.Factory that binds adapters for baseURL to
// whichever token the session provides.
func NewFactory(baseURL string, opts ...ClientOption) source.Factory {
	return func(token string) source.Source {
		return NewAdapter(baseURL, token, opts...)
	}
}

// ListBookings retrieves the full bookings snapshot via GET /bookings.
func (a *Adapter) ListBookings(ctx context.Context) ([]model.Booking, error) {
	var resp BookingsResponse
	if err := a.client.Get(ctx, "/bookings", &resp); err != nil {
		return nil, fmt.Errorf("fetching bookings: %w", err)
	}

	bookings := make([]model.Booking, 0, len(resp.Bookings))
	for _, b := range resp.Bookings {
		bookings = append(bookings, bookingToModel(b))
	}
	return bookings, nil
}

// ListListings retrieves the catalog via GET /listings and returns the
// listing ids in catalog order.
func (a *Adapter) ListListings(ctx context.Context) ([]string, error) {
	var resp ListingsResponse
	if err := a.client.Get(ctx, "/listings", &resp); err != nil {
		return nil, fmt.Errorf("fetching listings: %w", err)
	}

	ids := make([]string, 0, len(resp.Listings))
	for _, l := range resp.Listings {
		if l.ID == "" {
			continue
		}
		ids = append(ids, string(l.ID))
	}
	return ids, nil
}

// GetListing retrieves a single listing via GET /listings/:id.
func (a *Adapter) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	var resp ListingResponse
	path := "/listings/" + url.PathEscape(id)
	if err := a.client.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching listing %s: %w", id, err)
	}
	if resp.Listing == nil {
		return nil, fmt.Errorf("fetching listing %s: %w", id, &source.FetchError{
			Kind: source.KindParse,
			Op:   "GET " + path,
			Err:  errors.New("response has no listing object"),
		})
	}

	d := resp.Listing
	return &model.Listing{
		ID:        id,
		Title:     d.Title,
		Owner:     d.Owner,
		Price:     d.Price,
		Thumbnail: d.Thumbnail,
		Published: d.Published,
	}, nil
}

// bookingToModel converts a wire booking into the model representation.
func bookingToModel(b BookingPayload) model.Booking {
	guest := b.Email
	if guest == "" {
		guest = b.Owner
	}
	return model.Booking{
		ID:         string(b.ID),
		ListingID:  string(b.ListingID),
		GuestEmail: guest,
		Status:     model.BookingStatus(b.Status),
		DateRange: model.DateRange{
			Start: b.DateRange.Start,
			End:   b.DateRange.End,
		},
	}
}
