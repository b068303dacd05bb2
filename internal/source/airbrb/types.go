package airbrb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexID is an identifier that the backend may send either as a JSON
// number or as a string. It is normalized to its decimal string form.
type FlexID string

// UnmarshalJSON accepts 42, 42.0 and "42".
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding string id: %w", err)
		}
		*id = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding numeric id %s: %w", data, err)
	}
	if i, err := n.Int64(); err == nil {
		*id = FlexID(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("decoding numeric id %s: %w", data, err)
	}
	*id = FlexID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// ListingsResponse is the response from GET /listings.
type ListingsResponse struct {
	Listings []ListingSummary `json:"listings"`
}

// ListingSummary is a catalog entry; ownership is not included here.
type ListingSummary struct {
	ID    FlexID `json:"id"`
	Title string `json:"title"`
	Owner string `json:"owner,omitempty"`
}

// ListingResponse is the response from GET /listings/:id.
type ListingResponse struct {
	Listing *ListingDetail `json:"listing"`
}

// ListingDetail is the full listing payload.
type ListingDetail struct {
	Title     string   `json:"title"`
	Owner     string   `json:"owner"`
	Price     float64  `json:"price"`
	Thumbnail string   `json:"thumbnail"`
	Published bool     `json:"published"`
	Reviews   []Review `json:"reviews"`
	PostedOn  *string  `json:"postedOn"`
}

// Review is a guest review attached to a listing.
type Review struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

// BookingsResponse is the response from GET /bookings.
type BookingsResponse struct {
	Bookings []BookingPayload `json:"bookings"`
}

// BookingPayload is a booking as sent by the backend. Older backends put
// the guest identity under "owner" instead of "email".
type BookingPayload struct {
	ID         FlexID    `json:"id"`
	ListingID  FlexID    `json:"listingId"`
	Email      string    `json:"email"`
	Owner      string    `json:"owner"`
	Status     string    `json:"status"`
	DateRange  DateRange `json:"dateRange"`
	TotalPrice float64   `json:"totalPrice"`
}

// DateRange is the wire form of a booking's stay period.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ErrorResponse is the backend's standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
