package model

// BookingStatus is the lifecycle state of a booking as reported by the backend.
type BookingStatus string

// Booking statuses understood by the notifier.
const (
	BookingPending  BookingStatus = "pending"
	BookingAccepted BookingStatus = "accepted"
	BookingDeclined BookingStatus = "declined"
)

// IsResolved reports whether the host has decided on the booking.
func (s BookingStatus) IsResolved() bool {
	return s == BookingAccepted || s == BookingDeclined
}

// DateRange is the stay period requested by a booking. Dates are kept as
// the backend sends them (ISO date strings).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Booking is one row of a bookings snapshot. The client treats it as
// read-only; only Status is expected to change between polls.
type Booking struct {
	// ID is the stable backend identifier of the booking.
	ID string `json:"id"`

	// ListingID is the listing the booking was made against.
	ListingID string `json:"listing_id"`

	// GuestEmail is the identity of the guest who made the booking.
	GuestEmail string `json:"guest_email"`

	// Status is the current booking status.
	Status BookingStatus `json:"status"`

	// DateRange is the requested stay.
	DateRange DateRange `json:"date_range"`
}

// Listing is the detail payload of a single property listing.
type Listing struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Owner     string  `json:"owner"`
	Price     float64 `json:"price"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Published bool    `json:"published"`
}
