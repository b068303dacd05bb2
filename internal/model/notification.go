package model

import "time"

// Audience identifies which role a notification is addressed to.
type Audience string

const (
	AudienceHost  Audience = "host"
	AudienceGuest Audience = "guest"
)

// Label returns the capitalized audience name used for display.
func (a Audience) Label() string {
	switch a {
	case AudienceHost:
		return "Host"
	case AudienceGuest:
		return "Guest"
	default:
		return string(a)
	}
}

// Notification is a single synthesized booking event. It is immutable
// once created.
type Notification struct {
	// ID is unique per event.
	ID string `json:"id"`

	// Timestamp is when the event was synthesized.
	Timestamp time.Time `json:"timestamp"`

	// Audience is the role the event is relevant to.
	Audience Audience `json:"audience"`

	// BookingID is the booking whose transition produced the event.
	BookingID string `json:"booking_id"`

	// ListingID is the listing the booking belongs to.
	ListingID string `json:"listing_id"`

	// Message is the human-readable notification text.
	Message string `json:"message"`
}
