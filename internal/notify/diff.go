package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/airbrb-notify/internal/model"
)

// OwnedListingSet is the set of listing ids owned by the current host.
type OwnedListingSet map[string]struct{}

// NewOwnedListingSet builds a set from ids.
func NewOwnedListingSet(ids ...string) OwnedListingSet {
	set := make(OwnedListingSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is owned.
func (s OwnedListingSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// DiffState is what the differ remembers between polls: every booking id
// it has already accounted for, and the last status seen for each of the
// caller's own bookings. Entries are never purged during a session.
type DiffState struct {
	KnownBookingIDs   map[string]struct{}
	StatusByBookingID map[string]model.BookingStatus
}

// NewDiffState returns an empty state.
func NewDiffState() DiffState {
	return DiffState{
		KnownBookingIDs:   make(map[string]struct{}),
		StatusByBookingID: make(map[string]model.BookingStatus),
	}
}

// Clone returns a deep copy of s.
func (s DiffState) Clone() DiffState {
	c := DiffState{
		KnownBookingIDs:   make(map[string]struct{}, len(s.KnownBookingIDs)),
		StatusByBookingID: make(map[string]model.BookingStatus, len(s.StatusByBookingID)),
	}
	for id := range s.KnownBookingIDs {
		c.KnownBookingIDs[id] = struct{}{}
	}
	for id, st := range s.StatusByBookingID {
		c.StatusByBookingID[id] = st
	}
	return c
}

// Knows reports whether the booking id has already been accounted for.
func (s DiffState) Knows(id string) bool {
	_, ok := s.KnownBookingIDs[id]
	return ok
}

// Seed records a bootstrap snapshot without producing events: every
// booking id becomes known and the caller's own bookings get a status
// baseline. The input state is not modified.
func Seed(state DiffState, snapshot []model.Booking, identity string) DiffState {
	next := state.Clone()
	for _, b := range snapshot {
		next.KnownBookingIDs[b.ID] = struct{}{}
		if b.GuestEmail == identity {
			next.StatusByBookingID[b.ID] = b.Status
		}
	}
	return next
}

// Diff compares snapshot against state and returns the next state together
// with the events it implies, in snapshot encounter order. The input state
// is not modified, so replaying the same snapshot against the returned
// state yields no events.
//
// A host event is emitted the first time a pending booking on an owned
// listing is seen. A guest event is emitted when one of the caller's own
// bookings moves to accepted or declined from a different recorded status;
// the first sighting of a booking only records its baseline.
func Diff(
	state DiffState,
	snapshot []model.Booking,
	identity string,
	owned OwnedListingSet,
	now time.Time,
) (DiffState, []model.Notification) {
	next := state.Clone()
	var events []model.Notification

	for _, b := range snapshot {
		if owned.Has(b.ListingID) &&
			!next.Knows(b.ID) &&
			b.Status == model.BookingPending {
			events = append(events, newEvent(now, model.AudienceHost, b,
				fmt.Sprintf("New booking request for listing %s.", b.ListingID)))
			next.KnownBookingIDs[b.ID] = struct{}{}
		}

		if b.GuestEmail == identity {
			prev, seen := next.StatusByBookingID[b.ID]
			if seen && prev != b.Status && b.Status.IsResolved() {
				events = append(events, newEvent(now, model.AudienceGuest, b,
					fmt.Sprintf("Your booking for listing %s was %s.", b.ListingID, b.Status)))
			}
			next.StatusByBookingID[b.ID] = b.Status
		}
	}

	return next, events
}

func newEvent(now time.Time, audience model.Audience, b model.Booking, msg string) model.Notification {
	return model.Notification{
		ID:        uuid.New().String(),
		Timestamp: now,
		Audience:  audience,
		BookingID: b.ID,
		ListingID: b.ListingID,
		Message:   msg,
	}
}
