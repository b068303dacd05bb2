package notify

import (
	"testing"
	"time"

	"github.com/nhle/airbrb-notify/internal/model"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func TestDiff_IdempotentOnUnchangedSnapshot(t *testing.T) {
	owned := NewOwnedListingSet("L1")
	snap := []model.Booking{
		booking("1", "L1", "guest@x.com", model.BookingPending),
		booking("2", "L2", "me@x.com", model.BookingPending),
	}

	state, first := Diff(NewDiffState(), snap, "me@x.com", owned, t0)
	if len(first) != 1 {
		t.Fatalf("first pass events = %d, want 1", len(first))
	}

	_, second := Diff(state, snap, "me@x.com", owned, t0.Add(time.Second))
	if len(second) != 0 {
		t.Errorf("second pass events = %d, want 0", len(second))
	}
}

func TestDiff_NoEventOnFirstSight(t *testing.T) {
	for _, status := range []model.BookingStatus{
		model.BookingPending, model.BookingAccepted, model.BookingDeclined,
	} {
		t.Run(string(status), func(t *testing.T) {
			snap := []model.Booking{booking("9", "L5", "me@x.com", status)}

			next, events := Diff(NewDiffState(), snap, "me@x.com", NewOwnedListingSet(), t0)
			if len(events) != 0 {
				t.Errorf("events = %+v, want none", events)
			}
			if got := next.StatusByBookingID["9"]; got != status {
				t.Errorf("baseline status = %q, want %q", got, status)
			}
		})
	}
}

func TestDiff_GuestStatusChange(t *testing.T) {
	state := Seed(NewDiffState(), []model.Booking{
		booking("3", "L9", "me@x.com", model.BookingPending),
	}, "me@x.com")

	_, events := Diff(state, []model.Booking{
		booking("3", "L9", "me@x.com", model.BookingDeclined),
	}, "me@x.com", NewOwnedListingSet(), t0)

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.Audience != model.AudienceGuest {
		t.Errorf("Audience = %q, want guest", e.Audience)
	}
	if e.Message != "Your booking for listing L9 was declined." {
		t.Errorf("Message = %q", e.Message)
	}
	if e.BookingID != "3" || e.ListingID != "L9" || !e.Timestamp.Equal(t0) {
		t.Errorf("event = %+v", e)
	}
}

func TestDiff_TransitionBackToPendingIsSilent(t *testing.T) {
	state := Seed(NewDiffState(), []model.Booking{
		booking("3", "L9", "me@x.com", model.BookingAccepted),
	}, "me@x.com")

	next, events := Diff(state, []model.Booking{
		booking("3", "L9", "me@x.com", model.BookingPending),
	}, "me@x.com", NewOwnedListingSet(), t0)
	if len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}

	_, events = Diff(next, []model.Booking{
		booking("3", "L9", "me@x.com", model.BookingAccepted),
	}, "me@x.com", NewOwnedListingSet(), t0)
	if len(events) != 1 {
		t.Errorf("re-accept events = %d, want 1", len(events))
	}
}

func TestDiff_HostScoping(t *testing.T) {
	owned := NewOwnedListingSet("L1")
	state := NewDiffState()

	for i := 0; i < 5; i++ {
		var events []model.Notification
		state, events = Diff(state, []model.Booking{
			booking("42", "L2", "guest@x.com", model.BookingPending),
			booking("43", "L2", "host@x.com", model.BookingPending),
		}, "host@x.com", owned, t0)
		if len(events) != 0 {
			t.Fatalf("poll %d: events = %+v, want none", i, events)
		}
	}
}

func TestDiff_HostEventOnlyForPending(t *testing.T) {
	owned := NewOwnedListingSet("L1")
	state, events := Diff(NewDiffState(), []model.Booking{
		booking("5", "L1", "guest@x.com", model.BookingAccepted),
	}, "host@x.com", owned, t0)
	if len(events) != 0 {
		t.Fatalf("events = %+v, want none for non-pending booking", events)
	}
	if state.Knows("5") {
		t.Error("non-pending booking should not be marked known")
	}
}

func TestDiff_EncounterOrderAndBothAudiences(t *testing.T) {
	owned := NewOwnedListingSet("L1", "L2")
	state := Seed(NewDiffState(), []model.Booking{
		booking("1", "L7", "me@x.com", model.BookingPending),
	}, "me@x.com")

	_, events := Diff(state, []model.Booking{
		booking("2", "L2", "a@x.com", model.BookingPending),
		booking("1", "L7", "me@x.com", model.BookingAccepted),
		booking("3", "L1", "b@x.com", model.BookingPending),
	}, "me@x.com", owned, t0)

	want := []struct {
		audience model.Audience
		booking  string
	}{
		{model.AudienceHost, "2"},
		{model.AudienceGuest, "1"},
		{model.AudienceHost, "3"},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %d, want %d", len(events), len(want))
	}
	for i, w := range want {
		if events[i].Audience != w.audience || events[i].BookingID != w.booking {
			t.Errorf("event[%d] = %s/%s, want %s/%s",
				i, events[i].Audience, events[i].BookingID, w.audience, w.booking)
		}
	}
	if events[0].ID == events[2].ID {
		t.Error("event ids must be unique")
	}
}

func TestDiff_DoesNotMutateInput(t *testing.T) {
	state := NewDiffState()
	_, _ = Diff(state, []model.Booking{
		booking("1", "L1", "me@x.com", model.BookingPending),
	}, "me@x.com", NewOwnedListingSet("L1"), t0)

	if len(state.KnownBookingIDs) != 0 || len(state.StatusByBookingID) != 0 {
		t.Errorf("input state mutated: %+v", state)
	}
}

func TestDiff_EmptySnapshotKeepsState(t *testing.T) {
	state := Seed(NewDiffState(), []model.Booking{
		booking("1", "L1", "me@x.com", model.BookingPending),
	}, "me@x.com")

	next, events := Diff(state, nil, "me@x.com", NewOwnedListingSet("L1"), t0)
	if len(events) != 0 {
		t.Errorf("events = %d, want 0", len(events))
	}
	if !next.Knows("1") || next.StatusByBookingID["1"] != model.BookingPending {
		t.Errorf("stale entries purged: %+v", next)
	}
}

func TestSeed(t *testing.T) {
	state := Seed(NewDiffState(), []model.Booking{
		booking("1", "L1", "me@x.com", model.BookingAccepted),
		booking("2", "L2", "other@x.com", model.BookingPending),
	}, "me@x.com")

	if !state.Knows("1") || !state.Knows("2") {
		t.Errorf("known ids = %v, want 1 and 2", state.KnownBookingIDs)
	}
	if _, ok := state.StatusByBookingID["2"]; ok {
		t.Error("status recorded for another guest's booking")
	}
	if state.StatusByBookingID["1"] != model.BookingAccepted {
		t.Errorf("status[1] = %q, want accepted", state.StatusByBookingID["1"])
	}
}
