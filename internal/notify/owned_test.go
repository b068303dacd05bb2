package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/nhle/airbrb-notify/internal/source"
)

func TestResolveOwned(t *testing.T) {
	src := newFakeSource()
	src.addListing("L1", "host@x.com")
	src.addListing("L2", "other@x.com")
	src.addListing("L3", "host@x.com")
	src.addListing("L4", "host@x.com")
	src.detailErr["L4"] = &source.FetchError{Kind: source.KindFetch, Op: "GET /listings/L4", Err: errors.New("500")}

	owned, err := ResolveOwned(context.Background(), src, "host@x.com", 2)
	if err != nil {
		t.Fatalf("ResolveOwned: %v", err)
	}

	if len(owned) != 2 || !owned.Has("L1") || !owned.Has("L3") {
		t.Errorf("owned = %v, want {L1, L3}", owned)
	}
}

func TestResolveOwned_CatalogFailure(t *testing.T) {
	src := newFakeSource()
	src.listingsErr = &source.FetchError{Kind: source.KindFetch, Op: "GET /listings", Err: errors.New("down")}

	if _, err := ResolveOwned(context.Background(), src, "host@x.com", 4); !source.IsFetchFailure(err) {
		t.Errorf("error = %v, want fetch failure", err)
	}
}

func TestResolveOwned_AuthFailureAborts(t *testing.T) {
	src := newFakeSource()
	src.addListing("L1", "host@x.com")
	src.detailErr["L1"] = &source.AuthError{Status: 401, Message: "Invalid token"}

	if _, err := ResolveOwned(context.Background(), src, "host@x.com", 4); !source.IsAuthError(err) {
		t.Errorf("error = %v, want auth error", err)
	}
}
