package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/airbrb-notify/internal/model"
)

// AuthError indicates that the backend rejected the bearer token.
// It is returned by source clients when a 401 or 403 response is received.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%d): %s", e.Status, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// FailureKind classifies recoverable fetch failures.
type FailureKind int

const (
	// KindFetch is a transport or non-2xx HTTP failure, including timeouts.
	KindFetch FailureKind = iota
	// KindParse is a response body that could not be decoded.
	KindParse
)

func (k FailureKind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// FetchError is a recoverable failure of a single backend read. Callers
// skip the current cycle and keep their last known state.
type FetchError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s failure on %s: %v", e.Kind, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchFailure reports whether err is a recoverable fetch or parse failure.
func IsFetchFailure(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// Source is the read-only view of the booking backend the notifier needs.
type Source interface {
	// ListBookings returns the full current bookings snapshot visible to
	// the authenticated user.
	ListBookings(ctx context.Context) ([]model.Booking, error)

	// ListListings returns the ids of every listing in the catalog.
	ListListings(ctx context.Context) ([]string, error)

	// GetListing returns the detail payload for a single listing,
	// including its owner.
	GetListing(ctx context.Context, id string) (*model.Listing, error)
}

// Factory builds a Source bound to a bearer token.
type Factory func(token string) Source
