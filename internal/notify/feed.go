package notify

import (
	"time"

	"github.com/nhle/airbrb-notify/internal/model"
)

// DefaultRetention is the number of notifications a Feed keeps by default.
const DefaultRetention = 50

// Feed is a bounded, most-recent-first list of notifications. The oldest
// entries are discarded once the cap is exceeded. Feed is not safe for
// concurrent use; the Engine serializes access.
type Feed struct {
	items []model.Notification
	cap   int
}

// NewFeed creates an empty feed holding at most retention events.
func NewFeed(retention int) *Feed {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Feed{cap: retention}
}

// Prepend places a batch of events, kept in encounter order, ahead of the
// existing ones and evicts whatever falls past the cap.
func (f *Feed) Prepend(events []model.Notification) {
	if len(events) == 0 {
		return
	}

	merged := make([]model.Notification, 0, len(events)+len(f.items))
	merged = append(merged, events...)
	merged = append(merged, f.items...)

	if len(merged) > f.cap {
		merged = merged[:f.cap]
	}
	f.items = merged
}

// Items returns a copy of the feed, newest first.
func (f *Feed) Items() []model.Notification {
	out := make([]model.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Len returns the number of retained events.
func (f *Feed) Len() int {
	return len(f.items)
}

// NewestTimestamp returns the latest event timestamp in the feed, or the
// zero time when the feed is empty.
func (f *Feed) NewestTimestamp() time.Time {
	var newest time.Time
	for _, n := range f.items {
		if n.Timestamp.After(newest) {
			newest = n.Timestamp
		}
	}
	return newest
}

// Clear empties the feed.
func (f *Feed) Clear() {
	f.items = nil
}
