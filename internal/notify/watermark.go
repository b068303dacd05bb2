package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nhle/airbrb-notify/internal/model"
	"github.com/nhle/airbrb-notify/internal/store"
)

const watermarkKeyPrefix = "airbrb_notifs_seen_"

// WatermarkKey returns the storage key of identity's "last seen" mark.
func WatermarkKey(identity string) string {
	return watermarkKeyPrefix + identity
}

// Watermark tracks the moment an identity last acknowledged its feed.
// Marks are persisted as unix milliseconds.
type Watermark struct {
	kv       store.KV
	identity string
	seen     time.Time
}

// LoadWatermark reads identity's mark from kv. A missing or unreadable
// value counts as "never seen".
func LoadWatermark(ctx context.Context, kv store.KV, identity string) (*Watermark, error) {
	w := &Watermark{kv: kv, identity: identity}

	raw, found, err := kv.Get(ctx, WatermarkKey(identity))
	if err != nil {
		return w, fmt.Errorf("loading watermark for %s: %w", identity, err)
	}
	if !found {
		return w, nil
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("ignoring malformed watermark", "identity", identity, "value", raw)
		return w, nil
	}
	w.seen = time.UnixMilli(ms)
	return w, nil
}

// Identity returns the identity the mark belongs to.
func (w *Watermark) Identity() string {
	return w.identity
}

// Seen returns the current mark; zero means never acknowledged.
func (w *Watermark) Seen() time.Time {
	return w.seen
}

// Unread counts events strictly newer than the mark.
func (w *Watermark) Unread(events []model.Notification) int {
	n := 0
	for _, e := range events {
		if e.Timestamp.After(w.seen) {
			n++
		}
	}
	return n
}

// Acknowledge moves the mark to the later of now and newest, rounded up to
// the next millisecond, and persists it. The in-memory mark moves even if
// persisting fails, so the unread count resets immediately.
func (w *Watermark) Acknowledge(ctx context.Context, now, newest time.Time) error {
	mark := now
	if newest.After(mark) {
		mark = newest
	}
	if rounded := mark.Truncate(time.Millisecond); rounded.Before(mark) {
		mark = rounded.Add(time.Millisecond)
	}
	w.seen = mark

	if err := w.kv.Set(ctx, WatermarkKey(w.identity), strconv.FormatInt(mark.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("saving watermark for %s: %w", w.identity, err)
	}
	return nil
}
