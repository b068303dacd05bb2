package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/airbrb-notify/internal/model"
	"github.com/nhle/airbrb-notify/internal/source"
	"github.com/nhle/airbrb-notify/internal/store"
)

// State is the lifecycle state of an Engine.
type State int

const (
	// StateIdle means no session is present; the engine does nothing.
	StateIdle State = iota
	// StateBootstrapping means a session is present but the owned listings
	// and the silent baseline snapshot have not been loaded yet.
	StateBootstrapping
	// StatePolling means every poll diffs a fresh snapshot.
	StatePolling
	// StateStopped means the session ended; feed and diff state are gone.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBootstrapping:
		return "bootstrapping"
	case StatePolling:
		return "polling"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrPollInFlight is returned by Poll when another poll has not
	// finished yet. The skipped call has no effect.
	ErrPollInFlight = errors.New("poll already in flight")

	// ErrInactive is returned when the engine has no active session.
	ErrInactive = errors.New("notification engine is not active")
)

// Session is the identity and opaque bearer token of the logged-in user.
type Session struct {
	Identity string
	Token    string
}

// Valid reports whether both identity and token are present.
func (s Session) Valid() bool {
	return s.Identity != "" && s.Token != ""
}

// Config tunes an Engine. Zero values fall back to defaults.
type Config struct {
	Retention         int
	FetchTimeout      time.Duration
	DetailConcurrency int
	Now               func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.DetailConcurrency <= 0 {
		c.DetailConcurrency = 8
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// View is a read-only copy of what the presentation layer shows.
type View struct {
	State     State
	Identity  string
	Events    []model.Notification
	Unread    int
	Seen      time.Time
	LastError error
}

// PollResult describes the effect of one Poll call.
type PollResult struct {
	// Bootstrapped is true when the call performed the silent bootstrap
	// instead of a diff pass.
	Bootstrapped bool

	// Events are the notifications synthesized by this call.
	Events []model.Notification

	// View is the engine view after the call.
	View View
}

// Engine turns successive booking snapshots into a notification feed for
// one session at a time. All state is guarded by mu; pollMu serializes
// polls so two snapshot results never interleave their mutations.
type Engine struct {
	factory source.Factory
	kv      store.KV
	cfg     Config

	pollMu sync.Mutex

	mu         sync.Mutex
	state      State
	session    Session
	src        source.Source
	owned      OwnedListingSet
	diff       DiffState
	feed       *Feed
	watermark  *Watermark
	lastErr    error
	generation uint64
}

// NewEngine creates an idle engine that builds backend clients with
// factory and persists watermarks in kv.
func NewEngine(factory source.Factory, kv store.KV, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		factory: factory,
		kv:      kv,
		cfg:     cfg,
		state:   StateIdle,
		feed:    NewFeed(cfg.Retention),
	}
}

// Activate binds the engine to sess. An invalid session moves the engine
// to idle. A new identity or token discards everything from the previous
// session and moves to bootstrapping; the next Poll performs the bootstrap.
// Re-activating the current session is a no-op.
func (e *Engine) Activate(sess Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !sess.Valid() {
		e.resetLocked(StateIdle)
		e.session = Session{}
		return
	}

	if sess == e.session &&
		(e.state == StateBootstrapping || e.state == StatePolling) {
		return
	}

	e.resetLocked(StateBootstrapping)
	e.session = sess
	e.src = e.factory(sess.Token)
	slog.Info("notification engine activated", "identity", sess.Identity)
}

// Deactivate ends the session: polling stops and the feed and diff state
// are discarded.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle || e.state == StateStopped {
		return
	}
	e.resetLocked(StateStopped)
	slog.Info("notification engine stopped", "identity", e.session.Identity)
	e.session = Session{}
}

// resetLocked drops all per-session state. Callers hold mu.
func (e *Engine) resetLocked(next State) {
	e.generation++
	e.state = next
	e.src = nil
	e.owned = nil
	e.diff = NewDiffState()
	e.feed = NewFeed(e.cfg.Retention)
	e.watermark = nil
	e.lastErr = nil
}

// Poll runs one scheduler step. While bootstrapping it resolves the owned
// listings, loads the identity's watermark and seeds the diff state from
// one snapshot without emitting events. While polling it fetches a
// snapshot, diffs it and prepends the resulting events to the feed.
//
// A fetch or parse failure leaves state and feed untouched; the error is
// recorded in the view and returned. If a poll is already running the call
// returns ErrPollInFlight immediately.
func (e *Engine) Poll(ctx context.Context) (PollResult, error) {
	if !e.pollMu.TryLock() {
		return PollResult{}, ErrPollInFlight
	}
	defer e.pollMu.Unlock()

	e.mu.Lock()
	state := e.state
	gen := e.generation
	sess := e.session
	src := e.src
	owned := e.owned
	diff := e.diff
	e.mu.Unlock()

	switch state {
	case StateBootstrapping:
		return e.bootstrap(ctx, gen, sess, src)
	case StatePolling:
	default:
		return PollResult{View: e.View()}, ErrInactive
	}

	snapshot, err := e.fetchSnapshot(ctx, src)
	if err != nil {
		return PollResult{View: e.recordFailure(gen, err)}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		return PollResult{View: e.viewLocked()}, ErrInactive
	}

	// Stamp and commit under one lock so an Acknowledge sees either all of
	// this batch or none of it.
	next, events := Diff(diff, snapshot, sess.Identity, owned, e.cfg.Now())
	e.diff = next
	e.feed.Prepend(events)
	e.lastErr = nil

	if len(events) > 0 {
		slog.Info("booking notifications synthesized",
			"identity", sess.Identity, "count", len(events))
	}

	return PollResult{Events: events, View: e.viewLocked()}, nil
}

// bootstrap performs the silent first pass for the session captured at gen.
func (e *Engine) bootstrap(
	ctx context.Context,
	gen uint64,
	sess Session,
	src source.Source,
) (PollResult, error) {
	wm, wmErr := LoadWatermark(ctx, e.kv, sess.Identity)
	if wmErr != nil {
		slog.Warn("using empty watermark", "identity", sess.Identity, "error", wmErr)
	}

	owned, err := e.resolveOwned(ctx, src, sess.Identity)
	if err != nil {
		return PollResult{View: e.recordFailure(gen, err)}, err
	}

	snapshot, err := e.fetchSnapshot(ctx, src)
	if err != nil {
		return PollResult{View: e.recordFailure(gen, err)}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		return PollResult{View: e.viewLocked()}, ErrInactive
	}
	e.owned = owned
	e.diff = Seed(NewDiffState(), snapshot, sess.Identity)
	if e.watermark == nil {
		e.watermark = wm
	}
	e.state = StatePolling
	e.lastErr = nil

	slog.Info("notification engine bootstrapped",
		"identity", sess.Identity,
		"owned_listings", len(owned),
		"bookings", len(snapshot))

	return PollResult{Bootstrapped: true, View: e.viewLocked()}, nil
}

// resolveOwned runs ResolveOwned bounded by the fetch timeout.
func (e *Engine) resolveOwned(
	ctx context.Context,
	src source.Source,
	identity string,
) (OwnedListingSet, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	return ResolveOwned(ctx, src, identity, e.cfg.DetailConcurrency)
}

// fetchSnapshot reads one bookings snapshot bounded by the fetch timeout.
func (e *Engine) fetchSnapshot(ctx context.Context, src source.Source) ([]model.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	snapshot, err := src.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("polling bookings: %w", err)
	}
	return snapshot, nil
}

// recordFailure stores err as the last error if the session is unchanged.
func (e *Engine) recordFailure(gen uint64, err error) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen == e.generation {
		e.lastErr = err
		slog.Warn("poll failed", "identity", e.session.Identity,
			"state", e.state.String(), "error", err)
	}
	return e.viewLocked()
}

// Acknowledge marks every current event as seen and persists the mark for
// the session identity. The unread count drops to zero even if persisting
// fails.
func (e *Engine) Acknowledge(ctx context.Context) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.acknowledgeLocked(ctx); err != nil {
		return e.viewLocked(), err
	}
	return e.viewLocked(), nil
}

// Clear empties the feed and acknowledges it.
func (e *Engine) Clear(ctx context.Context) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle || e.state == StateStopped {
		return e.viewLocked(), ErrInactive
	}
	e.feed.Clear()
	if err := e.acknowledgeLocked(ctx); err != nil {
		return e.viewLocked(), err
	}
	return e.viewLocked(), nil
}

func (e *Engine) acknowledgeLocked(ctx context.Context) error {
	if e.state == StateIdle || e.state == StateStopped {
		return ErrInactive
	}
	if e.watermark == nil {
		// Still bootstrapping: the feed is empty, but the mark must be
		// recorded for the identity all the same.
		wm, err := LoadWatermark(ctx, e.kv, e.session.Identity)
		if err != nil {
			slog.Warn("using empty watermark", "identity", e.session.Identity, "error", err)
		}
		e.watermark = wm
	}
	return e.watermark.Acknowledge(ctx, e.cfg.Now(), e.feed.NewestTimestamp())
}

// View returns a copy of the current feed and counters.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	v := View{
		State:     e.state,
		Identity:  e.session.Identity,
		Events:    e.feed.Items(),
		LastError: e.lastErr,
	}
	if e.watermark != nil {
		v.Seen = e.watermark.Seen()
		v.Unread = e.watermark.Unread(v.Events)
	} else {
		v.Unread = len(v.Events)
	}
	return v
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}
