package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/airbrb-notify/internal/model"
	"github.com/nhle/airbrb-notify/internal/notify"
	"github.com/nhle/airbrb-notify/internal/source"
)

// PollResultMsg is a tea.Msg sent when a poll or bootstrap completes.
type PollResultMsg struct {
	Identity     string
	Bootstrapped bool
	Events       []model.Notification
	View         notify.View
	Error        error
	AuthError    *AuthErrorMsg
}

// AuthErrorMsg is set on a PollResultMsg when the backend rejected the
// session token.
type AuthErrorMsg struct {
	Identity string
	Message  string
}

// ViewMsg is a tea.Msg carrying the engine view after a user command
// (acknowledge, clear).
type ViewMsg struct {
	View  notify.View
	Error error
}

// DefaultInterval is used when the configured interval is not positive.
const DefaultInterval = 5 * time.Second

// Poller drives a notify.Engine on a fixed interval for the current
// session. A single goroutine performs every poll, so ticks that arrive
// while a poll is in flight are dropped rather than queued.
type Poller struct {
	engine    *notify.Engine
	interval  time.Duration
	resultCh  chan PollResultMsg
	triggerCh chan struct{}

	mu      gosync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

// New creates a Poller for engine.
func New(engine *notify.Engine, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		engine:    engine,
		interval:  interval,
		resultCh:  make(chan PollResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start activates the engine for sess and starts the polling goroutine.
// Any previous session is stopped first. An invalid session leaves the
// engine idle and returns nil. The returned command waits for the first
// result.
func (p *Poller) Start(sess notify.Session) tea.Cmd {
	p.Stop()

	p.engine.Activate(sess)
	if !sess.Valid() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.running = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	p.cancel = cancel
	stopCh, done := p.stopCh, p.done
	p.mu.Unlock()

	go p.loop(ctx, sess.Identity, stopCh, done)

	return p.waitForResult(stopCh)
}

// Stop halts the polling goroutine, waits for it to exit and discards the
// engine's session state. It is safe to call when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.cancel()
	done := p.done
	p.mu.Unlock()

	<-done
	p.engine.Deactivate()

	// Drop results the old session left behind.
	for {
		select {
		case <-p.resultCh:
		default:
			return
		}
	}
}

// Running reports whether a polling goroutine is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Refresh asks the polling goroutine for an immediate poll. If one is
// already pending the request is dropped.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// Acknowledge returns a command that marks the feed as seen.
func (p *Poller) Acknowledge() tea.Cmd {
	return func() tea.Msg {
		view, err := p.engine.Acknowledge(context.Background())
		return ViewMsg{View: view, Error: ignoreInactive(err)}
	}
}

// Clear returns a command that empties and acknowledges the feed.
func (p *Poller) Clear() tea.Cmd {
	return func() tea.Msg {
		view, err := p.engine.Clear(context.Background())
		return ViewMsg{View: view, Error: ignoreInactive(err)}
	}
}

// View returns the engine's current view.
func (p *Poller) View() notify.View {
	return p.engine.View()
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// This should be called after processing a PollResultMsg to continue
// listening for future results.
func (p *Poller) WaitForNextResult() tea.Cmd {
	p.mu.Lock()
	stopCh := p.stopCh
	running := p.running
	p.mu.Unlock()

	if !running {
		return nil
	}
	return p.waitForResult(stopCh)
}

// loop runs the polling schedule for one session.
func (p *Poller) loop(ctx context.Context, identity string, stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Bootstrap immediately.
	p.step(ctx, identity, stopCh)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.step(ctx, identity, stopCh)
		case <-p.triggerCh:
			p.step(ctx, identity, stopCh)
		}
	}
}

// step performs one engine poll and publishes its result. A successful
// bootstrap is followed at once by a diff poll, so changes made while the
// bootstrap ran surface without waiting a full interval. The follow-up is
// published only when it carries events or an error.
func (p *Poller) step(ctx context.Context, identity string, stopCh chan struct{}) {
	msg, ok := p.poll(ctx, identity)
	if !ok {
		return
	}
	if !msg.Bootstrapped || msg.Error != nil {
		p.sendResult(msg, stopCh)
		return
	}

	follow, ok := p.poll(ctx, identity)
	p.sendResult(msg, stopCh)
	if ok && (len(follow.Events) > 0 || follow.Error != nil) {
		p.sendResult(follow, stopCh)
	}
}

// poll runs one engine poll. It reports false when the poll was skipped.
func (p *Poller) poll(ctx context.Context, identity string) (PollResultMsg, bool) {
	res, err := p.engine.Poll(ctx)
	if errors.Is(err, notify.ErrPollInFlight) || errors.Is(err, notify.ErrInactive) {
		return PollResultMsg{}, false
	}

	msg := PollResultMsg{
		Identity:     identity,
		Bootstrapped: res.Bootstrapped,
		Events:       res.Events,
		View:         res.View,
		Error:        err,
	}

	if source.IsAuthError(err) {
		msg.AuthError = &AuthErrorMsg{
			Identity: identity,
			Message: fmt.Sprintf(
				"%s: session rejected by the backend. Press 'L' to log in again.",
				identity,
			),
		}
	} else if err != nil {
		slog.Debug("poll cycle skipped", "identity", identity, "error", err)
	}

	return msg, true
}

// sendResult delivers msg unless the session is stopping. When the buffer
// is full the oldest undelivered result is dropped; every result carries a
// full view, so the newest one supersedes it.
func (p *Poller) sendResult(msg PollResultMsg, stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case p.resultCh <- msg:
			return
		default:
		}

		select {
		case <-p.resultCh:
		default:
		}
	}
}

// waitForResult returns a tea.Cmd that waits for the next result of the
// session owning stopCh. It yields nil once that session stops.
func (p *Poller) waitForResult(stopCh chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-stopCh:
			return nil
		}
	}
}

func ignoreInactive(err error) error {
	if errors.Is(err, notify.ErrInactive) {
		return nil
	}
	return err
}
