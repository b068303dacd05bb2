package bell

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/airbrb-notify/internal/keys"
	"github.com/nhle/airbrb-notify/internal/model"
	"github.com/nhle/airbrb-notify/internal/notify"
)

var t0 = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newBell() Model {
	return New(keys.DefaultKeyMap(), time.UTC, 80, 24)
}

func press(m Model, k string) (Model, tea.Msg) {
	var msg tea.KeyMsg
	switch k {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, cmd := m.Update(msg)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func sampleView() notify.View {
	return notify.View{
		State:    notify.StatePolling,
		Identity: "host@example.com",
		Events: []model.Notification{
			{
				ID:        "e2",
				Timestamp: t0.Add(10 * time.Second),
				Audience:  model.AudienceHost,
				BookingID: "2",
				ListingID: "10",
				Message:   "New booking request for listing 10.",
			},
			{
				ID:        "e1",
				Timestamp: t0,
				Audience:  model.AudienceGuest,
				BookingID: "1",
				ListingID: "11",
				Message:   "Your booking for listing 11 was accepted.",
			},
		},
		Unread: 2,
	}
}

func TestToggleOpensAndAcknowledges(t *testing.T) {
	m := newBell()
	m.SetView(sampleView())

	m, msg := press(m, "n")
	if !m.IsOpen() {
		t.Fatal("expected panel to open")
	}
	if _, ok := msg.(AcknowledgeRequestMsg); !ok {
		t.Errorf("expected AcknowledgeRequestMsg, got %T", msg)
	}

	m, msg = press(m, "n")
	if m.IsOpen() {
		t.Error("expected second toggle to close the panel")
	}
	if msg != nil {
		t.Errorf("closing must not acknowledge, got %T", msg)
	}
}

func TestPanelKeysIgnoredWhenClosed(t *testing.T) {
	m := newBell()
	m.SetView(sampleView())

	if _, msg := press(m, "x"); msg != nil {
		t.Errorf("clear must be ignored while closed, got %T", msg)
	}
	if _, msg := press(m, "m"); msg != nil {
		t.Errorf("acknowledge must be ignored while closed, got %T", msg)
	}
}

func TestPanelActions(t *testing.T) {
	m := newBell()
	m.SetView(sampleView())
	m, _ = press(m, "n")

	_, msg := press(m, "x")
	if _, ok := msg.(ClearRequestMsg); !ok {
		t.Errorf("expected ClearRequestMsg, got %T", msg)
	}

	_, msg = press(m, "m")
	if _, ok := msg.(AcknowledgeRequestMsg); !ok {
		t.Errorf("expected AcknowledgeRequestMsg, got %T", msg)
	}

	_, msg = press(m, "r")
	if _, ok := msg.(RefreshRequestMsg); !ok {
		t.Errorf("expected RefreshRequestMsg, got %T", msg)
	}

	m, _ = press(m, "esc")
	if m.IsOpen() {
		t.Error("expected esc to close the panel")
	}
}

func TestCursorStaysInRange(t *testing.T) {
	m := newBell()
	m.SetView(sampleView())
	m, _ = press(m, "n")

	for range 5 {
		m, _ = press(m, "j")
	}
	if m.cursor != 1 {
		t.Errorf("expected cursor at last event, got %d", m.cursor)
	}

	m.SetView(notify.View{State: notify.StatePolling})
	if m.cursor != 0 {
		t.Errorf("expected cursor reset for empty feed, got %d", m.cursor)
	}
}

func TestBadge(t *testing.T) {
	m := newBell()
	if strings.ContainsAny(m.Badge(), "0123456789") {
		t.Errorf("expected no counter without unread events, got %q", m.Badge())
	}

	m.SetView(sampleView())
	if !strings.Contains(m.Badge(), "2") {
		t.Errorf("expected unread counter in badge, got %q", m.Badge())
	}
}

func TestViewRendersEvents(t *testing.T) {
	m := newBell()
	m.SetView(sampleView())
	m, _ = press(m, "n")

	out := m.View()
	for _, want := range []string{
		"Host",
		"Guest",
		"New booking request for listing 10.",
		"Your booking for listing 11 was accepted.",
		"12:00:10",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in panel:\n%s", want, out)
		}
	}
	if strings.Index(out, "listing 10") > strings.Index(out, "listing 11") {
		t.Error("expected newest event first")
	}
}

func TestViewEmptyAndError(t *testing.T) {
	m := newBell()
	m.SetView(notify.View{
		State:     notify.StatePolling,
		LastError: errors.New("polling bookings: backend unavailable"),
	})
	m, _ = press(m, "n")

	out := m.View()
	if !strings.Contains(out, "No notifications yet.") {
		t.Errorf("expected empty message, got:\n%s", out)
	}
	if !strings.Contains(out, "backend unavailable") {
		t.Errorf("expected error line, got:\n%s", out)
	}
	if !strings.Contains(m.Status(), "retrying") {
		t.Errorf("expected retrying status, got %q", m.Status())
	}
}

func TestClosedSummary(t *testing.T) {
	m := newBell()
	m.SetView(sampleView())

	if out := m.View(); !strings.Contains(out, "2 new notifications.") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}
