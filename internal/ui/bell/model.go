package bell

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/airbrb-notify/internal/keys"
	"github.com/nhle/airbrb-notify/internal/model"
	"github.com/nhle/airbrb-notify/internal/notify"
	"github.com/nhle/airbrb-notify/internal/theme"
)

// AcknowledgeRequestMsg asks the app to mark every event as seen.
type AcknowledgeRequestMsg struct{}

// ClearRequestMsg asks the app to empty the feed.
type ClearRequestMsg struct{}

// RefreshRequestMsg asks the app for an immediate poll.
type RefreshRequestMsg struct{}

// Model is the notification bell: an unread badge plus a toggleable panel
// listing the feed newest first.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	view   notify.View
	open   bool
	cursor int
	offset int
	loc    *time.Location
	width  int
	height int
}

// New creates a closed bell that renders times in loc. A nil loc means
// time.Local.
func New(keys *keys.KeyMap, loc *time.Location, width, height int) Model {
	if loc == nil {
		loc = time.Local
	}
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		loc:    loc,
		width:  width,
		height: height,
	}
}

// SetView replaces the engine view the bell renders.
func (m *Model) SetView(v notify.View) {
	m.view = v
	if m.cursor >= len(v.Events) {
		m.cursor = max(len(v.Events)-1, 0)
	}
	m.clampOffset()
}

// EngineView returns the engine view currently rendered.
func (m Model) EngineView() notify.View {
	return m.view
}

// IsOpen reports whether the panel is shown.
func (m Model) IsOpen() bool {
	return m.open
}

// Open shows the panel and requests an acknowledgement.
func (m *Model) Open() tea.Cmd {
	m.open = true
	m.cursor = 0
	m.offset = 0
	return func() tea.Msg { return AcknowledgeRequestMsg{} }
}

// Close hides the panel.
func (m *Model) Close() {
	m.open = false
}

// Update handles key presses for the bell.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Toggle):
		if m.open {
			m.Close()
			return m, nil
		}
		return m, m.Open()

	case key.Matches(keyMsg, m.keys.Refresh):
		return m, func() tea.Msg { return RefreshRequestMsg{} }
	}

	if !m.open {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Close):
		m.Close()
	case key.Matches(keyMsg, m.keys.Acknowledge):
		return m, func() tea.Msg { return AcknowledgeRequestMsg{} }
	case key.Matches(keyMsg, m.keys.Clear):
		m.cursor = 0
		m.offset = 0
		return m, func() tea.Msg { return ClearRequestMsg{} }
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.view.Events)-1 {
			m.cursor++
		}
		m.clampOffset()
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.clampOffset()
	}

	return m, nil
}

// Badge renders the bell with its unread counter, for the header.
func (m Model) Badge() string {
	bell := "🔔"
	if m.view.Unread == 0 {
		return bell
	}
	return bell + " " + theme.BadgeStyle.Render(fmt.Sprintf("%d", m.view.Unread))
}

// Status renders the engine state for the header.
func (m Model) Status() string {
	state := m.view.State.String()
	text := state
	if m.view.LastError != nil {
		text = state + " (retrying)"
	}
	return theme.StateStyle(state).Render(text)
}

// View renders the panel when open, or a one-line summary otherwise.
func (m Model) View() string {
	if !m.open {
		summary := "No new notifications."
		if n := m.view.Unread; n > 0 {
			summary = fmt.Sprintf("%d new notification%s.", n, plural(n))
		}
		m.help.Width = m.width
		return lipgloss.JoinVertical(lipgloss.Left, summary, "", m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Notifications"))
	b.WriteString("\n")

	if err := m.view.LastError; err != nil {
		b.WriteString(theme.ErrorStyle.Render(err.Error()))
		b.WriteString("\n")
	}

	if len(m.view.Events) == 0 {
		b.WriteString(theme.DimmedStyle.Render("No notifications yet."))
	} else {
		end := min(m.offset+m.visibleRows(), len(m.view.Events))
		for i := m.offset; i < end; i++ {
			b.WriteString(m.renderEvent(i))
			if i < end-1 {
				b.WriteString("\n")
			}
		}
	}

	m.help.Width = m.width - 4
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{
		m.keys.Up, m.keys.Down, m.keys.Acknowledge, m.keys.Clear, m.keys.Close,
	}))

	return theme.PanelStyle.
		Width(max(m.width-4, 20)).
		Render(b.String())
}

func (m Model) renderEvent(i int) string {
	n := m.view.Events[i]

	label := theme.AudienceStyle(string(n.Audience)).Render(n.Audience.Label())
	at := theme.DimmedStyle.Render(n.Timestamp.In(m.loc).Format("15:04:05"))

	text := n.Message
	if m.isUnread(n) {
		text = theme.UnreadItemStyle.Render(text)
	}

	line := fmt.Sprintf("%s %s  %s", label, text, at)
	if i == m.cursor {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func (m Model) isUnread(n model.Notification) bool {
	return n.Timestamp.After(m.view.Seen)
}

// visibleRows is the number of events that fit in the panel.
func (m Model) visibleRows() int {
	// Title, error line, blank line, help and border.
	rows := m.height - 6
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m *Model) clampOffset() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// SetSize updates the bell dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
	m.clampOffset()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
