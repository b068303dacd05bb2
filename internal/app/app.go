package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/airbrb-notify/internal/keys"
	"github.com/nhle/airbrb-notify/internal/notify"
	appsync "github.com/nhle/airbrb-notify/internal/sync"
	"github.com/nhle/airbrb-notify/internal/theme"
	"github.com/nhle/airbrb-notify/internal/ui"
	"github.com/nhle/airbrb-notify/internal/ui/bell"
	"github.com/nhle/airbrb-notify/internal/ui/command"
	helpview "github.com/nhle/airbrb-notify/internal/ui/help"
	"github.com/nhle/airbrb-notify/internal/ui/login"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBell ViewState = iota
	ViewLogin
	ViewHelp
	ViewCommand
)

// commands are the names accepted by the command palette.
var commands = []string{"refresh", "read", "clear", "login", "logout", "quit"}

// Model is the root Bubble Tea model that routes between the login form,
// the notification bell and the overlays, and owns the session lifecycle.
type Model struct {
	currentView   ViewState
	previousView  ViewState
	layout        ui.Layout
	keys          *keys.KeyMap
	vault         SessionVault
	poller        *appsync.Poller
	bell          bell.Model
	loginView     login.Model
	helpView      helpview.Model
	commandView   command.Model
	identity      string
	statusMessage string
	ready         bool
}

// New creates a new root application model. Sessions are restored from
// and saved to vault; p drives the notification engine.
func New(p *appsync.Poller, vault SessionVault) Model {
	km := keys.DefaultKeyMap()

	return Model{
		currentView: ViewBell,
		keys:        km,
		vault:       vault,
		poller:      p,
		bell:        bell.New(km, nil, 80, 24),
		loginView:   login.New(80, 24),
		helpView:    helpview.New(km, 80, 24),
		commandView: command.New(commands, 80, 24),
	}
}

// Init restores the last session, if any.
func (m Model) Init() tea.Cmd {
	return m.restoreSession()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.bell.SetSize(contentWidth, contentHeight)
		m.loginView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case sessionRestoredMsg:
		if msg.err != nil {
			return m, m.showLogin(msg.identity, "")
		}
		return m, m.startSession(msg.identity, msg.token)

	case login.SubmittedMsg:
		m.currentView = ViewBell
		return m, tea.Batch(
			m.startSession(msg.Identity, msg.Token),
			m.saveSession(msg.Identity, msg.Token),
		)

	case login.CancelMsg:
		if m.identity == "" {
			return m, tea.Quit
		}
		m.currentView = ViewBell
		return m, nil

	case sessionSavedMsg, sessionClearedMsg:
		if err := sessionErr(msg); err != nil {
			m.statusMessage = err.Error()
		}
		return m, nil

	case appsync.PollResultMsg:
		if msg.Identity != m.identity {
			// Result from a session that has since ended.
			return m, m.poller.WaitForNextResult()
		}
		m.bell.SetView(msg.View)

		if msg.AuthError != nil {
			identity := m.identity
			m.endSession()
			return m, tea.Batch(
				m.clearSession(identity),
				m.showLogin(identity, msg.AuthError.Message),
			)
		}
		if msg.Error != nil {
			m.statusMessage = msg.Error.Error()
		} else {
			m.statusMessage = ""
		}
		return m, m.poller.WaitForNextResult()

	case appsync.ViewMsg:
		m.bell.SetView(msg.View)
		if msg.Error != nil {
			m.statusMessage = fmt.Sprintf("could not save read state: %v", msg.Error)
		}
		return m, nil

	case bell.AcknowledgeRequestMsg:
		return m, m.poller.Acknowledge()

	case bell.ClearRequestMsg:
		return m, m.poller.Clear()

	case bell.RefreshRequestMsg:
		return m, m.poller.Refresh()

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		// Global keys that work regardless of current view
		if msg.String() == "ctrl+c" {
			m.poller.Stop()
			return m, tea.Quit
		}

		// The login form owns every other key while it is shown.
		if m.currentView == ViewLogin {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.currentView == ViewBell {
				m.poller.Stop()
				return m, tea.Quit
			}

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case msg.String() == ":":
			if m.currentView == ViewCommand {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case key.Matches(msg, m.keys.Close) && m.currentView != ViewBell:
			m.currentView = ViewBell
			return m, nil

		case key.Matches(msg, m.keys.Login) && m.currentView == ViewBell:
			return m, m.showLogin(m.identity, "")

		case key.Matches(msg, m.keys.Logout) && m.currentView == ViewBell:
			return m, m.logout()
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBell:
		m.bell, cmd = m.bell.Update(msg)
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "AirBrB"
	if m.identity != "" {
		title = fmt.Sprintf("AirBrB · %s %s", m.identity, m.bell.Badge())
	}
	header := m.layout.RenderHeader(title, m.bell.Status())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBell:
		return m.bell.View()
	case ViewLogin:
		return m.loginView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMessage != "" && m.currentView == ViewBell {
		return theme.ErrorStyle.Render(m.statusMessage)
	}

	switch m.currentView {
	case ViewLogin:
		return "enter submit | esc cancel"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	default:
		if m.bell.IsOpen() {
			return "j/k move | m mark read | x clear | esc close | ? help"
		}
		if m.bell.EngineView().State == notify.StateBootstrapping {
			return "resolving your listings... | L log in | O log out | q quit | ? help"
		}
		return "n notifications | r refresh | L log in | O log out | q quit | ? help"
	}
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh", "sync":
		return m.poller.Refresh()
	case "read", "mark read":
		return m.poller.Acknowledge()
	case "clear":
		return m.poller.Clear()
	case "login":
		return m.showLogin(m.identity, "")
	case "logout":
		return m.logout()
	case "quit", "q":
		m.poller.Stop()
		return tea.Quit
	default:
		m.statusMessage = fmt.Sprintf("unknown command %q", cmd)
		return nil
	}
}
