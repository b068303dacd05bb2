package app

import (
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/airbrb-notify/internal/credential"
	"github.com/nhle/airbrb-notify/internal/notify"
)

// SessionVault persists the logged-in session between runs.
type SessionVault interface {
	SaveSession(identity, token string) error
	LoadSession() (identity, token string, err error)
	ClearSession(identity string) error
}

// sessionRestoredMsg carries the session found at startup. err is set
// when there is none.
type sessionRestoredMsg struct {
	identity string
	token    string
	err      error
}

// sessionSavedMsg is sent after a login was persisted.
type sessionSavedMsg struct{ err error }

// sessionClearedMsg is sent after a session was forgotten.
type sessionClearedMsg struct{ err error }

func sessionErr(msg tea.Msg) error {
	switch msg := msg.(type) {
	case sessionSavedMsg:
		return msg.err
	case sessionClearedMsg:
		return msg.err
	}
	return nil
}

// restoreSession loads the last login from the vault.
func (m *Model) restoreSession() tea.Cmd {
	v := m.vault
	return func() tea.Msg {
		identity, token, err := v.LoadSession()
		if err != nil && !errors.Is(err, credential.ErrNotFound) {
			slog.Warn("could not restore session", "error", err)
		}
		return sessionRestoredMsg{identity: identity, token: token, err: err}
	}
}

// saveSession persists a login.
func (m *Model) saveSession(identity, token string) tea.Cmd {
	v := m.vault
	return func() tea.Msg {
		err := v.SaveSession(identity, token)
		if err != nil {
			slog.Error("saving session", "identity", identity, "error", err)
		}
		return sessionSavedMsg{err: err}
	}
}

// clearSession forgets the token of identity.
func (m *Model) clearSession(identity string) tea.Cmd {
	v := m.vault
	return func() tea.Msg {
		err := v.ClearSession(identity)
		if err != nil {
			slog.Error("clearing session", "identity", identity, "error", err)
		}
		return sessionClearedMsg{err: err}
	}
}

// startSession binds the poller to identity and token and shows the bell.
// A previous session, if any, is stopped by the poller.
func (m *Model) startSession(identity, token string) tea.Cmd {
	m.identity = identity
	m.statusMessage = ""
	m.currentView = ViewBell
	m.bell.Close()

	cmd := m.poller.Start(notify.Session{Identity: identity, Token: token})
	m.bell.SetView(m.poller.View())
	return cmd
}

// endSession stops polling and forgets the in-memory session.
func (m *Model) endSession() {
	m.poller.Stop()
	m.identity = ""
	m.bell.Close()
	m.bell.SetView(m.poller.View())
}

// showLogin switches to the login form prefilled with identity.
func (m *Model) showLogin(identity, notice string) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewLogin
	return m.loginView.Start(identity, notice)
}

// logout ends the session, removes its token and returns to the login
// form. The identity's read watermark is kept.
func (m *Model) logout() tea.Cmd {
	identity := m.identity
	if identity == "" {
		return m.showLogin("", "")
	}
	m.endSession()
	return tea.Batch(
		m.clearSession(identity),
		m.showLogin(identity, ""),
	)
}
