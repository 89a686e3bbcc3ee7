package login

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true).
			Padding(1, 0)
)

const (
	focusEmail = iota
	focusPassword
	focusRemember
	focusCount
)

// Model is the login form view.
type Model struct {
	emailInput    textinput.Model
	passwordInput textinput.Model
	remember      bool
	focusIndex    int
	err           string
	notice        string
	submitting    bool
	session       *auth.Session
	width         int
	height        int
}

// New creates a new login form, prefilled with email when it is known (for
// example right after a completed registration).
func New(session *auth.Session, email string) Model {
	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.org"
	emailInput.Width = 36
	emailInput.SetValue(email)

	passwordInput := textinput.New()
	passwordInput.Placeholder = "password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.Width = 36

	m := Model{
		emailInput:    emailInput,
		passwordInput: passwordInput,
		session:       session,
	}
	if email != "" {
		m.focusIndex = focusPassword
		m.notice = "Registration complete. Log in to continue."
	}
	m.updateFocus()
	return m
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Submitting reports whether a login call is in flight.
func (m Model) Submitting() bool {
	return m.submitting
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focusIndex = (m.focusIndex + 1) % focusCount
			m.updateFocus()
			return m, nil
		case "shift+tab", "up":
			m.focusIndex = (m.focusIndex + focusCount - 1) % focusCount
			m.updateFocus()
			return m, nil
		case " ":
			if m.focusIndex == focusRemember {
				m.remember = !m.remember
				return m, nil
			}
		case "enter":
			if m.focusIndex == focusRemember {
				m.remember = !m.remember
				return m, nil
			}
			return m.submit()
		}

	case messages.LoginResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = msg.Err.Error()
			m.passwordInput.SetValue("")
			m.focusIndex = focusPassword
			m.updateFocus()
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focusIndex {
	case focusEmail:
		m.emailInput, cmd = m.emailInput.Update(msg)
	case focusPassword:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	email := m.emailInput.Value()
	password := m.passwordInput.Value()
	if err := auth.ValidateLogin(email, password); err != nil {
		m.err = err.Error()
		return m, nil
	}
	m.submitting = true
	m.err = ""
	m.notice = ""
	session := m.session
	remember := m.remember
	return m, func() tea.Msg {
		res, err := session.Login(context.Background(), email, password, remember)
		if err != nil {
			return messages.LoginResultMsg{Err: err}
		}
		return messages.LoginResultMsg{User: res.User}
	}
}

func (m *Model) updateFocus() {
	m.emailInput.Blur()
	m.passwordInput.Blur()
	switch m.focusIndex {
	case focusEmail:
		m.emailInput.Focus()
	case focusPassword:
		m.passwordInput.Focus()
	}
}

// View renders the login form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Log in to your chapter account"))
	sb.WriteString("\n\n")
	if m.notice != "" {
		sb.WriteString(focusedStyle.Render(m.notice))
		sb.WriteString("\n\n")
	}
	sb.WriteString(labelStyle.Render("Email:"))
	sb.WriteString("\n")
	sb.WriteString(m.emailInput.View())
	sb.WriteString("\n\n")
	sb.WriteString(labelStyle.Render("Password:"))
	sb.WriteString("\n")
	sb.WriteString(m.passwordInput.View())
	sb.WriteString("\n\n")

	box := "[ ]"
	if m.remember {
		box = "[x]"
	}
	remember := box + " Remember me for 30 days"
	if m.focusIndex == focusRemember {
		remember = focusedStyle.Render(remember)
	}
	sb.WriteString(remember)
	sb.WriteString("\n\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n\n")
	}

	if m.submitting {
		sb.WriteString("Logging in...")
	} else {
		sb.WriteString(focusedStyle.Render("Enter") + " to submit, " + focusedStyle.Render("Esc") + " to cancel")
		sb.WriteString("\n")
		sb.WriteString(hintStyle.Render("No account yet? Esc, then S to join."))
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
