package profile

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Width(14)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true).Width(14)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

// Updater saves profile changes.
type Updater interface {
	UpdateProfile(ctx context.Context, token string, upd api.ProfileUpdate) (*api.User, error)
}

const (
	fieldImage = iota
	fieldDesignation
	fieldBranch
	fieldAchievements
	fieldLinkedIn
	fieldGitHub
	fieldInstagram
	inputCount
)

// fieldBio is the textarea, focused after the single-line inputs.
const fieldBio = inputCount

var inputLabels = [inputCount]string{
	"image url", "designation", "branch", "achievements", "linkedin", "github", "instagram",
}

// Model is the profile edit form.
type Model struct {
	inputs     [inputCount]textinput.Model
	bio        textarea.Model
	focused    int
	updater    Updater
	session    *auth.Session
	err        string
	submitting bool
	width      int
	height     int
}

// New creates an edit form seeded with user's current values.
func New(user *api.User, updater Updater, session *auth.Session) Model {
	cur := api.ProfileUpdateFrom(user)
	values := [inputCount]string{
		cur.ProfileImageURL, cur.Designation, cur.Branch, cur.Achievements,
		cur.LinkedInURL, cur.GitHubURL, cur.InstagramURL,
	}

	m := Model{updater: updater, session: session}
	for i := range m.inputs {
		ti := textinput.New()
		ti.CharLimit = 2000
		ti.Width = 60
		ti.SetValue(values[i])
		m.inputs[i] = ti
	}
	m.inputs[fieldImage].Focus()

	ta := textarea.New()
	ta.Placeholder = "A few words about you..."
	ta.CharLimit = 1000
	ta.SetValue(cur.Bio)
	ta.SetWidth(60)
	ta.SetHeight(5)
	m.bio = ta
	return m
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	fw := w - 20
	if fw > 80 {
		fw = 80
	}
	if fw < 20 {
		fw = 20
	}
	for i := range m.inputs {
		m.inputs[i].Width = fw
	}
	m.bio.SetWidth(fw)
}

// Value returns the form as an update payload.
func (m Model) Value() api.ProfileUpdate {
	v := func(i int) string { return strings.TrimSpace(m.inputs[i].Value()) }
	return api.ProfileUpdate{
		ProfileImageURL: v(fieldImage),
		Designation:     v(fieldDesignation),
		Bio:             strings.TrimSpace(m.bio.Value()),
		Branch:          v(fieldBranch),
		Achievements:    v(fieldAchievements),
		LinkedInURL:     v(fieldLinkedIn),
		GitHubURL:       v(fieldGitHub),
		InstagramURL:    v(fieldInstagram),
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab":
			m.focused = (m.focused + 1) % (inputCount + 1)
			cmd := m.updateFocus()
			return m, cmd
		case "shift+tab":
			m.focused = (m.focused + inputCount) % (inputCount + 1)
			cmd := m.updateFocus()
			return m, cmd
		case "ctrl+s":
			return m.save()
		}

	case messages.ProfileSavedMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = msg.Err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focused == fieldBio {
		m.bio, cmd = m.bio.Update(msg)
	} else {
		m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	}
	return m, cmd
}

func (m Model) save() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	upd := m.Value()
	if err := api.Validate(upd); err != nil {
		m.err = err.Error()
		return m, nil
	}
	m.submitting = true
	m.err = ""
	updater, session := m.updater, m.session
	return m, func() tea.Msg {
		token, err := session.RequireToken()
		if err != nil {
			return messages.ProfileSavedMsg{Err: err}
		}
		user, err := updater.UpdateProfile(context.Background(), token, upd)
		if err != nil {
			session.DropIfUnauthorized(err)
			return messages.ProfileSavedMsg{Err: err}
		}
		session.StoreUser(user)
		return messages.ProfileSavedMsg{User: user}
	}
}

func (m *Model) updateFocus() tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.bio.Blur()
	if m.focused == fieldBio {
		return m.bio.Focus()
	}
	return m.inputs[m.focused].Focus()
}

// View renders the form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Edit profile"))
	sb.WriteString("\n\n")

	for i := range m.inputs {
		style := labelStyle
		if i == m.focused {
			style = focusedStyle
		}
		sb.WriteString(style.Render(inputLabels[i]) + " " + m.inputs[i].View())
		sb.WriteString("\n")
	}
	style := labelStyle
	if m.focused == fieldBio {
		style = focusedStyle
	}
	sb.WriteString("\n" + style.Render("bio") + "\n")
	sb.WriteString(m.bio.View())
	sb.WriteString("\n\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n")
	}

	if m.submitting {
		sb.WriteString("Saving...")
	} else {
		sb.WriteString(hintStyle.Render("Tab to switch fields | Ctrl+S to save | Esc to cancel"))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}
