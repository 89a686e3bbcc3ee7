package home

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

var (
	bannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	taglineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).Italic(true)
	itemStyle     = lipgloss.NewStyle().Padding(0, 2)
	selectedStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#00B5E2")).
			PaddingLeft(1)
	keyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	metaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
)

const banner = `IEEE Student Branch`

type entry struct {
	key   string
	label string
	msg   tea.Msg
}

// Model is the landing screen. Its menu depends on who is logged in.
type Model struct {
	user     *api.User
	checking bool
	selected int
	width    int
	height   int
}

// New creates the landing screen. checking shows that a stored session is
// still being validated.
func New(checking bool) Model {
	return Model{checking: checking}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetUser updates the menu for user, which may be nil.
func (m *Model) SetUser(u *api.User) {
	m.user = u
	m.checking = false
	m.selected = 0
}

func (m Model) entries() []entry {
	if m.user == nil {
		return []entry{
			{"L", "Log in", messages.OpenLoginMsg{}},
			{"S", "Join the chapter", messages.OpenSignupMsg{}},
		}
	}
	if m.user.IsAdmin() {
		return []entry{
			{"A", "Admin dashboard", messages.OpenAreaMsg{Area: auth.AreaAdminDashboard}},
			{"N", "Announcements", messages.OpenNotifyMsg{}},
			{"X", "Log out", messages.LogoutMsg{}},
		}
	}
	return []entry{
		{"D", "My dashboard", messages.OpenAreaMsg{Area: auth.AreaMemberDashboard}},
		{"N", "Announcements", messages.OpenNotifyMsg{}},
		{"X", "Log out", messages.LogoutMsg{}},
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	entries := m.entries()
	switch km.String() {
	case "j", "down":
		if m.selected < len(entries)-1 {
			m.selected++
		}
	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
	case "enter":
		if m.selected < len(entries) {
			out := entries[m.selected].msg
			return m, func() tea.Msg { return out }
		}
	}
	return m, nil
}

// View renders the landing screen.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(bannerStyle.Render(banner))
	sb.WriteString("\n")
	sb.WriteString(taglineStyle.Render("Events, projects and people of the chapter"))
	sb.WriteString("\n\n")

	switch {
	case m.checking:
		sb.WriteString(metaStyle.Render("Checking your session..."))
		sb.WriteString("\n\n")
	case m.user != nil:
		sb.WriteString("Welcome back, " + m.user.DisplayName())
		sb.WriteString(metaStyle.Render(" (" + m.user.Role.Label() + ")"))
		sb.WriteString("\n\n")
	}

	for i, e := range m.entries() {
		line := keyStyle.Render(e.key) + "  " + e.label
		if i == m.selected {
			sb.WriteString(selectedStyle.Render(line))
		} else {
			sb.WriteString(itemStyle.Render(line))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(metaStyle.Render("j/k to move, enter to open, ? for help, q to quit"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}
