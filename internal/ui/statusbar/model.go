package statusbar

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/render"
)

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1C1C1C")).
			Foreground(lipgloss.Color("#FFFFFF"))

	areaStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#00629B")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1C1C1C")).
			Foreground(lipgloss.Color("#00B5E2")).
			Padding(0, 1)

	roleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1C1C1C")).
			Foreground(lipgloss.Color("#828282")).
			Padding(0, 1)

	notifyStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#00B5E2")).
			Foreground(lipgloss.Color("#000000")).
			Bold(true).
			Padding(0, 1)

	statusTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1C1C1C")).
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)

	errorTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B0000")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	expiringStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#AF5F00")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)
)

// expiringSoon is when the token countdown turns amber.
const expiringSoon = 5 * time.Minute

// Model is the status bar at the bottom of the screen.
type Model struct {
	width       int
	area        string
	user        *api.User
	expiry      time.Time
	unreadCount int
	statusText  string
	isError     bool
	now         func() time.Time
}

// New creates a new status bar.
func New() Model {
	return Model{area: "home", now: time.Now}
}

// SetSize sets the width.
func (m *Model) SetSize(w int) {
	m.width = w
}

// SetArea sets the label of the current view.
func (m *Model) SetArea(label string) {
	m.area = label
}

// SetUser sets the logged-in user; nil shows the login hint.
func (m *Model) SetUser(u *api.User) {
	m.user = u
}

// SetExpiry sets when the session token expires. A zero time hides the
// countdown.
func (m *Model) SetExpiry(t time.Time) {
	m.expiry = t
}

// SetUnread sets the unread notification count.
func (m *Model) SetUnread(count int) {
	m.unreadCount = count
}

// SetStatus sets a temporary status message.
func (m *Model) SetStatus(text string, isError bool) {
	m.statusText = text
	m.isError = isError
}

// Update is a no-op for the status bar.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	left := areaStyle.Render(m.area)
	if m.statusText != "" {
		if m.isError {
			left += errorTextStyle.Render(m.statusText)
		} else {
			left += statusTextStyle.Render(m.statusText)
		}
	}

	var right string
	if m.unreadCount > 0 {
		right += notifyStyle.Render(fmt.Sprintf("%d new", m.unreadCount))
	}
	if m.user != nil {
		right += userStyle.Render(m.user.DisplayName())
		right += roleStyle.Render(m.user.Role.Label())
		if !m.expiry.IsZero() {
			now := m.now()
			remaining := "token " + render.Countdown(m.expiry, now)
			if m.expiry.Sub(now) < expiringSoon {
				right += expiringStyle.Render(remaining)
			} else {
				right += roleStyle.Render(remaining)
			}
		}
	} else {
		right += statusTextStyle.Render("L:login S:join")
	}

	// Fill middle with background.
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	mid := barStyle.Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, mid, right)
}
