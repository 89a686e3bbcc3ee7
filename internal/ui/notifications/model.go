package notifications

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/cache"
	"github.com/fragmede/branchdesk/internal/render"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true).Padding(1, 0)
	notifStyle     = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#1F3A4D")).Padding(0, 1)
	headlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	unreadDotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	previewStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

const (
	listLimit  = 50
	previewLen = 80
)

// Model is the announcements inbox.
type Model struct {
	notifications []cache.Notification
	selectedIdx   int
	db            *cache.DB
	err           error
	now           func() time.Time
	width         int
	height        int
}

// New creates a new notifications model.
func New(db *cache.DB) Model {
	return Model{db: db, now: time.Now}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Load refreshes the notification list from the database.
func (m *Model) Load() {
	m.notifications, m.err = m.db.GetNotifications(listLimit)
	if m.selectedIdx >= len(m.notifications) {
		m.selectedIdx = 0
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.NewNotificationMsg:
		m.Load()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.selectedIdx < len(m.notifications)-1 {
				m.selectedIdx++
			}
		case "k", "up":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "enter", " ":
			if m.selectedIdx >= 0 && m.selectedIdx < len(m.notifications) {
				n := &m.notifications[m.selectedIdx]
				if n.Read {
					return m, nil
				}
				if err := m.db.MarkNotificationRead(n.ID); err != nil {
					return m, statusErr(err)
				}
				n.Read = true
				return m, unreadChanged(m.UnreadCount())
			}
		case "a":
			if err := m.db.MarkAllNotificationsRead(); err != nil {
				return m, statusErr(err)
			}
			for i := range m.notifications {
				m.notifications[i].Read = true
			}
			return m, unreadChanged(0)
		}
	}
	return m, nil
}

func unreadChanged(n int) tea.Cmd {
	return func() tea.Msg { return messages.NewNotificationMsg{UnreadCount: n} }
}

func statusErr(err error) tea.Cmd {
	return func() tea.Msg { return messages.StatusMsg{Text: err.Error(), IsError: true} }
}

// View renders the notifications list.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Announcements"))
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(errorStyle.Render("  " + m.err.Error()))
		return sb.String()
	}
	if len(m.notifications) == 0 {
		sb.WriteString("\n  No announcements yet.\n")
		return sb.String()
	}

	now := m.now()
	for i, n := range m.notifications {
		var line strings.Builder

		if !n.Read {
			line.WriteString(unreadDotStyle.Render("● "))
		} else {
			line.WriteString("  ")
		}

		line.WriteString(headlineStyle.Render(n.Title))
		when := n.PostedAt
		if when.IsZero() {
			when = n.CreatedAt
		}
		line.WriteString(metaStyle.Render(" " + render.RelativeTime(when, now)))
		line.WriteString("\n")
		if n.TextPreview != "" {
			line.WriteString("  " + previewStyle.Render(render.Truncate(n.TextPreview, previewLen)))
		}

		entry := line.String()
		if i == m.selectedIdx {
			entry = selectedStyle.Render(entry)
		} else {
			entry = notifStyle.Render(entry)
		}
		sb.WriteString(entry + "\n")
	}

	sb.WriteString("\n" + metaStyle.Render("  enter mark read | a mark all read | esc back"))
	return sb.String()
}

// UnreadCount returns the number of unread notifications.
func (m Model) UnreadCount() int {
	count := 0
	for _, n := range m.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}
