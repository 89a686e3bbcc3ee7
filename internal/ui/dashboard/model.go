package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/cache"
	"github.com/fragmede/branchdesk/internal/monitor"
	"github.com/fragmede/branchdesk/internal/render"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Underline(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	statStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
)

const maxBodyLines = 4

// Source fetches the member dashboard.
type Source interface {
	GetDashboard(ctx context.Context, token string) (*api.Dashboard, error)
}

// Model is the member dashboard view.
type Model struct {
	viewport  viewport.Model
	spinner   spinner.Model
	dashboard *api.Dashboard
	user      *api.User
	cached    bool
	loading   bool
	err       error
	source    Source
	session   *auth.Session
	cache     *cache.DB
	ttl       time.Duration
	now       func() time.Time
	width     int
	height    int
}

// New creates a dashboard for user. Call Init to load it.
func New(user *api.User, source Source, session *auth.Session, db *cache.DB, ttl time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = headerStyle
	return Model{
		viewport: viewport.New(0, 0),
		spinner:  sp,
		user:     user,
		loading:  true,
		source:   source,
		session:  session,
		cache:    db,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Init loads the dashboard, serving a fresh snapshot without a request.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(false))
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h - 2 // header + blank line
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.rebuild()
}

// SetUser replaces the user shown in the profile section, e.g. after an edit.
func (m *Model) SetUser(u *api.User) {
	m.user = u
	m.rebuild()
}

// Dashboard returns the data currently shown, or nil.
func (m Model) Dashboard() *api.Dashboard {
	return m.dashboard
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.DashboardLoadedMsg:
		m.loading = false
		m.err = msg.Err
		if msg.Dashboard != nil {
			m.dashboard = msg.Dashboard
			m.cached = msg.Cached
		}
		m.rebuild()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.load(true))
		case "e":
			if m.user.IsIEEEMember() {
				return m, func() tea.Msg { return messages.OpenProfileMsg{} }
			}
			return m, func() tea.Msg {
				return messages.StatusMsg{Text: "Profile editing is for IEEE members", IsError: true}
			}
		case "n":
			return m, func() tea.Msg { return messages.OpenNotifyMsg{} }
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) load(force bool) tea.Cmd {
	source, session, db, ttl := m.source, m.session, m.cache, m.ttl
	key := monitor.SnapshotKey(0)
	if m.user != nil {
		key = monitor.SnapshotKey(m.user.ID)
	}
	return func() tea.Msg {
		var snap api.Dashboard
		found, fresh, _ := db.GetSnapshot(key, ttl, &snap)
		if found && fresh && !force {
			return messages.DashboardLoadedMsg{Dashboard: &snap, Cached: true}
		}

		token, err := session.RequireToken()
		if err != nil {
			return messages.DashboardLoadedMsg{Err: err}
		}
		d, err := source.GetDashboard(context.Background(), token)
		if err != nil {
			if session.DropIfUnauthorized(err) {
				return messages.DashboardLoadedMsg{Err: err}
			}
			if found {
				return messages.DashboardLoadedMsg{Dashboard: &snap, Cached: true, Err: err}
			}
			return messages.DashboardLoadedMsg{Err: err}
		}
		_ = db.PutSnapshot(key, d)
		return messages.DashboardLoadedMsg{Dashboard: d}
	}
}

// View renders the dashboard.
func (m Model) View() string {
	title := "Dashboard"
	if m.user != nil {
		title = "Welcome, " + m.user.DisplayName()
	}
	header := headerStyle.Render(title)
	switch {
	case m.loading:
		header += " " + m.spinner.View()
	case m.cached && m.err != nil:
		header += " " + warnStyle.Render("(offline, showing saved copy)")
	case m.cached:
		header += " " + metaStyle.Render("(saved)")
	}
	return header + "\n\n" + m.viewport.View()
}

func (m *Model) rebuild() {
	if m.dashboard == nil {
		switch {
		case m.err != nil:
			m.viewport.SetContent(errorStyle.Render("Could not load dashboard: " + m.err.Error()))
		case m.loading:
			m.viewport.SetContent(metaStyle.Render("Loading..."))
		}
		return
	}
	m.viewport.SetContent(m.render())
}

func (m Model) render() string {
	d := m.dashboard
	now := m.now()
	width := m.width - 4
	if width < 20 {
		width = 20
	}

	var sb strings.Builder

	m.renderProfile(&sb)

	sb.WriteString(sectionStyle.Render("Overview"))
	sb.WriteString("\n")
	stats := []struct {
		label string
		n     int
	}{
		{"events", d.Stats.TotalEvents},
		{"upcoming", d.Stats.UpcomingEvents},
		{"registered", d.Stats.RegisteredEvents},
		{"announcements", d.Stats.Announcements},
	}
	var parts []string
	for _, s := range stats {
		parts = append(parts, statStyle.Render(fmt.Sprintf("%d", s.n))+" "+metaStyle.Render(s.label))
	}
	sb.WriteString(strings.Join(parts, "   "))
	sb.WriteString("\n\n")

	sb.WriteString(sectionStyle.Render("Upcoming events"))
	sb.WriteString("\n")
	if len(d.UpcomingEvents) == 0 {
		sb.WriteString(metaStyle.Render("No upcoming events."))
		sb.WriteString("\n")
	}
	for _, ev := range d.UpcomingEvents {
		line := valueStyle.Render(ev.Title) + "  " + metaStyle.Render(render.FormatDateTime(ev.EventDate))
		if ev.Location != "" {
			line += metaStyle.Render(" @ " + ev.Location)
		}
		if ev.IsRegistered {
			line += "  " + badgeStyle.Render("registered")
		}
		sb.WriteString("• " + line + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString(sectionStyle.Render("Announcements"))
	sb.WriteString("\n")
	if len(d.Announcements) == 0 {
		sb.WriteString(metaStyle.Render("Nothing new."))
		sb.WriteString("\n")
	}
	for _, a := range d.Announcements {
		when := a.Date
		if t, ok := render.ParseDate(a.Date); ok {
			when = render.RelativeTime(t, now)
		}
		sb.WriteString(valueStyle.Render(a.Title) + "  " + metaStyle.Render(when) + "\n")
		if a.Body != "" {
			body := render.HTMLToText(a.Body, width)
			lines := strings.Split(body, "\n")
			if len(lines) > maxBodyLines {
				lines = append(lines[:maxBodyLines], "…")
			}
			for _, l := range lines {
				sb.WriteString("  " + l + "\n")
			}
		}
	}
	sb.WriteString("\n")

	if !m.user.IsIEEEMember() {
		sb.WriteString(warnStyle.Render("Join IEEE to unlock learning resources, projects and the team directory."))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(sectionStyle.Render("Learning resources"))
	sb.WriteString("\n")
	for _, r := range d.LearningResources {
		sb.WriteString("• " + valueStyle.Render(r.Title) + " " + metaStyle.Render("["+r.Type+"] "+r.URL) + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString(sectionStyle.Render("Projects"))
	sb.WriteString("\n")
	for _, p := range d.Projects {
		sb.WriteString(fmt.Sprintf("• %s %s\n", valueStyle.Render(p.Title),
			metaStyle.Render(fmt.Sprintf("(%s, %d members)", p.Status, p.Members))))
	}
	sb.WriteString("\n")

	sb.WriteString(sectionStyle.Render("Team"))
	sb.WriteString("\n")
	for _, t := range d.TeamMembers {
		line := "• " + valueStyle.Render(t.Name)
		if t.Designation != "" {
			line += " " + metaStyle.Render(t.Designation)
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func (m Model) renderProfile(sb *strings.Builder) {
	u := m.user
	if u == nil {
		return
	}
	sb.WriteString(sectionStyle.Render("Profile"))
	sb.WriteString("\n")
	rows := [][2]string{
		{"Email", u.Email},
		{"Role", u.Role.Label()},
		{"Designation", u.Designation},
		{"Branch", u.Branch},
		{"LinkedIn", u.LinkedInURL},
		{"GitHub", u.GitHubURL},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", r[0])) + valueStyle.Render(r[1]) + "\n")
	}
	if u.Bio != "" {
		sb.WriteString(render.Truncate(u.Bio, 200) + "\n")
	}
	sb.WriteString("\n")
}
