package admin

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/render"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	activeTab   = lipgloss.NewStyle().
			Background(lipgloss.Color("#00629B")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)
	statLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Width(26)
	statValue  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

// Tab is a section of the admin dashboard.
type Tab int

const (
	TabStats Tab = iota
	TabUsers
	TabEvents
	TabRegistrations
	TabCodes
	tabCount
)

var tabNames = [tabCount]string{"Stats", "Users", "Events", "Registrations", "Codes"}

// resource maps a tab to the collection its rows belong to.
func (t Tab) resource() (api.AdminResource, bool) {
	switch t {
	case TabUsers:
		return api.ResourceUsers, true
	case TabEvents:
		return api.ResourceEvents, true
	case TabRegistrations:
		return api.ResourceRegistrations, true
	case TabCodes:
		return api.ResourceMembershipCodes, true
	}
	return "", false
}

// Backend is the admin part of the chapter API.
type Backend interface {
	LoadAdminOverview(ctx context.Context, token string) *api.AdminOverview
	DeleteAdminResource(ctx context.Context, token string, res api.AdminResource, id int) error
	ExportEventRegistrations(ctx context.Context, token string, eventID int) ([]byte, error)
}

type pendingDelete struct {
	res   api.AdminResource
	id    int
	label string
}

// Model is the admin dashboard view.
type Model struct {
	table     table.Model
	filter    textinput.Model
	filtering bool
	tab       Tab
	overview  *api.AdminOverview
	ids       []int // row IDs of the current table, in display order
	confirm   *pendingDelete
	loading   bool
	err       string
	notice    string
	backend   Backend
	session   *auth.Session
	exportDir string
	width     int
	height    int
}

// New creates the admin dashboard. Exports are written under exportDir.
func New(backend Backend, session *auth.Session, exportDir string) Model {
	t := table.New(table.WithFocused(true))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00629B")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#00629B"))
	t.SetStyles(styles)

	fi := textinput.New()
	fi.Placeholder = "filter by name or email"
	fi.Prompt = "/"
	fi.Width = 40

	return Model{
		table:     t,
		filter:    fi,
		loading:   true,
		backend:   backend,
		session:   session,
		exportDir: exportDir,
	}
}

// Init loads every admin section.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.table.SetWidth(w)
	th := h - 6 // tabs, blank, filter, footer
	if th < 3 {
		th = 3
	}
	m.table.SetHeight(th)
	m.rebuild()
}

// Tab returns the active section.
func (m Model) Tab() Tab {
	return m.tab
}

// Rows returns the rows currently shown, for the active tab and filter.
func (m Model) Rows() []table.Row {
	return m.table.Rows()
}

// Filtering reports whether the filter input has focus, so the root model
// can leave keys like q and esc alone.
func (m Model) Filtering() bool {
	return m.filtering || m.confirm != nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.AdminLoadedMsg:
		m.loading = false
		m.overview = msg.Overview
		m.err = ""
		if msg.Err != nil {
			m.err = msg.Err.Error()
		} else if n := len(msg.Overview.Failed); n > 0 {
			m.err = fmt.Sprintf("%d section(s) failed to load", n)
		}
		m.rebuild()
		return m, nil

	case messages.AdminDeletedMsg:
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.notice = fmt.Sprintf("Deleted %s #%d", msg.Resource, msg.ID)
		m.loading = true
		return m, m.load()

	case messages.AdminExportedMsg:
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.notice = "Exported to " + msg.Path
		return m, nil

	case messages.AdminCreatedMsg:
		if msg.Err == nil {
			m.loading = true
			return m, m.load()
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "tab", "right", "l":
			m.setTab((m.tab + 1) % tabCount)
			return m, nil
		case "shift+tab", "left", "h":
			m.setTab((m.tab + tabCount - 1) % tabCount)
			return m, nil
		case "1", "2", "3", "4", "5":
			n, _ := strconv.Atoi(msg.String())
			m.setTab(Tab(n - 1))
			return m, nil
		case "/":
			if m.tab == TabStats {
				return m, nil
			}
			m.filtering = true
			cmd := m.filter.Focus()
			return m, cmd
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.notice = ""
			return m, m.load()
		case "d":
			res, ok := m.tab.resource()
			row := m.table.Cursor()
			if !ok || row < 0 || row >= len(m.ids) {
				return m, nil
			}
			label := ""
			if r := m.table.SelectedRow(); len(r) > 1 {
				label = r[1]
			}
			m.confirm = &pendingDelete{res: res, id: m.ids[row], label: label}
			return m, nil
		case "x":
			return m.export()
		case "n":
			var res api.AdminResource
			switch m.tab {
			case TabEvents:
				res = api.ResourceEvents
			case TabCodes:
				res = api.ResourceMembershipCodes
			default:
				return m, nil
			}
			return m, func() tea.Msg { return messages.OpenAdminFormMsg{Resource: res} }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) setTab(t Tab) {
	m.tab = t
	m.filter.SetValue("")
	m.rebuild()
	m.table.SetCursor(0)
}

func (m Model) updateFilter(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case "esc":
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.rebuild()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.rebuild()
	m.table.SetCursor(0)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (Model, tea.Cmd) {
	p := m.confirm
	m.confirm = nil
	if msg.String() != "y" && msg.String() != "Y" {
		m.notice = "Delete cancelled"
		return m, nil
	}
	backend, session := m.backend, m.session
	return m, func() tea.Msg {
		token, err := session.RequireToken()
		if err != nil {
			return messages.AdminDeletedMsg{Resource: p.res, ID: p.id, Err: err}
		}
		err = backend.DeleteAdminResource(context.Background(), token, p.res, p.id)
		if err != nil {
			session.DropIfUnauthorized(err)
		}
		return messages.AdminDeletedMsg{Resource: p.res, ID: p.id, Err: err}
	}
}

func (m Model) export() (Model, tea.Cmd) {
	row := m.table.Cursor()
	if m.tab != TabEvents || row < 0 || row >= len(m.ids) {
		return m, nil
	}
	id := m.ids[row]
	backend, session, dir := m.backend, m.session, m.exportDir
	return m, func() tea.Msg {
		token, err := session.RequireToken()
		if err != nil {
			return messages.AdminExportedMsg{Err: err}
		}
		data, err := backend.ExportEventRegistrations(context.Background(), token, id)
		if err != nil {
			session.DropIfUnauthorized(err)
			return messages.AdminExportedMsg{Err: err}
		}
		path, err := writeExport(dir, id, data)
		return messages.AdminExportedMsg{Path: path, Err: err}
	}
}

// ExportFileName is the file an event's registrations are exported to.
func ExportFileName(eventID int) string {
	return fmt.Sprintf("event-%d-registrations.json", eventID)
}

func writeExport(dir string, eventID int, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(eventID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

func (m Model) load() tea.Cmd {
	backend, session := m.backend, m.session
	return func() tea.Msg {
		token, err := session.RequireToken()
		if err != nil {
			return messages.AdminLoadedMsg{Err: err}
		}
		ov := backend.LoadAdminOverview(context.Background(), token)
		for _, err := range ov.Failed {
			if session.DropIfUnauthorized(err) {
				return messages.AdminLoadedMsg{Err: err}
			}
		}
		return messages.AdminLoadedMsg{Overview: ov}
	}
}

func (m *Model) matches(fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// rebuild recomputes the table for the active tab and filter.
func (m *Model) rebuild() {
	var cols []table.Column
	var rows []table.Row
	m.ids = nil

	ov := m.overview
	if ov == nil {
		ov = &api.AdminOverview{}
	}

	switch m.tab {
	case TabUsers:
		cols = []table.Column{{Title: "ID", Width: 5}, {Title: "Name", Width: 24}, {Title: "Email", Width: 30}, {Title: "Role", Width: 12}, {Title: "Active", Width: 6}}
		users := slices.Clone(ov.Users)
		slices.SortFunc(users, func(a, b api.User) int { return cmp.Compare(a.ID, b.ID) })
		for _, u := range users {
			if !m.matches(u.FullName, u.Username, u.Email) {
				continue
			}
			m.ids = append(m.ids, u.ID)
			rows = append(rows, table.Row{strconv.Itoa(u.ID), u.DisplayName(), u.Email, u.Role.Label(), yesNo(u.IsActive)})
		}
	case TabEvents:
		cols = []table.Column{{Title: "ID", Width: 5}, {Title: "Title", Width: 30}, {Title: "Starts", Width: 18}, {Title: "Public", Width: 6}, {Title: "Regs", Width: 5}}
		for _, ev := range ov.Events {
			if !m.matches(ev.Title, ev.Slug, ev.Location) {
				continue
			}
			m.ids = append(m.ids, ev.ID)
			rows = append(rows, table.Row{strconv.Itoa(ev.ID), ev.Title, formatTime(ev.StartTime), yesNo(ev.IsPublic), strconv.Itoa(ev.RegistrationCount)})
		}
	case TabRegistrations:
		cols = []table.Column{{Title: "ID", Width: 5}, {Title: "Name", Width: 22}, {Title: "Email", Width: 28}, {Title: "Event", Width: 24}, {Title: "At", Width: 18}}
		for _, r := range ov.Registrations {
			if !m.matches(r.ParticipantName, r.ParticipantEmail, r.EventTitle) {
				continue
			}
			m.ids = append(m.ids, r.ID)
			rows = append(rows, table.Row{strconv.Itoa(r.ID), r.ParticipantName, r.ParticipantEmail, r.EventTitle, formatTime(r.RegisteredAt)})
		}
	case TabCodes:
		cols = []table.Column{{Title: "ID", Width: 5}, {Title: "Code", Width: 20}, {Title: "Uses", Width: 10}, {Title: "Active", Width: 6}, {Title: "Expires", Width: 18}}
		for _, c := range ov.MembershipCodes {
			if !m.matches(c.Code) {
				continue
			}
			uses := strconv.Itoa(c.CurrentUses)
			if c.MaxUses != nil {
				uses += "/" + strconv.Itoa(*c.MaxUses)
			}
			m.ids = append(m.ids, c.ID)
			rows = append(rows, table.Row{strconv.Itoa(c.ID), c.Code, uses, yesNo(c.IsActive), formatTime(c.ExpiresAt)})
		}
	default:
		cols = []table.Column{{Title: "", Width: 1}}
	}

	// Rows must be cleared before the columns shrink.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	// An empty table leaves the cursor at -1.
	if len(rows) > 0 && m.table.Cursor() < 0 {
		m.table.SetCursor(0)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return render.FormatDateTime(*t)
}

// View renders the admin dashboard.
func (m Model) View() string {
	var sb strings.Builder

	var tabs []string
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == m.tab {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, inactiveTab.Render(label))
		}
	}
	sb.WriteString(headerStyle.Render("Admin") + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	sb.WriteString("\n\n")

	switch {
	case m.loading && m.overview == nil:
		sb.WriteString("Loading...\n")
	case m.tab == TabStats:
		sb.WriteString(m.statsView())
	default:
		if m.filtering || m.filter.Value() != "" {
			sb.WriteString(m.filter.View() + "\n")
		}
		sb.WriteString(m.table.View())
		sb.WriteString("\n")
	}

	switch {
	case m.confirm != nil:
		sb.WriteString(warnStyle.Render(fmt.Sprintf("Delete %s #%d %s? (y/n)", m.confirm.res, m.confirm.id, m.confirm.label)))
	case m.err != "":
		sb.WriteString(errorStyle.Render(m.err))
	case m.notice != "":
		sb.WriteString(hintStyle.Render(m.notice))
	default:
		sb.WriteString(hintStyle.Render("tab switch | / filter | d delete | x export | n new | r reload"))
	}
	return sb.String()
}

func (m Model) statsView() string {
	if m.overview == nil {
		return ""
	}
	s := m.overview.Stats
	rows := []struct {
		label string
		n     int
	}{
		{"Total users", s.TotalUsers},
		{"Active users", s.ActiveUsers},
		{"IEEE members", s.IEEEMembers},
		{"Non members", s.NonMembers},
		{"Total events", s.TotalEvents},
		{"Upcoming events", s.UpcomingEvents},
		{"Registrations", s.TotalRegistrations},
		{"Active membership codes", s.ActiveMembershipCodes},
	}
	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(statLabel.Render(r.label) + statValue.Render(strconv.Itoa(r.n)) + "\n")
	}
	return sb.String()
}
