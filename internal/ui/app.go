package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/cache"
	"github.com/fragmede/branchdesk/internal/config"
	"github.com/fragmede/branchdesk/internal/monitor"
	"github.com/fragmede/branchdesk/internal/ui/admin"
	"github.com/fragmede/branchdesk/internal/ui/adminform"
	"github.com/fragmede/branchdesk/internal/ui/dashboard"
	"github.com/fragmede/branchdesk/internal/ui/home"
	"github.com/fragmede/branchdesk/internal/ui/login"
	"github.com/fragmede/branchdesk/internal/ui/messages"
	"github.com/fragmede/branchdesk/internal/ui/notifications"
	"github.com/fragmede/branchdesk/internal/ui/profile"
	"github.com/fragmede/branchdesk/internal/ui/register"
	"github.com/fragmede/branchdesk/internal/ui/statusbar"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewHome ViewType = iota
	ViewLogin
	ViewRegister
	ViewDashboard
	ViewProfile
	ViewAdmin
	ViewAdminForm
	ViewNotifications
)

var viewLabels = map[ViewType]string{
	ViewHome:          "home",
	ViewLogin:         "login",
	ViewRegister:      "join",
	ViewDashboard:     "dashboard",
	ViewProfile:       "profile",
	ViewAdmin:         "admin",
	ViewAdminForm:     "admin",
	ViewNotifications: "announcements",
}

// App is the root Bubble Tea model.
type App struct {
	// View state
	activeView    ViewType
	previousViews []ViewType
	showHelp      bool

	// Child models
	home          home.Model
	loginForm     login.Model
	registerForm  register.Model
	dashboard     dashboard.Model
	profileForm   profile.Model
	admin         admin.Model
	adminForm     adminform.Model
	notifications notifications.Model
	statusBar     statusbar.Model

	// Shared state
	cfg     config.Config
	client  *api.Client
	cache   *cache.DB
	session *auth.Session
	monitor *monitor.Monitor
	user    *api.User

	// Dimensions
	width  int
	height int

	// For passing program reference to monitor
	program *tea.Program
}

// NewApp creates the root application model. mon may be nil to disable
// announcement polling.
func NewApp(cfg config.Config, client *api.Client, db *cache.DB, session *auth.Session, mon *monitor.Monitor) *App {
	return &App{
		activeView:    ViewHome,
		home:          home.New(session.IsAuthenticated()),
		statusBar:     statusbar.New(),
		notifications: notifications.New(db),
		cfg:           cfg,
		client:        client,
		cache:         db,
		session:       session,
		monitor:       mon,
	}
}

// SetProgram stores the tea.Program reference for the background monitor.
func (a *App) SetProgram(p *tea.Program) {
	a.program = p
}

// User returns the logged-in user, or nil.
func (a *App) User() *api.User {
	return a.user
}

// ActiveView returns the view currently shown.
func (a *App) ActiveView() ViewType {
	return a.activeView
}

// Init validates any stored session.
func (a *App) Init() tea.Cmd {
	a.statusBar.SetUnread(a.cache.UnreadNotificationCount())
	return a.checkSession()
}

func (a *App) checkSession() tea.Cmd {
	session := a.session
	return func() tea.Msg {
		user, err := session.GetCurrentUser(context.Background())
		return messages.SessionCheckedMsg{User: user, Err: err}
	}
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.home.SetSize(msg.Width, a.contentHeight())
		a.statusBar.SetSize(msg.Width)
		// Only resize lazily-created views if they're currently active.
		a.resizeActive()
		return a, nil

	case tea.KeyMsg:
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
		if a.capturesKeys() {
			// Text input views only give up esc and ctrl+c.
			switch {
			case key.Matches(msg, Keys.ForceQuit):
				return a, a.quit()
			case key.Matches(msg, Keys.Back) && !(a.activeView == ViewAdmin && a.admin.Filtering()):
				return a, a.goBack()
			}
			break
		}
		switch {
		case key.Matches(msg, Keys.ForceQuit):
			return a, a.quit()
		case key.Matches(msg, Keys.Quit):
			if a.activeView == ViewHome {
				return a, a.quit()
			}
			return a, a.goBack()
		case key.Matches(msg, Keys.Back):
			return a, a.goBack()
		case key.Matches(msg, Keys.Help):
			a.showHelp = true
			return a, nil
		case key.Matches(msg, Keys.Home):
			a.resetTo(ViewHome)
			return a, nil
		case key.Matches(msg, Keys.Login):
			if a.user == nil {
				return a, a.openLogin("")
			}
			return a, nil
		case key.Matches(msg, Keys.Signup):
			if a.user == nil {
				return a, a.openRegister()
			}
			return a, nil
		case key.Matches(msg, Keys.Dashboard):
			return a, a.openArea(auth.AreaMemberDashboard)
		case key.Matches(msg, Keys.Admin):
			return a, a.openArea(auth.AreaAdminDashboard)
		case key.Matches(msg, Keys.Notify):
			return a, a.openNotifications()
		case key.Matches(msg, Keys.Logout):
			if a.user != nil {
				return a, a.logout()
			}
			return a, nil
		case key.Matches(msg, Keys.RefreshToken):
			return a, a.refreshToken()
		}

	// View transitions.
	case messages.GoBackMsg:
		return a, a.goBack()

	case messages.OpenLoginMsg:
		if a.activeView == ViewRegister {
			// Signup is finished; do not come back to it.
			a.resetTo(ViewHome)
		}
		return a, a.openLogin(msg.Email)

	case messages.OpenSignupMsg:
		return a, a.openRegister()

	case messages.OpenAreaMsg:
		return a, a.openArea(msg.Area)

	case messages.OpenNotifyMsg:
		return a, a.openNotifications()

	case messages.OpenProfileMsg:
		if !a.user.IsIEEEMember() {
			return a, nil
		}
		a.pushView(ViewProfile)
		a.profileForm = profile.New(a.user, a.client, a.session)
		a.resizeActive()
		return a, nil

	case messages.OpenAdminFormMsg:
		if !a.user.IsAdmin() {
			return a, nil
		}
		a.pushView(ViewAdminForm)
		a.adminForm = adminform.New(msg.Resource, a.client, a.session)
		a.resizeActive()
		return a, nil

	case messages.LogoutMsg:
		return a, a.logout()

	// Session results.
	case messages.SessionCheckedMsg:
		a.setUser(msg.User)
		if msg.Err != nil {
			a.statusBar.SetStatus(msg.Err.Error(), true)
		}
		return a, nil

	case messages.LoginResultMsg:
		if msg.Err != nil {
			// Let the login form show the error.
			break
		}
		a.setUser(msg.User)
		a.resetTo(ViewHome)
		a.statusBar.SetStatus("Logged in", false)
		return a, a.openArea(auth.AreaMemberDashboard)

	case messages.LoggedOutMsg:
		a.statusBar.SetStatus("Logged out", false)
		return a, nil

	case messages.TokenRefreshedMsg:
		if msg.OK {
			a.updateExpiry()
			a.statusBar.SetStatus("Session renewed", false)
			return a, nil
		}
		// The session store was cleared; the check below sends the user to login.

	case messages.ProfileSavedMsg:
		if msg.Err == nil && msg.User != nil {
			a.user = msg.User
			a.dashboard.SetUser(msg.User)
			a.statusBar.SetUser(msg.User)
			a.statusBar.SetStatus("Profile saved", false)
			return a, a.goBack()
		}

	case messages.AdminCreatedMsg:
		if msg.Err == nil {
			a.goBack()
			a.statusBar.SetStatus("Created", false)
			var cmd tea.Cmd
			a.admin, cmd = a.admin.Update(msg)
			return a, cmd
		}

	case messages.NewNotificationMsg:
		a.statusBar.SetUnread(msg.UnreadCount)

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
	}

	// Route to active view.
	var cmd tea.Cmd
	switch a.activeView {
	case ViewHome:
		a.home, cmd = a.home.Update(msg)
	case ViewLogin:
		a.loginForm, cmd = a.loginForm.Update(msg)
	case ViewRegister:
		a.registerForm, cmd = a.registerForm.Update(msg)
	case ViewDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	case ViewProfile:
		a.profileForm, cmd = a.profileForm.Update(msg)
	case ViewAdmin:
		a.admin, cmd = a.admin.Update(msg)
	case ViewAdminForm:
		a.adminForm, cmd = a.adminForm.Update(msg)
	case ViewNotifications:
		a.notifications, cmd = a.notifications.Update(msg)
	}
	cmds = append(cmds, cmd)

	// Any call that hit a 401/403 has already cleared the stored token.
	if a.user != nil && !a.session.IsAuthenticated() {
		cmds = append(cmds, a.sessionLost())
	}

	a.statusBar, cmd = a.statusBar.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// capturesKeys reports whether the active view needs plain keys for typing.
func (a *App) capturesKeys() bool {
	switch a.activeView {
	case ViewLogin, ViewRegister, ViewProfile, ViewAdminForm:
		return true
	case ViewAdmin:
		return a.admin.Filtering()
	}
	return false
}

func (a *App) contentHeight() int {
	return a.height - 1 // Reserve 1 line for status bar.
}

func (a *App) resizeActive() {
	w, h := a.width, a.contentHeight()
	switch a.activeView {
	case ViewLogin:
		a.loginForm.SetSize(w, h)
	case ViewRegister:
		a.registerForm.SetSize(w, h)
	case ViewDashboard:
		a.dashboard.SetSize(w, h)
	case ViewProfile:
		a.profileForm.SetSize(w, h)
	case ViewAdmin:
		a.admin.SetSize(w, h)
	case ViewAdminForm:
		a.adminForm.SetSize(w, h)
	case ViewNotifications:
		a.notifications.SetSize(w, h)
	}
}

func (a *App) setUser(u *api.User) {
	a.user = u
	a.home.SetUser(u)
	a.statusBar.SetUser(u)
	a.updateExpiry()
	if a.monitor == nil {
		return
	}
	if u == nil {
		a.monitor.Stop()
		return
	}
	if a.program != nil {
		a.monitor.Start(a.program, u.ID)
	}
}

func (a *App) updateExpiry() {
	exp, _ := a.session.TokenExpiry()
	a.statusBar.SetExpiry(exp)
}

// sessionLost handles a token that the API stopped accepting.
func (a *App) sessionLost() tea.Cmd {
	a.setUser(nil)
	a.resetTo(ViewHome)
	a.statusBar.SetStatus("Your session has expired, please log in again", true)
	return a.openLogin("")
}

// openArea routes to a guarded area. Without a user the login form opens
// instead.
func (a *App) openArea(want auth.Area) tea.Cmd {
	if a.user == nil {
		a.statusBar.SetStatus("Please log in first", true)
		return a.openLogin("")
	}
	switch auth.Resolve(a.user, want) {
	case auth.AreaAdminDashboard:
		if a.activeView == ViewAdmin {
			return nil
		}
		a.pushView(ViewAdmin)
		a.admin = admin.New(a.client, a.session, a.cfg.ExportDir)
		a.resizeActive()
		return a.admin.Init()
	case auth.AreaMemberDashboard:
		if a.activeView == ViewDashboard {
			return nil
		}
		a.pushView(ViewDashboard)
		a.dashboard = dashboard.New(a.user, a.client, a.session, a.cache, a.cfg.DashboardTTL)
		a.resizeActive()
		return a.dashboard.Init()
	default:
		a.resetTo(ViewHome)
		return nil
	}
}

func (a *App) openLogin(email string) tea.Cmd {
	a.pushView(ViewLogin)
	a.loginForm = login.New(a.session, email)
	a.resizeActive()
	return nil
}

func (a *App) openRegister() tea.Cmd {
	a.pushView(ViewRegister)
	a.registerForm = register.New(a.session)
	a.resizeActive()
	return nil
}

func (a *App) openNotifications() tea.Cmd {
	if a.user == nil {
		return a.openLogin("")
	}
	a.pushView(ViewNotifications)
	a.notifications.Load()
	a.resizeActive()
	return nil
}

func (a *App) logout() tea.Cmd {
	a.setUser(nil)
	a.resetTo(ViewHome)
	session, db := a.session, a.cache
	return func() tea.Msg {
		session.Logout(context.Background())
		_ = db.ClearSnapshots()
		return messages.LoggedOutMsg{}
	}
}

func (a *App) refreshToken() tea.Cmd {
	if a.user == nil {
		return nil
	}
	session := a.session
	return func() tea.Msg {
		return messages.TokenRefreshedMsg{OK: session.RefreshToken(context.Background(), false)}
	}
}

func (a *App) quit() tea.Cmd {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	return tea.Quit
}

// View renders the application.
func (a *App) View() string {
	if a.showHelp {
		return a.helpView()
	}

	var content string
	switch a.activeView {
	case ViewHome:
		content = a.home.View()
	case ViewLogin:
		content = a.loginForm.View()
	case ViewRegister:
		content = a.registerForm.View()
	case ViewDashboard:
		content = a.dashboard.View()
	case ViewProfile:
		content = a.profileForm.View()
	case ViewAdmin:
		content = a.admin.View()
	case ViewAdminForm:
		content = a.adminForm.View()
	case ViewNotifications:
		content = a.notifications.View()
	}

	bar := a.statusBar
	bar.SetArea(viewLabels[a.activeView])
	return lipgloss.JoinVertical(lipgloss.Left, content, bar.View())
}

func (a *App) helpView() string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Keys"))
	sb.WriteString("\n")
	for _, b := range Keys.helpBindings() {
		h := b.Help()
		sb.WriteString(KeyStyle.Render(h.Key) + MetaStyle.Render(h.Desc) + "\n")
	}
	sb.WriteString("\n" + MetaStyle.Render("press any key to close"))
	box := BoxStyle.Render(sb.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

func (a *App) pushView(v ViewType) {
	if a.activeView == v {
		return
	}
	a.previousViews = append(a.previousViews, a.activeView)
	a.activeView = v
}

func (a *App) goBack() tea.Cmd {
	if len(a.previousViews) > 0 {
		a.activeView = a.previousViews[len(a.previousViews)-1]
		a.previousViews = a.previousViews[:len(a.previousViews)-1]
		a.resizeActive()
	}
	return nil
}

func (a *App) resetTo(v ViewType) {
	a.activeView = v
	a.previousViews = nil
	a.resizeActive()
}
