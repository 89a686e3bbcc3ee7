package adminform

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/render"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Width(12)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

// Creator creates admin resources.
type Creator interface {
	CreateEvent(ctx context.Context, token string, req api.CreateEventRequest) (*api.AdminEvent, error)
	CreateMembershipCode(ctx context.Context, token string, req api.CreateMembershipCodeRequest) (*api.MembershipCode, error)
}

type input struct {
	label string
	model textinput.Model
}

// Model is the create form for an event or a membership code.
type Model struct {
	resource   api.AdminResource
	inputs     []input
	focused    int
	creator    Creator
	session    *auth.Session
	err        string
	submitting bool
	width      int
	height     int
}

func newInput(label, placeholder string) input {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 5000
	ti.Width = 50
	return input{label: label, model: ti}
}

// New creates a form for resource, which is either events or
// membership-codes.
func New(resource api.AdminResource, creator Creator, session *auth.Session) Model {
	m := Model{resource: resource, creator: creator, session: session}
	switch resource {
	case api.ResourceEvents:
		m.inputs = []input{
			newInput("title", "Event title"),
			newInput("slug", "derived from title when empty"),
			newInput("description", "optional"),
			newInput("location", "optional"),
			newInput("starts", "YYYY-MM-DD HH:MM, optional"),
			newInput("public", "y/n"),
		}
	default:
		m.inputs = []input{
			newInput("code", "e.g. IEEE2026"),
			newInput("max uses", "blank for unlimited"),
			newInput("expires", "YYYY-MM-DD, optional"),
		}
	}
	m.inputs[0].model.Focus()
	return m
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focused = (m.focused + 1) % len(m.inputs)
			cmd := m.updateFocus()
			return m, cmd
		case "shift+tab", "up":
			m.focused = (m.focused + len(m.inputs) - 1) % len(m.inputs)
			cmd := m.updateFocus()
			return m, cmd
		case "ctrl+s":
			return m.submit()
		}

	case messages.AdminCreatedMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = msg.Err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focused].model, cmd = m.inputs[m.focused].model.Update(msg)
	return m, cmd
}

func (m *Model) updateFocus() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focused {
			cmd = m.inputs[i].model.Focus()
		} else {
			m.inputs[i].model.Blur()
		}
	}
	return cmd
}

func (m Model) value(i int) string {
	return strings.TrimSpace(m.inputs[i].model.Value())
}

// EventRequest builds the create-event payload from the form.
func (m Model) EventRequest() (api.CreateEventRequest, error) {
	req := api.CreateEventRequest{
		Title:       m.value(0),
		Slug:        m.value(1),
		Description: m.value(2),
		Location:    m.value(3),
	}
	if req.Slug == "" {
		req.Slug = req.Title
	}
	if s := m.value(4); s != "" {
		t, ok := render.ParseDate(s)
		if !ok {
			return req, fmt.Errorf("starts must look like 2026-01-31 18:00")
		}
		req.StartTime = &t
	}
	switch strings.ToLower(m.value(5)) {
	case "y", "yes", "true":
		req.IsPublic = true
	}
	return req, nil
}

// CodeRequest builds the create-code payload from the form.
func (m Model) CodeRequest() (api.CreateMembershipCodeRequest, error) {
	req := api.CreateMembershipCodeRequest{Code: m.value(0)}
	if s := m.value(1); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, fmt.Errorf("max uses must be a number")
		}
		req.MaxUses = &n
	}
	if s := m.value(2); s != "" {
		t, ok := render.ParseDate(s)
		if !ok {
			return req, fmt.Errorf("expires must look like 2026-12-31")
		}
		req.ExpiresAt = &t
	}
	return req, nil
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	var run func(ctx context.Context, token string) error
	switch m.resource {
	case api.ResourceEvents:
		req, err := m.EventRequest()
		if err == nil {
			req.Slug = api.Slugify(req.Slug)
			err = api.Validate(req)
		}
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		run = func(ctx context.Context, token string) error {
			_, err := m.creator.CreateEvent(ctx, token, req)
			return err
		}
	default:
		req, err := m.CodeRequest()
		if err == nil {
			err = api.Validate(req)
		}
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		run = func(ctx context.Context, token string) error {
			_, err := m.creator.CreateMembershipCode(ctx, token, req)
			return err
		}
	}

	m.submitting = true
	m.err = ""
	session, resource := m.session, m.resource
	return m, func() tea.Msg {
		token, err := session.RequireToken()
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			err = run(ctx, token)
			if err != nil {
				session.DropIfUnauthorized(err)
			}
		}
		return messages.AdminCreatedMsg{Resource: resource, Err: err}
	}
}

// View renders the form.
func (m Model) View() string {
	var sb strings.Builder

	title := "New event"
	if m.resource != api.ResourceEvents {
		title = "New membership code"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")

	for _, in := range m.inputs {
		sb.WriteString(labelStyle.Render(in.label) + " " + in.model.View())
		sb.WriteString("\n\n")
	}

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n")
	}

	if m.submitting {
		sb.WriteString("Creating...")
	} else {
		sb.WriteString(hintStyle.Render("Tab to switch fields | Ctrl+S to create | Esc to cancel"))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}
