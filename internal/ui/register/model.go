package register

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Width(16)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B5E2"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true)
)

// Step is the stage of the signup flow.
type Step int

const (
	StepForm Step = iota
	StepOTP
	StepVerified
)

// RedirectDelay is how long the success screen stays up before the login
// form opens.
const RedirectDelay = 3 * time.Second

type field int

const (
	fieldUsername field = iota
	fieldFullName
	fieldEmail
	fieldPhone
	fieldPassword
	fieldConfirm
	fieldMembership
	fieldCode
	fieldCount
)

var labels = [...]string{
	fieldUsername:   "username",
	fieldFullName:   "full name",
	fieldEmail:      "email",
	fieldPhone:      "phone",
	fieldPassword:   "password",
	fieldConfirm:    "confirm",
	fieldMembership: "membership",
	fieldCode:       "code",
}

var membershipChoices = []api.MembershipType{api.MembershipNone, api.MembershipIEEE}

type tickMsg struct{}

// Model is the two-phase signup view.
type Model struct {
	inputs     [fieldCount]textinput.Model
	membership int // index into membershipChoices, -1 when unset
	focused    field

	otpInput textinput.Model
	step     Step
	pending  *auth.Pending

	remaining  int
	err        string
	notice     string
	submitting bool
	session    *auth.Session
	width      int
	height     int
}

// New creates an empty signup form.
func New(session *auth.Session) Model {
	m := Model{session: session, membership: -1}
	placeholders := [fieldCount]string{
		fieldUsername: "at least 3 characters",
		fieldFullName: "as on your student ID",
		fieldEmail:    "you@example.org",
		fieldPhone:    "optional",
		fieldPassword: "at least 6 characters",
		fieldConfirm:  "repeat password",
		fieldCode:     "IEEE members only",
	}
	for i := range m.inputs {
		if field(i) == fieldMembership {
			continue
		}
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 128
		ti.Width = 40
		if field(i) == fieldPassword || field(i) == fieldConfirm {
			ti.EchoMode = textinput.EchoPassword
		}
		m.inputs[i] = ti
	}
	m.inputs[fieldUsername].Focus()

	otp := textinput.New()
	otp.Placeholder = "6-digit code"
	otp.CharLimit = 6
	otp.Width = 12
	m.otpInput = otp
	return m
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Step returns the current stage.
func (m Model) Step() Step {
	return m.step
}

// Draft returns the form contents.
func (m Model) Draft() auth.Draft {
	d := auth.Draft{
		Username:        m.inputs[fieldUsername].Value(),
		FullName:        m.inputs[fieldFullName].Value(),
		Email:           m.inputs[fieldEmail].Value(),
		PhoneNumber:     m.inputs[fieldPhone].Value(),
		Password:        m.inputs[fieldPassword].Value(),
		ConfirmPassword: m.inputs[fieldConfirm].Value(),
		MembershipCode:  m.inputs[fieldCode].Value(),
	}
	if m.membership >= 0 {
		d.MembershipType = membershipChoices[m.membership]
	}
	return d
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.RegisterResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.pending = msg.Pending
		m.step = StepOTP
		m.err = ""
		m.notice = msg.Pending.Message
		if m.notice == "" {
			m.notice = "We sent a verification code to " + msg.Pending.Email
		}
		cmd := m.otpInput.Focus()
		return m, cmd

	case messages.VerifyResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = msg.Err.Error()
			m.otpInput.SetValue("")
			return m, nil
		}
		m.step = StepVerified
		m.err = ""
		m.remaining = int(RedirectDelay / time.Second)
		return m, tick()

	case messages.ResendResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		m.err = ""
		m.notice = "A new code is on its way to " + m.pending.Email
		return m, nil

	case tickMsg:
		if m.step != StepVerified {
			return m, nil
		}
		m.remaining--
		if m.remaining <= 0 {
			email := m.pending.Email
			return m, func() tea.Msg { return messages.OpenLoginMsg{Email: email} }
		}
		return m, tick()

	case tea.KeyMsg:
		switch m.step {
		case StepForm:
			return m.updateForm(msg)
		case StepOTP:
			return m.updateOTP(msg)
		case StepVerified:
			if msg.String() == "enter" {
				email := m.pending.Email
				return m, func() tea.Msg { return messages.OpenLoginMsg{Email: email} }
			}
		}
		return m, nil
	}

	if m.step == StepOTP {
		var cmd tea.Cmd
		m.otpInput, cmd = m.otpInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.focused = (m.focused + 1) % fieldCount
		cmd := m.updateFocus()
		return m, cmd
	case "shift+tab", "up":
		m.focused = (m.focused + fieldCount - 1) % fieldCount
		cmd := m.updateFocus()
		return m, cmd
	case "ctrl+s":
		return m.submitForm()
	}

	if m.focused == fieldMembership {
		switch msg.String() {
		case "left", "h":
			m.membership = (m.membership + len(membershipChoices) - 1) % len(membershipChoices)
		case "right", "l", " ":
			m.membership = (m.membership + 1) % len(membershipChoices)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m Model) submitForm() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	draft := m.Draft()
	if err := auth.ValidateDraft(draft); err != nil {
		m.err = err.Error()
		return m, nil
	}
	m.submitting = true
	m.err = ""
	session := m.session
	return m, func() tea.Msg {
		p, err := session.Register(context.Background(), draft)
		return messages.RegisterResultMsg{Pending: p, Err: err}
	}
}

func (m Model) updateOTP(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.submitting {
			return m, nil
		}
		code := strings.TrimSpace(m.otpInput.Value())
		if err := auth.ValidateOTP(code); err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.submitting = true
		m.err = ""
		session, email := m.session, m.pending.Email
		return m, func() tea.Msg {
			u, err := session.VerifyRegistration(context.Background(), email, code)
			return messages.VerifyResultMsg{User: u, Err: err}
		}
	case "ctrl+r":
		if m.submitting {
			return m, nil
		}
		m.submitting = true
		m.err = ""
		session, email := m.session, m.pending.Email
		return m, func() tea.Msg {
			return messages.ResendResultMsg{Err: session.ResendOTP(context.Background(), email, api.OTPRegistration)}
		}
	}

	var cmd tea.Cmd
	m.otpInput, cmd = m.otpInput.Update(msg)
	return m, cmd
}

func (m *Model) updateFocus() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if field(i) == fieldMembership {
			continue
		}
		if field(i) == m.focused {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{} })
}

// View renders the current step.
func (m Model) View() string {
	var sb strings.Builder

	switch m.step {
	case StepForm:
		sb.WriteString(titleStyle.Render("Join the chapter"))
		sb.WriteString("\n\n")
		for i := range m.inputs {
			f := field(i)
			label := labelStyle.Render(labels[f])
			if f == m.focused {
				label = labelStyle.Inherit(focusedStyle).Render(labels[f])
			}
			sb.WriteString(label + " ")
			if f == fieldMembership {
				sb.WriteString(m.membershipView())
			} else {
				sb.WriteString(m.inputs[i].View())
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")

	case StepOTP:
		sb.WriteString(titleStyle.Render("Verify your email"))
		sb.WriteString("\n\n")
		if m.notice != "" {
			sb.WriteString(m.notice + "\n\n")
		}
		sb.WriteString(labelStyle.Render("code") + " " + m.otpInput.View())
		sb.WriteString("\n\n")

	case StepVerified:
		sb.WriteString(okStyle.Render("Email verified"))
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf("Your account is ready. Opening login in %ds...", m.remaining))
		sb.WriteString("\n\n")
		sb.WriteString(hintStyle.Render("Enter to continue now"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
	}

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n")
	}

	switch {
	case m.submitting:
		sb.WriteString("Working...")
	case m.step == StepForm:
		sb.WriteString(hintStyle.Render("Tab to switch fields | ←/→ membership | Ctrl+S to submit | Esc to cancel"))
	default:
		sb.WriteString(hintStyle.Render("Enter to verify | Ctrl+R to resend | Esc to cancel"))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}

func (m Model) membershipView() string {
	var parts []string
	for i, c := range membershipChoices {
		label := "( ) " + c.Label()
		if i == m.membership {
			label = "(•) " + c.Label()
			if m.focused == fieldMembership {
				label = focusedStyle.Render(label)
			}
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}
