package login

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/api/apitest"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/localstore"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

func setup(t *testing.T) (*apitest.Server, *auth.Session, *localstore.MemoryCookies) {
	t.Helper()
	srv := apitest.New(t)
	srv.AddUser("ada@example.edu", "analytical", api.RoleIEEEMember)
	client := api.NewClient(srv.URL, api.WithTimeout(5*time.Second))
	cookies := localstore.NewMemoryCookies()
	return srv, auth.New(client, cookies, localstore.NewMemory()), cookies
}

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func submit(t *testing.T, m Model) (Model, messages.LoginResultMsg) {
	t.Helper()
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.Submitting())
	res, ok := cmd().(messages.LoginResultMsg)
	require.True(t, ok)
	m, _ = m.Update(res)
	return m, res
}

func TestLogin_InvalidEmailStaysLocal(t *testing.T) {
	srv, session, _ := setup(t)
	m := New(session, "")
	m = typeText(m, "not-an-email")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.Submitting())
	assert.Contains(t, m.View(), auth.MsgEmailInvalid)
	assert.Zero(t, srv.TotalCalls())
}

func TestLogin_Success(t *testing.T) {
	_, session, _ := setup(t)
	m := New(session, "")
	m = typeText(m, "ada@example.edu")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "analytical")

	m, res := submit(t, m)
	require.NoError(t, res.Err)
	require.NotNil(t, res.User)
	assert.Equal(t, api.RoleIEEEMember, res.User.Role)
	assert.False(t, m.Submitting())
	assert.True(t, session.IsAuthenticated())
}

func TestLogin_WrongPassword(t *testing.T) {
	_, session, _ := setup(t)
	m := New(session, "ada@example.edu")
	assert.Contains(t, m.View(), "Registration complete")

	// focus starts on the password when the email is known
	m = typeText(m, "wrong")
	m, res := submit(t, m)
	require.Error(t, res.Err)
	assert.Contains(t, m.View(), "Incorrect email or password")
	assert.False(t, session.IsAuthenticated())

	// the password was cleared, so resubmitting fails locally
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestLogin_RememberMe(t *testing.T) {
	_, session, cookies := setup(t)
	m := New(session, "ada@example.edu")
	m = typeText(m, "analytical")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Contains(t, m.View(), "[x] Remember me")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	_, res := submit(t, m)
	require.NoError(t, res.Err)

	c, err := cookies.Cookie("auth_token")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), c.Expires, time.Minute)
}
