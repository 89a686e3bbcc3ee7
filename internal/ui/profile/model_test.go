package profile

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

func setup(t *testing.T) (*apitest.Server, *api.Client, *auth.Session, api.User) {
	t.Helper()
	srv := apitest.New(t)
	user := srv.AddUser("ada@example.org", "pw", api.RoleIEEEMember)
	client := api.NewClient(srv.URL, api.WithTimeout(5*time.Second))
	session := auth.New(client, localstore.NewMemoryCookies(), localstore.NewMemory())
	session.SetToken(srv.Issue("ada@example.org"), false)
	return srv, client, session, user
}

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func TestNew_SeedsCurrentValues(t *testing.T) {
	_, client, session, _ := setup(t)
	u := &api.User{Designation: "Chair", Bio: "hello", GitHubURL: "https://github.com/ada"}

	m := New(u, client, session)
	v := m.Value()
	assert.Equal(t, "Chair", v.Designation)
	assert.Equal(t, "hello", v.Bio)
	assert.Equal(t, "https://github.com/ada", v.GitHubURL)
}

func TestSave_InvalidURLStaysLocal(t *testing.T) {
	srv, client, session, user := setup(t)
	m := New(&user, client, session)

	m = typeText(m, "not a url")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
	assert.Contains(t, m.err, "profile image url")
	assert.Equal(t, 0, srv.Calls(apitest.RouteProfile))
}

func TestSave_UpdatesAndCachesUser(t *testing.T) {
	srv, client, session, user := setup(t)
	m := New(&user, client, session)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "Treasurer")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.True(t, m.submitting)

	msg, ok := cmd().(messages.ProfileSavedMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, "Treasurer", msg.User.Designation)
	assert.Equal(t, 1, srv.Calls(apitest.RouteProfile))
	assert.Equal(t, "Treasurer", session.CachedUser().Designation)

	m, _ = m.Update(msg)
	assert.False(t, m.submitting)
}

func TestSave_UnauthorizedDropsSession(t *testing.T) {
	srv, client, session, user := setup(t)
	srv.Fail(apitest.RouteProfile, 401, "Could not validate credentials")
	m := New(&user, client, session)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	msg := cmd().(messages.ProfileSavedMsg)
	assert.Error(t, msg.Err)
	assert.False(t, session.IsAuthenticated())
}
