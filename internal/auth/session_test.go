package auth_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/api/apitest"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/localstore"
	"github.com/fragmede/branchdesk/internal/logger"
)

type fixture struct {
	srv     *apitest.Server
	cookies *localstore.MemoryCookies
	local   *localstore.Memory
	session *auth.Session
	logs    *bytes.Buffer
	now     time.Time
}

func newFixture(t *testing.T, opts ...auth.Option) *fixture {
	t.Helper()
	f := &fixture{
		srv:     apitest.New(t),
		cookies: localstore.NewMemoryCookies(),
		local:   localstore.NewMemory(),
		logs:    &bytes.Buffer{},
		now:     time.Now().Truncate(time.Second),
	}
	client := api.NewClient(f.srv.URL, api.WithTimeout(5*time.Second))
	base := []auth.Option{
		auth.WithLogger(logger.New(f.logs, "debug").Logger),
		auth.WithClock(func() time.Time { return f.now }),
	}
	f.session = auth.New(client, f.cookies, f.local, append(base, opts...)...)
	return f
}

func memberDraft() auth.Draft {
	return auth.Draft{
		Username:        "ada",
		FullName:        "Ada Lovelace",
		Email:           "  Ada@Example.org ",
		PhoneNumber:     "555-0100",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
		MembershipType:  api.MembershipIEEE,
		MembershipCode:  "IEEE2025",
	}
}

func kindOf(t *testing.T, err error) auth.Kind {
	t.Helper()
	var e *auth.Error
	require.True(t, errors.As(err, &e), "want *auth.Error, got %T: %v", err, err)
	return e.Kind
}

func TestRemoveToken_Idempotent(t *testing.T) {
	f := newFixture(t)

	assert.NotPanics(t, func() {
		f.session.RemoveToken()
		f.session.RemoveToken()
	})
	assert.Equal(t, "", f.session.Token())
	assert.False(t, f.session.IsAuthenticated())
	assert.Equal(t, 0, f.local.Len())
}

func TestSetToken_RoundTrip(t *testing.T) {
	f := newFixture(t)

	f.session.SetToken("abc", true)
	assert.Equal(t, "abc", f.session.Token())
	assert.True(t, f.session.IsAuthenticated())

	v, ok, err := f.local.GetItem(auth.DefaultLocalTokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestSetToken_RememberSemantics(t *testing.T) {
	tests := []struct {
		name     string
		remember bool
		want     time.Duration
	}{
		{name: "short", remember: false, want: 24 * time.Hour},
		{name: "remembered", remember: true, want: 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			f.session.SetToken("abc", tt.remember)
			assert.Equal(t, "abc", f.session.Token())

			c, err := f.cookies.Cookie(auth.DefaultCookieName)
			require.NoError(t, err)
			assert.Equal(t, f.now.Add(tt.want), c.Expires)
			assert.True(t, c.Secure)
			assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
			assert.Equal(t, "/", c.Path)
		})
	}
}

func TestSetToken_CustomExpiry(t *testing.T) {
	f := newFixture(t, auth.WithRememberDays(7), auth.WithShortDays(2))

	f.session.SetToken("abc", true)
	c, err := f.cookies.Cookie(auth.DefaultCookieName)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(7*24*time.Hour), c.Expires)

	f.session.SetToken("abc", false)
	c, err = f.cookies.Cookie(auth.DefaultCookieName)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(2*24*time.Hour), c.Expires)
}

func TestSetToken_CustomKeys(t *testing.T) {
	f := newFixture(t, auth.WithKeys("sid", "tok", "me"))

	f.session.SetToken("abc", false)
	_, err := f.cookies.Cookie("sid")
	require.NoError(t, err)
	v, ok, _ := f.local.GetItem("tok")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

type brokenCookies struct{}

var errDisabled = errors.New("cookies disabled")

func (brokenCookies) Cookie(string) (*http.Cookie, error) { return nil, errDisabled }
func (brokenCookies) SetCookie(*http.Cookie) error        { return errDisabled }
func (brokenCookies) RemoveCookie(string) error           { return errDisabled }

func TestSetToken_CookieFailureFallsBackToLocal(t *testing.T) {
	var logs bytes.Buffer
	local := localstore.NewMemory()
	s := auth.New(api.NewClient("http://127.0.0.1:1"), brokenCookies{}, local,
		auth.WithLogger(logger.New(&logs, "warn").Logger))

	assert.NotPanics(t, func() { s.SetToken("abc", true) })
	assert.Equal(t, "abc", s.Token())
	assert.Contains(t, logs.String(), "writing token cookie")
	assert.NotContains(t, logs.String(), "abc")

	s.RemoveToken()
	assert.False(t, s.IsAuthenticated())
}

func TestToken_PrefersCookie(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.local.SetItem(auth.DefaultLocalTokenKey, "stale"))
	assert.Equal(t, "stale", f.session.Token())

	require.NoError(t, f.cookies.SetCookie(&http.Cookie{
		Name:    auth.DefaultCookieName,
		Value:   "fresh",
		Expires: time.Now().Add(time.Hour),
	}))
	assert.Equal(t, "fresh", f.session.Token())
}

func TestToken_MirrorOutlivesShortCookie(t *testing.T) {
	f := newFixture(t)
	f.session.SetToken("abc", false)

	f.cookies.SetClock(func() time.Time { return f.now.Add(48 * time.Hour) })
	_, err := f.cookies.Cookie(auth.DefaultCookieName)
	require.ErrorIs(t, err, http.ErrNoCookie)

	// The mirror still answers; the API decides whether the token is good.
	assert.Equal(t, "abc", f.session.Token())

	user, err := f.session.GetCurrentUser(context.Background())
	assert.Nil(t, user)
	assert.True(t, auth.IsKind(err, auth.KindUnauthorized))
	assert.False(t, f.session.IsAuthenticated())
	_, ok, _ := f.local.GetItem(auth.DefaultLocalTokenKey)
	assert.False(t, ok)
}

func TestRequireToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.RequireToken()
	assert.ErrorIs(t, err, auth.ErrNoToken)

	f.session.SetToken("abc", false)
	token, err := f.session.RequireToken()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestLogin_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{name: "not an email", email: "not-an-email", password: "x", want: auth.MsgEmailInvalid},
		{name: "empty email", email: "  ", password: "x", want: auth.MsgEmailRequired},
		{name: "missing password", email: "a@b.org", password: "", want: auth.MsgPasswordMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			res, err := f.session.Login(context.Background(), tt.email, tt.password, false)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, auth.KindValidation, kindOf(t, err))
			assert.Zero(t, f.srv.TotalCalls())
		})
	}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("grace@example.org", "s3cret!", api.RoleIEEEMember)

	res, err := f.session.Login(context.Background(), " grace@example.org ", "s3cret!", true)
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "grace@example.org", res.User.Email)
	assert.Equal(t, res.Token, f.session.Token())

	c, err := f.cookies.Cookie(auth.DefaultCookieName)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(30*24*time.Hour), c.Expires)

	cached := f.session.CachedUser()
	require.NotNil(t, cached)
	assert.Equal(t, res.User.ID, cached.ID)
	assert.NotContains(t, f.logs.String(), "s3cret!")
	assert.NotContains(t, f.logs.String(), res.Token)
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("grace@example.org", "s3cret!", api.RoleIEEEMember)
	f.session.SetToken("existing", false)

	_, err := f.session.Login(context.Background(), "grace@example.org", "wrong", false)
	require.Error(t, err)
	assert.Equal(t, "Incorrect email or password", err.Error())
	assert.Equal(t, auth.KindUnauthorized, kindOf(t, err))
	assert.Equal(t, "existing", f.session.Token())

	f.srv.Drop(apitest.RouteLogin)
	_, err = f.session.Login(context.Background(), "grace@example.org", "s3cret!", false)
	require.Error(t, err)
	assert.Equal(t, auth.MsgNetwork, err.Error())
	assert.Equal(t, auth.KindNetwork, kindOf(t, err))
	assert.Equal(t, "existing", f.session.Token())
}

func TestLogin_FallbackMessage(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(apitest.RouteLogin, http.StatusInternalServerError, "")

	_, err := f.session.Login(context.Background(), "a@b.org", "pw", false)
	require.Error(t, err)
	assert.Equal(t, "Login failed", err.Error())
	assert.Equal(t, auth.KindRejected, kindOf(t, err))
}

func TestRegister_ValidationPrecedence(t *testing.T) {
	f := newFixture(t)

	d := memberDraft()
	d.Username = "ad"
	d.MembershipType = ""

	_, err := f.session.Register(context.Background(), d)
	require.Error(t, err)
	assert.Equal(t, auth.MsgUsernameShort, err.Error())
	assert.Zero(t, f.srv.TotalCalls())
}

func TestRegister_MembershipCodeCrossValidation(t *testing.T) {
	tests := []struct {
		name      string
		typ       api.MembershipType
		code      string
		wantErr   string
		wantCalls int
	}{
		{name: "member without code", typ: api.MembershipIEEE, code: "", wantErr: auth.MsgCodeRequired},
		{name: "non-member with code", typ: api.MembershipNone, code: "IEEE2025", wantErr: auth.MsgCodeNotAllowed},
		{name: "member with code", typ: api.MembershipIEEE, code: "IEEE2025", wantCalls: 1},
		{name: "non-member without code", typ: api.MembershipNone, code: "", wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.srv.AddMembershipCode("IEEE2025")

			d := memberDraft()
			d.MembershipType = tt.typ
			d.MembershipCode = tt.code

			_, err := f.session.Register(context.Background(), d)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, f.srv.Calls(apitest.RouteRegister))
		})
	}
}

func TestRegister_NormalizesDraft(t *testing.T) {
	f := newFixture(t)
	f.srv.AddMembershipCode("IEEE2025")

	d := memberDraft()
	d.Username = "  ada  "
	pending, err := f.session.Register(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", pending.Email)
	assert.NotEmpty(t, pending.Message)

	req, ok := f.srv.LastRegistration("ada@example.org")
	require.True(t, ok)
	assert.Equal(t, "ada", req.Username)
	assert.Equal(t, api.RoleIEEEMember, req.Role)
	assert.Equal(t, api.MembershipIEEE, req.MembershipType)
	assert.False(t, f.session.IsAuthenticated())
}

func TestRegister_APIRejection(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("ada@example.org", "pw", api.RoleNonMember)

	d := memberDraft()
	d.MembershipType = api.MembershipNone
	d.MembershipCode = ""

	_, err := f.session.Register(context.Background(), d)
	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
	assert.Equal(t, auth.KindRejected, kindOf(t, err))
}

func TestVerifyRegistration_OTPGate(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.VerifyRegistration(context.Background(), "ada@example.org", "12a45")
	require.Error(t, err)
	assert.Equal(t, auth.MsgOTPFormat, err.Error())
	assert.Zero(t, f.srv.TotalCalls())

	_, err = f.session.VerifyRegistration(context.Background(), "ada@example.org", "123456")
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired OTP", err.Error())
	assert.Equal(t, 1, f.srv.Calls(apitest.RouteComplete))
}

func TestVerifyRegistration_FallbackMessage(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(apitest.RouteComplete, http.StatusBadRequest, "")

	_, err := f.session.VerifyRegistration(context.Background(), "ada@example.org", "123456")
	require.Error(t, err)
	assert.Equal(t, "Invalid verification code", err.Error())
}

func TestResendOTP(t *testing.T) {
	f := newFixture(t)
	f.srv.AddMembershipCode("IEEE2025")
	ctx := context.Background()

	err := f.session.ResendOTP(ctx, " ", "")
	require.Error(t, err)
	assert.Equal(t, auth.MsgEmailRequired, err.Error())
	assert.Zero(t, f.srv.TotalCalls())

	err = f.session.ResendOTP(ctx, "ada@example.org", "")
	require.Error(t, err)
	assert.Equal(t, "No pending registration for this email", err.Error())

	_, err = f.session.Register(ctx, memberDraft())
	require.NoError(t, err)
	require.NoError(t, f.session.ResendOTP(ctx, "ADA@example.org", ""))
	require.NoError(t, f.session.ResendOTP(ctx, "ada@example.org", api.OTPRegistration))
	assert.Equal(t, 2, f.srv.Resends("ada@example.org"))
	assert.True(t, f.srv.PendingFor("ada@example.org"))
}

func TestGetCurrentUser_NoToken(t *testing.T) {
	f := newFixture(t)

	user, err := f.session.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Zero(t, f.srv.TotalCalls())
}

func TestGetCurrentUser_Success(t *testing.T) {
	f := newFixture(t)
	want := f.srv.AddUser("grace@example.org", "pw", api.RoleAdmin)
	f.session.SetToken(f.srv.Issue("grace@example.org"), false)

	user, err := f.session.GetCurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, want.ID, user.ID)
	assert.True(t, user.IsAdmin())
	assert.Equal(t, want.Email, f.session.CachedUser().Email)
}

func TestGetCurrentUser_InvalidatesOnAuthFailure(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f := newFixture(t)
			f.srv.AddUser("grace@example.org", "pw", api.RoleIEEEMember)
			f.session.SetToken(f.srv.Issue("grace@example.org"), false)
			require.NoError(t, f.local.SetItem(auth.DefaultLocalUserKey, `{"id":1}`))
			f.srv.Fail(apitest.RouteMe, status, "Could not validate credentials")

			user, err := f.session.GetCurrentUser(context.Background())
			assert.Nil(t, user)
			require.Error(t, err)
			assert.Equal(t, auth.KindUnauthorized, kindOf(t, err))
			assert.False(t, f.session.IsAuthenticated())
			assert.Nil(t, f.session.CachedUser())
		})
	}
}

func TestGetCurrentUser_RevokedToken(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("grace@example.org", "pw", api.RoleIEEEMember)
	token := f.srv.Issue("grace@example.org")
	f.session.SetToken(token, true)
	f.srv.Revoke(token)

	_, err := f.session.GetCurrentUser(context.Background())
	require.Error(t, err)
	assert.False(t, f.session.IsAuthenticated())
}

func TestGetCurrentUser_NetworkFailureKeepsToken(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser("grace@example.org", "pw", api.RoleIEEEMember)
	token := f.srv.Issue("grace@example.org")
	f.session.SetToken(token, false)
	f.srv.Drop(apitest.RouteMe)

	user, err := f.session.GetCurrentUser(context.Background())
	assert.Nil(t, user)
	require.Error(t, err)
	assert.Equal(t, auth.KindNetwork, kindOf(t, err))
	assert.True(t, f.session.IsAuthenticated())
	assert.Equal(t, token, f.session.Token())
	assert.GreaterOrEqual(t, f.srv.Calls(apitest.RouteMe), 1)
}

func TestGetCurrentUser_ServerError(t *testing.T) {
	tests := []struct {
		name      string
		keep      bool
		wantAuthd bool
	}{
		{name: "default invalidates", keep: false, wantAuthd: false},
		{name: "keep on server error", keep: true, wantAuthd: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, auth.WithKeepTokenOnServerError(tt.keep))
			f.session.SetToken("abc", false)
			f.srv.Fail(apitest.RouteMe, http.StatusInternalServerError, "")

			_, err := f.session.GetCurrentUser(context.Background())
			require.Error(t, err)
			assert.Equal(t, auth.KindRejected, kindOf(t, err))
			assert.Equal(t, "Could not load your profile", err.Error())
			assert.Equal(t, tt.wantAuthd, f.session.IsAuthenticated())
		})
	}
}

func TestLogout_AlwaysClearsLocally(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*apitest.Server)
	}{
		{name: "api ok", setup: func(*apitest.Server) {}},
		{name: "api error", setup: func(s *apitest.Server) {
			s.Fail(apitest.RouteLogout, http.StatusInternalServerError, "boom")
		}},
		{name: "api unreachable", setup: func(s *apitest.Server) { s.Drop(apitest.RouteLogout) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.srv.AddUser("grace@example.org", "pw", api.RoleIEEEMember)
			f.session.SetToken(f.srv.Issue("grace@example.org"), true)
			require.NoError(t, f.local.SetItem(auth.DefaultLocalUserKey, `{"id":1}`))
			tt.setup(f.srv)

			assert.NotPanics(t, func() { f.session.Logout(context.Background()) })
			assert.False(t, f.session.IsAuthenticated())
			assert.Nil(t, f.session.CachedUser())
			assert.GreaterOrEqual(t, f.srv.Calls(apitest.RouteLogout), 1)
		})
	}
}

func TestLogout_WithoutTokenSkipsAPI(t *testing.T) {
	f := newFixture(t)

	f.session.Logout(context.Background())
	assert.Zero(t, f.srv.TotalCalls())
	assert.False(t, f.session.IsAuthenticated())
}

func TestRefreshToken(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		f := newFixture(t)
		assert.False(t, f.session.RefreshToken(context.Background(), false))
		assert.Zero(t, f.srv.TotalCalls())
	})

	t.Run("success replaces token", func(t *testing.T) {
		f := newFixture(t)
		f.srv.AddUser("grace@example.org", "pw", api.RoleIEEEMember)
		old := f.srv.Issue("grace@example.org")
		f.session.SetToken(old, false)

		require.True(t, f.session.RefreshToken(context.Background(), true))
		assert.NotEqual(t, old, f.session.Token())
		c, err := f.cookies.Cookie(auth.DefaultCookieName)
		require.NoError(t, err)
		assert.Equal(t, f.now.Add(30*24*time.Hour), c.Expires)

		user, err := f.session.GetCurrentUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "grace@example.org", user.Email)
	})

	t.Run("rejection clears session", func(t *testing.T) {
		f := newFixture(t)
		f.session.SetToken("unknown", false)

		assert.False(t, f.session.RefreshToken(context.Background(), false))
		assert.False(t, f.session.IsAuthenticated())
	})

	t.Run("network failure clears session", func(t *testing.T) {
		f := newFixture(t)
		f.session.SetToken("abc", false)
		f.srv.Drop(apitest.RouteRefresh)

		assert.False(t, f.session.RefreshToken(context.Background(), false))
		assert.False(t, f.session.IsAuthenticated())
	})
}

func TestTokenExpiry(t *testing.T) {
	f := newFixture(t)

	_, ok := f.session.TokenExpiry()
	assert.False(t, ok)

	f.session.SetToken("opaque-token", false)
	_, ok = f.session.TokenExpiry()
	assert.False(t, ok)

	f.srv.AddUser("grace@example.org", "pw", api.RoleIEEEMember)
	f.session.SetToken(f.srv.Issue("grace@example.org"), false)
	exp, ok := f.session.TokenExpiry()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, time.Minute)
}

func TestCachedUser_Corrupt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.local.SetItem(auth.DefaultLocalUserKey, "{"))
	assert.Nil(t, f.session.CachedUser())
}

func TestEndToEnd_RegisterVerifyLogin(t *testing.T) {
	f := newFixture(t)
	f.srv.AddMembershipCode("IEEE2025")
	ctx := context.Background()

	pending, err := f.session.Register(ctx, memberDraft())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", pending.Email)
	assert.False(t, f.session.IsAuthenticated())

	user, err := f.session.VerifyRegistration(ctx, pending.Email, f.srv.OTP)
	require.NoError(t, err)
	assert.Equal(t, api.RoleIEEEMember, user.Role)
	assert.False(t, f.session.IsAuthenticated())

	res, err := f.session.Login(ctx, pending.Email, "hunter22", false)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, f.session.IsAuthenticated())

	me, err := f.session.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, auth.AreaMemberDashboard, auth.Resolve(me, auth.AreaAdminDashboard))
}

func TestDropIfUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.session.SetToken("abc", false)

	assert.False(t, f.session.DropIfUnauthorized(nil))
	assert.False(t, f.session.DropIfUnauthorized(&api.Error{Status: http.StatusInternalServerError}))
	assert.False(t, f.session.DropIfUnauthorized(&api.NetworkError{Err: errors.New("refused")}))
	assert.True(t, f.session.IsAuthenticated())

	assert.True(t, f.session.DropIfUnauthorized(&api.Error{Status: http.StatusForbidden}))
	assert.False(t, f.session.IsAuthenticated())
}

func TestStoreUser_ReplacesCachedProfile(t *testing.T) {
	f := newFixture(t)

	f.session.StoreUser(nil)
	assert.Nil(t, f.session.CachedUser())

	f.session.StoreUser(&api.User{ID: 4, Email: "ada@example.org", Bio: "engines"})
	cached := f.session.CachedUser()
	require.NotNil(t, cached)
	assert.Equal(t, "engines", cached.Bio)
}
