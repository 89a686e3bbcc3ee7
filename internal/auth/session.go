package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fragmede/branchdesk/internal/api"
)

// API is the slice of the REST client the Session needs.
type API interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	InitiateRegistration(ctx context.Context, req api.RegisterRequest) (*api.Ack, error)
	CompleteRegistration(ctx context.Context, req api.CompleteRegistrationRequest) (*api.User, error)
	ResendOTP(ctx context.Context, req api.ResendOTPRequest) (*api.Ack, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*api.User, error)
	Refresh(ctx context.Context, token string) (*api.TokenResponse, error)
}

const (
	DefaultCookieName    = "auth_token"
	DefaultLocalTokenKey = "authToken"
	DefaultLocalUserKey  = "userData"
	DefaultRememberDays  = 30
	DefaultShortDays     = 1
)

// Session owns the authentication token lifecycle. It is the only thing that
// reads or writes the token stores. A Session keeps no flow state between
// calls; one instance is built at startup and shared.
//
// Operations are not serialized against each other. The stores follow last
// write wins and the two slots are not updated atomically.
type Session struct {
	client  API
	cookies CookieStore
	local   LocalStore
	log     *slog.Logger
	now     func() time.Time

	cookieName    string
	localTokenKey string
	localUserKey  string
	rememberDays  int
	shortDays     int

	keepTokenOnServerError bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets where swallowed failures are reported.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithClock overrides time.Now, for cookie expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRememberDays sets the cookie lifetime when remember is requested.
func WithRememberDays(days int) Option {
	return func(s *Session) { s.rememberDays = days }
}

// WithShortDays sets the cookie lifetime otherwise.
func WithShortDays(days int) Option {
	return func(s *Session) { s.shortDays = days }
}

// WithKeys renames the cookie and the two local store keys.
func WithKeys(cookieName, localTokenKey, localUserKey string) Option {
	return func(s *Session) {
		s.cookieName = cookieName
		s.localTokenKey = localTokenKey
		s.localUserKey = localUserKey
	}
}

// WithKeepTokenOnServerError makes GetCurrentUser invalidate the session only
// on 401/403 and keep it on other failures such as a 500.
func WithKeepTokenOnServerError(keep bool) Option {
	return func(s *Session) { s.keepTokenOnServerError = keep }
}

// New creates a Session over the given API client and token stores.
func New(client API, cookies CookieStore, local LocalStore, opts ...Option) *Session {
	s := &Session{
		client:        client,
		cookies:       cookies,
		local:         local,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           time.Now,
		cookieName:    DefaultCookieName,
		localTokenKey: DefaultLocalTokenKey,
		localUserKey:  DefaultLocalUserKey,
		rememberDays:  DefaultRememberDays,
		shortDays:     DefaultShortDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the stored token, or "" when there is none. The durable
// cookie wins; the local mirror is the fallback.
func (s *Session) Token() string {
	c, err := s.cookies.Cookie(s.cookieName)
	switch {
	case err == nil && c.Value != "":
		return c.Value
	case err != nil && !errors.Is(err, http.ErrNoCookie):
		s.log.Warn("reading token cookie", "error", err)
	}

	v, ok, err := s.local.GetItem(s.localTokenKey)
	if err != nil {
		s.log.Warn("reading local token", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// SetToken stores token in both slots. remember picks the long cookie
// lifetime. Either write may fail without affecting the other.
func (s *Session) SetToken(token string, remember bool) {
	days := s.shortDays
	if remember {
		days = s.rememberDays
	}
	cookie := &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.now().Add(time.Duration(days) * 24 * time.Hour),
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
	if err := s.cookies.SetCookie(cookie); err != nil {
		s.log.Warn("writing token cookie", "error", err)
	}
	if err := s.local.SetItem(s.localTokenKey, token); err != nil {
		s.log.Warn("writing local token", "error", err)
	}
}

// RemoveToken clears the token from both slots along with the cached profile.
func (s *Session) RemoveToken() {
	if err := s.cookies.RemoveCookie(s.cookieName); err != nil {
		s.log.Warn("removing token cookie", "error", err)
	}
	if err := s.local.RemoveItem(s.localTokenKey); err != nil {
		s.log.Warn("removing local token", "error", err)
	}
	if err := s.local.RemoveItem(s.localUserKey); err != nil {
		s.log.Warn("removing cached user", "error", err)
	}
}

// RequireToken is Token for callers that cannot proceed without one, such
// as the dashboard fetches.
func (s *Session) RequireToken() (string, error) {
	token := s.Token()
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// IsAuthenticated reports whether a token is stored. It does not ask the API.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// LoginResult is a successful login.
type LoginResult struct {
	User  *api.User
	Token string
}

// Login checks the credentials locally, then exchanges them for a token. A
// failed login leaves any existing session untouched.
func (s *Session) Login(ctx context.Context, email, password string, remember bool) (*LoginResult, error) {
	if err := ValidateLogin(email, password); err != nil {
		return nil, err
	}

	resp, err := s.client.Login(ctx, api.LoginRequest{
		Email:      strings.TrimSpace(email),
		Password:   password,
		RememberMe: remember,
	})
	if err != nil {
		s.logFailure("login", err)
		return nil, fromAPI(err, msgLoginFailed)
	}
	if resp.AccessToken == "" {
		return nil, &Error{Kind: KindRejected, Message: msgLoginFailed}
	}

	s.SetToken(resp.AccessToken, remember)
	if resp.User != nil {
		s.cacheUser(resp.User)
	}
	s.log.Debug("logged in", "remember", remember)
	return &LoginResult{User: resp.User, Token: resp.AccessToken}, nil
}

// Pending means the API has sent an OTP to Email and is waiting for it.
type Pending struct {
	Email   string
	Message string
}

// Register validates d and starts a two-phase signup. On success no token
// exists yet; VerifyRegistration completes the flow.
func (s *Session) Register(ctx context.Context, d Draft) (*Pending, error) {
	if err := ValidateDraft(d); err != nil {
		return nil, err
	}
	d = d.Normalize()

	ack, err := s.client.InitiateRegistration(ctx, d.Request())
	if err != nil {
		s.logFailure("register", err)
		return nil, fromAPI(err, msgRegisterFailed)
	}
	s.log.Debug("registration initiated", "membership_type", d.MembershipType)
	return &Pending{Email: d.Email, Message: ack.Message}, nil
}

// VerifyRegistration submits the OTP for email. It does not log the user in;
// the caller moves on to Login.
func (s *Session) VerifyRegistration(ctx context.Context, email, otpCode string) (*api.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, validationError(MsgEmailRequired)
	}
	if err := ValidateOTP(otpCode); err != nil {
		return nil, err
	}

	user, err := s.client.CompleteRegistration(ctx, api.CompleteRegistrationRequest{
		Email:   email,
		OTPCode: otpCode,
	})
	if err != nil {
		s.logFailure("verify registration", err)
		return nil, fromAPI(err, msgInvalidCode)
	}
	return user, nil
}

// ResendOTP asks the API to send another code for an in-progress flow.
// purpose defaults to registration. Throttling is left to the API.
func (s *Session) ResendOTP(ctx context.Context, email string, purpose api.OTPType) error {
	email = normalizeEmail(email)
	if email == "" {
		return validationError(MsgEmailRequired)
	}
	if purpose == "" {
		purpose = api.OTPRegistration
	}

	if _, err := s.client.ResendOTP(ctx, api.ResendOTPRequest{Email: email, OTPType: purpose}); err != nil {
		s.logFailure("resend otp", err)
		return fromAPI(err, msgResendFailed)
	}
	return nil
}

// Logout tells the API (best effort) and always clears the local session.
func (s *Session) Logout(ctx context.Context) {
	if token := s.Token(); token != "" {
		if err := s.client.Logout(ctx, token); err != nil {
			s.log.Warn("logout notification failed", "error", err)
		}
	}
	s.RemoveToken()
}

// GetCurrentUser fetches the profile behind the stored token. It returns
// (nil, nil) without a network call when no token is stored.
//
// A rejection from the API removes the token, except that with
// WithKeepTokenOnServerError only 401/403 do. A transport failure keeps it.
func (s *Session) GetCurrentUser(ctx context.Context) (*api.User, error) {
	token := s.Token()
	if token == "" {
		return nil, nil
	}

	user, err := s.client.Me(ctx, token)
	if err == nil {
		s.cacheUser(user)
		return user, nil
	}

	e := fromAPI(err, msgProfileFailed)
	switch {
	case e.Kind == KindNetwork:
		s.log.Warn("fetching current user", "error", err)
	case e.Kind == KindUnauthorized || !s.keepTokenOnServerError:
		s.log.Info("session invalidated", "status", e.Status)
		s.RemoveToken()
	default:
		s.log.Warn("current user unavailable, keeping session", "status", e.Status)
	}
	return nil, e
}

// RefreshToken trades the stored token for a new one. remember picks the
// new cookie's lifetime; pass false for the short default. Any failure
// clears the session.
func (s *Session) RefreshToken(ctx context.Context, remember bool) bool {
	token := s.Token()
	if token == "" {
		return false
	}

	resp, err := s.client.Refresh(ctx, token)
	if err != nil || resp.AccessToken == "" {
		if err != nil {
			s.log.Warn("token refresh failed", "error", err)
		}
		s.RemoveToken()
		return false
	}
	s.SetToken(resp.AccessToken, remember)
	return true
}

// DropIfUnauthorized clears the session when err is a 401/403 from any
// authenticated API call and reports whether it did.
func (s *Session) DropIfUnauthorized(err error) bool {
	ae, ok := api.AsError(err)
	if !ok || !ae.Unauthorized() {
		return false
	}
	s.log.Info("session invalidated", "status", ae.Status)
	s.RemoveToken()
	return true
}

// CachedUser returns the last profile fetched, without a network call. It
// is a display hint only; nil when nothing is cached or it cannot be read.
func (s *Session) CachedUser() *api.User {
	raw, ok, err := s.local.GetItem(s.localUserKey)
	if err != nil || !ok {
		return nil
	}
	var u api.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn("decoding cached user", "error", err)
		return nil
	}
	return &u
}

// TokenExpiry reads the exp claim of a JWT token without verifying it. ok
// is false when there is no token or it carries no expiry.
func (s *Session) TokenExpiry() (exp time.Time, ok bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// StoreUser replaces the cached profile, e.g. after the user edits it.
func (s *Session) StoreUser(u *api.User) {
	if u == nil {
		return
	}
	s.cacheUser(u)
}

func (s *Session) cacheUser(u *api.User) {
	data, err := json.Marshal(u)
	if err != nil {
		s.log.Warn("encoding user for cache", "error", err)
		return
	}
	if err := s.local.SetItem(s.localUserKey, string(data)); err != nil {
		s.log.Warn("caching user", "error", err)
	}
}

func (s *Session) logFailure(op string, err error) {
	if api.IsNetwork(err) {
		s.log.Warn(op+" failed", "error", err)
		return
	}
	s.log.Debug(op+" rejected", "error", err)
}
