// Package apitest runs an in-process fake of the chapter REST API for tests.
// It keeps users, pending registrations and issued tokens in memory, counts
// calls per route and can be told to fail individual routes.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fragmede/branchdesk/internal/api"
)

// Route keys used with Calls and Fail.
const (
	RouteLogin           = "POST /auth/login"
	RouteRegister        = "POST /auth/register/initiate"
	RouteComplete        = "POST /auth/register/complete"
	RouteResend          = "POST /auth/otp/resend"
	RouteLogout          = "POST /auth/logout"
	RouteMe              = "GET /auth/me"
	RouteRefresh         = "POST /auth/refresh"
	RouteDashboard       = "GET /dashboard/"
	RouteProfile         = "PUT /dashboard/profile"
	RouteAdminStats      = "GET /admin/stats"
	RouteAdminUsers      = "GET /admin/users"
	RouteAdminEvents     = "GET /admin/events"
	RouteAdminRegs       = "GET /admin/registrations"
	RouteAdminCodes      = "GET /admin/membership-codes"
	RouteAdminDelete     = "DELETE /admin/{resource}/{id}"
	RouteAdminExport     = "GET /admin/events/{id}/export"
	RouteCreateEvent     = "POST /admin/events"
	RouteCreateCode      = "POST /admin/membership-codes"
	DefaultOTP           = "123456"
	tokenTTL             = 15 * time.Minute
	signingKey           = "apitest-secret"
	statusDropConnection = -1
)

type account struct {
	password string
	user     api.User
}

type pendingSignup struct {
	req api.RegisterRequest
	otp string
}

type failure struct {
	status int
	detail string
}

// Server is a fake chapter API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nextID   int
	accounts map[string]*account
	pending  map[string]*pendingSignup
	tokens   map[string]string
	calls    map[string]int
	failures map[string]failure
	resends  map[string]int

	codes         []api.MembershipCode
	dashboard     api.Dashboard
	events        []api.AdminEvent
	registrations []api.Registration

	// OTP is the code issued for every new registration.
	OTP string
}

// New starts a fake API. It is closed when the test ends.
func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		nextID:   1,
		accounts: make(map[string]*account),
		pending:  make(map[string]*pendingSignup),
		tokens:   make(map[string]string),
		calls:    make(map[string]int),
		failures: make(map[string]failure),
		resends:  make(map[string]int),
		OTP:      DefaultOTP,
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.track)

	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/register/initiate", s.registerInitiate).Methods(http.MethodPost)
	r.HandleFunc("/auth/register/complete", s.registerComplete).Methods(http.MethodPost)
	r.HandleFunc("/auth/otp/resend", s.resendOTP).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)
	r.HandleFunc("/auth/refresh", s.refresh).Methods(http.MethodPost)

	r.HandleFunc("/dashboard/", s.serveDashboard).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/profile", s.updateProfile).Methods(http.MethodPut)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/stats", s.adminStats).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.adminUsers).Methods(http.MethodGet)
	admin.HandleFunc("/events", s.adminEvents).Methods(http.MethodGet)
	admin.HandleFunc("/events", s.createEvent).Methods(http.MethodPost)
	admin.HandleFunc("/events/{id:[0-9]+}/export", s.exportEvent).Methods(http.MethodGet)
	admin.HandleFunc("/registrations", s.adminRegistrations).Methods(http.MethodGet)
	admin.HandleFunc("/membership-codes", s.adminCodes).Methods(http.MethodGet)
	admin.HandleFunc("/membership-codes", s.createCode).Methods(http.MethodPost)
	admin.HandleFunc("/{resource}/{id:[0-9]+}", s.adminDelete).Methods(http.MethodDelete)
	return r
}

// routeKey is "METHOD /template" for the matched route.
func routeKey(r *http.Request) string {
	tpl := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if t, err := route.GetPathTemplate(); err == nil {
			tpl = t
		}
	}
	tpl = strings.Replace(tpl, "{id:[0-9]+}", "{id}", 1)
	return r.Method + " " + tpl
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r)
		s.mu.Lock()
		s.calls[key]++
		f, failing := s.failures[key]
		s.mu.Unlock()

		if !failing {
			next.ServeHTTP(w, r)
			return
		}
		if f.status == statusDropConnection {
			dropConnection(w)
			return
		}
		writeDetail(w, f.status, f.detail)
	})
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("apitest: response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(fmt.Sprintf("apitest: hijack: %v", err))
	}
	conn.Close()
}

// Calls returns how many requests hit route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests served across all routes.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Fail makes route answer with status and a {"detail": detail} body.
func (s *Server) Fail(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, detail: detail}
}

// Drop makes route close the connection without answering.
func (s *Server) Drop(route string) {
	s.Fail(route, statusDropConnection, "")
}

// Recover clears a failure installed by Fail or Drop.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// AddUser registers a verified account directly.
func (s *Server) AddUser(email, password string, role api.Role) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := api.User{
		ID:         s.nextID,
		Username:   strings.SplitN(email, "@", 2)[0],
		FullName:   "Test User",
		Email:      email,
		Role:       role,
		IsActive:   true,
		IsVerified: true,
	}
	if role != api.RoleAdmin {
		u.MembershipType = api.MembershipType(role)
	}
	s.nextID++
	s.accounts[email] = &account{password: password, user: u}
	return u
}

// AddMembershipCode adds an active code accepted for IEEE member signup.
func (s *Server) AddMembershipCode(code string) api.MembershipCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	mc := api.MembershipCode{ID: s.nextID, Code: code, IsActive: true}
	s.nextID++
	s.codes = append(s.codes, mc)
	return mc
}

// SetDashboard replaces what GET /dashboard/ returns.
func (s *Server) SetDashboard(d api.Dashboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashboard = d
}

// AddEvent stores ev under a fresh ID and returns it.
func (s *Server) AddEvent(ev api.AdminEvent) api.AdminEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = s.nextID
	s.nextID++
	s.events = append(s.events, ev)
	return ev
}

// AddRegistration stores reg under a fresh ID and returns it.
func (s *Server) AddRegistration(reg api.Registration) api.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg.ID = s.nextID
	s.nextID++
	s.registrations = append(s.registrations, reg)
	return reg
}

// Issue returns a fresh valid token for an existing account.
func (s *Server) Issue(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email)
}

// Revoke invalidates token server side.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// PendingFor reports whether a registration awaits an OTP for email.
func (s *Server) PendingFor(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[email]
	return ok
}

// LastRegistration returns the initiate request stored for email.
func (s *Server) LastRegistration(email string) (api.RegisterRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[email]
	if !ok {
		return api.RegisterRequest{}, false
	}
	return p.req, true
}

// Resends returns how many times an OTP was re-sent to email.
func (s *Server) Resends(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resends[email]
}

func (s *Server) issueLocked(email string) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})
	signed, err := tok.SignedString([]byte(signingKey))
	if err != nil {
		panic(fmt.Sprintf("apitest: signing token: %v", err))
	}
	s.tokens[signed] = email
	return signed
}

// accountFor resolves the bearer token of r. Callers hold s.mu.
func (s *Server) accountFor(r *http.Request) (*account, string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return nil, "", false
	}
	token := strings.TrimPrefix(h, "Bearer ")
	email, ok := s.tokens[token]
	if !ok {
		return nil, "", false
	}
	acc, ok := s.accounts[email]
	return acc, token, ok
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok || acc.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	user := acc.user
	writeJSON(w, http.StatusOK, api.LoginResponse{
		AccessToken: s.issueLocked(acc.user.Email),
		TokenType:   "bearer",
		User:        &user,
	})
}

func (s *Server) registerInitiate(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.accounts[req.Email]; taken {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if req.MembershipType == api.MembershipIEEE && !s.codeValidLocked(req.MembershipCode) {
		writeDetail(w, http.StatusBadRequest, "Invalid membership code")
		return
	}
	s.pending[req.Email] = &pendingSignup{req: req, otp: s.OTP}
	writeJSON(w, http.StatusOK, api.Ack{Message: "OTP sent to your email", Email: req.Email})
}

func (s *Server) codeValidLocked(code string) bool {
	for i := range s.codes {
		mc := &s.codes[i]
		if mc.Code == code && mc.IsActive {
			return true
		}
	}
	return false
}

func (s *Server) registerComplete(w http.ResponseWriter, r *http.Request) {
	var req api.CompleteRegistrationRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[req.Email]
	if !ok || p.otp != req.OTPCode {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}
	delete(s.pending, req.Email)
	u := api.User{
		ID:             s.nextID,
		Username:       p.req.Username,
		FullName:       p.req.FullName,
		Email:          p.req.Email,
		PhoneNumber:    p.req.PhoneNumber,
		Role:           p.req.Role,
		MembershipType: p.req.MembershipType,
		IsActive:       true,
		IsVerified:     true,
	}
	s.nextID++
	s.accounts[u.Email] = &account{password: p.req.Password, user: u}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) resendOTP(w http.ResponseWriter, r *http.Request) {
	var req api.ResendOTPRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[req.Email]; !ok {
		writeDetail(w, http.StatusNotFound, "No pending registration for this email")
		return
	}
	s.resends[req.Email]++
	writeJSON(w, http.StatusOK, api.Ack{Message: "OTP resent"})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, token, ok := s.accountFor(r); ok {
		delete(s.tokens, token)
	}
	writeJSON(w, http.StatusOK, api.Ack{Message: "Logged out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, _, ok := s.accountFor(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, token, ok := s.accountFor(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	delete(s.tokens, token)
	writeJSON(w, http.StatusOK, api.TokenResponse{
		AccessToken: s.issueLocked(acc.user.Email),
		TokenType:   "bearer",
	})
}

func (s *Server) serveDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.accountFor(r); !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, s.dashboard)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var upd api.ProfileUpdate
	if !decode(w, r, &upd) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, _, ok := s.accountFor(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	if acc.user.Role != api.RoleIEEEMember {
		writeDetail(w, http.StatusForbidden, "Only IEEE members can edit their profile")
		return
	}
	acc.user.ProfileImageURL = upd.ProfileImageURL
	acc.user.Designation = upd.Designation
	acc.user.Bio = upd.Bio
	acc.user.Branch = upd.Branch
	acc.user.Achievements = upd.Achievements
	acc.user.LinkedInURL = upd.LinkedInURL
	acc.user.GitHubURL = upd.GitHubURL
	acc.user.InstagramURL = upd.InstagramURL
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		acc, _, ok := s.accountFor(r)
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if acc.user.Role != api.RoleAdmin {
			writeDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := api.AdminStats{
		TotalUsers:         len(s.accounts),
		TotalEvents:        len(s.events),
		TotalRegistrations: len(s.registrations),
	}
	for _, acc := range s.accounts {
		if acc.user.IsActive {
			st.ActiveUsers++
		}
		switch acc.user.Role {
		case api.RoleIEEEMember:
			st.IEEEMembers++
		case api.RoleNonMember:
			st.NonMembers++
		}
	}
	for _, mc := range s.codes {
		if mc.IsActive {
			st.ActiveMembershipCodes++
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) adminUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]api.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		users = append(users, acc.user)
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) adminEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.events))
}

func (s *Server) adminRegistrations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.registrations))
}

func (s *Server) adminCodes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.codes))
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req api.CreateEventRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := api.AdminEvent{
		ID:          s.nextID,
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		IsPublic:    req.IsPublic,
	}
	s.nextID++
	s.events = append(s.events, ev)
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) createCode(w http.ResponseWriter, r *http.Request) {
	var req api.CreateMembershipCodeRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mc := api.MembershipCode{
		ID:        s.nextID,
		Code:      req.Code,
		MaxUses:   req.MaxUses,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
	}
	s.nextID++
	s.codes = append(s.codes, mc)
	writeJSON(w, http.StatusCreated, mc)
}

func (s *Server) exportEvent(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.ID != id {
			continue
		}
		regs := []api.Registration{}
		for _, reg := range s.registrations {
			if reg.EventTitle == ev.Title {
				regs = append(regs, reg)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"event": ev, "registrations": regs})
		return
	}
	writeDetail(w, http.StatusNotFound, "Event not found")
}

func (s *Server) adminDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, _ := strconv.Atoi(vars["id"])
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	switch api.AdminResource(vars["resource"]) {
	case api.ResourceUsers:
		for email, acc := range s.accounts {
			if acc.user.ID == id {
				delete(s.accounts, email)
				found = true
			}
		}
	case api.ResourceEvents:
		s.events, found = removeByID(s.events, id, func(e api.AdminEvent) int { return e.ID })
	case api.ResourceRegistrations:
		s.registrations, found = removeByID(s.registrations, id, func(e api.Registration) int { return e.ID })
	case api.ResourceMembershipCodes:
		s.codes, found = removeByID(s.codes, id, func(e api.MembershipCode) int { return e.ID })
	default:
		writeDetail(w, http.StatusNotFound, "Unknown resource")
		return
	}
	if !found {
		writeDetail(w, http.StatusNotFound, "Not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func removeByID[T any](items []T, id int, idOf func(T) int) ([]T, bool) {
	for i, it := range items {
		if idOf(it) == id {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"msg": "invalid JSON body", "loc": []string{"body"}}},
		})
		return false
	}
	return true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
