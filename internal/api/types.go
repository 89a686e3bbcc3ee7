package api

import (
	"strings"
	"time"
)

// Role is the account role assigned by the backend.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleIEEEMember Role = "ieee_member"
	RoleNonMember  Role = "non_member"
)

// MembershipType is the category a registrant picks at signup.
type MembershipType string

const (
	MembershipIEEE MembershipType = "ieee_member"
	MembershipNone MembershipType = "non_member"
)

// Label returns a human readable form, e.g. "ieee member".
func (m MembershipType) Label() string {
	return strings.ReplaceAll(string(m), "_", " ")
}

// Label returns a human readable form, e.g. "ieee member".
func (r Role) Label() string {
	return strings.ReplaceAll(string(r), "_", " ")
}

// OTPType names the purpose of a one-time code.
type OTPType string

const OTPRegistration OTPType = "registration"

// User is the authenticated identity as returned by the API.
type User struct {
	ID               int            `json:"id"`
	Username         string         `json:"username"`
	FullName         string         `json:"full_name"`
	Email            string         `json:"email"`
	PhoneNumber      string         `json:"phone_number,omitempty"`
	Role             Role           `json:"role"`
	MembershipType   MembershipType `json:"membership_type,omitempty"`
	IEEEMembershipID string         `json:"ieee_membership_id,omitempty"`
	IsActive         bool           `json:"is_active"`
	IsVerified       bool           `json:"is_verified"`

	ProfileImageURL string `json:"profile_image_url,omitempty"`
	Designation     string `json:"designation,omitempty"`
	Bio             string `json:"bio,omitempty"`
	Branch          string `json:"branch,omitempty"`
	Achievements    string `json:"achievements,omitempty"`
	LinkedInURL     string `json:"linkedin_url,omitempty"`
	GitHubURL       string `json:"github_url,omitempty"`
	InstagramURL    string `json:"instagram_url,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsIEEEMember reports whether the user holds the IEEE member role.
func (u *User) IsIEEEMember() bool {
	return u != nil && u.Role == RoleIEEEMember
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResponse is the body returned by POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user"`
}

// RegisterRequest is the body of POST /auth/register/initiate.
type RegisterRequest struct {
	Username       string         `json:"username"`
	FullName       string         `json:"full_name"`
	Email          string         `json:"email"`
	PhoneNumber    string         `json:"phone_number"`
	Password       string         `json:"password"`
	MembershipType MembershipType `json:"membership_type"`
	MembershipCode string         `json:"membership_code,omitempty"`
	Role           Role           `json:"role"`
}

// CompleteRegistrationRequest is the body of POST /auth/register/complete.
type CompleteRegistrationRequest struct {
	Email   string `json:"email"`
	OTPCode string `json:"otp_code"`
}

// ResendOTPRequest is the body of POST /auth/otp/resend.
type ResendOTPRequest struct {
	Email   string  `json:"email"`
	OTPType OTPType `json:"otp_type"`
}

// Ack is a generic acknowledgement body.
type Ack struct {
	Message string `json:"message,omitempty"`
	Email   string `json:"email,omitempty"`
}

// TokenResponse is the body returned by POST /auth/refresh.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}
