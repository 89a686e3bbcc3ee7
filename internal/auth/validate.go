package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fragmede/branchdesk/internal/api"
)

// Validation messages. Each rule has its own wording.
const (
	MsgEmailRequired      = "Email is required"
	MsgEmailInvalid       = "Please enter a valid email address"
	MsgPasswordMissing    = "Password is required"
	MsgUsernameRequired   = "Username is required"
	MsgUsernameShort      = "Username must be at least 3 characters"
	MsgFullNameRequired   = "Full name is required"
	MsgFullNameShort      = "Full name must be at least 2 characters"
	MsgPasswordMismatch   = "Passwords do not match"
	MsgPasswordShort      = "Password must be at least 6 characters"
	MsgMembershipRequired = "Please select a membership type"
	MsgCodeRequired       = "Membership code is required for IEEE members"
	MsgCodeNotAllowed     = "Membership code is only for IEEE members; clear it or switch membership type"
	MsgOTPFormat          = "Verification code must be exactly 6 digits"
)

const (
	minUsernameLen = 3
	minFullNameLen = 2
	minPasswordLen = 6
)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// Draft is the registration form as collected before OTP verification. It
// lives only as long as the signup flow.
type Draft struct {
	Username        string
	FullName        string
	Email           string
	PhoneNumber     string
	Password        string
	ConfirmPassword string
	MembershipType  api.MembershipType
	MembershipCode  string
}

// Normalize returns the draft with identity fields trimmed and the email
// lowercased, as sent to the API.
func (d Draft) Normalize() Draft {
	d.Username = strings.TrimSpace(d.Username)
	d.FullName = strings.TrimSpace(d.FullName)
	d.Email = normalizeEmail(d.Email)
	d.PhoneNumber = strings.TrimSpace(d.PhoneNumber)
	d.MembershipCode = strings.TrimSpace(d.MembershipCode)
	return d
}

// Request converts a normalized draft into the initiate payload.
func (d Draft) Request() api.RegisterRequest {
	return api.RegisterRequest{
		Username:       d.Username,
		FullName:       d.FullName,
		Email:          d.Email,
		PhoneNumber:    d.PhoneNumber,
		Password:       d.Password,
		MembershipType: d.MembershipType,
		MembershipCode: d.MembershipCode,
		Role:           api.Role(d.MembershipType),
	}
}

// ValidateDraft applies the signup rules in order and returns the first
// failure, or nil.
func ValidateDraft(d Draft) error {
	d = d.Normalize()

	switch {
	case d.Username == "":
		return validationError(MsgUsernameRequired)
	case utf8.RuneCountInString(d.Username) < minUsernameLen:
		return validationError(MsgUsernameShort)
	case d.FullName == "":
		return validationError(MsgFullNameRequired)
	case utf8.RuneCountInString(d.FullName) < minFullNameLen:
		return validationError(MsgFullNameShort)
	case d.Email == "":
		return validationError(MsgEmailRequired)
	case !strings.Contains(d.Email, "@"):
		return validationError(MsgEmailInvalid)
	case d.Password != d.ConfirmPassword:
		return validationError(MsgPasswordMismatch)
	case utf8.RuneCountInString(d.Password) < minPasswordLen:
		return validationError(MsgPasswordShort)
	case d.MembershipType != api.MembershipIEEE && d.MembershipType != api.MembershipNone:
		return validationError(MsgMembershipRequired)
	case d.MembershipType == api.MembershipIEEE && d.MembershipCode == "":
		return validationError(MsgCodeRequired)
	case d.MembershipType == api.MembershipNone && d.MembershipCode != "":
		return validationError(MsgCodeNotAllowed)
	}
	return nil
}

// ValidateLogin checks credentials locally before they are sent.
func ValidateLogin(email, password string) error {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return validationError(MsgEmailRequired)
	case !strings.Contains(email, "@"):
		return validationError(MsgEmailInvalid)
	case password == "":
		return validationError(MsgPasswordMissing)
	}
	return nil
}

// ValidateOTP checks that code is exactly six ASCII digits.
func ValidateOTP(code string) error {
	if !otpPattern.MatchString(code) {
		return validationError(MsgOTPFormat)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
