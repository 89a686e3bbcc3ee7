package auth

import (
	"errors"

	"github.com/fragmede/branchdesk/internal/api"
)

// Kind classifies a session failure so callers can pick a hint
// ("check your input" vs "check your connection").
type Kind int

const (
	// KindValidation is a local check that failed before any network call.
	KindValidation Kind = iota + 1
	// KindRejected is a non-2xx answer from the API.
	KindRejected
	// KindUnauthorized is a 401/403: the credential is no longer valid.
	KindUnauthorized
	// KindNetwork means no usable response was obtained.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRejected:
		return "rejected"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ErrNoToken is returned by RequireToken when nobody is logged in.
var ErrNoToken = errors.New("not logged in")

// MsgNetwork is shown for every transport failure.
const MsgNetwork = "Network error"

// Fallback messages used when the API gives no reason.
const (
	msgLoginFailed    = "Login failed"
	msgRegisterFailed = "Registration failed"
	msgInvalidCode    = "Invalid verification code"
	msgResendFailed   = "Failed to resend OTP"
	msgProfileFailed  = "Could not load your profile"
)

// Error is the single failure shape returned by Session operations. Message is
// short and safe to show next to the control that triggered the call.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status for KindRejected/KindUnauthorized, else 0.
	Status int
	Err    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a session *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// fromAPI converts a transport or API error into an *Error, preferring the
// API's own detail over fallback.
func fromAPI(err error, fallback string) *Error {
	if ae, ok := api.AsError(err); ok {
		msg := ae.Detail
		if msg == "" {
			msg = fallback
		}
		kind := KindRejected
		if ae.Unauthorized() {
			kind = KindUnauthorized
		}
		return &Error{Kind: kind, Message: msg, Status: ae.Status, Err: err}
	}
	// Transport failures and undecodable bodies both leave the caller without
	// a usable answer.
	return &Error{Kind: KindNetwork, Message: MsgNetwork, Err: err}
}
