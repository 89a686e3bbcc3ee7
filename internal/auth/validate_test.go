package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/branchdesk/internal/api"
)

func validDraft() Draft {
	return Draft{
		Username:        "ada",
		FullName:        "Ada Lovelace",
		Email:           "ada@example.org",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
		MembershipType:  api.MembershipNone,
	}
}

func TestValidateDraft_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		want   string
	}{
		{name: "valid non-member", mutate: func(*Draft) {}},
		{name: "valid member", mutate: func(d *Draft) {
			d.MembershipType = api.MembershipIEEE
			d.MembershipCode = "IEEE2025"
		}},
		{name: "username missing", mutate: func(d *Draft) { d.Username = "   " }, want: MsgUsernameRequired},
		{name: "username short", mutate: func(d *Draft) { d.Username = "ab" }, want: MsgUsernameShort},
		{name: "username counts runes", mutate: func(d *Draft) { d.Username = "äöü" }},
		{name: "full name missing", mutate: func(d *Draft) { d.FullName = "" }, want: MsgFullNameRequired},
		{name: "full name short", mutate: func(d *Draft) { d.FullName = "A" }, want: MsgFullNameShort},
		{name: "email missing", mutate: func(d *Draft) { d.Email = "" }, want: MsgEmailRequired},
		{name: "email without at", mutate: func(d *Draft) { d.Email = "ada.example.org" }, want: MsgEmailInvalid},
		{name: "password mismatch", mutate: func(d *Draft) { d.ConfirmPassword = "hunter23" }, want: MsgPasswordMismatch},
		{name: "password short", mutate: func(d *Draft) {
			d.Password = "abc"
			d.ConfirmPassword = "abc"
		}, want: MsgPasswordShort},
		{name: "membership missing", mutate: func(d *Draft) { d.MembershipType = "" }, want: MsgMembershipRequired},
		{name: "membership unknown", mutate: func(d *Draft) { d.MembershipType = "gold" }, want: MsgMembershipRequired},
		{name: "member without code", mutate: func(d *Draft) { d.MembershipType = api.MembershipIEEE }, want: MsgCodeRequired},
		{name: "member blank code", mutate: func(d *Draft) {
			d.MembershipType = api.MembershipIEEE
			d.MembershipCode = "  "
		}, want: MsgCodeRequired},
		{name: "non-member with code", mutate: func(d *Draft) { d.MembershipCode = "IEEE2025" }, want: MsgCodeNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)

			err := ValidateDraft(d)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.True(t, IsKind(err, KindValidation))
		})
	}
}

func TestValidateDraft_FirstFailureWins(t *testing.T) {
	d := validDraft()
	d.Username = "ab"
	d.Email = ""
	d.Password = "x"
	d.MembershipType = ""

	err := ValidateDraft(d)
	require.Error(t, err)
	assert.Equal(t, MsgUsernameShort, err.Error())

	d.Username = "abc"
	err = ValidateDraft(d)
	require.Error(t, err)
	assert.Equal(t, MsgEmailRequired, err.Error())
}

func TestDraft_Request(t *testing.T) {
	d := Draft{
		Username:       " ada ",
		FullName:       " Ada Lovelace ",
		Email:          " Ada@Example.ORG ",
		PhoneNumber:    " 555 ",
		Password:       " keep spaces ",
		MembershipType: api.MembershipIEEE,
		MembershipCode: " IEEE2025 ",
	}

	req := d.Normalize().Request()
	assert.Equal(t, api.RegisterRequest{
		Username:       "ada",
		FullName:       "Ada Lovelace",
		Email:          "ada@example.org",
		PhoneNumber:    "555",
		Password:       " keep spaces ",
		MembershipType: api.MembershipIEEE,
		MembershipCode: "IEEE2025",
		Role:           api.RoleIEEEMember,
	}, req)
}

func TestValidateOTP(t *testing.T) {
	for _, code := range []string{"123456", "000000"} {
		assert.NoError(t, ValidateOTP(code), code)
	}
	for _, code := range []string{"", "12345", "1234567", "12a45", "12a456", " 123456", "١٢٣٤٥٦"} {
		err := ValidateOTP(code)
		require.Error(t, err, code)
		assert.Equal(t, MsgOTPFormat, err.Error())
	}
}

func TestFromAPI(t *testing.T) {
	e := fromAPI(&api.Error{Status: 400, Detail: "Email already registered"}, msgRegisterFailed)
	assert.Equal(t, KindRejected, e.Kind)
	assert.Equal(t, "Email already registered", e.Message)
	assert.Equal(t, 400, e.Status)

	e = fromAPI(&api.Error{Status: 403}, msgProfileFailed)
	assert.Equal(t, KindUnauthorized, e.Kind)
	assert.Equal(t, msgProfileFailed, e.Message)

	e = fromAPI(&api.NetworkError{Method: "GET", Path: "/auth/me"}, msgProfileFailed)
	assert.Equal(t, KindNetwork, e.Kind)
	assert.Equal(t, MsgNetwork, e.Message)
	assert.True(t, api.IsNetwork(e))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "network", KindNetwork.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
