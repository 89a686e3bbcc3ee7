package messages

import (
	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
)

// View transition messages.
type (
	GoBackMsg      struct{}
	OpenLoginMsg   struct{ Email string }
	OpenSignupMsg  struct{}
	OpenNotifyMsg  struct{}
	OpenProfileMsg struct{}
	// OpenAreaMsg asks the root model to route to a guarded area.
	OpenAreaMsg struct{ Area auth.Area }
	// OpenAdminFormMsg opens the create form for Resource.
	OpenAdminFormMsg struct{ Resource api.AdminResource }
	LogoutMsg        struct{}
)

// Data messages.
type (
	// SessionCheckedMsg carries the result of validating a stored token at
	// startup. User is nil when nobody is logged in.
	SessionCheckedMsg struct {
		User *api.User
		Err  error
	}

	LoginResultMsg struct {
		User *api.User
		Err  error
	}

	RegisterResultMsg struct {
		Pending *auth.Pending
		Err     error
	}

	VerifyResultMsg struct {
		User *api.User
		Err  error
	}

	ResendResultMsg struct {
		Err error
	}

	LoggedOutMsg struct{}

	TokenRefreshedMsg struct {
		OK bool
	}

	DashboardLoadedMsg struct {
		Dashboard *api.Dashboard
		// Cached is true when Dashboard came from the local snapshot.
		Cached bool
		Err    error
	}

	ProfileSavedMsg struct {
		User *api.User
		Err  error
	}

	AdminLoadedMsg struct {
		Overview *api.AdminOverview
		Err      error
	}

	AdminDeletedMsg struct {
		Resource api.AdminResource
		ID       int
		Err      error
	}

	AdminExportedMsg struct {
		Path string
		Err  error
	}

	AdminCreatedMsg struct {
		Resource api.AdminResource
		Err      error
	}

	NewNotificationMsg struct {
		UnreadCount int
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}
)
