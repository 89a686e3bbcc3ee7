package auth

import "github.com/fragmede/branchdesk/internal/api"

// Area is a destination behind the session guard.
type Area int

const (
	AreaHome Area = iota
	AreaMemberDashboard
	AreaAdminDashboard
)

func (a Area) String() string {
	switch a {
	case AreaMemberDashboard:
		return "dashboard"
	case AreaAdminDashboard:
		return "admin"
	default:
		return "home"
	}
}

// Resolve returns where user actually lands when asking for want. Anonymous
// users go home, admins never see the member dashboard and non-admins never
// see the admin one.
func Resolve(user *api.User, want Area) Area {
	if user == nil {
		return AreaHome
	}
	switch want {
	case AreaMemberDashboard:
		if user.IsAdmin() {
			return AreaAdminDashboard
		}
	case AreaAdminDashboard:
		if !user.IsAdmin() {
			return AreaMemberDashboard
		}
	}
	return want
}
