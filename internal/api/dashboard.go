package api

import (
	"context"
	"net/http"
	"time"
)

// Event is an event as listed on the member dashboard.
type Event struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug,omitempty"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	EventDate    time.Time `json:"event_date"`
	IsRegistered bool      `json:"is_registered"`
}

// Announcement is a chapter notice shown on the dashboard.
type Announcement struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"content,omitempty"`
	Date  string `json:"date"`
}

// Resource is a learning resource link (IEEE members only).
type Resource struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// Project is a chapter project (IEEE members only).
type Project struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Members int    `json:"members"`
}

// TeamMember is a chapter team entry (IEEE members only).
type TeamMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Designation string `json:"designation,omitempty"`
}

// DashboardStats are the counters at the top of the member dashboard.
type DashboardStats struct {
	TotalEvents      int `json:"total_events"`
	UpcomingEvents   int `json:"upcoming_events"`
	RegisteredEvents int `json:"registered_events"`
	Announcements    int `json:"announcements"`
}

// Dashboard is the body of GET /dashboard/.
type Dashboard struct {
	Stats             DashboardStats `json:"stats"`
	UpcomingEvents    []Event        `json:"upcoming_events"`
	Announcements     []Announcement `json:"announcements"`
	LearningResources []Resource     `json:"learning_resources"`
	Projects          []Project      `json:"projects"`
	TeamMembers       []TeamMember   `json:"team_members"`
}

// ProfileUpdate is the body of PUT /dashboard/profile.
type ProfileUpdate struct {
	ProfileImageURL string `json:"profile_image_url" validate:"omitempty,url"`
	Designation     string `json:"designation" validate:"max=100"`
	Bio             string `json:"bio" validate:"max=1000"`
	Branch          string `json:"branch" validate:"max=100"`
	Achievements    string `json:"achievements" validate:"max=2000"`
	LinkedInURL     string `json:"linkedin_url" validate:"omitempty,url"`
	GitHubURL       string `json:"github_url" validate:"omitempty,url"`
	InstagramURL    string `json:"instagram_url" validate:"omitempty,url"`
}

// ProfileUpdateFrom seeds an update with the user's current values.
func ProfileUpdateFrom(u *User) ProfileUpdate {
	if u == nil {
		return ProfileUpdate{}
	}
	return ProfileUpdate{
		ProfileImageURL: u.ProfileImageURL,
		Designation:     u.Designation,
		Bio:             u.Bio,
		Branch:          u.Branch,
		Achievements:    u.Achievements,
		LinkedInURL:     u.LinkedInURL,
		GitHubURL:       u.GitHubURL,
		InstagramURL:    u.InstagramURL,
	}
}

// GetDashboard fetches the member dashboard.
func (c *Client) GetDashboard(ctx context.Context, token string) (*Dashboard, error) {
	var d Dashboard
	if err := c.get(ctx, "/dashboard/", token, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateProfile validates and submits profile changes, returning the updated user.
func (c *Client) UpdateProfile(ctx context.Context, token string, upd ProfileUpdate) (*User, error) {
	if err := Validate(upd); err != nil {
		return nil, err
	}
	var user User
	if err := c.do(ctx, http.MethodPut, "/dashboard/profile", token, upd, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
