package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AdminResource names a deletable admin collection.
type AdminResource string

const (
	ResourceUsers           AdminResource = "users"
	ResourceEvents          AdminResource = "events"
	ResourceRegistrations   AdminResource = "registrations"
	ResourceMembershipCodes AdminResource = "membership-codes"
)

// AdminStats is the body of GET /admin/stats.
type AdminStats struct {
	TotalUsers            int `json:"total_users"`
	ActiveUsers           int `json:"active_users"`
	IEEEMembers           int `json:"ieee_members"`
	NonMembers            int `json:"non_members"`
	TotalEvents           int `json:"total_events"`
	UpcomingEvents        int `json:"upcoming_events"`
	TotalRegistrations    int `json:"total_registrations"`
	ActiveMembershipCodes int `json:"active_membership_codes"`
}

// AdminEvent is an event row in the admin dashboard.
type AdminEvent struct {
	ID                int        `json:"id"`
	Title             string     `json:"title"`
	Slug              string     `json:"slug"`
	Description       string     `json:"description,omitempty"`
	Location          string     `json:"location,omitempty"`
	StartTime         *time.Time `json:"start_time,omitempty"`
	IsPublic          bool       `json:"is_public"`
	RegistrationCount int        `json:"registration_count"`
}

// Registration is an event registration row.
type Registration struct {
	ID               int        `json:"id"`
	EventTitle       string     `json:"event_title"`
	ParticipantName  string     `json:"participant_name"`
	ParticipantEmail string     `json:"participant_email"`
	ParticipantPhone string     `json:"participant_phone,omitempty"`
	RegisteredAt     *time.Time `json:"registered_at,omitempty"`
}

// MembershipCode is a code that unlocks IEEE member signup.
type MembershipCode struct {
	ID          int        `json:"id"`
	Code        string     `json:"code"`
	MaxUses     *int       `json:"max_uses,omitempty"`
	CurrentUses int        `json:"current_uses"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// CreateEventRequest is the body of POST /admin/events.
type CreateEventRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Slug        string     `json:"slug" validate:"required,max=200"`
	Description string     `json:"description,omitempty" validate:"max=5000"`
	Location    string     `json:"location,omitempty" validate:"max=200"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	IsPublic    bool       `json:"is_public"`
}

// CreateMembershipCodeRequest is the body of POST /admin/membership-codes.
type CreateMembershipCodeRequest struct {
	Code      string     `json:"code" validate:"required,max=64"`
	MaxUses   *int       `json:"max_uses,omitempty" validate:"omitempty,gte=1"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

var slugSpaces = regexp.MustCompile(`\s+`)

// Slugify lowercases s and replaces whitespace runs with "-".
func Slugify(s string) string {
	return slugSpaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

// AdminOverview is everything the admin dashboard shows.
type AdminOverview struct {
	Stats           AdminStats
	Users           []User
	Events          []AdminEvent
	Registrations   []Registration
	MembershipCodes []MembershipCode

	// Failed lists the sections that could not be loaded.
	Failed map[string]error
}

// GetAdminStats fetches the admin counters.
func (c *Client) GetAdminStats(ctx context.Context, token string) (*AdminStats, error) {
	var s AdminStats
	if err := c.get(ctx, "/admin/stats", token, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListUsers fetches every account.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/admin/users", token, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListAdminEvents fetches every event, public or not.
func (c *Client) ListAdminEvents(ctx context.Context, token string) ([]AdminEvent, error) {
	var events []AdminEvent
	if err := c.get(ctx, "/admin/events", token, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ListRegistrations fetches every event registration.
func (c *Client) ListRegistrations(ctx context.Context, token string) ([]Registration, error) {
	var regs []Registration
	if err := c.get(ctx, "/admin/registrations", token, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// ListMembershipCodes fetches every membership code.
func (c *Client) ListMembershipCodes(ctx context.Context, token string) ([]MembershipCode, error) {
	var codes []MembershipCode
	if err := c.get(ctx, "/admin/membership-codes", token, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// LoadAdminOverview fetches all admin sections concurrently. A failing section
// is recorded in Failed and left empty; the rest still load.
func (c *Client) LoadAdminOverview(ctx context.Context, token string) *AdminOverview {
	ov := &AdminOverview{Failed: make(map[string]error)}
	var mu sync.Mutex
	fail := func(section string, err error) {
		mu.Lock()
		ov.Failed[section] = err
		mu.Unlock()
		c.log.Warn("admin section failed", "section", section, "error", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		s, err := c.GetAdminStats(ctx, token)
		if err != nil {
			fail("stats", err)
			return nil
		}
		ov.Stats = *s
		return nil
	})
	g.Go(func() error {
		users, err := c.ListUsers(ctx, token)
		if err != nil {
			fail("users", err)
			return nil
		}
		ov.Users = users
		return nil
	})
	g.Go(func() error {
		events, err := c.ListAdminEvents(ctx, token)
		if err != nil {
			fail("events", err)
			return nil
		}
		ov.Events = events
		return nil
	})
	g.Go(func() error {
		regs, err := c.ListRegistrations(ctx, token)
		if err != nil {
			fail("registrations", err)
			return nil
		}
		ov.Registrations = regs
		return nil
	})
	g.Go(func() error {
		codes, err := c.ListMembershipCodes(ctx, token)
		if err != nil {
			fail("membership-codes", err)
			return nil
		}
		ov.MembershipCodes = codes
		return nil
	})
	_ = g.Wait()
	return ov
}

// DeleteAdminResource removes one row from an admin collection.
func (c *Client) DeleteAdminResource(ctx context.Context, token string, res AdminResource, id int) error {
	path := fmt.Sprintf("/admin/%s/%d", res, id)
	return c.do(ctx, http.MethodDelete, path, token, nil, nil)
}

// ExportEventRegistrations returns the registrations of one event as
// indented JSON, ready to be written to disk.
func (c *Client) ExportEventRegistrations(ctx context.Context, token string, eventID int) ([]byte, error) {
	var raw json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/admin/events/%d/export", eventID), token, &raw); err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding export: %w", err)
	}
	return json.MarshalIndent(out, "", "  ")
}

// CreateEvent validates and creates an event.
func (c *Client) CreateEvent(ctx context.Context, token string, req CreateEventRequest) (*AdminEvent, error) {
	req.Slug = Slugify(req.Slug)
	if err := Validate(req); err != nil {
		return nil, err
	}
	var ev AdminEvent
	if err := c.post(ctx, "/admin/events", token, req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// CreateMembershipCode validates and creates a membership code.
func (c *Client) CreateMembershipCode(ctx context.Context, token string, req CreateMembershipCodeRequest) (*MembershipCode, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	var mc MembershipCode
	if err := c.post(ctx, "/admin/membership-codes", token, req, &mc); err != nil {
		return nil, err
	}
	return &mc, nil
}
