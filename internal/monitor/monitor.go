package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/cache"
	"github.com/fragmede/branchdesk/internal/render"
	"github.com/fragmede/branchdesk/internal/ui/messages"
)

const previewLen = 200

// Source fetches the member dashboard.
type Source interface {
	GetDashboard(ctx context.Context, token string) (*api.Dashboard, error)
}

// Tokens supplies the bearer token for each poll.
type Tokens interface {
	RequireToken() (string, error)
}

// Sender receives notification messages. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Monitor polls the dashboard for new announcements and records them as
// notifications.
type Monitor struct {
	source   Source
	tokens   Tokens
	cache    *cache.DB
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	sender  Sender
	userID  int
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a new background monitor.
func New(source Source, tokens Tokens, db *cache.DB, interval time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{
		source:   source,
		tokens:   tokens,
		cache:    db,
		interval: interval,
		log:      log,
	}
}

// SnapshotKey is the cache key of a user's dashboard.
func SnapshotKey(userID int) string {
	return fmt.Sprintf("dashboard:%d", userID)
}

// Start begins the background polling loop for userID. Starting a running
// monitor is a no-op.
func (m *Monitor) Start(sender Sender, userID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.sender = sender
	m.userID = userID
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.loop(m.stopCh, m.doneCh)
}

// Stop halts the background polling and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()
	<-done
}

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Record stores any announcements of d not seen before. On the very first
// run everything is recorded as already read, so a fresh install does not
// report the whole backlog as new. It returns how many were added unread.
func (m *Monitor) Record(d *api.Dashboard) (int, error) {
	seeded, err := m.cache.HasNotifications()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, a := range d.Announcements {
		posted, _ := render.ParseDate(a.Date)
		ok, err := m.cache.AddNotification(a.ID, a.Title, render.Preview(a.Body, previewLen), posted)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	if !seeded && added > 0 {
		if err := m.cache.MarkAllNotificationsRead(); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return added, nil
}

// Poll runs one check immediately.
func (m *Monitor) Poll(ctx context.Context) error {
	token, err := m.tokens.RequireToken()
	if err != nil {
		return err
	}
	d, err := m.source.GetDashboard(ctx, token)
	if err != nil {
		return err
	}

	m.mu.Lock()
	userID, sender := m.userID, m.sender
	m.mu.Unlock()

	if err := m.cache.PutSnapshot(SnapshotKey(userID), d); err != nil {
		m.log.Warn("caching dashboard", "error", err)
	}
	added, err := m.Record(d)
	if err != nil {
		return fmt.Errorf("recording announcements: %w", err)
	}
	if added > 0 && sender != nil {
		sender.Send(messages.NewNotificationMsg{UnreadCount: m.cache.UnreadNotificationCount()})
	}
	return nil
}

func (m *Monitor) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if err := m.Poll(ctx); err != nil {
				m.log.Debug("announcement poll failed", "error", err)
			}
		}
	}
}
