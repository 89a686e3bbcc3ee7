package localstore

import (
	"net/http"
	"sync"
	"time"
)

// Memory is a LocalStore that lives only as long as the process.
type Memory struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// MemoryCookies is a CookieStore that lives only as long as the process.
// Expired cookies are hidden from Cookie and dropped on the next write.
type MemoryCookies struct {
	mu      sync.Mutex
	now     func() time.Time
	cookies map[string]http.Cookie
}

func NewMemoryCookies() *MemoryCookies {
	return &MemoryCookies{now: time.Now, cookies: make(map[string]http.Cookie)}
}

// SetClock overrides the time used to decide expiry.
func (m *MemoryCookies) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryCookies) Cookie(name string) (*http.Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cookies[name]
	if !ok || expired(&c, m.now()) {
		return nil, http.ErrNoCookie
	}
	return &c, nil
}

func (m *MemoryCookies) SetCookie(c *http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for name, existing := range m.cookies {
		if expired(&existing, now) {
			delete(m.cookies, name)
		}
	}
	if expired(c, now) {
		delete(m.cookies, c.Name)
		return nil
	}
	m.cookies[c.Name] = *c
	return nil
}

func (m *MemoryCookies) RemoveCookie(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cookies, name)
	return nil
}

// expired follows browser rules: a zero Expires is a session cookie, a
// negative MaxAge deletes.
func expired(c *http.Cookie, now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && !c.Expires.After(now)
}
