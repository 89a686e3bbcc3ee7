package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// CookieJar is the durable token slot: named cookies in the cookies table,
// with their expiry and security attributes.
type CookieJar struct {
	db  *DB
	now func() time.Time
}

// Cookies returns the jar stored in d.
func (d *DB) Cookies() *CookieJar {
	return &CookieJar{db: d, now: time.Now}
}

// WithClock returns a copy of the jar that decides expiry with now.
func (j *CookieJar) WithClock(now func() time.Time) *CookieJar {
	return &CookieJar{db: j.db, now: now}
}

// Cookie returns the named cookie, or http.ErrNoCookie when it is missing
// or expired.
func (j *CookieJar) Cookie(name string) (*http.Cookie, error) {
	row := j.db.db.QueryRow(`SELECT value, path, expires_at, secure, http_only, same_site
		FROM cookies WHERE name = ?`, name)

	c := &http.Cookie{Name: name}
	var expiresAt int64
	var secure, httpOnly, sameSite int
	err := row.Scan(&c.Value, &c.Path, &expiresAt, &secure, &httpOnly, &sameSite)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, http.ErrNoCookie
	}
	if err != nil {
		return nil, fmt.Errorf("reading cookie %s: %w", name, err)
	}

	if expiresAt != 0 {
		c.Expires = time.Unix(expiresAt, 0)
		if !c.Expires.After(j.now()) {
			return nil, http.ErrNoCookie
		}
	}
	c.Secure = secure != 0
	c.HttpOnly = httpOnly != 0
	c.SameSite = http.SameSite(sameSite)
	return c, nil
}

// SetCookie stores c, replacing any cookie of the same name. A cookie that
// is already expired, or has a negative MaxAge, deletes instead. Expired
// rows of other cookies are purged on the way.
func (j *CookieJar) SetCookie(c *http.Cookie) error {
	now := j.now()
	if _, err := j.db.db.Exec(`DELETE FROM cookies WHERE expires_at != 0 AND expires_at <= ?`, now.Unix()); err != nil {
		return fmt.Errorf("purging expired cookies: %w", err)
	}

	if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now)) {
		return j.RemoveCookie(c.Name)
	}

	var expiresAt int64
	if !c.Expires.IsZero() {
		expiresAt = c.Expires.Unix()
	}
	path := c.Path
	if path == "" {
		path = "/"
	}
	_, err := j.db.db.Exec(`INSERT OR REPLACE INTO cookies
		(name, value, path, expires_at, secure, http_only, same_site, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Value, path, expiresAt, boolInt(c.Secure), boolInt(c.HttpOnly), int(c.SameSite), now.Unix())
	if err != nil {
		return fmt.Errorf("writing cookie %s: %w", c.Name, err)
	}
	return nil
}

// RemoveCookie deletes the named cookie. Removing a missing cookie is not
// an error.
func (j *CookieJar) RemoveCookie(name string) error {
	if _, err := j.db.db.Exec(`DELETE FROM cookies WHERE name = ?`, name); err != nil {
		return fmt.Errorf("removing cookie %s: %w", name, err)
	}
	return nil
}
