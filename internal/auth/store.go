package auth

import "net/http"

// CookieStore is the durable, expiring token slot. Implementations must not
// return cookies whose Expires has passed and must report http.ErrNoCookie
// when nothing is stored under name.
type CookieStore interface {
	Cookie(name string) (*http.Cookie, error)
	SetCookie(c *http.Cookie) error
	RemoveCookie(name string) error
}

// LocalStore is the unscoped key/value mirror. It has no expiry of its own.
type LocalStore interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}
