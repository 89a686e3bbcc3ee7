package cache

import (
	"errors"
	"net/http"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCookieJar_RoundTrip(t *testing.T) {
	now := time.Unix(1_740_000_000, 0)
	jar := openTestDB(t).Cookies().WithClock(func() time.Time { return now })

	_, err := jar.Cookie("auth_token")
	assert.ErrorIs(t, err, http.ErrNoCookie)

	expires := now.Add(30 * 24 * time.Hour)
	require.NoError(t, jar.SetCookie(&http.Cookie{
		Name:     "auth_token",
		Value:    "abc",
		Path:     "/",
		Expires:  expires,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}))

	c, err := jar.Cookie("auth_token")
	require.NoError(t, err)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.Expires.Equal(expires))
	assert.True(t, c.Secure)
	assert.False(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	require.NoError(t, jar.SetCookie(&http.Cookie{Name: "auth_token", Value: "def", Expires: expires}))
	c, err = jar.Cookie("auth_token")
	require.NoError(t, err)
	assert.Equal(t, "def", c.Value)
	assert.Equal(t, "/", c.Path)

	require.NoError(t, jar.RemoveCookie("auth_token"))
	require.NoError(t, jar.RemoveCookie("auth_token"))
	_, err = jar.Cookie("auth_token")
	assert.ErrorIs(t, err, http.ErrNoCookie)
}

func TestCookieJar_Expiry(t *testing.T) {
	now := time.Unix(1_740_000_000, 0)
	db := openTestDB(t)
	jar := db.Cookies().WithClock(func() time.Time { return now })

	require.NoError(t, jar.SetCookie(&http.Cookie{Name: "short", Value: "a", Expires: now.Add(24 * time.Hour)}))
	require.NoError(t, jar.SetCookie(&http.Cookie{Name: "session", Value: "b"}))

	later := db.Cookies().WithClock(func() time.Time { return now.Add(25 * time.Hour) })
	_, err := later.Cookie("short")
	assert.ErrorIs(t, err, http.ErrNoCookie)

	c, err := later.Cookie("session")
	require.NoError(t, err)
	assert.Equal(t, "b", c.Value)
	assert.True(t, c.Expires.IsZero())

	// Writing through the later jar purges the expired row.
	require.NoError(t, later.SetCookie(&http.Cookie{Name: "other", Value: "c"}))
	var n int
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM cookies WHERE name = 'short'`).Scan(&n))
	assert.Zero(t, n)
}

func TestCookieJar_SetExpiredDeletes(t *testing.T) {
	now := time.Unix(1_740_000_000, 0)
	jar := openTestDB(t).Cookies().WithClock(func() time.Time { return now })

	require.NoError(t, jar.SetCookie(&http.Cookie{Name: "auth_token", Value: "abc", Expires: now.Add(time.Hour)}))
	require.NoError(t, jar.SetCookie(&http.Cookie{Name: "auth_token", MaxAge: -1}))
	_, err := jar.Cookie("auth_token")
	assert.ErrorIs(t, err, http.ErrNoCookie)

	require.NoError(t, jar.SetCookie(&http.Cookie{Name: "auth_token", Value: "abc", Expires: now.Add(-time.Second)}))
	_, err = jar.Cookie("auth_token")
	assert.ErrorIs(t, err, http.ErrNoCookie)
}

func TestCookieJar_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Cookies().SetCookie(&http.Cookie{
		Name:    "auth_token",
		Value:   "abc",
		Expires: time.Now().Add(time.Hour),
	}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	c, err := db.Cookies().Cookie("auth_token")
	require.NoError(t, err)
	assert.Equal(t, "abc", c.Value)
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{db: sqlDB}, mock
}

var errDisk = errors.New("disk I/O error")

func TestCookieJar_ReadFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, path, expires_at`)).
		WithArgs("auth_token").
		WillReturnError(errDisk)

	_, err := db.Cookies().Cookie("auth_token")
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	assert.NotErrorIs(t, err, http.ErrNoCookie)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCookieJar_WriteFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cookies WHERE expires_at`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT OR REPLACE INTO cookies`)).
		WillReturnError(errDisk)

	err := db.Cookies().SetCookie(&http.Cookie{Name: "auth_token", Value: "abc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	assert.Contains(t, err.Error(), "writing cookie auth_token")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCookieJar_PurgeFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cookies WHERE expires_at`)).
		WillReturnError(errDisk)

	err := db.Cookies().SetCookie(&http.Cookie{Name: "auth_token", Value: "abc"})
	assert.ErrorIs(t, err, errDisk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCookieJar_RemoveFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cookies WHERE name = ?`)).
		WithArgs("auth_token").
		WillReturnError(errDisk)

	err := db.Cookies().RemoveCookie("auth_token")
	assert.ErrorIs(t, err, errDisk)
	assert.NoError(t, mock.ExpectationsWereMet())
}
