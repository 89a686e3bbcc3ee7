package cache

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func TestSnapshots(t *testing.T) {
	db := openTestDB(t)

	var got payload
	found, fresh, err := db.GetSnapshot("dashboard:1", time.Minute, &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, fresh)

	require.NoError(t, db.PutSnapshot("dashboard:1", payload{Title: "Hack Night", Count: 3}))

	found, fresh, err = db.GetSnapshot("dashboard:1", time.Minute, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, fresh)
	assert.Equal(t, payload{Title: "Hack Night", Count: 3}, got)

	// a zero ttl still returns the payload but never as fresh
	found, fresh, err = db.GetSnapshot("dashboard:1", 0, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, fresh)

	require.NoError(t, db.ClearSnapshots())
	found, _, err = db.GetSnapshot("dashboard:1", time.Minute, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSnapshots_ReadFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload, fetched_at FROM snapshots WHERE key = ?`)).
		WithArgs("dashboard:1").
		WillReturnError(errDisk)

	var got payload
	found, _, err := db.GetSnapshot("dashboard:1", time.Minute, &got)
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshots_CorruptPayload(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload, fetched_at FROM snapshots WHERE key = ?`)).
		WithArgs("dashboard:1").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "fetched_at"}).AddRow("{not json", time.Now().Unix()))

	var got payload
	found, _, err := db.GetSnapshot("dashboard:1", time.Minute, &got)
	assert.Error(t, err)
	assert.False(t, found)
}
