package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// GetSnapshot decodes the payload cached under key into dst. It returns
// (found, isFresh, error); isFresh reports whether it is within ttl.
func (d *DB) GetSnapshot(key string, ttl time.Duration, dst any) (bool, bool, error) {
	var payload string
	var fetchedAt int64
	err := d.db.QueryRow(`SELECT payload, fetched_at FROM snapshots WHERE key = ?`, key).
		Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return false, false, err
	}
	isFresh := time.Since(time.Unix(fetchedAt, 0)) < ttl
	return true, isFresh, nil
}

// PutSnapshot stores v as JSON under key.
func (d *DB) PutSnapshot(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`INSERT OR REPLACE INTO snapshots (key, payload, fetched_at) VALUES (?, ?, ?)`,
		key, string(data), time.Now().Unix())
	return err
}

// ClearSnapshots drops every cached payload, e.g. on logout.
func (d *DB) ClearSnapshots() error {
	_, err := d.db.Exec(`DELETE FROM snapshots`)
	return err
}
