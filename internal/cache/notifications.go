package cache

import (
	"database/sql"
	"time"
)

// Notification is an announcement the user has not necessarily read yet.
type Notification struct {
	ID             int
	AnnouncementID int
	Title          string
	TextPreview    string
	PostedAt       time.Time
	CreatedAt      time.Time
	Read           bool
}

// AddNotification records an announcement. It returns false when the
// announcement was already known.
func (d *DB) AddNotification(announcementID int, title, textPreview string, postedAt time.Time) (bool, error) {
	var posted sql.NullInt64
	if !postedAt.IsZero() {
		posted = sql.NullInt64{Int64: postedAt.Unix(), Valid: true}
	}
	res, err := d.db.Exec(`INSERT OR IGNORE INTO notifications
		(announcement_id, title, text_preview, posted_at, created_at, read)
		VALUES (?, ?, ?, ?, ?, 0)`,
		announcementID, title, textPreview, posted, time.Now().Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasNotifications reports whether any announcement was ever recorded.
func (d *DB) HasNotifications() (bool, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM notifications`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UnreadNotificationCount returns the count of unread notifications.
func (d *DB) UnreadNotificationCount() int {
	var count int
	d.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE read = 0`).Scan(&count)
	return count
}

// GetNotifications returns the newest notifications first.
func (d *DB) GetNotifications(limit int) ([]Notification, error) {
	rows, err := d.db.Query(`SELECT id, announcement_id, title, text_preview, posted_at, created_at, read
		FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		var preview sql.NullString
		var posted sql.NullInt64
		var createdAt int64
		var read int
		if err := rows.Scan(&n.ID, &n.AnnouncementID, &n.Title, &preview, &posted, &createdAt, &read); err != nil {
			return nil, err
		}
		n.TextPreview = preview.String
		if posted.Valid {
			n.PostedAt = time.Unix(posted.Int64, 0)
		}
		n.CreatedAt = time.Unix(createdAt, 0)
		n.Read = read != 0
		result = append(result, n)
	}
	return result, rows.Err()
}

// MarkNotificationRead marks one notification as read.
func (d *DB) MarkNotificationRead(id int) error {
	_, err := d.db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return err
}

// MarkAllNotificationsRead marks every notification as read.
func (d *DB) MarkAllNotificationsRead() error {
	_, err := d.db.Exec(`UPDATE notifications SET read = 1 WHERE read = 0`)
	return err
}
