package store

import (
	"fmt"
	"time"
)

const upsertMessageSQL = `
	INSERT INTO messages (room_id, msg_id, sender, sender_role, sender_name, sender_avatar, message_type, body, image_url, created_at, archived_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(room_id, msg_id) DO UPDATE SET
		sender_name = excluded.sender_name,
		sender_avatar = excluded.sender_avatar,
		body = excluded.body,
		image_url = excluded.image_url`

// UpsertMessage inserts or updates a message (idempotent on room_id + msg_id).
func (db *DB) UpsertMessage(m *Message) error {
	_, err := db.Exec(upsertMessageSQL, messageArgs(m, time.Now().UnixMilli())...)
	return err
}

// UpsertMessages archives a batch in one transaction.
func (db *DB) UpsertMessages(msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(upsertMessageSQL)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UnixMilli()
	for i := range msgs {
		if _, err := stmt.Exec(messageArgs(&msgs[i], now)...); err != nil {
			return fmt.Errorf("upsert %s: %w", msgs[i].MsgID, err)
		}
	}
	return tx.Commit()
}

func messageArgs(m *Message, now int64) []any {
	return []any{m.RoomID, m.MsgID, m.Sender, m.SenderRole, m.SenderName, m.SenderAvatar, m.MessageType, m.Body, m.ImageURL, m.CreatedAt, now}
}

// ListMessages returns messages for a room using keyset pagination by
// created_at, newest first.
func (db *DB) ListMessages(roomID string, beforeTs int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT `+messageColumns+`
		FROM messages
		WHERE room_id = ? AND created_at < ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, roomID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(m.scanTargets()...); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountMessages returns the number of archived messages in a room.
func (db *DB) CountMessages(roomID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE room_id = ?`, roomID).Scan(&n)
	return n, err
}

const messageColumns = `id, room_id, msg_id, sender, sender_role, sender_name, sender_avatar, message_type, body, image_url, created_at`

func (m *Message) scanTargets() []any {
	return []any{&m.ID, &m.RoomID, &m.MsgID, &m.Sender, &m.SenderRole, &m.SenderName, &m.SenderAvatar, &m.MessageType, &m.Body, &m.ImageURL, &m.CreatedAt}
}
