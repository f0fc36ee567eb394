package store

import (
	"database/sql"
	"errors"
	"time"
)

// UpsertRoom inserts or updates a room. Empty fields do not overwrite
// stored values, and last_message_at never moves backwards.
func (db *DB) UpsertRoom(r *Room) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO rooms (room_id, status, agent_name, last_message_at, last_message_preview, updated_at)
		VALUES (?, COALESCE(NULLIF(?, ''), 'waiting'), ?, ?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			status = COALESCE(NULLIF(?, ''), rooms.status),
			agent_name = COALESCE(NULLIF(excluded.agent_name, ''), rooms.agent_name),
			last_message_preview = CASE
				WHEN excluded.last_message_at >= rooms.last_message_at AND excluded.last_message_preview != ''
				THEN excluded.last_message_preview ELSE rooms.last_message_preview END,
			last_message_at = MAX(rooms.last_message_at, excluded.last_message_at),
			updated_at = excluded.updated_at`,
		r.RoomID, r.Status, r.AgentName, r.LastMessageAt, r.LastMessagePreview, now, r.Status)
	return err
}

// ListRooms returns rooms sorted by last message timestamp descending.
func (db *DB) ListRooms(limit int) ([]Room, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT room_id, status, agent_name, last_message_at, last_message_preview
		FROM rooms
		ORDER BY last_message_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.RoomID, &r.Status, &r.AgentName, &r.LastMessageAt, &r.LastMessagePreview); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// GetRoom returns a single room, or nil if it is not archived.
func (db *DB) GetRoom(roomID string) (*Room, error) {
	var r Room
	err := db.QueryRow(`
		SELECT room_id, status, agent_name, last_message_at, last_message_preview
		FROM rooms WHERE room_id = ?`, roomID).
		Scan(&r.RoomID, &r.Status, &r.AgentName, &r.LastMessageAt, &r.LastMessagePreview)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
