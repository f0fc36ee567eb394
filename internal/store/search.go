package store

import (
	"strings"
	"unicode/utf8"
)

const snippetRadius = 32

// SearchMessages finds messages whose body contains query, case-insensitively.
// An empty roomID searches every room.
func (db *DB) SearchMessages(query string, roomID string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	q := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE body LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(query) + "%"}
	if roomID != "" {
		q += " AND room_id = ?"
		args = append(args, roomID)
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(r.Message.scanTargets()...); err != nil {
			return nil, err
		}
		r.Snippet = snippet(r.Message.Body, query)
		results = append(results, r)
	}
	return results, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet marks the first match of query in body with << >> and trims the
// surroundings to snippetRadius runes on each side.
func snippet(body, query string) string {
	idx := strings.Index(strings.ToLower(body), strings.ToLower(query))
	if idx < 0 || len(strings.ToLower(body)) != len(body) {
		return body
	}
	end := idx + len(query)

	start := idx
	for n := 0; start > 0 && n < snippetRadius; n++ {
		_, size := utf8.DecodeLastRuneInString(body[:start])
		start -= size
	}
	stop := end
	for n := 0; stop < len(body) && n < snippetRadius; n++ {
		_, size := utf8.DecodeRuneInString(body[stop:])
		stop += size
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(body[start:idx])
	b.WriteString("<<")
	b.WriteString(body[idx:end])
	b.WriteString(">>")
	b.WriteString(body[end:stop])
	if stop < len(body) {
		b.WriteString("...")
	}
	return b.String()
}
