package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + indexes)", result.Version)
	}
}

func TestMigrateFreshArchive(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	if v, err := db.SchemaVersion(); err != nil || v != 0 {
		t.Fatalf("SchemaVersion() before migrate = %d, %v", v, err)
	}
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed {
		t.Error("first Migrate() should report Changed=true")
	}
	if v, _ := db.SchemaVersion(); v != result.Version {
		t.Errorf("SchemaVersion() = %d, want %d", v, result.Version)
	}
}

func TestMigrateRefusesDirtySchema(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}
	_, err := db.Migrate()
	if !errors.Is(err, ErrDirtySchema) {
		t.Fatalf("Migrate() error = %v, want ErrDirtySchema", err)
	}
}

func TestOpenMigrated(t *testing.T) {
	db, err := OpenMigrated(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ListRooms(10); err != nil {
		t.Errorf("ListRooms on fresh archive: %v", err)
	}
}

func TestRoomUpsertKeepsNewestPreview(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertRoom(&Room{RoomID: "r1", LastMessageAt: 2000, LastMessagePreview: "newer"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertRoom(&Room{RoomID: "r1", LastMessageAt: 1000, LastMessagePreview: "older"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertRoom(&Room{RoomID: "r1", Status: "active", AgentName: "Ana"}); err != nil {
		t.Fatal(err)
	}

	r, err := db.GetRoom("r1")
	if err != nil {
		t.Fatal(err)
	}
	if r == nil {
		t.Fatal("room not found")
	}
	if r.LastMessagePreview != "newer" || r.LastMessageAt != 2000 {
		t.Errorf("preview = %q at %d, want newer at 2000", r.LastMessagePreview, r.LastMessageAt)
	}
	if r.Status != "active" || r.AgentName != "Ana" {
		t.Errorf("status/agent = %q/%q, want active/Ana", r.Status, r.AgentName)
	}
}

func TestRoomDefaultsToWaiting(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertRoom(&Room{RoomID: "r1"}); err != nil {
		t.Fatal(err)
	}
	r, err := db.GetRoom("r1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != "waiting" {
		t.Errorf("status = %q, want waiting", r.Status)
	}

	missing, err := db.GetRoom("nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("expected nil for missing room")
	}
}

func TestListRoomsOrder(t *testing.T) {
	db := testDB(t)

	for _, r := range []Room{
		{RoomID: "old", LastMessageAt: 1000},
		{RoomID: "new", LastMessageAt: 3000},
		{RoomID: "mid", LastMessageAt: 2000},
	} {
		if err := db.UpsertRoom(&r); err != nil {
			t.Fatal(err)
		}
	}

	rooms, err := db.ListRooms(10)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range rooms {
		got = append(got, r.RoomID)
	}
	if strings.Join(got, ",") != "new,mid,old" {
		t.Errorf("order = %v, want new,mid,old", got)
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	msg := &Message{RoomID: "r1", MsgID: "msg1", Body: "hello", MessageType: "text", CreatedAt: 1000}
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}
	// Upsert again should not create duplicate.
	msg.Body = "hello updated"
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("r1", 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent upsert failed)", len(msgs))
	}
	if msgs[0].Body != "hello updated" {
		t.Errorf("body = %q, want hello updated", msgs[0].Body)
	}
}

func TestSameMessageIDInTwoRooms(t *testing.T) {
	db := testDB(t)

	for _, room := range []string{"r1", "r2"} {
		if err := db.UpsertMessage(&Message{RoomID: room, MsgID: "m1", Body: "x", CreatedAt: 1000}); err != nil {
			t.Fatal(err)
		}
	}
	for _, room := range []string{"r1", "r2"} {
		n, err := db.CountMessages(room)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("room %s has %d messages, want 1", room, n)
		}
	}
}

func TestUpsertMessagesBatch(t *testing.T) {
	db := testDB(t)

	batch := []Message{
		{RoomID: "r1", MsgID: "m1", Body: "one", CreatedAt: 1000},
		{RoomID: "r1", MsgID: "m2", Body: "two", CreatedAt: 2000},
		{RoomID: "r1", MsgID: "m3", MessageType: "image", ImageURL: "https://cdn/x.png", CreatedAt: 3000},
	}
	if err := db.UpsertMessages(batch); err != nil {
		t.Fatal(err)
	}
	// Replaying the same history must not grow the archive.
	if err := db.UpsertMessages(batch); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("r1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].MsgID != "m3" || msgs[0].ImageURL != "https://cdn/x.png" {
		t.Errorf("newest = %+v, want m3 with image url", msgs[0])
	}

	older, err := db.ListMessages("r1", 2000, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(older) != 1 || older[0].MsgID != "m1" {
		t.Errorf("page before 2000 = %v, want [m1]", older)
	}
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertMessage(&Message{RoomID: "r1", MsgID: "m1", Body: "hello world", MessageType: "text", CreatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessage(&Message{RoomID: "r1", MsgID: "m2", Body: "goodbye world", MessageType: "text", CreatedAt: 2000}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessage(&Message{RoomID: "r2", MsgID: "m3", Body: "Hello again", MessageType: "text", CreatedAt: 3000}); err != nil {
		t.Fatal(err)
	}

	results, err := db.SearchMessages("hello", "r1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Message.MsgID != "m1" {
		t.Errorf("msg_id = %q, want m1", results[0].Message.MsgID)
	}
	if results[0].Snippet != "<<hello>> world" {
		t.Errorf("snippet = %q", results[0].Snippet)
	}

	all, err := db.SearchMessages("HELLO", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("got %d results across rooms, want 2", len(all))
	}
}

func TestSearchEscapesWildcards(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertMessage(&Message{RoomID: "r1", MsgID: "m1", Body: "100% refunded", CreatedAt: 1000}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessage(&Message{RoomID: "r1", MsgID: "m2", Body: "100 refunded", CreatedAt: 2000}); err != nil {
		t.Fatal(err)
	}

	results, err := db.SearchMessages("100%", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Message.MsgID != "m1" {
		t.Errorf("results = %v, want only m1", results)
	}

	empty, err := db.SearchMessages("   ", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if empty != nil {
		t.Errorf("blank query returned %v", empty)
	}
}

func TestSnippetTrimsLongBodies(t *testing.T) {
	body := strings.Repeat("a", 50) + "needle" + strings.Repeat("b", 50)
	got := snippet(body, "needle")
	want := "..." + strings.Repeat("a", snippetRadius) + "<<needle>>" + strings.Repeat("b", snippetRadius) + "..."
	if got != want {
		t.Errorf("snippet = %q, want %q", got, want)
	}
}
