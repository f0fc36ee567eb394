package archive

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/chat"
	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func at(ms int64) time.Time { return time.UnixMilli(ms) }

func TestRecordMessage(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewRecorder(db, b, nil)

	ch, unsub := b.Subscribe("archive.", 10)
	defer unsub()

	msg := model.Message{ID: "m1", RoomID: "r1", Message: "hello", MessageType: model.TypeText, CreatedAt: at(1000)}
	if err := r.RecordMessage(msg); err != nil {
		t.Fatal(err)
	}

	room, err := db.GetRoom("r1")
	if err != nil {
		t.Fatal(err)
	}
	if room == nil || room.LastMessagePreview != "hello" {
		t.Fatalf("room = %+v, want preview hello", room)
	}

	msgs, err := db.ListMessages("r1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Body != "hello" || msgs[0].CreatedAt != 1000 {
		t.Errorf("got %+v, want one message hello at 1000", msgs)
	}

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindArchived {
			t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindArchived)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for archive event")
	}
}

func TestRecordMessageIdempotent(t *testing.T) {
	db := testDB(t)
	r := NewRecorder(db, bus.New(), nil)

	msg := model.Message{ID: "m1", RoomID: "r1", Message: "v1", CreatedAt: at(1000)}
	if err := r.RecordMessage(msg); err != nil {
		t.Fatal(err)
	}
	msg.Message = "v2"
	if err := r.RecordMessage(msg); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("r1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Body != "v2" {
		t.Errorf("got %+v, want single message v2", msgs)
	}
}

func TestRecordMessageWithoutID(t *testing.T) {
	db := testDB(t)
	r := NewRecorder(db, bus.New(), nil)

	for i := 0; i < 2; i++ {
		if err := r.RecordMessage(model.Message{RoomID: "r1", Message: "no id"}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := db.CountMessages("r1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2 distinct local ids", n)
	}
}

func TestRecordHistory(t *testing.T) {
	db := testDB(t)
	r := NewRecorder(db, bus.New(), nil)

	history := []model.Message{
		{ID: "m1", Message: "hi", CreatedAt: at(1000)},
		{ID: "m2", MessageType: model.TypeImage, ImageURL: "https://cdn/x.png", CreatedAt: at(2000)},
	}
	if err := r.RecordHistory("r1", history); err != nil {
		t.Fatal(err)
	}
	// A remount replays the same history.
	if err := r.RecordHistory("r1", history); err != nil {
		t.Fatal(err)
	}

	n, err := db.CountMessages("r1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	room, err := db.GetRoom("r1")
	if err != nil {
		t.Fatal(err)
	}
	if room.LastMessagePreview != "[image]" || room.LastMessageAt != 2000 {
		t.Errorf("room = %+v, want [image] at 2000", room)
	}
}

func TestRecorderFollowsBus(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewRecorder(db, b, nil)
	r.Start(context.Background())
	defer r.Stop()

	done, unsub := b.Subscribe("archive.", 10)
	defer unsub()

	b.Emit(bus.KindRoom, model.Room{ID: "r1", Status: model.RoomWaiting})
	b.Emit(bus.KindHistoryLoaded, chat.HistoryLoaded{RoomID: "r1", Messages: []model.Message{{ID: "m1", Message: "old", CreatedAt: at(1000)}}})
	b.Emit(bus.KindMessage, model.Message{ID: "m2", RoomID: "r1", Message: "new", CreatedAt: at(2000)})
	b.Emit(bus.KindAgentAssigned, model.AgentAssigned{AgentName: "Ana"})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for archive writes")
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, err := db.GetRoom("r1")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil && got.AgentName == "Ana" {
			if got.Status != "active" {
				t.Errorf("status = %q, want active", got.Status)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("agent not recorded, room = %+v", got)
		}
		time.Sleep(10 * time.Millisecond)
	}

	results, err := db.SearchMessages("new", "r1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("search results = %d, want 1", len(results))
	}
}

func TestRecorderKeepsMessagesAmidStateEvents(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewRecorder(db, b, nil)
	r.Start(context.Background())

	room := &model.Room{ID: "r1", Status: model.RoomActive}
	for i := 0; i < 500; i++ {
		b.Emit(bus.KindState, chat.Snapshot{Room: room})
	}
	b.Emit(bus.KindMessage, model.Message{ID: "m1", RoomID: "r1", Message: "kept", CreatedAt: at(1000)})
	for i := 0; i < 500; i++ {
		b.Emit(bus.KindState, chat.Snapshot{Room: room})
	}
	r.Stop()

	msgs, err := db.ListMessages("r1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Body != "kept" {
		t.Errorf("got %+v, want message kept", msgs)
	}
}

func TestTruncateRunes(t *testing.T) {
	s := strings.Repeat("é", previewLen+5)
	if got := truncate(s, previewLen); len([]rune(got)) != previewLen {
		t.Errorf("truncate kept %d runes, want %d", len([]rune(got)), previewLen)
	}
}
