// Package archive records what the chat controller observes into the local
// SQLite archive, so past conversations stay searchable after the view is
// gone.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/chat"
	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/store"
)

const previewLen = 100

// Recorded is published after a write to the archive.
type Recorded struct {
	RoomID   string
	Messages int
}

// Recorder follows the room, history, message and agent events of the
// chat controller and upserts them.
type Recorder struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}

	roomID string
}

// NewRecorder creates a new archive recorder.
func NewRecorder(db *store.DB, b *bus.Bus, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		db:     db,
		bus:    b,
		logger: logger.Named("archive"),
	}
}

// Start subscribes to controller events on the bus. State snapshots are
// left out: they are published on every change and would crowd the buffer.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	ch, unsub := r.bus.SubscribeKinds(1024,
		bus.KindRoom, bus.KindHistoryLoaded, bus.KindMessage, bus.KindAgentAssigned)

	go func() {
		defer close(r.done)
		for {
			select {
			case evt := <-ch:
				r.handleEvent(evt)
			case <-ctx.Done():
				unsub()
				for len(ch) > 0 {
					r.handleEvent(<-ch)
				}
				return
			}
		}
	}()
}

// Stop stops the recorder once the events already received are written.
func (r *Recorder) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *Recorder) handleEvent(evt bus.Event) {
	switch p := evt.Payload.(type) {
	case model.Room:
		r.roomID = p.ID
		if err := r.db.UpsertRoom(&store.Room{RoomID: p.ID, Status: string(p.Status)}); err != nil {
			r.logger.Error("failed to record room", zap.Error(err), zap.String("room_id", p.ID))
		}

	case chat.HistoryLoaded:
		if err := r.RecordHistory(p.RoomID, p.Messages); err != nil {
			r.logger.Error("failed to record history", zap.Error(err), zap.String("room_id", p.RoomID))
		} else {
			r.logger.Info("history recorded", zap.String("room_id", p.RoomID), zap.Int("messages", len(p.Messages)))
		}

	case model.Message:
		if err := r.RecordMessage(p); err != nil {
			r.logger.Error("failed to record message", zap.Error(err), zap.String("msg_id", p.ID))
		}

	case model.AgentAssigned:
		if r.roomID == "" {
			return
		}
		if err := r.db.UpsertRoom(&store.Room{RoomID: r.roomID, Status: string(model.RoomActive), AgentName: p.AgentName}); err != nil {
			r.logger.Error("failed to record agent", zap.Error(err), zap.String("room_id", r.roomID))
		}
	}
}

// RecordMessage upserts one live message (idempotent).
func (r *Recorder) RecordMessage(m model.Message) error {
	sm := toStore(m, m.RoomID)
	if err := r.db.UpsertRoom(&store.Room{
		RoomID:             sm.RoomID,
		LastMessageAt:      sm.CreatedAt,
		LastMessagePreview: preview(sm),
	}); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}
	if err := r.db.UpsertMessage(&sm); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	r.bus.Emit(bus.KindArchived, Recorded{RoomID: sm.RoomID, Messages: 1})
	return nil
}

// RecordHistory upserts a history page in one transaction.
func (r *Recorder) RecordHistory(roomID string, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	batch := make([]store.Message, 0, len(msgs))
	for _, m := range msgs {
		batch = append(batch, toStore(m, roomID))
	}
	if err := r.db.UpsertMessages(batch); err != nil {
		return err
	}
	last := batch[len(batch)-1]
	if err := r.db.UpsertRoom(&store.Room{
		RoomID:             roomID,
		LastMessageAt:      last.CreatedAt,
		LastMessagePreview: preview(last),
	}); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}
	r.bus.Emit(bus.KindArchived, Recorded{RoomID: roomID, Messages: len(batch)})
	return nil
}

func toStore(m model.Message, roomID string) store.Message {
	if m.RoomID != "" {
		roomID = m.RoomID
	}
	id := m.ID
	if id == "" {
		id = "local-" + uuid.NewString()
	}
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return store.Message{
		RoomID:       roomID,
		MsgID:        id,
		Sender:       m.Sender,
		SenderRole:   string(m.SenderRole),
		SenderName:   m.SenderName,
		SenderAvatar: m.SenderAvatar,
		MessageType:  string(m.MessageType),
		Body:         m.Message,
		ImageURL:     m.ImageURL,
		CreatedAt:    created.UnixMilli(),
	}
}

func preview(m store.Message) string {
	if m.MessageType == string(model.TypeImage) {
		return "[image]"
	}
	return truncate(m.Body, previewLen)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
