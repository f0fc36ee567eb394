package fakedesk

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/realtime"
)

// room is guarded by Server.mu.
type room struct {
	id       string
	owner    string
	status   model.RoomStatus
	agent    string
	messages []model.Message
	members  map[*realtime.Conn]struct{}
	reads    int
}

func (r *room) info() model.Room {
	return model.Room{ID: r.id, Status: r.status}
}

func (r *room) history() []model.Message {
	return slices.Clone(r.messages)
}

// roomFor returns the merchant's room, creating a waiting one on first use.
func (s *Server) roomFor(userID string) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byUser[userID]; ok {
		return s.rooms[id]
	}
	rm := &room{
		id:      "room-" + uuid.NewString(),
		owner:   userID,
		status:  model.RoomWaiting,
		members: make(map[*realtime.Conn]struct{}),
	}
	s.rooms[rm.id] = rm
	s.byUser[userID] = rm.id
	s.log.Info("room created", zap.String("room_id", rm.id), zap.String("user_id", userID))
	return rm
}

func (s *Server) lookupRoom(id string) (*room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[id]
	return rm, ok
}

// RoomOf returns the id of the merchant's room, if one exists.
func (s *Server) RoomOf(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUser[userID]
	return id, ok
}

// Messages returns a copy of a room's transcript.
func (s *Server) Messages(roomID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm, ok := s.rooms[roomID]; ok {
		return rm.history()
	}
	return nil
}

// Reads returns how many mark_read events a room has received.
func (s *Server) Reads(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm, ok := s.rooms[roomID]; ok {
		return rm.reads
	}
	return 0
}

// Seed appends a message to a room's history without broadcasting it.
func (s *Server) Seed(userID string, m model.Message) model.Message {
	rm := s.roomFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	m = stamp(rm.id, m)
	rm.messages = append(rm.messages, m)
	return m
}

// Assign marks a room active and tells its members who picked it up.
func (s *Server) Assign(roomID, agentName string) {
	s.mu.Lock()
	rm, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	rm.status = model.RoomActive
	rm.agent = agentName
	members := s.membersLocked(rm)
	s.mu.Unlock()

	s.log.Info("agent assigned", zap.String("room_id", roomID), zap.String("agent", agentName))
	broadcast(members, model.EventAgentAssigned, model.AgentAssigned{AgentName: agentName})
}

// AgentTyping broadcasts the agent's typing state to a room.
func (s *Server) AgentTyping(roomID string, typing bool) {
	s.mu.Lock()
	rm, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	members := s.membersLocked(rm)
	s.mu.Unlock()

	broadcast(members, model.EventTypingIndicator, model.TypingIndicator{IsTyping: typing})
}

// AgentSay posts a text message from the assigned agent.
func (s *Server) AgentSay(roomID, text string) {
	s.mu.Lock()
	rm, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	name := rm.agent
	if name == "" {
		name = s.opts.AgentName
	}
	s.mu.Unlock()

	s.post(roomID, model.Message{
		Sender:      "agent-" + name,
		SenderRole:  model.RoleAgent,
		SenderName:  name,
		MessageType: model.TypeText,
		Message:     text,
	})
}

// post stores m and fans it out to every member as new_message.
func (s *Server) post(roomID string, m model.Message) (model.Message, bool) {
	s.mu.Lock()
	rm, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return model.Message{}, false
	}
	m = stamp(roomID, m)
	rm.messages = append(rm.messages, m)
	members := s.membersLocked(rm)
	s.mu.Unlock()

	broadcast(members, model.EventNewMessage, m)
	return m, true
}

func (s *Server) membersLocked(rm *room) []*realtime.Conn {
	out := make([]*realtime.Conn, 0, len(rm.members))
	for c := range rm.members {
		out = append(out, c)
	}
	return out
}

func broadcast(members []*realtime.Conn, event string, payload any) {
	for _, c := range members {
		_ = c.Emit(event, payload)
	}
}

func stamp(roomID string, m model.Message) model.Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.RoomID = roomID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.MessageType == "" {
		m.MessageType = model.TypeText
	}
	return m
}
