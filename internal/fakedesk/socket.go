package fakedesk

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/realtime"
)

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if s.blacklisted(claims.ID) {
		writeError(w, http.StatusForbidden, "You are blacklisted from chat")
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	conn := realtime.Accept(ws, s.log.With(zap.String("user_id", claims.ID)))
	go s.serveConn(claims, conn)
}

func (s *Server) serveConn(claims *Claims, conn *realtime.Conn) {
	log := s.log.With(zap.String("user_id", claims.ID))
	log.Info("socket connected")
	defer func() {
		s.leaveAll(conn)
		_ = conn.Close()
		log.Info("socket disconnected")
	}()

	for env := range conn.Events() {
		s.mu.Lock()
		s.inbound = append(s.inbound, Inbound{UserID: claims.ID, Envelope: env})
		s.mu.Unlock()

		if err := s.dispatch(claims, conn, env); err != nil {
			log.Warn("event rejected", zap.String("event", env.Event), zap.Error(err))
		}
	}
}

func (s *Server) dispatch(claims *Claims, conn *realtime.Conn, env realtime.Envelope) error {
	switch env.Event {
	case model.EventUserOnline:
		var p model.Presence
		return env.Bind(&p)

	case model.EventJoinRoom:
		var ref model.RoomRef
		if err := env.Bind(&ref); err != nil {
			return err
		}
		s.join(claims.ID, ref.RoomID, conn)
		return nil

	case model.EventMarkRead:
		var ref model.RoomRef
		if err := env.Bind(&ref); err != nil {
			return err
		}
		s.mu.Lock()
		if rm, ok := s.rooms[ref.RoomID]; ok && rm.owner == claims.ID {
			rm.reads++
		}
		s.mu.Unlock()
		return nil

	case model.EventTyping:
		var t model.Typing
		return env.Bind(&t)

	case model.EventSendMessage:
		var out model.OutgoingMessage
		if err := env.Bind(&out); err != nil {
			return err
		}
		s.receive(claims, out)
		return nil

	default:
		s.log.Debug("ignoring event", zap.String("event", env.Event))
		return nil
	}
}

func (s *Server) join(userID, roomID string, conn *realtime.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.rooms[roomID]
	if !ok || rm.owner != userID {
		s.log.Warn("join refused", zap.String("room_id", roomID), zap.String("user_id", userID))
		return
	}
	rm.members[conn] = struct{}{}
}

func (s *Server) leaveAll(conn *realtime.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rm := range s.rooms {
		delete(rm.members, conn)
	}
}

func (s *Server) receive(claims *Claims, out model.OutgoingMessage) {
	rm, ok := s.lookupRoom(out.RoomID)
	if !ok || rm.owner != claims.ID {
		s.log.Warn("message for foreign room dropped", zap.String("room_id", out.RoomID))
		return
	}

	msg, ok := s.post(out.RoomID, model.Message{
		Sender:       claims.ID,
		SenderRole:   model.RoleMerchant,
		SenderName:   out.SenderName,
		SenderAvatar: out.SenderAvatar,
		MessageType:  out.MessageType,
		Message:      out.Message,
		ImageURL:     out.ImageURL,
	})
	if !ok || !s.opts.Echo {
		return
	}
	go s.echo(out.RoomID, msg)
}

// echo plays the support agent: pick up a waiting room, show typing, answer.
func (s *Server) echo(roomID string, m model.Message) {
	s.mu.Lock()
	rm := s.rooms[roomID]
	waiting := rm.status == model.RoomWaiting
	s.mu.Unlock()

	if waiting {
		s.Assign(roomID, s.opts.AgentName)
	}

	s.AgentTyping(roomID, true)
	time.Sleep(s.opts.EchoDelay)
	s.AgentTyping(roomID, false)

	reply := "Echo: " + m.Message
	if m.IsImage() {
		reply = "Thanks, we received your image."
	}
	s.AgentSay(roomID, reply)
}
