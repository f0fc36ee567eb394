package chat

import (
	"go.uber.org/zap"

	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/metrics"
	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/realtime"
)

// handle dispatches one inbound event. Runs on the loop.
func (c *Controller) handle(env realtime.Envelope) {
	switch env.Event {
	case model.EventNewMessage:
		var m model.Message
		if err := env.Bind(&m); err != nil {
			c.log.Warn("dropping malformed message", zap.Error(err))
			return
		}
		c.appendMessage(m)

	case model.EventTypingIndicator:
		var ti model.TypingIndicator
		if err := env.Bind(&ti); err != nil {
			c.log.Warn("dropping malformed typing indicator", zap.Error(err))
			return
		}
		if c.agentTyping != ti.IsTyping {
			c.agentTyping = ti.IsTyping
			c.publish()
		}

	case model.EventAgentAssigned:
		var aa model.AgentAssigned
		if err := env.Bind(&aa); err != nil {
			c.log.Warn("dropping malformed agent assignment", zap.Error(err))
			return
		}
		c.log.Info("agent assigned", zap.String("agent", aa.AgentName))
		c.bus.Emit(bus.KindAgentAssigned, aa)
		c.notify(NoticeInfo, aa.AgentName+" joined the chat!")

	default:
		c.log.Debug("ignoring event", zap.String("event", env.Event))
	}
}

// appendMessage adds m to the sequence and marks the room read. A message
// whose id is already present is still appended; the duplicate is logged.
func (c *Controller) appendMessage(m model.Message) {
	if m.RoomID == "" && c.room != nil {
		m.RoomID = c.room.ID
	}
	if _, dup := c.seen[m.ID]; dup && m.ID != "" {
		c.log.Warn("message id already in sequence", zap.String("msg_id", m.ID))
	}
	c.seen[m.ID] = struct{}{}
	c.msgs = append(c.msgs, m)
	metrics.MessagesReceived.Inc()

	c.markRead()
	c.publish()
	c.bus.Emit(bus.KindMessage, m)
}

func (c *Controller) markRead() {
	if c.room == nil {
		return
	}
	if c.emit(model.EventMarkRead, model.RoomRef{RoomID: c.room.ID}) {
		metrics.ReadMarks.Inc()
	}
}
