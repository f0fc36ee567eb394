package bus

import "time"

// Event kinds. Subscribers filter by prefix, so "chat." receives every
// controller event and "conn." only connection lifecycle changes.
const (
	KindState         = "chat.state"
	KindRoom          = "chat.room"
	KindHistoryLoaded = "chat.history_loaded"
	KindMessage       = "chat.message"
	KindNotice        = "chat.notice"
	KindAgentAssigned = "chat.agent_assigned"
	KindConnStatus    = "conn.status_changed"
	KindArchived      = "archive.recorded"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
