package model

// Real-time event names exchanged with the support server.
const (
	EventUserOnline  = "user_online"
	EventJoinRoom    = "join_room"
	EventMarkRead    = "mark_read"
	EventSendMessage = "send_message"
	EventTyping      = "typing"

	EventNewMessage      = "new_message"
	EventTypingIndicator = "typing_indicator"
	EventAgentAssigned   = "agent_assigned"
)

// Presence announces the user as online.
type Presence struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// RoomRef addresses a room in join_room and mark_read.
type RoomRef struct {
	RoomID string `json:"roomId"`
}

// OutgoingMessage is the send_message payload.
type OutgoingMessage struct {
	RoomID       string      `json:"roomId"`
	Message      string      `json:"message"`
	MessageType  MessageType `json:"messageType"`
	ImageURL     string      `json:"imageUrl,omitempty"`
	SenderName   string      `json:"senderName"`
	SenderAvatar string      `json:"senderAvatar"`
}

// Typing is the outbound typing payload.
type Typing struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// TypingIndicator is the inbound typing payload.
type TypingIndicator struct {
	IsTyping bool `json:"isTyping"`
}

// AgentAssigned is sent once an agent picks up the room.
type AgentAssigned struct {
	AgentName string `json:"agentName"`
}
