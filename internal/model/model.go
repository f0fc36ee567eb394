package model

import "time"

// RoomStatus tells whether an agent has been assigned to a room.
type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomActive  RoomStatus = "active"
)

// Role identifies which side of the conversation sent a message.
type Role string

const (
	RoleMerchant Role = "merchant"
	RoleAgent    Role = "agent"
)

// MessageType is the kind of content a message carries.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
)

// Room identifies one merchant-support conversation.
type Room struct {
	ID     string     `json:"roomId"`
	Status RoomStatus `json:"status"`
}

// Message is one chat entry as delivered by the history endpoint and the
// new_message event.
type Message struct {
	ID           string      `json:"_id"`
	RoomID       string      `json:"roomId,omitempty"`
	Sender       string      `json:"sender"`
	SenderRole   Role        `json:"senderRole"`
	SenderName   string      `json:"senderName"`
	SenderAvatar string      `json:"senderAvatar"`
	MessageType  MessageType `json:"messageType"`
	Message      string      `json:"message"`
	ImageURL     string      `json:"imageUrl,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// IsImage reports whether the message carries an image attachment.
func (m Message) IsImage() bool {
	return m.MessageType == TypeImage
}

// FromMerchant reports whether userID (or the merchant side in general) sent m.
func (m Message) FromMerchant(userID string) bool {
	return m.Sender == userID || m.SenderRole == RoleMerchant
}

// FAQEntry is one quick-help question.
type FAQEntry struct {
	ID       string `json:"_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
}

// Identity is the merchant on whose behalf the client talks to support.
type Identity struct {
	UserID   string
	Username string
	Avatar   string
}
