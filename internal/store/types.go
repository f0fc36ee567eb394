package store

// Room is an archived support room.
type Room struct {
	RoomID             string
	Status             string
	AgentName          string
	LastMessageAt      int64
	LastMessagePreview string
}

// Message is an archived chat message. Timestamps are unix milliseconds.
type Message struct {
	ID           int64
	RoomID       string
	MsgID        string
	Sender       string
	SenderRole   string
	SenderName   string
	SenderAvatar string
	MessageType  string
	Body         string
	ImageURL     string
	CreatedAt    int64
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
