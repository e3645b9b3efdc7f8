package models

// Sender identifies which side of the conversation authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// MessageType distinguishes plain text turns from voice turns.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
)

// Message is one immutable turn in a thread. Messages are never edited
// or deleted in place; threads hold them as an append-only log.
type Message struct {
	ID     string `json:"id"`
	Sender Sender `json:"sender"`
	// SenderID is the user's id for user turns, the role's id for AI turns.
	SenderID string      `json:"sender_id"`
	Type     MessageType `json:"type"`
	Content  string      `json:"content"`
	// TS is the creation timestamp (ns)
	TS int64 `json:"ts"`
}
