package model

import "time"

// ConversationType is the audience of a conversation.
type ConversationType string

const (
	ConversationAdminTeam ConversationType = "ADMIN_TEAM"
	ConversationStudent   ConversationType = "STUDENT"
)

// MaxMessageFiles is the number of attachments one message may carry.
const MaxMessageFiles = 3

// Conversation is a message thread scoped to one application and one audience.
type Conversation struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"applicationId"`
	Type          ConversationType `json:"type"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Sender is the author of a message.
type Sender struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Message is an append-only entry in a conversation.
type Message struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	Content        string       `json:"content,omitempty"`
	Files          []StoredFile `json:"files"`
	Sender         Sender       `json:"sender"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// SendMessageRequest posts a message with files that were already uploaded.
type SendMessageRequest struct {
	Content string       `json:"content" binding:"omitempty,max=5000"`
	Files   []StoredFile `json:"files" binding:"omitempty,max=3,dive"`
}
