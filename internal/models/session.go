package models

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the client transcript.
type ChatMessage struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"createdAt"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// MessageMetadata carries optional backend details attached to an answer.
type MessageMetadata struct {
	SQLQuery      any             `json:"sql_query,omitempty"`
	ExecutionTime any             `json:"execution_time,omitempty"`
	AffectedRows  any             `json:"affected_rows,omitempty"`
	RawResponse   json.RawMessage `json:"raw_response,omitempty"`
	Error         bool            `json:"error,omitempty"`
}

// ChatResponse is the envelope returned by POST /api/ask/:endpoint.
type ChatResponse struct {
	ID              string           `json:"id"`
	ConversationID  string           `json:"conversationId,omitempty"`
	ParentMessageID string           `json:"parentMessageId,omitempty"`
	Role            Role             `json:"role"`
	Content         string           `json:"content"`
	Model           string           `json:"model,omitempty"`
	FinishReason    string           `json:"finish_reason,omitempty"`
	Metadata        *MessageMetadata `json:"metadata,omitempty"`
	Error           bool             `json:"error,omitempty"`
	Success         *bool            `json:"success,omitempty"`
	Message         string           `json:"message,omitempty"`
}

// ChatRequest is the body the client sends to the ask route.
type ChatRequest struct {
	Text            string `json:"text"`
	ConversationID  string `json:"conversationId,omitempty"`
	ParentMessageID string `json:"parentMessageId,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`
}
