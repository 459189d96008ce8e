// Package chat holds the client-side conversation with the assistant.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sma-monitor/dashboard/internal/models"
)

// Transcript is an append-only list of chat messages plus the conversation
// linkage returned by the proxy. Messages are never edited once appended.
type Transcript struct {
	mu              sync.RWMutex
	messages        []models.ChatMessage
	conversationID  string
	parentMessageID string
	now             func() time.Time
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// AppendUser records a message typed by the user.
func (t *Transcript) AppendUser(content string) models.ChatMessage {
	return t.append(models.RoleUser, content, nil)
}

// AppendAssistant records an answer. meta may be nil.
func (t *Transcript) AppendAssistant(content string, meta *models.MessageMetadata) models.ChatMessage {
	return t.append(models.RoleAssistant, content, meta)
}

// AppendError records an assistant message describing a failure.
func (t *Transcript) AppendError(content string) models.ChatMessage {
	return t.append(models.RoleAssistant, content, &models.MessageMetadata{Error: true})
}

func (t *Transcript) append(role models.Role, content string, meta *models.MessageMetadata) models.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: t.now(),
		Metadata:  meta,
	}
	t.messages = append(t.messages, msg)
	return msg
}

// Link stores the ids to send with the next message.
func (t *Transcript) Link(conversationID, parentMessageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if conversationID != "" {
		t.conversationID = conversationID
	}
	if parentMessageID != "" {
		t.parentMessageID = parentMessageID
	}
}

// Conversation returns the current conversation and parent message ids.
func (t *Transcript) Conversation() (conversationID, parentMessageID string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conversationID, t.parentMessageID
}

// Messages returns a copy of the transcript in order.
func (t *Transcript) Messages() []models.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
