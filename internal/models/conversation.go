package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation statuses. Closed is terminal; no auto-replies go out on a
// conversation that is not active.
const (
	ConversationActive = "active"
	ConversationPaused = "paused"
	ConversationClosed = "closed"
)

// Message directions.
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Conversation is one row per mail-provider thread. ThreadID is the natural
// unique key; creation is conditional so concurrent recorders cannot
// duplicate a thread.
type Conversation struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	UserID               uuid.UUID  `json:"user_id" db:"user_id"`
	CampaignID           uuid.UUID  `json:"campaign_id" db:"campaign_id"`
	OriginatingMessageID uuid.UUID  `json:"originating_message_id" db:"originating_message_id"`
	ContactEmail         string     `json:"contact_email" db:"contact_email"`
	ThreadID             string     `json:"thread_id" db:"thread_id"`
	Status               string     `json:"status" db:"status"`
	MessageCount         int        `json:"message_count" db:"message_count"`
	AutoRepliesSent      int        `json:"auto_replies_sent" db:"auto_replies_sent"`
	LastMessageAt        *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	LastReplyAt          *time.Time `json:"last_reply_at,omitempty" db:"last_reply_at"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// Message is one email transmitted or received within a conversation.
// ProviderMessageID is globally unique and is the deduplication key for
// inbound processing. Rows are append-only and immutable.
type Message struct {
	ID                uuid.UUID `json:"id" db:"id"`
	ConversationID    uuid.UUID `json:"conversation_id" db:"conversation_id"`
	CampaignID        uuid.UUID `json:"campaign_id" db:"campaign_id"`
	Direction         string    `json:"direction" db:"direction"`
	FromEmail         string    `json:"from_email" db:"from_email"`
	ToEmail           string    `json:"to_email" db:"to_email"`
	Subject           string    `json:"subject" db:"subject"`
	Body              string    `json:"body" db:"body"`
	ProviderMessageID string    `json:"provider_message_id" db:"provider_message_id"`
	IsAutoReply       bool      `json:"is_auto_reply" db:"is_auto_reply"`
	SentAt            time.Time `json:"sent_at" db:"sent_at"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// ProviderMessage is an email as returned by a mail provider's API, before it
// is recorded in a conversation.
type ProviderMessage struct {
	MessageID  string    `json:"message_id"`
	ThreadID   string    `json:"thread_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet"`
	Body       string    `json:"body,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
