package reply

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/models"
	"github.com/leadcontact/outreach/internal/store"
)

// History truncation bounds for building AI generation context. The ledger
// itself imposes no limit; truncation happens here.
const (
	maxContextMessages = 10
	maxContextBody     = 2000
)

// Conversations is the per-thread state the orchestrator mutates.
type Conversations interface {
	GetOrCreateConversation(ctx context.Context, threadID string, userID, campaignID, originatingMessageID uuid.UUID, contactEmail string) (models.Conversation, error)
	ConversationByThread(ctx context.Context, threadID string) (models.Conversation, error)
	RecordConversationMessage(ctx context.Context, id uuid.UUID, isInbound bool) (models.Conversation, error)
	RecordConversationAutoReply(ctx context.Context, id uuid.UUID) (models.Conversation, error)
}

// Ledger is the append-only message history and deduplication authority.
type Ledger interface {
	MessageExists(ctx context.Context, providerMessageID string) (bool, error)
	AppendMessage(ctx context.Context, id, conversationID, campaignID uuid.UUID, direction, from, to, subject, body, providerMessageID string, isAutoReply bool, sentAt time.Time) (models.Message, error)
	MessageHistory(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
}

// Counters is the campaign-level reply counter.
type Counters interface {
	IncrementCampaignReplies(ctx context.Context, id uuid.UUID) (models.Campaign, error)
}

// Orchestrator records the two halves of the auto-reply loop: an inbound
// reply arriving, and a generated reply having been transmitted. Generating
// and sending the reply body happens outside, between the two calls.
type Orchestrator struct {
	conversations Conversations
	ledger        Ledger
	counters      Counters
}

func NewOrchestrator(conversations Conversations, ledger Ledger, counters Counters) *Orchestrator {
	return &Orchestrator{
		conversations: conversations,
		ledger:        ledger,
		counters:      counters,
	}
}

// HandleInboundReply records one inbound message: appends it to the ledger,
// bumps the conversation counters, and increments the campaign replies count.
// The caller is expected to have deduplicated via MessageExists first.
//
// There is no cross-entity transaction: if a later step fails after an
// earlier one committed, the inconsistency is logged and surfaced, not rolled
// back; a reconciliation read recovers it.
func (o *Orchestrator) HandleInboundReply(ctx context.Context, conversationID, campaignID uuid.UUID, providerMessageID, fromEmail, toEmail, subject, body string, repliedAt time.Time) (models.Conversation, error) {
	if _, err := o.ledger.AppendMessage(ctx, uuid.New(), conversationID, campaignID,
		models.DirectionInbound, fromEmail, toEmail, subject, body,
		providerMessageID, false, repliedAt); err != nil {
		return models.Conversation{}, err
	}

	conv, err := o.conversations.RecordConversationMessage(ctx, conversationID, true)
	if err != nil {
		log.Printf("Inbound message %s appended but conversation %s not updated: %v",
			providerMessageID, conversationID, err)
		return models.Conversation{}, err
	}

	if _, err := o.counters.IncrementCampaignReplies(ctx, campaignID); err != nil {
		log.Printf("Inbound message %s recorded but campaign %s replies count not updated: %v",
			providerMessageID, campaignID, err)
		return conv, err
	}

	return conv, nil
}

// RecordAutoReplySent commits a transmitted auto-reply: appends the outbound
// message and bumps the conversation's auto-reply counter. Callers must only
// invoke this after the send was confirmed; a failed send is never recorded.
func (o *Orchestrator) RecordAutoReplySent(ctx context.Context, conversationID, campaignID uuid.UUID, providerMessageID, fromEmail, toEmail, subject, body string) (models.Conversation, error) {
	if _, err := o.ledger.AppendMessage(ctx, uuid.New(), conversationID, campaignID,
		models.DirectionOutbound, fromEmail, toEmail, subject, body,
		providerMessageID, true, time.Now().UTC()); err != nil {
		return models.Conversation{}, err
	}

	conv, err := o.conversations.RecordConversationAutoReply(ctx, conversationID)
	if err != nil {
		log.Printf("Auto-reply %s appended but conversation %s not updated: %v",
			providerMessageID, conversationID, err)
		return models.Conversation{}, err
	}

	return conv, nil
}

// RecordOutboundSend logs one confirmed outbound send from the bulk-send job.
// The first send carrying a thread id creates the conversation, and the
// appended message's id doubles as that conversation's originating message
// reference, so the reference always resolves to a ledger row. Later sends on
// the same thread only bump its counters. The returned bool reports whether
// the conversation was created by this call; the created check is
// check-then-act and a racing recorder may under-report it.
func (o *Orchestrator) RecordOutboundSend(ctx context.Context, userID, campaignID uuid.UUID, threadID, providerMessageID, fromEmail, toEmail, subject, body string, sentAt time.Time) (models.Conversation, models.Message, bool, error) {
	_, err := o.conversations.ConversationByThread(ctx, threadID)
	created := errors.Is(err, store.ErrNotFound)
	if err != nil && !created {
		return models.Conversation{}, models.Message{}, false, err
	}

	messageID := uuid.New()
	conv, err := o.conversations.GetOrCreateConversation(ctx, threadID, userID, campaignID, messageID, toEmail)
	if err != nil {
		return models.Conversation{}, models.Message{}, false, err
	}

	if !created {
		if conv, err = o.conversations.RecordConversationMessage(ctx, conv.ID, false); err != nil {
			return models.Conversation{}, models.Message{}, false, err
		}
	}

	msg, err := o.ledger.AppendMessage(ctx, messageID, conv.ID, campaignID,
		models.DirectionOutbound, fromEmail, toEmail, subject, body,
		providerMessageID, false, sentAt)
	if err != nil {
		log.Printf("Outbound send %s updated conversation %s but was not appended: %v",
			providerMessageID, conv.ID, err)
		return conv, models.Message{}, created, err
	}

	return conv, msg, created, nil
}

// ReplyContext returns the conversation history truncated for the generation
// service: the most recent messages, oldest first, with bodies capped.
func (o *Orchestrator) ReplyContext(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	history, err := o.ledger.MessageHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if len(history) > maxContextMessages {
		history = history[len(history)-maxContextMessages:]
	}

	out := make([]models.Message, len(history))
	for i, m := range history {
		if len(m.Body) > maxContextBody {
			m.Body = m.Body[:maxContextBody]
		}
		out[i] = m
	}
	return out, nil
}
