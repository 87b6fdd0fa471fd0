package reply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/models"
	"github.com/leadcontact/outreach/internal/store"
)

type fakeConversations struct {
	conv models.Conversation

	messageCalls   int
	autoReplyCalls int
	recordErr      error
}

// GetOrCreateConversation mirrors the storage contract: creation is
// conditional on the thread id, so a second call with the same thread returns
// the existing row untouched.
func (f *fakeConversations) GetOrCreateConversation(ctx context.Context, threadID string, userID, campaignID, originatingMessageID uuid.UUID, contactEmail string) (models.Conversation, error) {
	if threadID != "" && f.conv.ThreadID == threadID {
		return f.conv, nil
	}
	f.conv = models.Conversation{
		ID:                   uuid.New(),
		UserID:               userID,
		CampaignID:           campaignID,
		OriginatingMessageID: originatingMessageID,
		ContactEmail:         contactEmail,
		ThreadID:             threadID,
		Status:               models.ConversationActive,
		MessageCount:         1,
	}
	return f.conv, nil
}

func (f *fakeConversations) ConversationByThread(ctx context.Context, threadID string) (models.Conversation, error) {
	if threadID != "" && f.conv.ThreadID == threadID {
		return f.conv, nil
	}
	return models.Conversation{}, store.ErrNotFound
}

func (f *fakeConversations) RecordConversationMessage(ctx context.Context, id uuid.UUID, isInbound bool) (models.Conversation, error) {
	if f.recordErr != nil {
		return models.Conversation{}, f.recordErr
	}
	f.messageCalls++
	f.conv.MessageCount++
	if isInbound {
		now := time.Now()
		f.conv.LastReplyAt = &now
	}
	return f.conv, nil
}

func (f *fakeConversations) RecordConversationAutoReply(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	f.autoReplyCalls++
	f.conv.MessageCount++
	f.conv.AutoRepliesSent++
	return f.conv, nil
}

type fakeLedger struct {
	messages  []models.Message
	appendErr error
}

func (f *fakeLedger) MessageExists(ctx context.Context, providerMessageID string) (bool, error) {
	for _, m := range f.messages {
		if m.ProviderMessageID == providerMessageID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) AppendMessage(ctx context.Context, id, conversationID, campaignID uuid.UUID, direction, from, to, subject, body, providerMessageID string, isAutoReply bool, sentAt time.Time) (models.Message, error) {
	if f.appendErr != nil {
		return models.Message{}, f.appendErr
	}
	m := models.Message{
		ID:                id,
		ConversationID:    conversationID,
		CampaignID:        campaignID,
		Direction:         direction,
		FromEmail:         from,
		ToEmail:           to,
		Subject:           subject,
		Body:              body,
		ProviderMessageID: providerMessageID,
		IsAutoReply:       isAutoReply,
		SentAt:            sentAt,
	}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeLedger) MessageHistory(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	return f.messages, nil
}

type fakeCounters struct {
	replies int
	err     error
}

func (f *fakeCounters) IncrementCampaignReplies(ctx context.Context, id uuid.UUID) (models.Campaign, error) {
	if f.err != nil {
		return models.Campaign{}, f.err
	}
	f.replies++
	return models.Campaign{RepliesCount: f.replies}, nil
}

func newTestOrchestrator() (*Orchestrator, *fakeConversations, *fakeLedger, *fakeCounters) {
	conversations := &fakeConversations{conv: models.Conversation{
		ID:           uuid.New(),
		Status:       models.ConversationActive,
		MessageCount: 1,
	}}
	ledger := &fakeLedger{}
	counters := &fakeCounters{}
	return NewOrchestrator(conversations, ledger, counters), conversations, ledger, counters
}

func TestHandleInboundReply(t *testing.T) {
	orch, conversations, ledger, counters := newTestOrchestrator()
	ctx := context.Background()

	conv, err := orch.HandleInboundReply(ctx, conversations.conv.ID, uuid.New(),
		"prov-1", "contact@example.com", "me@example.com", "Re: hello", "sounds good", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ledger.messages) != 1 {
		t.Fatalf("expected 1 ledger message, got %d", len(ledger.messages))
	}
	m := ledger.messages[0]
	if m.Direction != models.DirectionInbound {
		t.Errorf("expected inbound direction, got %q", m.Direction)
	}
	if m.IsAutoReply {
		t.Error("inbound reply must not be flagged as auto-reply")
	}
	if conv.MessageCount != 2 {
		t.Errorf("expected message count 2, got %d", conv.MessageCount)
	}
	if conv.LastReplyAt == nil {
		t.Error("inbound reply must stamp last reply time")
	}
	if counters.replies != 1 {
		t.Errorf("expected campaign replies 1, got %d", counters.replies)
	}
}

// A re-observed message gated on MessageExists never reaches the orchestrator
// a second time, so nothing is double counted.
func TestHandleInboundReplyExistsGate(t *testing.T) {
	orch, conversations, ledger, counters := newTestOrchestrator()
	ctx := context.Background()

	handle := func() {
		exists, err := ledger.MessageExists(ctx, "prov-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exists {
			return
		}
		if _, err := orch.HandleInboundReply(ctx, conversations.conv.ID, uuid.New(),
			"prov-1", "contact@example.com", "me@example.com", "Re: hello", "ok", time.Now()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	handle()
	handle()

	if len(ledger.messages) != 1 {
		t.Errorf("expected 1 ledger message after duplicate event, got %d", len(ledger.messages))
	}
	if conversations.conv.MessageCount != 2 {
		t.Errorf("expected message count 2 after duplicate event, got %d", conversations.conv.MessageCount)
	}
	if counters.replies != 1 {
		t.Errorf("expected campaign replies 1 after duplicate event, got %d", counters.replies)
	}
}

func TestHandleInboundReplyAppendFailure(t *testing.T) {
	orch, conversations, ledger, counters := newTestOrchestrator()
	ledger.appendErr = errors.New("connection reset")

	_, err := orch.HandleInboundReply(context.Background(), conversations.conv.ID, uuid.New(),
		"prov-1", "a@b.c", "d@e.f", "s", "b", time.Now())
	if err == nil {
		t.Fatal("expected error from ledger append")
	}
	if conversations.messageCalls != 0 {
		t.Errorf("conversation must not be updated when append fails, got %d calls", conversations.messageCalls)
	}
	if counters.replies != 0 {
		t.Errorf("campaign counter must not move when append fails, got %d", counters.replies)
	}
}

// Partial completion surfaces the error but does not roll back the appended
// message.
func TestHandleInboundReplyCounterFailure(t *testing.T) {
	orch, conversations, ledger, counters := newTestOrchestrator()
	counters.err = errors.New("connection reset")

	_, err := orch.HandleInboundReply(context.Background(), conversations.conv.ID, uuid.New(),
		"prov-1", "a@b.c", "d@e.f", "s", "b", time.Now())
	if err == nil {
		t.Fatal("expected error from counter increment")
	}
	if len(ledger.messages) != 1 {
		t.Errorf("appended message must survive a later failure, got %d messages", len(ledger.messages))
	}
}

func TestRecordAutoReplySent(t *testing.T) {
	orch, conversations, ledger, _ := newTestOrchestrator()

	conv, err := orch.RecordAutoReplySent(context.Background(), conversations.conv.ID, uuid.New(),
		"prov-2", "me@example.com", "contact@example.com", "Re: hello", "thanks!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ledger.messages) != 1 {
		t.Fatalf("expected 1 ledger message, got %d", len(ledger.messages))
	}
	m := ledger.messages[0]
	if m.Direction != models.DirectionOutbound {
		t.Errorf("expected outbound direction, got %q", m.Direction)
	}
	if !m.IsAutoReply {
		t.Error("auto-reply must be flagged")
	}
	if conv.AutoRepliesSent != 1 {
		t.Errorf("expected auto replies sent 1, got %d", conv.AutoRepliesSent)
	}

	// N commits yield a count of N.
	for i := 2; i <= 4; i++ {
		conv, err = orch.RecordAutoReplySent(context.Background(), conversations.conv.ID, uuid.New(),
			fmt.Sprintf("prov-%d", i+1), "me@example.com", "contact@example.com", "Re: hello", "thanks!")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conv.AutoRepliesSent != i {
			t.Errorf("after %d commits expected count %d, got %d", i, i, conv.AutoRepliesSent)
		}
	}
}

// The first outbound send on a thread creates the conversation, and the
// conversation's originating message reference is the id of the message
// actually appended to the ledger.
func TestRecordOutboundSendCreatesConversation(t *testing.T) {
	conversations := &fakeConversations{}
	ledger := &fakeLedger{}
	orch := NewOrchestrator(conversations, ledger, &fakeCounters{})
	ctx := context.Background()
	userID, campaignID := uuid.New(), uuid.New()

	conv, msg, created, err := orch.RecordOutboundSend(ctx, userID, campaignID,
		"thread-1", "prov-out-1", "me@example.com", "contact@example.com", "Hello", "intro", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("first send on a thread must create the conversation")
	}
	if conv.OriginatingMessageID != msg.ID {
		t.Errorf("originating message reference %s does not match appended message %s",
			conv.OriginatingMessageID, msg.ID)
	}
	if len(ledger.messages) != 1 || ledger.messages[0].ID != msg.ID {
		t.Fatalf("appended message not in ledger under its own id")
	}
	if ledger.messages[0].Direction != models.DirectionOutbound {
		t.Errorf("expected outbound direction, got %q", ledger.messages[0].Direction)
	}
	if conv.MessageCount != 1 {
		t.Errorf("new conversation starts at message count 1, got %d", conv.MessageCount)
	}

	// A later send on the same thread reuses the conversation and only bumps
	// its counters.
	conv2, _, created2, err := orch.RecordOutboundSend(ctx, userID, campaignID,
		"thread-1", "prov-out-2", "me@example.com", "contact@example.com", "Hello again", "follow-up", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created2 {
		t.Error("second send on the same thread must not report created")
	}
	if conv2.ID != conv.ID {
		t.Errorf("second send switched conversations: %s vs %s", conv2.ID, conv.ID)
	}
	if conv2.MessageCount != 2 {
		t.Errorf("expected message count 2 after second send, got %d", conv2.MessageCount)
	}
	if conv2.OriginatingMessageID != msg.ID {
		t.Errorf("originating message reference changed to %s", conv2.OriginatingMessageID)
	}
}

// Conditional create keyed on the thread id: a second call returns the same
// conversation identity and never bumps the initial message count.
func TestGetOrCreateConversationIdempotent(t *testing.T) {
	conversations := &fakeConversations{}
	ctx := context.Background()
	userID, campaignID := uuid.New(), uuid.New()

	first, err := conversations.GetOrCreateConversation(ctx, "thread-9", userID, campaignID, uuid.New(), "contact@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := conversations.GetOrCreateConversation(ctx, "thread-9", userID, campaignID, uuid.New(), "contact@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("same thread produced two conversations: %s vs %s", first.ID, second.ID)
	}
	if second.MessageCount != 1 {
		t.Errorf("repeat call must not bump message count, got %d", second.MessageCount)
	}
	if second.OriginatingMessageID != first.OriginatingMessageID {
		t.Error("repeat call must not replace the originating message reference")
	}
}

func TestReplyContextTruncation(t *testing.T) {
	orch, conversations, ledger, _ := newTestOrchestrator()
	ctx := context.Background()

	long := strings.Repeat("x", maxContextBody+500)
	for i := 0; i < maxContextMessages+5; i++ {
		if _, err := ledger.AppendMessage(ctx, uuid.New(), conversations.conv.ID, uuid.New(),
			models.DirectionInbound, "a@b.c", "d@e.f",
			fmt.Sprintf("subject %d", i), long, fmt.Sprintf("prov-%d", i), false, time.Now()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := orch.ReplyContext(ctx, conversations.conv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(history) != maxContextMessages {
		t.Fatalf("expected %d messages, got %d", maxContextMessages, len(history))
	}
	// Most recent messages are kept, oldest first.
	if history[0].Subject != "subject 5" {
		t.Errorf("expected truncation to keep the tail, first subject %q", history[0].Subject)
	}
	for i, m := range history {
		if len(m.Body) != maxContextBody {
			t.Errorf("message %d body not capped: %d chars", i, len(m.Body))
		}
	}
	// The ledger itself is untouched.
	if len(ledger.messages[0].Body) != maxContextBody+500 {
		t.Error("truncation must not mutate stored messages")
	}
}
