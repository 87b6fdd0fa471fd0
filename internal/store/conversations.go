package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/leadcontact/outreach/internal/models"
)

const conversationColumns = `
	id, user_id, campaign_id, originating_message_id, contact_email, thread_id,
	status, message_count, auto_replies_sent, last_message_at, last_reply_at,
	created_at, updated_at
`

func scanConversation(row pgx.Row) (models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(
		&c.ID, &c.UserID, &c.CampaignID, &c.OriginatingMessageID, &c.ContactEmail, &c.ThreadID,
		&c.Status, &c.MessageCount, &c.AutoRepliesSent, &c.LastMessageAt, &c.LastReplyAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Conversation{}, ErrNotFound
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("failed to scan conversation: %w", err)
	}
	return c, nil
}

// GetOrCreateConversation returns the conversation for threadID, creating it
// if absent. The insert is conditional on the thread_id unique constraint, so
// two concurrent recorders of the same thread converge on one row and neither
// bumps message_count past the initial 1.
func (s *Store) GetOrCreateConversation(ctx context.Context, threadID string, userID, campaignID, originatingMessageID uuid.UUID, contactEmail string) (models.Conversation, error) {
	insert := `
		INSERT INTO conversations
		    (id, user_id, campaign_id, originating_message_id, contact_email, thread_id, status, message_count, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'active', 1, now())
		ON CONFLICT (thread_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, insert, uuid.New(), userID, campaignID, originatingMessageID, contactEmail, threadID); err != nil {
		return models.Conversation{}, fmt.Errorf("failed to create conversation: %w", err)
	}

	return s.ConversationByThread(ctx, threadID)
}

// ConversationByThread returns the conversation for a provider thread id.
func (s *Store) ConversationByThread(ctx context.Context, threadID string) (models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE thread_id = $1`
	return scanConversation(s.pool.QueryRow(ctx, query, threadID))
}

// Conversation returns one conversation by id, or ErrNotFound.
func (s *Store) Conversation(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return scanConversation(s.pool.QueryRow(ctx, query, id))
}

// ConversationsByCampaign lists a campaign's conversations, most recently
// active first.
func (s *Store) ConversationsByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations
		WHERE campaign_id = $1 ORDER BY last_message_at DESC NULLS LAST`

	rows, err := s.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// RecordConversationMessage bumps message_count and stamps last_message_at.
// Inbound messages also stamp last_reply_at.
func (s *Store) RecordConversationMessage(ctx context.Context, id uuid.UUID, isInbound bool) (models.Conversation, error) {
	query := `
		UPDATE conversations SET
		    message_count = message_count + 1,
		    last_message_at = now(),
		    last_reply_at = CASE WHEN $2 THEN now() ELSE last_reply_at END,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + conversationColumns

	return scanConversation(s.pool.QueryRow(ctx, query, id, isInbound))
}

// RecordConversationAutoReply bumps both message_count and auto_replies_sent.
func (s *Store) RecordConversationAutoReply(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	query := `
		UPDATE conversations SET
		    message_count = message_count + 1,
		    auto_replies_sent = auto_replies_sent + 1,
		    last_message_at = now(),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + conversationColumns

	return scanConversation(s.pool.QueryRow(ctx, query, id))
}

// SetConversationStatus applies an explicit transition. Closed is terminal;
// the guard refuses to move a closed conversation anywhere else.
func (s *Store) SetConversationStatus(ctx context.Context, id uuid.UUID, status string) (models.Conversation, error) {
	query := `
		UPDATE conversations SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> 'closed'
		RETURNING ` + conversationColumns

	return scanConversation(s.pool.QueryRow(ctx, query, id, status))
}
