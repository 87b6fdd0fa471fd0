package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store is the single Postgres adapter behind the per-entity capability
// interfaces consumed by the token, reply and campaign packages. All updates
// are single-row and atomic; there are no multi-row transactions, so callers
// must tolerate partial completion across entities.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS users (
	    id UUID PRIMARY KEY,
	    email VARCHAR(255) NOT NULL UNIQUE,
	    name VARCHAR(255) NOT NULL DEFAULT '',
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS provider_tokens (
	    id UUID PRIMARY KEY,
	    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	    provider VARCHAR(32) NOT NULL,
	    access_token TEXT NOT NULL,
	    refresh_token TEXT NOT NULL DEFAULT '',
	    expiry TIMESTAMP WITH TIME ZONE NOT NULL,
	    scope TEXT[] NOT NULL DEFAULT '{}',
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	    UNIQUE (user_id, provider)
	);

	CREATE TABLE IF NOT EXISTS campaigns (
	    id UUID PRIMARY KEY,
	    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	    name VARCHAR(255) NOT NULL,
	    contact_source TEXT NOT NULL DEFAULT '',
	    template_id VARCHAR(64) NOT NULL DEFAULT '',
	    prompt_id VARCHAR(64) NOT NULL DEFAULT '',
	    status VARCHAR(16) NOT NULL DEFAULT 'queued',
	    total_contacts INT NOT NULL DEFAULT 0,
	    processed INT NOT NULL DEFAULT 0,
	    sent INT NOT NULL DEFAULT 0,
	    failed INT NOT NULL DEFAULT 0,
	    job_run_id VARCHAR(64) NOT NULL DEFAULT '',
	    error_message TEXT NOT NULL DEFAULT '',
	    auto_reply_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	    auto_reply_subject TEXT NOT NULL DEFAULT 'Re: {{original_subject}}',
	    auto_reply_body TEXT NOT NULL DEFAULT 'Thank you for your reply!',
	    max_replies_per_thread INT NOT NULL DEFAULT 3,
	    replies_count INT NOT NULL DEFAULT 0,
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	    started_at TIMESTAMP WITH TIME ZONE,
	    completed_at TIMESTAMP WITH TIME ZONE,
	    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_campaigns_user_id ON campaigns(user_id);
	CREATE INDEX IF NOT EXISTS idx_campaigns_auto_reply
	    ON campaigns(auto_reply_enabled) WHERE auto_reply_enabled;

	CREATE TABLE IF NOT EXISTS prompts (
	    id UUID PRIMARY KEY,
	    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	    name VARCHAR(255) NOT NULL,
	    text TEXT NOT NULL,
	    is_active BOOLEAN NOT NULL DEFAULT TRUE,
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_prompts_user_id ON prompts(user_id);

	CREATE TABLE IF NOT EXISTS conversations (
	    id UUID PRIMARY KEY,
	    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	    campaign_id UUID NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
	    originating_message_id UUID NOT NULL,
	    contact_email VARCHAR(255) NOT NULL,
	    thread_id VARCHAR(128) NOT NULL UNIQUE,
	    status VARCHAR(16) NOT NULL DEFAULT 'active',
	    message_count INT NOT NULL DEFAULT 1,
	    auto_replies_sent INT NOT NULL DEFAULT 0,
	    last_message_at TIMESTAMP WITH TIME ZONE,
	    last_reply_at TIMESTAMP WITH TIME ZONE,
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_campaign_id ON conversations(campaign_id);

	CREATE TABLE IF NOT EXISTS messages (
	    id UUID PRIMARY KEY,
	    conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	    campaign_id UUID NOT NULL,
	    direction VARCHAR(8) NOT NULL,
	    from_email VARCHAR(255) NOT NULL,
	    to_email VARCHAR(255) NOT NULL,
	    subject TEXT NOT NULL DEFAULT '',
	    body TEXT NOT NULL DEFAULT '',
	    provider_message_id VARCHAR(128) NOT NULL UNIQUE,
	    is_auto_reply BOOLEAN NOT NULL DEFAULT FALSE,
	    sent_at TIMESTAMP WITH TIME ZONE NOT NULL,
	    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_messages_sent_at ON messages(sent_at);
`

// Migrate creates the schema. The unique constraints on
// conversations.thread_id and messages.provider_message_id back the
// conditional-create and deduplication guarantees.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
