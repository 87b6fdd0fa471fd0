// Package reply holds the auto-reply decision logic and the orchestration of
// recording inbound replies and committed auto-replies.
package reply

import "github.com/leadcontact/outreach/internal/models"

// ShouldAutoReply decides whether an auto-reply may go out on conversation
// under campaign's settings. It is pure: callers must pass freshly fetched
// snapshots of both entities so the decision never acts on stale counts.
func ShouldAutoReply(campaign models.Campaign, conversation models.Conversation) bool {
	if !campaign.AutoReplyEnabled {
		return false
	}
	if conversation.AutoRepliesSent >= campaign.MaxRepliesPerThread {
		return false
	}
	if conversation.Status != models.ConversationActive {
		return false
	}
	return true
}
