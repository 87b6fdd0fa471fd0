package reply

import (
	"testing"

	"github.com/leadcontact/outreach/internal/models"
)

func TestShouldAutoReply(t *testing.T) {
	base := models.Campaign{AutoReplyEnabled: true, MaxRepliesPerThread: 3}

	tests := []struct {
		name         string
		campaign     models.Campaign
		conversation models.Conversation
		want         bool
	}{
		{
			"active conversation under cap",
			base,
			models.Conversation{Status: models.ConversationActive, AutoRepliesSent: 0},
			true,
		},
		{
			"auto-reply disabled",
			models.Campaign{AutoReplyEnabled: false, MaxRepliesPerThread: 3},
			models.Conversation{Status: models.ConversationActive},
			false,
		},
		{
			"cap reached",
			base,
			models.Conversation{Status: models.ConversationActive, AutoRepliesSent: 3},
			false,
		},
		{
			"cap exceeded",
			base,
			models.Conversation{Status: models.ConversationActive, AutoRepliesSent: 4},
			false,
		},
		{
			"one below cap",
			base,
			models.Conversation{Status: models.ConversationActive, AutoRepliesSent: 2},
			true,
		},
		{
			"paused conversation",
			base,
			models.Conversation{Status: models.ConversationPaused},
			false,
		},
		{
			"closed conversation",
			base,
			models.Conversation{Status: models.ConversationClosed},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAutoReply(tt.campaign, tt.conversation); got != tt.want {
				t.Errorf("ShouldAutoReply() = %t, want %t", got, tt.want)
			}
		})
	}
}

// Three consecutive inbound replies against a cap of two: the first two are
// approved, the third is suppressed.
func TestShouldAutoReplyCapSequence(t *testing.T) {
	campaign := models.Campaign{AutoReplyEnabled: true, MaxRepliesPerThread: 2}
	conv := models.Conversation{Status: models.ConversationActive}

	want := []bool{true, true, false}
	for i, expected := range want {
		if got := ShouldAutoReply(campaign, conv); got != expected {
			t.Fatalf("reply %d: ShouldAutoReply() = %t, want %t", i+1, got, expected)
		}
		if expected {
			conv.AutoRepliesSent++
		}
	}
}
