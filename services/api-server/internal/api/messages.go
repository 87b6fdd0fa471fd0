package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type recordOutboundRequest struct {
	CampaignID        string    `json:"campaign_id" binding:"required"`
	UserID            string    `json:"user_id" binding:"required"`
	ThreadID          string    `json:"thread_id" binding:"required"`
	ProviderMessageID string    `json:"provider_message_id" binding:"required"`
	ContactEmail      string    `json:"contact_email" binding:"required"`
	FromEmail         string    `json:"from_email"`
	Subject           string    `json:"subject"`
	Body              string    `json:"body"`
	SentAt            time.Time `json:"sent_at"`
}

// handleRecordOutbound is called by the bulk-send job after each confirmed
// send that carries a thread id. The first send on a thread creates the
// conversation; later sends on the same thread only bump its counters.
func (s *Server) handleRecordOutbound(c *gin.Context) {
	var req recordOutboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign_id"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	conv, msg, created, err := s.orchestrator.RecordOutboundSend(c.Request.Context(),
		userID, campaignID, req.ThreadID, req.ProviderMessageID,
		req.FromEmail, req.ContactEmail, req.Subject, req.Body, req.SentAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"conversation_id": conv.ID,
		"message_id":      msg.ID,
		"created":         created,
	})
}

type recordInboundRequest struct {
	ConversationID    string    `json:"conversation_id" binding:"required"`
	CampaignID        string    `json:"campaign_id" binding:"required"`
	ProviderMessageID string    `json:"provider_message_id" binding:"required"`
	FromEmail         string    `json:"from_email" binding:"required"`
	ToEmail           string    `json:"to_email"`
	Subject           string    `json:"subject"`
	Body              string    `json:"body"`
	RepliedAt         time.Time `json:"replied_at"`
}

// handleRecordInbound records one inbound reply. The exists gate makes a
// re-delivered event a no-op instead of a double count.
func (s *Server) handleRecordInbound(c *gin.Context) {
	var req recordInboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation_id"})
		return
	}
	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign_id"})
		return
	}

	ctx := c.Request.Context()

	exists, err := s.store.MessageExists(ctx, req.ProviderMessageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if exists {
		c.JSON(http.StatusOK, gin.H{"success": true, "deduplicated": true})
		return
	}

	conv, err := s.orchestrator.HandleInboundReply(ctx, conversationID, campaignID,
		req.ProviderMessageID, req.FromEmail, req.ToEmail, req.Subject, req.Body, req.RepliedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"conversation_id": conv.ID,
		"message_count":   conv.MessageCount,
	})
}

type recordAutoReplyRequest struct {
	ConversationID    string `json:"conversation_id" binding:"required"`
	CampaignID        string `json:"campaign_id" binding:"required"`
	ProviderMessageID string `json:"provider_message_id" binding:"required"`
	FromEmail         string `json:"from_email"`
	ToEmail           string `json:"to_email" binding:"required"`
	Subject           string `json:"subject"`
	Body              string `json:"body"`
}

// handleRecordAutoReply commits an auto-reply whose transmission was already
// confirmed by the caller.
func (s *Server) handleRecordAutoReply(c *gin.Context) {
	var req recordAutoReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation_id"})
		return
	}
	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign_id"})
		return
	}

	conv, err := s.orchestrator.RecordAutoReplySent(c.Request.Context(), conversationID, campaignID,
		req.ProviderMessageID, req.FromEmail, req.ToEmail, req.Subject, req.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"conversation_id":   conv.ID,
		"auto_replies_sent": conv.AutoRepliesSent,
	})
}

func (s *Server) handleMessageExists(c *gin.Context) {
	providerMessageID := c.Query("provider_message_id")
	if providerMessageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider_message_id is required"})
		return
	}

	exists, err := s.store.MessageExists(c.Request.Context(), providerMessageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}
