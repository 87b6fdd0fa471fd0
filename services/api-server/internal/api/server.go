// Package api exposes the outward HTTP surface: OAuth connect, campaign
// queries, job webhooks and the internal record endpoints called by the
// bulk-send runner.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadcontact/outreach/internal/campaign"
	"github.com/leadcontact/outreach/internal/provider"
	"github.com/leadcontact/outreach/internal/reply"
	"github.com/leadcontact/outreach/internal/store"
	"github.com/leadcontact/outreach/internal/token"
)

type Server struct {
	store        *store.Store
	lifecycle    *token.Lifecycle
	tracker      *campaign.Tracker
	orchestrator *reply.Orchestrator
	oauth        provider.OAuthProvider
	calendar     provider.Calendar

	webhookSecret string
}

func NewServer(st *store.Store, lc *token.Lifecycle, tracker *campaign.Tracker, orch *reply.Orchestrator, oauth provider.OAuthProvider, calendar provider.Calendar, webhookSecret string) *Server {
	return &Server{
		store:         st,
		lifecycle:     lc,
		tracker:       tracker,
		orchestrator:  orch,
		oauth:         oauth,
		calendar:      calendar,
		webhookSecret: webhookSecret,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.GET("/google/url", s.handleAuthURL)
		auth.POST("/google/callback", s.handleAuthCallback)
		auth.DELETE("/google", s.handleDisconnect)
	}

	webhooks := r.Group("/webhooks/job", s.requireWebhookSecret)
	{
		webhooks.POST("/campaign-status", s.handleCampaignStatus)
		webhooks.POST("/campaign-progress", s.handleCampaignProgress)
		webhooks.POST("/run-id", s.handleJobRunID)
	}

	internal := r.Group("/internal")
	{
		internal.POST("/messages/outbound", s.handleRecordOutbound)
		internal.POST("/messages/inbound", s.handleRecordInbound)
		internal.POST("/messages/auto-reply", s.handleRecordAutoReply)
		internal.GET("/messages/exists", s.handleMessageExists)
	}

	campaigns := r.Group("/campaigns")
	{
		campaigns.POST("", s.handleCreateCampaign)
		campaigns.GET("/:id", s.handleGetCampaign)
		campaigns.PUT("/:id/auto-reply", s.handleUpdateAutoReply)
		campaigns.GET("/:id/conversations", s.handleCampaignConversations)
	}

	prompts := r.Group("/prompts")
	{
		prompts.POST("", s.handleCreatePrompt)
		prompts.GET("", s.handleListPrompts)
		prompts.DELETE("/:id", s.handleDeletePrompt)
	}

	conversations := r.Group("/conversations")
	{
		conversations.GET("/:id/messages", s.handleConversationMessages)
		conversations.PUT("/:id/status", s.handleConversationStatus)
	}

	calendar := r.Group("/calendar")
	{
		calendar.GET("/event-types", s.handleEventTypes)
		calendar.GET("/availability", s.handleAvailability)
		calendar.POST("/bookings", s.handleBook)
	}

	return r
}

func (s *Server) requireWebhookSecret(c *gin.Context) {
	if s.webhookSecret == "" {
		return
	}
	if c.GetHeader("X-Webhook-Secret") != s.webhookSecret {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
	}
}
