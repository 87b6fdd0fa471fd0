package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/store"
)

func (s *Server) handleAuthURL(c *gin.Context) {
	state := c.Query("state")
	c.JSON(http.StatusOK, gin.H{"auth_url": s.oauth.AuthURL(state)})
}

type authCallbackRequest struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state"`
}

// handleAuthCallback exchanges the authorization code, resolves the profile,
// creates the user if needed and persists the token pair.
func (s *Server) handleAuthCallback(c *gin.Context) {
	var req authCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	tokens, err := s.oauth.ExchangeCode(ctx, req.Code)
	if err != nil {
		log.Printf("OAuth code exchange failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "code exchange failed"})
		return
	}

	profile, err := s.oauth.Profile(ctx, tokens.AccessToken)
	if err != nil {
		log.Printf("OAuth profile fetch failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "profile fetch failed"})
		return
	}

	user, err := s.store.UpsertUser(ctx, profile.Email, profile.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	expiry := tokens.ExpiryFrom(time.Now().UTC())
	if _, err := s.store.SaveToken(ctx, user.ID, "google",
		tokens.AccessToken, tokens.RefreshToken, expiry, tokens.Scope); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "connected",
		"provider": "google",
		"user":     gin.H{"id": user.ID, "email": user.Email, "name": user.Name},
	})
}

// handleDisconnect removes the stored credential. This is the only path that
// ever deletes a token row.
func (s *Server) handleDisconnect(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	if err := s.store.DeleteToken(c.Request.Context(), userID, "google"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "provider not connected"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "disconnected", "provider": "google"})
}
