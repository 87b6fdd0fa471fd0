package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/store"
)

type campaignStatusUpdate struct {
	CampaignID   string `json:"campaign_id" binding:"required"`
	Status       string `json:"status" binding:"required"`
	ErrorMessage string `json:"error_message"`
}

// handleCampaignStatus is called by the job runner when a campaign changes
// state (running, completed, failed, cancelled).
func (s *Server) handleCampaignStatus(c *gin.Context) {
	var payload campaignStatusUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign_id"})
		return
	}

	updated, err := s.tracker.UpdateStatus(c.Request.Context(), campaignID, payload.Status, payload.ErrorMessage)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Updated campaign %s status to %s", campaignID, payload.Status)
	c.JSON(http.StatusOK, gin.H{"success": true, "campaign_id": updated.ID, "status": updated.Status})
}

type campaignProgressUpdate struct {
	CampaignID string `json:"campaign_id" binding:"required"`
	Processed  int    `json:"processed"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
}

// handleCampaignProgress receives cumulative totals after each batch of
// sends. Reports are absolute values, so re-delivered webhooks are harmless.
func (s *Server) handleCampaignProgress(c *gin.Context) {
	var payload campaignProgressUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign_id"})
		return
	}

	updated, err := s.tracker.UpdateProgress(c.Request.Context(), campaignID, payload.Processed, payload.Sent, payload.Failed)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"campaign_id": updated.ID,
		"processed":   updated.Processed,
		"sent":        updated.Sent,
		"failed":      updated.Failed,
	})
}

type jobRunIDUpdate struct {
	CampaignID string `json:"campaign_id" binding:"required"`
	RunID      string `json:"run_id" binding:"required"`
}

func (s *Server) handleJobRunID(c *gin.Context) {
	var payload jobRunIDUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign_id"})
		return
	}

	updated, err := s.tracker.SetJobRunID(c.Request.Context(), campaignID, payload.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "campaign_id": updated.ID, "job_run_id": updated.JobRunID})
}
