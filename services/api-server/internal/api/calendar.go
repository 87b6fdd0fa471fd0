package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleEventTypes(c *gin.Context) {
	eventTypes, err := s.calendar.EventTypes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_types": eventTypes})
}

func (s *Server) handleAvailability(c *gin.Context) {
	eventTypeID, err := strconv.Atoi(c.Query("event_type_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_type_id"})
		return
	}

	from, err := time.Parse(time.RFC3339, c.DefaultQuery("from", time.Now().UTC().Format(time.RFC3339)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from (use RFC3339)"})
		return
	}
	to, err := time.Parse(time.RFC3339, c.DefaultQuery("to", from.Add(7*24*time.Hour).Format(time.RFC3339)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to (use RFC3339)"})
		return
	}

	slots, err := s.calendar.Availability(c.Request.Context(), eventTypeID, from, to)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

type bookRequest struct {
	EventTypeID   int       `json:"event_type_id" binding:"required"`
	Start         time.Time `json:"start" binding:"required"`
	End           time.Time `json:"end" binding:"required"`
	AttendeeEmail string    `json:"attendee_email" binding:"required"`
	AttendeeName  string    `json:"attendee_name"`
}

func (s *Server) handleBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := s.calendar.Book(c.Request.Context(), req.EventTypeID,
		req.Start, req.End, req.AttendeeEmail, req.AttendeeName)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}
