package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leadcontact/outreach/services/mock-provider/internal/mock"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// OAuth endpoints
	r.POST("/token", handleToken)
	r.GET("/userinfo", handleUserinfo)

	// Gmail-shaped endpoints
	gmail := r.Group("/gmail/v1")
	{
		gmail.POST("/users/me/messages/send", handleSend)
		gmail.GET("/users/me/messages", handleListMessages)
	}

	// Admin endpoints for testing
	admin := r.Group("/admin")
	{
		admin.POST("/inbound", handleSeedInbound)
	}

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting Outreach mock provider on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func handleToken(c *gin.Context) {
	grantType := c.PostForm("grant_type")

	switch grantType {
	case "authorization_code":
		// Any code is accepted; the code doubles as the identity.
		code := c.PostForm("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		email := code
		if !strings.Contains(email, "@") {
			email = code + "@example.com"
		}
		c.JSON(http.StatusOK, mock.IssueTokens(email))
	case "refresh_token":
		resp, err := mock.RefreshTokens(c.PostForm("refresh_token"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_grant"})
			return
		}
		c.JSON(http.StatusOK, resp)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_grant_type"})
	}
}

func handleUserinfo(c *gin.Context) {
	email, ok := mock.EmailFor(bearerToken(c))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	name := strings.SplitN(email, "@", 2)[0]
	c.JSON(http.StatusOK, gin.H{"id": email, "email": email, "name": name})
}

func handleSend(c *gin.Context) {
	email, ok := mock.EmailFor(bearerToken(c))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	var payload struct {
		Raw string `json:"raw"`
	}
	if err := json.NewDecoder(c.Request.Body).Decode(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	// The raw RFC 822 content is opaque here; record a send for the
	// authenticated identity.
	msg := mock.RecordSend(email, "", "", payload.Raw)
	c.JSON(http.StatusOK, gin.H{"id": msg.MessageID, "threadId": msg.ThreadID})
}

func handleListMessages(c *gin.Context) {
	if _, ok := mock.EmailFor(bearerToken(c)); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	// The q parameter carries "in:inbox after:<unix>".
	after := time.Now().Add(-24 * time.Hour)
	for _, field := range strings.Fields(c.Query("q")) {
		if cut, ok := strings.CutPrefix(field, "after:"); ok {
			if unix, err := strconv.ParseInt(cut, 10, 64); err == nil {
				after = time.Unix(unix, 0)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"messages": mock.ListInbound(after)})
}

func handleSeedInbound(c *gin.Context) {
	var req struct {
		ThreadID string `json:"thread_id" binding:"required"`
		From     string `json:"from" binding:"required"`
		To       string `json:"to"`
		Subject  string `json:"subject"`
		Body     string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := mock.SeedInbound(req.ThreadID, req.From, req.To, req.Subject, req.Body)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
