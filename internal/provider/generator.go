package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leadcontact/outreach/internal/models"
)

// HTTPGenerator calls an external generation service to compose a reply body
// from the conversation so far. A timeout there is a transient failure; retry
// policy belongs to the job runner, not here.
type HTTPGenerator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGenerator(baseURL string) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type generateRequest struct {
	Prompt       string         `json:"prompt"`
	ContactEmail string         `json:"contact_email"`
	History      []historyEntry `json:"history"`
}

type historyEntry struct {
	Direction string `json:"direction"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string, history []models.Message, contactEmail string) (string, error) {
	reqBody := generateRequest{
		Prompt:       prompt,
		ContactEmail: contactEmail,
		History:      make([]historyEntry, 0, len(history)),
	}
	for _, m := range history {
		reqBody.History = append(reqBody.History, historyEntry{
			Direction: m.Direction,
			Subject:   m.Subject,
			Body:      m.Body,
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}

	return result.Body, nil
}
