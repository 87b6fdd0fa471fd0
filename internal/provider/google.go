package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leadcontact/outreach/internal/models"
)

// GoogleConfig carries the endpoints and client credentials for the Google
// OAuth and Gmail APIs. The URLs default to the real services and are
// overridden for the mock provider and in tests. Sending and OAuth speak the
// real wire formats; message listing expects the mock dialect (see
// ListInbound), so deployments that poll set GmailBaseURL accordingly.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthBaseURL  string
	TokenURL     string
	UserinfoURL  string
	GmailBaseURL string
	Scopes       []string
}

func (c *GoogleConfig) applyDefaults() {
	if c.AuthBaseURL == "" {
		c.AuthBaseURL = "https://accounts.google.com/o/oauth2/v2/auth"
	}
	if c.TokenURL == "" {
		c.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if c.UserinfoURL == "" {
		c.UserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	}
	if c.GmailBaseURL == "" {
		c.GmailBaseURL = "https://gmail.googleapis.com/gmail/v1"
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{
			"https://www.googleapis.com/auth/gmail.send",
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		}
	}
}

// GoogleProvider implements OAuthProvider, MailSender and Mailbox against the
// Google OAuth and Gmail APIs.
type GoogleProvider struct {
	cfg    GoogleConfig
	client *http.Client
}

func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	cfg.applyDefaults()
	return &GoogleProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthURL builds the user-consent URL. access_type=offline and
// prompt=consent are required for Google to issue a refresh token.
func (g *GoogleProvider) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", g.cfg.ClientID)
	q.Set("redirect_uri", g.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(g.cfg.Scopes, " "))
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	if state != "" {
		q.Set("state", state)
	}
	return g.cfg.AuthBaseURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (g *GoogleProvider) ExchangeCode(ctx context.Context, code string) (models.TokenResponse, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret)
	form.Set("redirect_uri", g.cfg.RedirectURL)
	form.Set("grant_type", "authorization_code")

	return g.postTokenForm(ctx, form)
}

// Refresh trades a refresh token for a new access token. Google usually does
// not return a new refresh token; the response leaves it empty and callers
// keep the old one.
func (g *GoogleProvider) Refresh(ctx context.Context, refreshToken string) (models.TokenResponse, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")

	return g.postTokenForm(ctx, form)
}

func (g *GoogleProvider) postTokenForm(ctx context.Context, form url.Values) (models.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return models.TokenResponse{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return models.TokenResponse{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return models.TokenResponse{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
		TokenType    string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.TokenResponse{}, fmt.Errorf("failed to decode token response: %w", err)
	}

	tr := models.TokenResponse{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		ExpiresIn:    raw.ExpiresIn,
		TokenType:    raw.TokenType,
	}
	if raw.Scope != "" {
		tr.Scope = strings.Fields(raw.Scope)
	}
	return tr, nil
}

// Profile fetches the authenticated user's identity.
func (g *GoogleProvider) Profile(ctx context.Context, accessToken string) (models.UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.UserinfoURL, nil)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return models.UserProfile{}, fmt.Errorf("profile endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to decode profile response: %w", err)
	}

	return models.UserProfile{Email: raw.Email, Name: raw.Name, ProviderID: raw.ID}, nil
}

// Send transmits one email through the Gmail API and returns the provider's
// message and thread identifiers.
func (g *GoogleProvider) Send(ctx context.Context, accessToken, from, to, subject, body string) (SendResult, error) {
	raw := buildRFC822(from, to, subject, body)
	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to encode message: %w", err)
	}

	sendURL := g.cfg.GmailBaseURL + "/users/me/messages/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return SendResult{}, fmt.Errorf("%w: send endpoint returned %d: %s", ErrSendFailed, resp.StatusCode, string(respBody))
	}

	var result struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SendResult{}, fmt.Errorf("failed to decode send response: %w", err)
	}

	return SendResult{MessageID: result.ID, ThreadID: result.ThreadID}, nil
}

// ListInbound returns inbound messages received after the given time.
//
// The response is decoded as full message objects, the dialect the bundled
// mock provider speaks. Gmail's own list endpoint returns only {id, threadId}
// stubs that need a follow-up fetch per message, so polling requires
// GmailBaseURL to point at a service speaking the full-object dialect.
// TODO: add the per-message metadata fetch so polling works against the real
// Gmail API.
func (g *GoogleProvider) ListInbound(ctx context.Context, accessToken string, after time.Time) ([]models.ProviderMessage, error) {
	listURL := g.cfg.GmailBaseURL + "/users/me/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	q := req.URL.Query()
	q.Set("q", fmt.Sprintf("in:inbox after:%d", after.Unix()))
	req.URL.RawQuery = q.Encode()

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Messages []models.ProviderMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}

	return result.Messages, nil
}

func buildRFC822(from, to, subject, body string) string {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}
