// Package provider holds the external capability clients the core calls out
// to: OAuth token endpoints, mail sending, mailbox listing, AI generation and
// calendar booking. Everything is behind an interface so services can be
// wired against mocks.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/leadcontact/outreach/internal/models"
)

// ErrSendFailed marks a failed mail transmission. Callers never retry a send
// themselves; retry policy belongs to the external job runner.
var ErrSendFailed = errors.New("send failed")

// OAuthProvider is a provider's authorization and token surface.
type OAuthProvider interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (models.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenResponse, error)
	Profile(ctx context.Context, accessToken string) (models.UserProfile, error)
}

// SendResult identifies a transmitted message at the provider.
type SendResult struct {
	MessageID string
	ThreadID  string
}

// MailSender transmits one email on behalf of the authenticated user.
type MailSender interface {
	Send(ctx context.Context, accessToken, from, to, subject, body string) (SendResult, error)
}

// Mailbox lists inbound messages, used by the reply watcher to poll for
// replies on known threads.
type Mailbox interface {
	ListInbound(ctx context.Context, accessToken string, after time.Time) ([]models.ProviderMessage, error)
}

// Generator produces an auto-reply body from the conversation so far. It may
// invoke calendar tools internally; that is opaque here.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []models.Message, contactEmail string) (string, error)
}

// Slot is one bookable window from the calendar provider.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Booking is a confirmed calendar booking.
type Booking struct {
	ID        string    `json:"id"`
	EventType int       `json:"event_type"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Attendee  string    `json:"attendee"`
}

// EventType is one bookable meeting kind at the calendar provider.
type EventType struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Length int    `json:"length"`
}

// Calendar exposes event types, availability and booking at the scheduling
// provider.
type Calendar interface {
	EventTypes(ctx context.Context) ([]EventType, error)
	Availability(ctx context.Context, eventTypeID int, from, to time.Time) ([]Slot, error)
	Book(ctx context.Context, eventTypeID int, start, end time.Time, attendeeEmail, attendeeName string) (Booking, error)
}
