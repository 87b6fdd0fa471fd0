// Package watch runs the background auto-reply loop: it polls the mailbox of
// every user who owns an auto-reply campaign, deduplicates inbound messages
// against the ledger, records replies, and sends policy-approved auto-replies.
package watch

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leadcontact/outreach/internal/models"
	"github.com/leadcontact/outreach/internal/provider"
	"github.com/leadcontact/outreach/internal/reply"
	"github.com/leadcontact/outreach/internal/store"
	"github.com/leadcontact/outreach/internal/token"
)

const (
	CampaignScanInterval = 1 * time.Minute
	PollingInterval      = 30 * time.Second
	PollingJitterMax     = 30 * time.Second
	EventBufferSize      = 50
)

type inboundEvent struct {
	UserID  uuid.UUID
	Message models.ProviderMessage
}

type userPoller struct {
	userID uuid.UUID
	cancel context.CancelFunc
}

// Watcher coordinates per-user mailbox pollers feeding a single processing
// loop. Pollers are added and removed as auto-reply campaigns appear and
// disappear.
type Watcher struct {
	store        *store.Store
	lifecycle    *token.Lifecycle
	orchestrator *reply.Orchestrator
	oauth        provider.OAuthProvider
	mailbox      provider.Mailbox
	sender       provider.MailSender
	generator    provider.Generator
	providerName string

	events  chan inboundEvent
	pollers sync.Map // map[uuid.UUID]*userPoller

	processingWg sync.WaitGroup

	repliesRecorded int64
	repliesSent     int64
	repliesSkipped  int64
}

func New(st *store.Store, lc *token.Lifecycle, orch *reply.Orchestrator, oauth provider.OAuthProvider, mailbox provider.Mailbox, sender provider.MailSender, generator provider.Generator, providerName string) *Watcher {
	return &Watcher{
		store:        st,
		lifecycle:    lc,
		orchestrator: orch,
		oauth:        oauth,
		mailbox:      mailbox,
		sender:       sender,
		generator:    generator,
		providerName: providerName,
		events:       make(chan inboundEvent, EventBufferSize),
	}
}

// Run blocks until ctx is cancelled, scanning for auto-reply campaigns and
// processing inbound events.
func (w *Watcher) Run(ctx context.Context) error {
	log.Println("Starting reply watcher")

	go w.campaignScanLoop(ctx)
	go w.logMetrics(ctx)

	for {
		select {
		case <-ctx.Done():
			w.pollers.Range(func(_, value interface{}) bool {
				value.(*userPoller).cancel()
				return true
			})
			return nil
		case ev := <-w.events:
			w.processEvent(ctx, ev)
		}
	}
}

// Shutdown waits for in-flight event processing to finish, up to timeout.
// Returns false if the timeout was reached first.
func (w *Watcher) Shutdown(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		w.processingWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		log.Printf("Shutdown timeout (%v) reached, some replies may still be processing", timeout)
		return false
	}
}

// campaignScanLoop keeps the poller set in sync with the campaigns that have
// auto-reply enabled. One poller per owning user, regardless of how many of
// their campaigns auto-reply.
func (w *Watcher) campaignScanLoop(ctx context.Context) {
	w.scanCampaigns(ctx)

	ticker := time.NewTicker(CampaignScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scanCampaigns(ctx)
		}
	}
}

func (w *Watcher) scanCampaigns(ctx context.Context) {
	campaigns, err := w.store.AutoReplyCampaigns(ctx)
	if err != nil {
		log.Printf("Error listing auto-reply campaigns: %v", err)
		return
	}

	wanted := make(map[uuid.UUID]bool)
	for _, c := range campaigns {
		wanted[c.UserID] = true
	}

	for userID := range wanted {
		if _, exists := w.pollers.Load(userID); exists {
			continue
		}
		pollerCtx, cancel := context.WithCancel(ctx)
		w.pollers.Store(userID, &userPoller{userID: userID, cancel: cancel})
		go w.pollUser(pollerCtx, userID)
		log.Printf("Started mailbox polling for user %s", userID)
	}

	w.pollers.Range(func(key, value interface{}) bool {
		userID := key.(uuid.UUID)
		if !wanted[userID] {
			value.(*userPoller).cancel()
			w.pollers.Delete(userID)
			log.Printf("Stopped mailbox polling for user %s", userID)
		}
		return true
	})
}

// pollUser polls one user's mailbox on a fixed interval, with a staggered
// initial delay so pollers do not all hit the provider at once.
func (w *Watcher) pollUser(ctx context.Context, userID uuid.UUID) {
	lastPoll := time.Now().Add(-24 * time.Hour)

	select {
	case <-ctx.Done():
		return
	case <-time.After(initialDelay(userID)):
		lastPoll = w.pollOnce(ctx, userID, lastPoll)
	}

	ticker := time.NewTicker(PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lastPoll = w.pollOnce(ctx, userID, lastPoll)
		}
	}
}

// initialDelay maps a user id onto a deterministic offset within the jitter
// window.
func initialDelay(userID uuid.UUID) time.Duration {
	seed := binary.BigEndian.Uint64(userID[:8])
	return time.Duration(seed % uint64(PollingJitterMax.Nanoseconds()))
}

func (w *Watcher) pollOnce(ctx context.Context, userID uuid.UUID, since time.Time) time.Time {
	accessToken, err := w.lifecycle.EnsureValid(ctx, userID, w.providerName, w.oauth)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrNotConnected):
			log.Printf("User %s has no %s connection, skipping poll", userID, w.providerName)
		case errors.Is(err, token.ErrRefreshUnavailable):
			log.Printf("User %s must reconnect %s, skipping poll", userID, w.providerName)
		default:
			log.Printf("Error ensuring token for user %s: %v", userID, err)
		}
		return since
	}

	// 1 second of overlap guards against missing messages due to clock skew.
	pollStart := time.Now()
	messages, err := w.mailbox.ListInbound(ctx, accessToken, since.Add(-1*time.Second))
	if err != nil {
		log.Printf("Error listing inbound messages for user %s: %v", userID, err)
		return since
	}

	for _, msg := range messages {
		select {
		case <-ctx.Done():
			return since
		case w.events <- inboundEvent{UserID: userID, Message: msg}:
		}
	}

	return pollStart
}

// processEvent handles one inbound message in its own goroutine so a slow
// generation or send does not stall the event loop.
func (w *Watcher) processEvent(ctx context.Context, ev inboundEvent) {
	w.processingWg.Add(1)
	go func() {
		defer w.processingWg.Done()

		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.handleInbound(ctx, ev); err != nil {
			log.Printf("Error handling inbound message %s: %v", ev.Message.MessageID, err)
		}
	}()
}

func (w *Watcher) handleInbound(ctx context.Context, ev inboundEvent) error {
	msg := ev.Message

	exists, err := w.store.MessageExists(ctx, msg.MessageID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	conv, err := w.store.ConversationByThread(ctx, msg.ThreadID)
	if errors.Is(err, store.ErrNotFound) {
		// Not a thread this system started; ignore.
		return nil
	}
	if err != nil {
		return err
	}

	conv, err = w.orchestrator.HandleInboundReply(ctx, conv.ID, conv.CampaignID,
		msg.MessageID, msg.From, msg.To, msg.Subject, msg.Body, msg.ReceivedAt)
	if err != nil {
		return err
	}
	atomic.AddInt64(&w.repliesRecorded, 1)

	// Re-fetch both snapshots so the decision never runs on stale counts.
	campaign, err := w.store.Campaign(ctx, conv.CampaignID)
	if err != nil {
		return err
	}
	conv, err = w.store.Conversation(ctx, conv.ID)
	if err != nil {
		return err
	}

	if !reply.ShouldAutoReply(campaign, conv) {
		atomic.AddInt64(&w.repliesSkipped, 1)
		log.Printf("Auto-reply suppressed for conversation %s (sent %d/%d, status %s, enabled %t)",
			conv.ID, conv.AutoRepliesSent, campaign.MaxRepliesPerThread, conv.Status, campaign.AutoReplyEnabled)
		return nil
	}

	return w.sendAutoReply(ctx, ev.UserID, campaign, conv, msg)
}

func (w *Watcher) sendAutoReply(ctx context.Context, userID uuid.UUID, campaign models.Campaign, conv models.Conversation, inbound models.ProviderMessage) error {
	accessToken, err := w.lifecycle.EnsureValid(ctx, userID, w.providerName, w.oauth)
	if err != nil {
		return err
	}

	history, err := w.orchestrator.ReplyContext(ctx, conv.ID)
	if err != nil {
		return err
	}

	body, err := w.generator.Generate(ctx, w.promptText(ctx, campaign), history, conv.ContactEmail)
	if err != nil || strings.TrimSpace(body) == "" {
		if err != nil {
			log.Printf("Generation failed for conversation %s, using fallback body: %v", conv.ID, err)
		}
		body = campaign.AutoReplyBody
	}

	subject := strings.ReplaceAll(campaign.AutoReplySubject, "{{original_subject}}", inbound.Subject)

	result, err := w.sender.Send(ctx, accessToken, inbound.To, conv.ContactEmail, subject, body)
	if err != nil {
		// Not recorded: only confirmed transmissions enter the ledger.
		return err
	}

	if _, err := w.orchestrator.RecordAutoReplySent(ctx, conv.ID, campaign.ID,
		result.MessageID, inbound.To, conv.ContactEmail, subject, body); err != nil {
		return err
	}

	atomic.AddInt64(&w.repliesSent, 1)
	log.Printf("Auto-reply sent to %s on conversation %s", conv.ContactEmail, conv.ID)
	return nil
}

// promptText resolves the campaign's prompt reference. A deactivated prompt
// still resolves; an unset, malformed or missing reference yields "" and the
// generation service falls back to its default instruction.
func (w *Watcher) promptText(ctx context.Context, campaign models.Campaign) string {
	if campaign.PromptID == "" {
		return ""
	}
	promptID, err := uuid.Parse(campaign.PromptID)
	if err != nil {
		log.Printf("Campaign %s has malformed prompt reference %q", campaign.ID, campaign.PromptID)
		return ""
	}
	prompt, err := w.store.Prompt(ctx, promptID)
	if err != nil {
		log.Printf("Error resolving prompt %s for campaign %s: %v", promptID, campaign.ID, err)
		return ""
	}
	return prompt.Text
}

func (w *Watcher) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("Metrics | Recorded: %d | Sent: %d | Suppressed: %d",
				atomic.LoadInt64(&w.repliesRecorded),
				atomic.LoadInt64(&w.repliesSent),
				atomic.LoadInt64(&w.repliesSkipped))
		}
	}
}
