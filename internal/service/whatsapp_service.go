package service

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"bizbox_backend/pkg/logger"
	"bizbox_backend/pkg/monitoring"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookPayload is the subset of a WhatsApp Business webhook delivery we read.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []WebhookContact `json:"contacts"`
	Messages         []WebhookMessage `json:"messages"`
	Statuses         []WebhookStatus  `json:"statuses"`
}

type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WebhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *webhookMedia `json:"image,omitempty"`
	Video    *webhookMedia `json:"video,omitempty"`
	Document *webhookMedia `json:"document,omitempty"`
	Button   *struct {
		Text string `json:"text"`
	} `json:"button,omitempty"`
}

type webhookMedia struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

type WebhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// Body returns the human-readable part of a message, or "[type]" when
// there is none.
func (m *WebhookMessage) Body() string {
	switch {
	case m.Text != nil:
		return m.Text.Body
	case m.Image != nil && m.Image.Caption != "":
		return m.Image.Caption
	case m.Video != nil && m.Video.Caption != "":
		return m.Video.Caption
	case m.Document != nil && m.Document.Caption != "":
		return m.Document.Caption
	case m.Button != nil:
		return m.Button.Text
	}
	return "[" + m.Type + "]"
}

func parseUnixTimestamp(s string) time.Time {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now()
	}
	return time.Unix(secs, 0)
}

// IngestReport counts what one webhook delivery changed.
type IngestReport struct {
	MessagesCreated    int `json:"messagesCreated"`
	MessagesDuplicated int `json:"messagesDuplicated"`
	StatusesApplied    int `json:"statusesApplied"`
	StatusesSkipped    int `json:"statusesSkipped"`
}

type WhatsAppService struct {
	Repo   *repository.WhatsAppRepository
	Sender WhatsAppSender
	Events EventPublisher

	mu          sync.RWMutex
	verifyToken string
	appSecret   string
	orgID       uint
}

func NewWhatsAppService(repo *repository.WhatsAppRepository, sender WhatsAppSender, events EventPublisher, cfg config.WhatsAppConfig) *WhatsAppService {
	s := &WhatsAppService{Repo: repo, Sender: sender, Events: events}
	s.Reload(cfg)
	return s
}

// Reload swaps the webhook credentials, e.g. after a config file change.
func (s *WhatsAppService) Reload(cfg config.WhatsAppConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyToken = cfg.VerifyToken
	s.appSecret = cfg.AppSecret
	s.orgID = cfg.OrganizationID
}

// VerifySubscription answers the webhook registration handshake.
func (s *WhatsAppService) VerifySubscription(mode, token, challenge string) (string, error) {
	s.mu.RLock()
	expected := s.verifyToken
	s.mu.RUnlock()

	if mode != "subscribe" || expected == "" || !hmac.Equal([]byte(token), []byte(expected)) {
		return "", util.ErrPermissionDenied
	}
	return challenge, nil
}

// VerifySignature checks X-Hub-Signature-256 when an app secret is configured.
func (s *WhatsAppService) VerifySignature(body []byte, header string) error {
	s.mu.RLock()
	secret := s.appSecret
	s.mu.RUnlock()
	if secret == "" {
		return nil
	}

	sig := strings.TrimPrefix(header, "sha256=")
	got, err := hex.DecodeString(sig)
	if err != nil || sig == header {
		return util.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return util.ErrInvalidSignature
	}
	return nil
}

// Ingest persists every message and status of a delivery and announces
// them. Redelivered messages are recognised by provider id and not stored
// again. Statuses for unknown messages are skipped.
func (s *WhatsAppService) Ingest(ctx context.Context, payload *WebhookPayload) (*IngestReport, error) {
	report := &IngestReport{}
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for i := range change.Value.Messages {
				if err := s.ingestMessage(ctx, &change.Value.Messages[i], names, report); err != nil {
					monitoring.WebhookItems.WithLabelValues("message", "error").Inc()
					return report, err
				}
			}
			for i := range change.Value.Statuses {
				if err := s.ingestStatus(ctx, &change.Value.Statuses[i], report); err != nil {
					monitoring.WebhookItems.WithLabelValues("status", "error").Inc()
					return report, err
				}
			}
		}
	}
	return report, nil
}

func (s *WhatsAppService) ingestMessage(ctx context.Context, m *WebhookMessage, names map[string]string, report *IngestReport) error {
	if m.ID == "" || m.From == "" {
		return nil
	}

	s.mu.RLock()
	orgID := s.orgID
	s.mu.RUnlock()

	contact := &model.Contact{WaID: m.From, ProfileName: names[m.From]}
	if orgID > 0 {
		contact.OrganizationID = &orgID
	}
	if err := s.Repo.UpsertContact(ctx, contact); err != nil {
		return fmt.Errorf("upsert contact %s: %w", m.From, err)
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", m.ID, err)
	}
	msg := &model.WAMessage{
		MessageID: m.ID,
		ContactID: contact.ID,
		Direction: model.DirectionInbound,
		Type:      m.Type,
		Body:      m.Body(),
		Status:    model.MessageReceived,
		Timestamp: parseUnixTimestamp(m.Timestamp),
		Raw:       datatypes.JSON(raw),
	}
	created, err := s.Repo.GetOrCreateMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("store message %s: %w", m.ID, err)
	}
	if !created {
		report.MessagesDuplicated++
		monitoring.WebhookItems.WithLabelValues("message", "duplicate").Inc()
		return nil
	}
	report.MessagesCreated++
	monitoring.WebhookItems.WithLabelValues("message", "created").Inc()

	if contact.LastMessageAt == nil || msg.Timestamp.After(*contact.LastMessageAt) {
		contact.LastMessageAt = &msg.Timestamp
		contact.LastMessage = msg.Body
		if err := s.Repo.TouchContact(ctx, contact); err != nil {
			return err
		}
	}

	s.announceMessage(ctx, contact, msg)
	return nil
}

func (s *WhatsAppService) announceMessage(ctx context.Context, contact *model.Contact, msg *model.WAMessage) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ContactTopic(contact.ID), Event{Op: "message.new", Data: msg}); err != nil {
		logger.Log.Warn("Publish message failed", zap.String("messageId", msg.MessageID), zap.Error(err))
	}
	if err := s.Events.Publish(ctx, util.TopicWhatsAppContacts, Event{Op: "contact.updated", Data: contact}); err != nil {
		logger.Log.Warn("Publish contact failed", zap.Uint("contactId", contact.ID), zap.Error(err))
	}
}

func (s *WhatsAppService) ingestStatus(ctx context.Context, st *WebhookStatus, report *IngestReport) error {
	msg, err := s.Repo.FindMessageByProviderID(ctx, st.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Log.Info("Status for unknown message skipped", zap.String("messageId", st.ID), zap.String("status", st.Status))
			report.StatusesSkipped++
			monitoring.WebhookItems.WithLabelValues("status", "skipped").Inc()
			return nil
		}
		return err
	}

	status := &model.WAStatus{
		Status:      st.Status,
		RecipientID: st.RecipientID,
		Timestamp:   parseUnixTimestamp(st.Timestamp),
	}
	if err := s.Repo.AppendStatus(ctx, msg, status); err != nil {
		return fmt.Errorf("append status for %s: %w", st.ID, err)
	}
	report.StatusesApplied++
	monitoring.WebhookItems.WithLabelValues("status", "applied").Inc()

	if s.Events != nil {
		event := Event{Op: "message.status", Data: map[string]interface{}{
			"messageId": msg.MessageID,
			"id":        msg.ID,
			"status":    status.Status,
			"timestamp": status.Timestamp,
		}}
		if err := s.Events.Publish(ctx, ContactTopic(msg.ContactID), event); err != nil {
			logger.Log.Warn("Publish status failed", zap.String("messageId", msg.MessageID), zap.Error(err))
		}
	}
	return nil
}

func (s *WhatsAppService) contactInOrg(ctx context.Context, orgID, contactID uint) (*model.Contact, error) {
	contact, err := s.Repo.FindContact(ctx, contactID)
	if err != nil {
		return nil, notFound(err, "contact")
	}
	if contact.OrganizationID != nil && *contact.OrganizationID != orgID {
		return nil, fmt.Errorf("contact: %w", util.ErrNotFound)
	}
	return contact, nil
}

func (s *WhatsAppService) ListContacts(ctx context.Context, orgID uint) ([]model.Contact, error) {
	return s.Repo.ListContacts(ctx, orgID)
}

func (s *WhatsAppService) ListMessages(ctx context.Context, orgID, contactID uint, limit int) ([]model.WAMessage, error) {
	if _, err := s.contactInOrg(ctx, orgID, contactID); err != nil {
		return nil, err
	}
	return s.Repo.ListMessages(ctx, contactID, limit)
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=4096"`
}

// Send delivers an outbound text through the provider, stores it as sent
// and announces it.
func (s *WhatsAppService) Send(ctx context.Context, orgID, contactID uint, req SendMessageRequest) (*model.WAMessage, error) {
	contact, msg, err := s.send(ctx, orgID, contactID, req.Body)
	if err != nil {
		return nil, err
	}
	s.announceMessage(ctx, contact, msg)
	return msg, nil
}

func (s *WhatsAppService) send(ctx context.Context, orgID, contactID uint, body string) (*model.Contact, *model.WAMessage, error) {
	contact, err := s.contactInOrg(ctx, orgID, contactID)
	if err != nil {
		return nil, nil, err
	}

	providerID, err := s.Sender.SendText(ctx, contact.WaID, body)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	msg := &model.WAMessage{
		MessageID: providerID,
		ContactID: contact.ID,
		Direction: model.DirectionOutbound,
		Type:      "text",
		Body:      body,
		Status:    model.MessageSent,
		Timestamp: now,
	}
	if err := s.Repo.CreateMessage(ctx, msg); err != nil {
		return nil, nil, err
	}
	contact.LastMessageAt = &now
	contact.LastMessage = body
	if err := s.Repo.TouchContact(ctx, contact); err != nil {
		return nil, nil, err
	}
	return contact, msg, nil
}

// HandleSendOp serves the "message.send" socket op. The hub rebroadcasts
// the stored message on the conversation feed; the contact list feed is
// published here.
func (s *WhatsAppService) HandleSendOp(ctx context.Context, client *HubClient, data json.RawMessage) (string, interface{}, error) {
	var req struct {
		ContactID uint   `json:"contactId"`
		Body      string `json:"body"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ContactID == 0 || strings.TrimSpace(req.Body) == "" {
		return "", nil, util.ErrInvalidInput
	}

	contact, msg, err := s.send(ctx, client.OrganizationID, req.ContactID, req.Body)
	if err != nil {
		return "", nil, err
	}
	if s.Events != nil {
		if err := s.Events.Publish(ctx, util.TopicWhatsAppContacts, Event{Op: "contact.updated", Data: contact}); err != nil {
			logger.Log.Warn("Publish contact failed", zap.Uint("contactId", contact.ID), zap.Error(err))
		}
	}
	return ContactTopic(contact.ID), msg, nil
}
