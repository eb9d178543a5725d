package service

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/testutil"
	"bizbox_backend/internal/util"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) SendText(_ context.Context, to, body string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, to+":"+body)
	return fmt.Sprintf("wamid.out.%d", len(s.sent)), nil
}

func newWhatsAppService(t *testing.T, events EventPublisher) (*WhatsAppService, *repository.WhatsAppRepository, *model.Organization, *fakeSender) {
	t.Helper()
	db := testutil.NewDB(t)
	org := testutil.CreateOrganization(t, db, "acme")
	repo := repository.NewWhatsAppRepository(db)
	sender := &fakeSender{}
	svc := NewWhatsAppService(repo, sender, events, config.WhatsAppConfig{
		VerifyToken:    "verify-me",
		AppSecret:      "s3cret",
		OrganizationID: org.ID,
	})
	return svc, repo, org, sender
}

const inboundDelivery = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "2348000000000", "profile": {"name": "Ada"}}],
        "messages": [
          {"id": "wamid.1", "from": "2348000000000", "timestamp": "1700000000", "type": "text", "text": {"body": "hello"}},
          {"id": "wamid.2", "from": "2348000000000", "timestamp": "1700000060", "type": "image", "image": {"id": "m1"}}
        ]
      }
    }]
  }]
}`

func statusDelivery(id, status string) *WebhookPayload {
	return &WebhookPayload{Entry: []WebhookEntry{{Changes: []WebhookChange{{
		Value: WebhookValue{Statuses: []WebhookStatus{{ID: id, Status: status, Timestamp: "1700000100", RecipientID: "2348000000000"}}},
	}}}}}
}

func decodeDelivery(t *testing.T, raw string) *WebhookPayload {
	t.Helper()
	var payload WebhookPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return &payload
}

func TestIngestDeduplicatesMessages(t *testing.T) {
	events := &recordingPublisher{}
	svc, repo, org, _ := newWhatsAppService(t, events)
	ctx := context.Background()

	report, err := svc.Ingest(ctx, decodeDelivery(t, inboundDelivery))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.MessagesCreated != 2 || report.MessagesDuplicated != 0 {
		t.Errorf("unexpected first report %+v", report)
	}

	report, err = svc.Ingest(ctx, decodeDelivery(t, inboundDelivery))
	if err != nil {
		t.Fatalf("Ingest again: %v", err)
	}
	if report.MessagesCreated != 0 || report.MessagesDuplicated != 2 {
		t.Errorf("unexpected redelivery report %+v", report)
	}

	contacts, err := svc.ListContacts(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(contacts))
	}
	if contacts[0].ProfileName != "Ada" || contacts[0].LastMessage != "[image]" {
		t.Errorf("unexpected contact %+v", contacts[0])
	}

	messages, err := repo.ListMessages(ctx, contacts[0].ID, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 || messages[0].Body != "hello" || messages[0].Direction != model.DirectionInbound {
		t.Errorf("unexpected messages %+v", messages)
	}

	// Two new messages, each announced on the conversation and the contact list.
	if got := len(events.all()); got != 4 {
		t.Errorf("expected 4 events, got %d", got)
	}
}

func TestIngestStatuses(t *testing.T) {
	svc, repo, _, _ := newWhatsAppService(t, nil)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, decodeDelivery(t, inboundDelivery)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	report, err := svc.Ingest(ctx, statusDelivery("wamid.1", model.MessageRead))
	if err != nil {
		t.Fatalf("Ingest status: %v", err)
	}
	if report.StatusesApplied != 1 {
		t.Errorf("expected 1 applied status, got %+v", report)
	}
	msg, err := repo.FindMessageByProviderID(ctx, "wamid.1")
	if err != nil {
		t.Fatalf("FindMessageByProviderID: %v", err)
	}
	if msg.Status != model.MessageRead {
		t.Errorf("expected status %q, got %q", model.MessageRead, msg.Status)
	}

	report, err = svc.Ingest(ctx, statusDelivery("wamid.unknown", model.MessageDelivered))
	if err != nil {
		t.Fatalf("Ingest unknown status: %v", err)
	}
	if report.StatusesSkipped != 1 || report.StatusesApplied != 0 {
		t.Errorf("expected skipped status, got %+v", report)
	}
}

func TestVerifySignature(t *testing.T) {
	svc, _, _, _ := newWhatsAppService(t, nil)
	body := []byte(`{"object":"whatsapp_business_account"}`)

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(body)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{name: "valid", header: valid, ok: true},
		{name: "missing", header: "", ok: false},
		{name: "no prefix", header: hex.EncodeToString(mac.Sum(nil)), ok: false},
		{name: "not hex", header: "sha256=zz", ok: false},
		{name: "wrong digest", header: "sha256=" + hex.EncodeToString(make([]byte, 32)), ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.VerifySignature(body, tc.header)
			if tc.ok && err != nil {
				t.Errorf("expected valid signature, got %v", err)
			}
			if !tc.ok && !errors.Is(err, util.ErrInvalidSignature) {
				t.Errorf("expected ErrInvalidSignature, got %v", err)
			}
		})
	}

	svc.Reload(config.WhatsAppConfig{VerifyToken: "verify-me"})
	if err := svc.VerifySignature(body, ""); err != nil {
		t.Errorf("expected no check without app secret, got %v", err)
	}
}

func TestVerifySubscription(t *testing.T) {
	svc, _, _, _ := newWhatsAppService(t, nil)

	challenge, err := svc.VerifySubscription("subscribe", "verify-me", "12345")
	if err != nil || challenge != "12345" {
		t.Errorf("expected challenge echoed, got %q, %v", challenge, err)
	}
	if _, err := svc.VerifySubscription("subscribe", "wrong", "12345"); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for bad token, got %v", err)
	}
	if _, err := svc.VerifySubscription("unsubscribe", "verify-me", "12345"); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied for bad mode, got %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	svc, repo, org, sender := newWhatsAppService(t, nil)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, decodeDelivery(t, inboundDelivery)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	contacts, _ := svc.ListContacts(ctx, org.ID)
	contact := contacts[0]

	msg, err := svc.Send(ctx, org.ID, contact.ID, SendMessageRequest{Body: "hi Ada"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Direction != model.DirectionOutbound || msg.Status != model.MessageSent || msg.MessageID != "wamid.out.1" {
		t.Errorf("unexpected message %+v", msg)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "2348000000000:hi Ada" {
		t.Errorf("unexpected provider calls %v", sender.sent)
	}
	updated, _ := repo.FindContact(ctx, contact.ID)
	if updated.LastMessage != "hi Ada" {
		t.Errorf("expected last message updated, got %q", updated.LastMessage)
	}

	if _, err := svc.Send(ctx, org.ID+1, contact.ID, SendMessageRequest{Body: "x"}); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound from another organization, got %v", err)
	}

	sender.err = util.ErrUpstream
	if _, err := svc.Send(ctx, org.ID, contact.ID, SendMessageRequest{Body: "x"}); !errors.Is(err, util.ErrUpstream) {
		t.Errorf("expected provider error, got %v", err)
	}
	messages, _ := repo.ListMessages(ctx, contact.ID, 0)
	if len(messages) != 3 {
		t.Errorf("expected failed send not stored, got %d messages", len(messages))
	}
}

func TestWebhookMessageBody(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "text", raw: `{"type":"text","text":{"body":"hi"}}`, want: "hi"},
		{name: "image caption", raw: `{"type":"image","image":{"caption":"look"}}`, want: "look"},
		{name: "button", raw: `{"type":"button","button":{"text":"Yes"}}`, want: "Yes"},
		{name: "sticker", raw: `{"type":"sticker"}`, want: "[sticker]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var m WebhookMessage
			if err := json.Unmarshal([]byte(tc.raw), &m); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got := m.Body(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
