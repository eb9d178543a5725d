package controller

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/testutil"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type nopSender struct{}

func (nopSender) SendText(context.Context, string, string) (string, error) {
	return "wamid.out", nil
}

const webhookSecret = "app-secret"

func webhookRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	svc := service.NewWhatsAppService(repository.NewWhatsAppRepository(db), nopSender{}, nil, config.WhatsAppConfig{
		VerifyToken: "verify-me",
		AppSecret:   webhookSecret,
	})
	ctrl := NewWhatsAppController(svc)

	r := gin.New()
	r.GET("/webhook", ctrl.VerifyWebhook)
	r.POST("/webhook", ctrl.ReceiveWebhook)
	return r
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookHandshake(t *testing.T) {
	r := webhookRouter(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"matching token", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusOK},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", http.StatusForbidden},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Body.String() != "42" {
				t.Errorf("body = %q, want challenge", w.Body.String())
			}
		})
	}
}

func TestReceiveWebhook(t *testing.T) {
	delivery := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
		"contacts":[{"wa_id":"2348000000000","profile":{"name":"Ada"}}],
		"messages":[{"id":"wamid.1","from":"2348000000000","timestamp":"1700000000","type":"text","text":{"body":"hi"}}]}}]}]}`

	tests := []struct {
		name      string
		body      string
		signature string
		want      int
	}{
		{"signed delivery", delivery, sign(delivery), http.StatusOK},
		{"bad signature", delivery, sign("something else"), http.StatusForbidden},
		{"missing signature", delivery, "", http.StatusForbidden},
		{"malformed json", "{", sign("{"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := webhookRouter(t)
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.signature != "" {
				req.Header.Set("X-Hub-Signature-256", tt.signature)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestReceiveWebhookRedelivery(t *testing.T) {
	r := webhookRouter(t)
	delivery := `{"entry":[{"changes":[{"value":{"messages":[
		{"id":"wamid.7","from":"2348000000001","timestamp":"1700000000","type":"text","text":{"body":"again"}}]}}]}]}`

	var reports []service.IngestReport
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(delivery))
		req.Header.Set("X-Hub-Signature-256", sign(delivery))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d (%s)", i, w.Code, w.Body.String())
		}
		var body envelope
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		var report service.IngestReport
		if err := json.Unmarshal(body.Data, &report); err != nil {
			t.Fatalf("decode report: %v", err)
		}
		reports = append(reports, report)
	}

	if reports[0].MessagesCreated != 1 || reports[0].MessagesDuplicated != 0 {
		t.Errorf("first delivery report %+v", reports[0])
	}
	if reports[1].MessagesCreated != 0 || reports[1].MessagesDuplicated != 1 {
		t.Errorf("redelivery report %+v", reports[1])
	}
}
