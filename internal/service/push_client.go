package service

import (
	"bizbox_backend/internal/config"
	"context"
	"net/http"
)

// PushSender delivers a notification to one device.
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string) error
}

// NewPushSender returns an HTTP sender, or a no-op sender when no endpoint
// is configured.
func NewPushSender(cfg config.PushConfig) PushSender {
	if cfg.Endpoint == "" {
		return noopPush{}
	}
	return &PushClient{endpoint: cfg.Endpoint, serverKey: cfg.ServerKey, http: newProviderHTTPClient()}
}

type noopPush struct{}

func (noopPush) Send(context.Context, string, string, string) error { return nil }

// PushClient posts FCM-style messages to a push gateway.
type PushClient struct {
	endpoint  string
	serverKey string
	http      *http.Client
}

type pushRequest struct {
	To           string `json:"to"`
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
}

func (c *PushClient) Send(ctx context.Context, deviceToken, title, body string) error {
	req := pushRequest{To: deviceToken}
	req.Notification.Title = title
	req.Notification.Body = body
	return doJSON(ctx, c.http, http.MethodPost, c.endpoint, c.serverKey, req, nil)
}
