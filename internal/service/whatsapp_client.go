package service

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// WhatsAppSender sends an outbound text and returns the provider message id.
type WhatsAppSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// WhatsAppClient talks to the WhatsApp Business Cloud API. It holds no
// per-call state and is safe to share.
type WhatsAppClient struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	http          *http.Client
}

func NewWhatsAppClient(cfg config.WhatsAppConfig) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL:       strings.TrimRight(cfg.APIBaseURL, "/"),
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		http:          newProviderHTTPClient(),
	}
}

type waSendRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type waSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) (string, error) {
	if c.phoneNumberID == "" || c.accessToken == "" {
		return "", fmt.Errorf("%w: whatsapp sender is not configured", util.ErrUpstream)
	}

	req := waSendRequest{MessagingProduct: "whatsapp", To: to, Type: "text"}
	req.Text.Body = body

	var resp waSendResponse
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	if err := doJSON(ctx, c.http, http.MethodPost, url, c.accessToken, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Messages) == 0 || resp.Messages[0].ID == "" {
		return "", fmt.Errorf("%w: %v", util.ErrUpstream, errors.New("response carried no message id"))
	}
	return resp.Messages[0].ID, nil
}
