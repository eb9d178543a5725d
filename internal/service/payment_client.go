package service

import (
	"bizbox_backend/internal/config"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PaymentVerification is the gateway's view of a payment reference.
type PaymentVerification struct {
	Reference string
	Paid      bool
	Amount    int64 // Minor units.
	Currency  string
	PaidAt    *time.Time
}

// PaymentVerifier checks a payment reference with the gateway.
type PaymentVerifier interface {
	Verify(ctx context.Context, reference string) (*PaymentVerification, error)
}

// PaystackClient verifies transactions against a Paystack-compatible API.
type PaystackClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewPaystackClient(cfg config.PaymentConfig) *PaystackClient {
	return &PaystackClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		http:      newProviderHTTPClient(),
	}
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string     `json:"status"`
		Reference string     `json:"reference"`
		Amount    int64      `json:"amount"`
		Currency  string     `json:"currency"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

func (c *PaystackClient) Verify(ctx context.Context, reference string) (*PaymentVerification, error) {
	var resp paystackVerifyResponse
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	if err := doJSON(ctx, c.http, http.MethodGet, endpoint, c.secretKey, nil, &resp); err != nil {
		return nil, err
	}
	return &PaymentVerification{
		Reference: resp.Data.Reference,
		Paid:      resp.Status && resp.Data.Status == "success",
		Amount:    resp.Data.Amount,
		Currency:  resp.Data.Currency,
		PaidAt:    resp.Data.PaidAt,
	}, nil
}
