package controller

import (
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"
	"bizbox_backend/pkg/logger"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Webhook deliveries larger than this are rejected.
const maxWebhookBody = 1 << 20

type WhatsAppController struct {
	WhatsApp *service.WhatsAppService
}

func NewWhatsAppController(whatsapp *service.WhatsAppService) *WhatsAppController {
	return &WhatsAppController{WhatsApp: whatsapp}
}

// VerifyWebhook godoc
// @Summary Webhook subscription handshake
// @Tags WhatsApp
// @Produce plain
// @Param hub.mode query string true "subscribe"
// @Param hub.verify_token query string true "Configured verify token"
// @Param hub.challenge query string true "Echoed back"
// @Success 200 {string} string "challenge"
// @Failure 403 {object} util.Response
// @Router /api/whatsapp/webhook [get]
func (c *WhatsAppController) VerifyWebhook(ctx *gin.Context) {
	challenge, err := c.WhatsApp.VerifySubscription(
		ctx.Query("hub.mode"),
		ctx.Query("hub.verify_token"),
		ctx.Query("hub.challenge"),
	)
	if err != nil {
		util.Forbidden(ctx)
		return
	}
	ctx.String(http.StatusOK, challenge)
}

// ReceiveWebhook godoc
// @Summary Receive messages and delivery statuses
// @Description Answers 200 once the delivery is stored; storage failures answer 500 so the provider retries.
// @Tags WhatsApp
// @Accept json
// @Produce json
// @Param X-Hub-Signature-256 header string false "sha256=<hex hmac of body>"
// @Success 200 {object} util.Response{data=service.IngestReport}
// @Failure 403 {object} util.Response
// @Router /api/whatsapp/webhook [post]
func (c *WhatsAppController) ReceiveWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		util.BadRequest(ctx, "unreadable body")
		return
	}
	if err := c.WhatsApp.VerifySignature(body, ctx.GetHeader("X-Hub-Signature-256")); err != nil {
		logger.Log.Warn("Webhook signature rejected", zap.String("ip", ctx.ClientIP()))
		util.Forbidden(ctx)
		return
	}

	var payload service.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		util.BadRequest(ctx, "malformed payload")
		return
	}

	report, err := c.WhatsApp.Ingest(ctx.Request.Context(), &payload)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// ListContacts godoc
// @Summary WhatsApp contacts, most recent conversation first
// @Tags WhatsApp
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Contact}
// @Router /api/whatsapp/contacts [get]
func (c *WhatsAppController) ListContacts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	contacts, err := c.WhatsApp.ListContacts(ctx.Request.Context(), claims.OrganizationID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, contacts)
}

// ListMessages godoc
// @Summary Conversation with a contact
// @Tags WhatsApp
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Contact ID"
// @Param limit query int false "Maximum messages, default 50"
// @Success 200 {object} util.Response{data=[]model.WAMessage}
// @Router /api/whatsapp/contacts/{id}/messages [get]
func (c *WhatsAppController) ListMessages(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	messages, err := c.WhatsApp.ListMessages(ctx.Request.Context(), claims.OrganizationID, id, queryInt(ctx, "limit", 50))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, messages)
}

// SendMessage godoc
// @Summary Send a text message to a contact
// @Tags WhatsApp
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Contact ID"
// @Param body body service.SendMessageRequest true "Message"
// @Success 201 {object} util.Response{data=model.WAMessage}
// @Failure 502 {object} util.Response "Provider rejected the message"
// @Router /api/whatsapp/contacts/{id}/messages [post]
func (c *WhatsAppController) SendMessage(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	msg, err := c.WhatsApp.Send(ctx.Request.Context(), claims.OrganizationID, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, msg)
}
