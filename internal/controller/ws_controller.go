package controller

import (
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// WsController upgrades authenticated requests to event hub sockets.
type WsController struct {
	Hub      *service.EventHub
	WhatsApp *service.WhatsAppService
}

func NewWsController(hub *service.EventHub, whatsapp *service.WhatsAppService) *WsController {
	return &WsController{Hub: hub, WhatsApp: whatsapp}
}

// Notifications godoc
// @Summary Personal feed: notifications, results and order updates
// @Tags WebSocket
// @Param token query string true "Access token"
// @Router /ws/notifications [get]
func (c *WsController) Notifications(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID, claims.OrganizationID,
		service.UserNotificationsTopic(claims.UserID),
		service.UserResultsTopic(claims.UserID),
	)
}

// Contacts godoc
// @Summary WhatsApp contact list feed
// @Tags WebSocket
// @Param token query string true "Access token"
// @Router /ws/whatsapp/contacts [get]
func (c *WsController) Contacts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID, claims.OrganizationID,
		util.TopicWhatsAppContacts,
	)
}

// Conversation godoc
// @Summary Live conversation with one contact
// @Tags WebSocket
// @Param id path int true "Contact ID"
// @Param token query string true "Access token"
// @Router /ws/whatsapp/contacts/{id} [get]
func (c *WsController) Conversation(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	// 404 before the upgrade when the contact is not visible to the caller.
	if _, err := c.WhatsApp.ListMessages(ctx.Request.Context(), claims.OrganizationID, id, 1); err != nil {
		util.RespondError(ctx, err)
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, claims.UserID, claims.OrganizationID,
		service.ContactTopic(id),
	)
}
