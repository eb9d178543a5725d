package controller

import (
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	Notifications *service.NotificationService
}

func NewNotificationController(notifications *service.NotificationService) *NotificationController {
	return &NotificationController{Notifications: notifications}
}

// List godoc
// @Summary The caller's delivered notifications
// @Tags Notifications
// @Produce json
// @Security ApiKeyAuth
// @Param unread query bool false "Only unread"
// @Success 200 {object} util.Response{data=[]model.Notification}
// @Router /api/notifications [get]
func (c *NotificationController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	list, err := c.Notifications.List(ctx.Request.Context(), claims.UserID, ctx.Query("unread") == "true")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Create godoc
// @Summary Notify a member of the organization
// @Description Notifications scheduled in the future are delivered by the scheduler.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateNotificationRequest true "Notification"
// @Success 201 {object} util.Response{data=model.Notification}
// @Router /api/notifications [post]
func (c *NotificationController) Create(ctx *gin.Context) {
	var req service.CreateNotificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	n, err := c.Notifications.Create(ctx.Request.Context(), claims.OrganizationID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, n)
}

// @Router /api/notifications/{id}/read [put]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.Notifications.MarkRead(ctx.Request.Context(), claims.UserID, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Router /api/notifications/read-all [put]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	n, err := c.Notifications.MarkAllRead(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": n})
}

// @Router /api/notifications/{id} [delete]
func (c *NotificationController) Delete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.Notifications.Delete(ctx.Request.Context(), claims.UserID, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
