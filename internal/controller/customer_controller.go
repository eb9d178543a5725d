package controller

import (
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CustomerController struct {
	Customers *service.CustomerService
}

func NewCustomerController(customers *service.CustomerService) *CustomerController {
	return &CustomerController{Customers: customers}
}

// List godoc
// @Summary Emails captured by the organization's public forms
// @Tags Customers
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=service.CustomerPage}
// @Router /api/customers [get]
func (c *CustomerController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, err := c.Customers.List(ctx.Request.Context(), claims.OrganizationID, queryInt(ctx, "page", 1), queryInt(ctx, "limit", 20))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// @Router /api/customers/{id} [delete]
func (c *CustomerController) Delete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.Customers.Delete(ctx.Request.Context(), claims.OrganizationID, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
