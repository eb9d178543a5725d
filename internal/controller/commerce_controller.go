package controller

import (
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CommerceController struct {
	Commerce *service.CommerceService
}

func NewCommerceController(commerce *service.CommerceService) *CommerceController {
	return &CommerceController{Commerce: commerce}
}

// ListProducts godoc
// @Summary Products of the caller's organization
// @Description Learners only see active products.
// @Tags Commerce
// @Produce json
// @Security ApiKeyAuth
// @Param kind query string false "product, service or video"
// @Success 200 {object} util.Response{data=[]model.Product}
// @Router /api/products [get]
func (c *CommerceController) ListProducts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	products, err := c.Commerce.ListProducts(ctx.Request.Context(), claims.OrganizationID, ctx.Query("kind"), !isStaff(claims))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, products)
}

// @Router /api/products/{id} [get]
func (c *CommerceController) GetProduct(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	product, err := c.Commerce.GetProduct(ctx.Request.Context(), claims.OrganizationID, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if !product.Active && !isStaff(claims) {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, product)
}

// CreateProduct godoc
// @Summary Add a product, service or video to the catalog
// @Tags Commerce
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateProductRequest true "Product"
// @Success 201 {object} util.Response{data=model.Product}
// @Router /api/products [post]
func (c *CommerceController) CreateProduct(ctx *gin.Context) {
	var req service.CreateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	product, err := c.Commerce.CreateProduct(ctx.Request.Context(), claims.OrganizationID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, product)
}

// @Router /api/products/{id} [patch]
func (c *CommerceController) UpdateProduct(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	product, err := c.Commerce.UpdateProduct(ctx.Request.Context(), claims.OrganizationID, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, product)
}

// @Router /api/products/{id} [delete]
func (c *CommerceController) DeleteProduct(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.Commerce.DeleteProduct(ctx.Request.Context(), claims.OrganizationID, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Router /api/products/{id}/image [post]
func (c *CommerceController) UploadImage(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	claims := util.GetUserFromContext(ctx)
	product, err := c.Commerce.UploadProductImage(ctx.Request.Context(), claims.OrganizationID, id, fh)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, product)
}

// UploadVideo godoc
// @Summary Attach a video to a product
// @Description The duration is probed and a thumbnail is generated from the first second.
// @Tags Commerce
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Product ID"
// @Param file formData file true "Video"
// @Success 200 {object} util.Response{data=model.Product}
// @Router /api/products/{id}/video [post]
func (c *CommerceController) UploadVideo(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	claims := util.GetUserFromContext(ctx)
	product, err := c.Commerce.UploadProductVideo(ctx.Request.Context(), claims.OrganizationID, id, fh)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, product)
}

// Checkout godoc
// @Summary Open a pending order for a product
// @Tags Commerce
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CheckoutRequest true "Order"
// @Success 201 {object} util.Response{data=model.Order}
// @Router /api/orders [post]
func (c *CommerceController) Checkout(ctx *gin.Context) {
	var req service.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	order, err := c.Commerce.Checkout(ctx.Request.Context(), claims.UserID, claims.OrganizationID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, order)
}

// @Router /api/orders [get]
func (c *CommerceController) MyOrders(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	orders, err := c.Commerce.ListOrdersForUser(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, orders)
}

// @Router /api/orders/all [get]
func (c *CommerceController) OrganizationOrders(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	orders, err := c.Commerce.ListOrdersForOrganization(ctx.Request.Context(), claims.OrganizationID, ctx.Query("status"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, orders)
}

// Verify godoc
// @Summary Confirm payment of an order with the gateway
// @Description Paid with the full amount marks the order paid, anything else failed. Settled orders are returned unchanged.
// @Tags Commerce
// @Produce json
// @Security ApiKeyAuth
// @Param reference path string true "Order reference"
// @Success 200 {object} util.Response{data=model.Order}
// @Failure 502 {object} util.Response "Gateway unavailable"
// @Router /api/orders/{reference}/verify [post]
func (c *CommerceController) Verify(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	order, err := c.Commerce.Verify(ctx.Request.Context(), claims.UserID, ctx.Param("reference"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, order)
}
