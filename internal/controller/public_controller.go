package controller

import (
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// PublicController serves an organization's public site: its published
// blog and the email capture form. A token is optional.
type PublicController struct {
	Orgs      *service.OrganizationService
	Blog      *service.BlogService
	Customers *service.CustomerService
}

func NewPublicController(orgs *service.OrganizationService, blog *service.BlogService, customers *service.CustomerService) *PublicController {
	return &PublicController{Orgs: orgs, Blog: blog, Customers: customers}
}

// @Router /api/public/{orgSlug} [get]
func (c *PublicController) Organization(ctx *gin.Context) {
	org, err := c.Orgs.GetBySlug(ctx.Request.Context(), ctx.Param("orgSlug"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"name": org.Name, "slug": org.Slug, "logoUrl": org.LogoURL})
}

// Posts godoc
// @Summary Published posts of an organization
// @Tags Public
// @Produce json
// @Param orgSlug path string true "Organization slug"
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=service.PostPage}
// @Router /api/public/{orgSlug}/posts [get]
func (c *PublicController) Posts(ctx *gin.Context) {
	page, err := c.Blog.ListPublished(ctx.Request.Context(), ctx.Param("orgSlug"), queryInt(ctx, "page", 1), queryInt(ctx, "limit", 20))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// @Router /api/public/{orgSlug}/posts/{slug} [get]
func (c *PublicController) Post(ctx *gin.Context) {
	post, err := c.Blog.GetPublished(ctx.Request.Context(), ctx.Param("orgSlug"), ctx.Param("slug"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, post)
}

// CaptureCustomer godoc
// @Summary Leave an email with an organization
// @Description Submitting the same email again returns the stored customer. Signed-in callers default to source "member".
// @Tags Public
// @Accept json
// @Produce json
// @Param orgSlug path string true "Organization slug"
// @Param body body service.CaptureCustomerRequest true "Contact details"
// @Success 201 {object} util.Response{data=model.Customer}
// @Router /api/public/{orgSlug}/customers [post]
func (c *PublicController) CaptureCustomer(ctx *gin.Context) {
	var req service.CaptureCustomerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if claims := util.GetUserFromContext(ctx); claims != nil && req.Source == "" {
		req.Source = "member"
	}
	customer, err := c.Customers.Capture(ctx.Request.Context(), ctx.Param("orgSlug"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, customer)
}
