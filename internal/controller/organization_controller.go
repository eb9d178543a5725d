package controller

import (
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type OrganizationController struct {
	OrgService  *service.OrganizationService
	AuthService *service.AuthService
}

func NewOrganizationController(orgService *service.OrganizationService, authService *service.AuthService) *OrganizationController {
	return &OrganizationController{OrgService: orgService, AuthService: authService}
}

// Create godoc
// @Summary Create an organization owned by the caller
// @Description The caller becomes its admin. New tokens carrying the organization are returned.
// @Tags Organizations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateOrganizationRequest true "Organization"
// @Success 201 {object} util.Response{data=object}
// @Failure 409 {object} util.Response
// @Router /api/organizations [post]
func (c *OrganizationController) Create(ctx *gin.Context) {
	var req service.CreateOrganizationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	org, owner, err := c.OrgService.Create(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	pair, err := c.AuthService.IssueTokens(owner)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{
		"organization": org,
		"token":        pair.Access,
		"refreshToken": pair.Refresh,
	})
}

// Mine godoc
// @Summary The caller's organization
// @Tags Organizations
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Organization}
// @Router /api/organizations/me [get]
func (c *OrganizationController) Mine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	org, err := c.OrgService.Get(ctx.Request.Context(), claims.OrganizationID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, org)
}

// Update godoc
// @Summary Rename the caller's organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.UpdateOrganizationRequest true "Fields to change"
// @Success 200 {object} util.Response{data=model.Organization}
// @Router /api/organizations/me [patch]
func (c *OrganizationController) Update(ctx *gin.Context) {
	var req service.UpdateOrganizationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	org, err := c.OrgService.Update(ctx.Request.Context(), claims.OrganizationID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, org)
}

// UploadLogo godoc
// @Summary Upload the organization's logo
// @Tags Organizations
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "Image"
// @Success 200 {object} util.Response{data=model.Organization}
// @Router /api/organizations/me/logo [post]
func (c *OrganizationController) UploadLogo(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	claims := util.GetUserFromContext(ctx)
	org, err := c.OrgService.UploadLogo(ctx.Request.Context(), claims.OrganizationID, file)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, org)
}

// ListStaff godoc
// @Summary Staff and admins of the organization
// @Tags Organizations
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.User}
// @Router /api/organizations/me/staff [get]
func (c *OrganizationController) ListStaff(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	staff, err := c.OrgService.ListStaff(ctx.Request.Context(), claims.OrganizationID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, staff)
}

type AddStaffRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AddStaff godoc
// @Summary Add an existing account to the organization as staff
// @Tags Organizations
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body AddStaffRequest true "Account email"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/organizations/me/staff [post]
func (c *OrganizationController) AddStaff(ctx *gin.Context) {
	var req AddStaffRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	user, err := c.OrgService.AddStaff(ctx.Request.Context(), claims.OrganizationID, req.Email)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
