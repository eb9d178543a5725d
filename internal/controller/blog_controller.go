package controller

import (
	"bizbox_backend/internal/service"
	"bizbox_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BlogController struct {
	Blog *service.BlogService
}

func NewBlogController(blog *service.BlogService) *BlogController {
	return &BlogController{Blog: blog}
}

// List godoc
// @Summary All posts of the organization, drafts included
// @Tags Blog
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, at most 100"
// @Success 200 {object} util.Response{data=service.PostPage}
// @Router /api/posts [get]
func (c *BlogController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, err := c.Blog.List(ctx.Request.Context(), claims.OrganizationID, queryInt(ctx, "page", 1), queryInt(ctx, "limit", 20))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, page)
}

// @Router /api/posts/{id} [get]
func (c *BlogController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	post, err := c.Blog.Get(ctx.Request.Context(), claims.OrganizationID, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, post)
}

// Create godoc
// @Summary Write a post
// @Description The slug defaults to the title and must be unique in the organization.
// @Tags Blog
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreatePostRequest true "Post"
// @Success 201 {object} util.Response{data=model.Post}
// @Failure 409 {object} util.Response
// @Router /api/posts [post]
func (c *BlogController) Create(ctx *gin.Context) {
	var req service.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	post, err := c.Blog.Create(ctx.Request.Context(), claims.OrganizationID, claims.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, post)
}

// @Router /api/posts/{id} [patch]
func (c *BlogController) Update(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	post, err := c.Blog.Update(ctx.Request.Context(), claims.OrganizationID, id, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, post)
}

// @Router /api/posts/{id} [delete]
func (c *BlogController) Delete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.Blog.Delete(ctx.Request.Context(), claims.OrganizationID, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Router /api/posts/{id}/cover [post]
func (c *BlogController) UploadCover(ctx *gin.Context) {
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
	post, err := c.Blog.UploadCover(ctx.Request.Context(), claims.OrganizationID, id, fh)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, post)
}
