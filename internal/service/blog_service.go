package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"context"
	"fmt"
	"mime/multipart"
	"time"
)

type BlogService struct {
	Repo    *repository.BlogRepository
	Orgs    *OrganizationService
	Storage *StorageService
}

func NewBlogService(repo *repository.BlogRepository, orgs *OrganizationService, storage *StorageService) *BlogService {
	return &BlogService{Repo: repo, Orgs: orgs, Storage: storage}
}

type CreatePostRequest struct {
	Title     string `json:"title" binding:"required,max=255"`
	Slug      string `json:"slug" binding:"omitempty,max=255"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

type UpdatePostRequest struct {
	Title     *string `json:"title" binding:"omitempty,max=255"`
	Slug      *string `json:"slug" binding:"omitempty,max=255"`
	Body      *string `json:"body"`
	Published *bool   `json:"published"`
}

type PostPage struct {
	Items []model.Post `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (s *BlogService) uniqueSlug(ctx context.Context, orgID uint, want string, excludeID uint) (string, error) {
	slug := util.Slugify(want)
	if slug == "" {
		return "", fmt.Errorf("%w: slug is empty", util.ErrInvalidInput)
	}
	taken, err := s.Repo.SlugExists(ctx, orgID, slug, excludeID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("post slug %q: %w", slug, util.ErrConflict)
	}
	return slug, nil
}

func (s *BlogService) Create(ctx context.Context, orgID, authorID uint, req CreatePostRequest) (*model.Post, error) {
	want := req.Slug
	if want == "" {
		want = req.Title
	}
	slug, err := s.uniqueSlug(ctx, orgID, want, 0)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		OrganizationID: orgID,
		AuthorID:       authorID,
		Title:          req.Title,
		Slug:           slug,
		Body:           req.Body,
		Published:      req.Published,
	}
	if post.Published {
		now := time.Now()
		post.PublishedAt = &now
	}
	if err := s.Repo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *BlogService) Get(ctx context.Context, orgID, id uint) (*model.Post, error) {
	post, err := s.Repo.Find(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err, "post")
	}
	return post, nil
}

func (s *BlogService) List(ctx context.Context, orgID uint, page, limit int) (*PostPage, error) {
	page, limit = pageBounds(page, limit)
	posts, total, err := s.Repo.List(ctx, orgID, false, page, limit)
	if err != nil {
		return nil, err
	}
	return &PostPage{Items: posts, Total: total, Page: page, Limit: limit}, nil
}

func (s *BlogService) Update(ctx context.Context, orgID, id uint, req UpdatePostRequest) (*model.Post, error) {
	post, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Slug != nil {
		slug, err := s.uniqueSlug(ctx, orgID, *req.Slug, post.ID)
		if err != nil {
			return nil, err
		}
		fields["slug"] = slug
	}
	if req.Body != nil {
		fields["body"] = *req.Body
	}
	if req.Published != nil {
		fields["published"] = *req.Published
		if *req.Published && post.PublishedAt == nil {
			fields["published_at"] = time.Now()
		}
	}
	if err := s.Repo.Update(ctx, post, fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, orgID, id)
}

func (s *BlogService) Delete(ctx context.Context, orgID, id uint) error {
	if err := s.Repo.Delete(ctx, orgID, id); err != nil {
		return notFound(err, "post")
	}
	return nil
}

func (s *BlogService) UploadCover(ctx context.Context, orgID, id uint, fh *multipart.FileHeader) (*model.Post, error) {
	post, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	url, err := s.Storage.UploadImage(ctx, fmt.Sprintf("blog/%d", orgID), fh)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, post, map[string]interface{}{"cover_url": url}); err != nil {
		return nil, err
	}
	post.CoverURL = url
	return post, nil
}

// ListPublished serves the public blog of the organization with orgSlug.
func (s *BlogService) ListPublished(ctx context.Context, orgSlug string, page, limit int) (*PostPage, error) {
	org, err := s.Orgs.GetBySlug(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	page, limit = pageBounds(page, limit)
	posts, total, err := s.Repo.List(ctx, org.ID, true, page, limit)
	if err != nil {
		return nil, err
	}
	return &PostPage{Items: posts, Total: total, Page: page, Limit: limit}, nil
}

func (s *BlogService) GetPublished(ctx context.Context, orgSlug, slug string) (*model.Post, error) {
	org, err := s.Orgs.GetBySlug(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	post, err := s.Repo.FindPublishedBySlug(ctx, org.ID, slug)
	if err != nil {
		return nil, notFound(err, "post")
	}
	return post, nil
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
