package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"gorm.io/gorm"
)

type OrganizationService struct {
	Repo     *repository.OrganizationRepository
	UserRepo *repository.UserRepository
	Storage  *StorageService
}

func NewOrganizationService(repo *repository.OrganizationRepository, userRepo *repository.UserRepository, storage *StorageService) *OrganizationService {
	return &OrganizationService{Repo: repo, UserRepo: userRepo, Storage: storage}
}

type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required,max=150"`
	Slug string `json:"slug" binding:"omitempty,max=150"`
}

// Create makes the caller the admin of a new organization. Callers already
// in an organization are rejected.
func (s *OrganizationService) Create(ctx context.Context, ownerID uint, req CreateOrganizationRequest) (*model.Organization, *model.User, error) {
	owner, err := s.UserRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, nil, notFound(err, "user")
	}
	if owner.OrganizationID != nil {
		return nil, nil, fmt.Errorf("%w: user already belongs to an organization", util.ErrConflict)
	}

	slug := util.Slugify(req.Slug)
	if slug == "" {
		slug = util.Slugify(req.Name)
	}
	if slug == "" {
		return nil, nil, fmt.Errorf("%w: organization name has no usable characters", util.ErrInvalidInput)
	}
	exists, err := s.Repo.SlugExists(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, fmt.Errorf("%w: slug %q is taken", util.ErrConflict, slug)
	}

	org := &model.Organization{Name: req.Name, Slug: slug, OwnerID: ownerID}
	if err := s.Repo.Create(ctx, org); err != nil {
		return nil, nil, err
	}
	owner.OrganizationID = &org.ID
	owner.Role = model.Admin
	return org, owner, nil
}

func (s *OrganizationService) Get(ctx context.Context, id uint) (*model.Organization, error) {
	org, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "organization")
	}
	return org, nil
}

func (s *OrganizationService) GetBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	org, err := s.Repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "organization")
	}
	return org, nil
}

type UpdateOrganizationRequest struct {
	Name *string `json:"name" binding:"omitempty,max=150"`
}

func (s *OrganizationService) Update(ctx context.Context, id uint, req UpdateOrganizationRequest) (*model.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		org.Name = *req.Name
	}
	if err := s.Repo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrganizationService) UploadLogo(ctx context.Context, id uint, fh *multipart.FileHeader) (*model.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.Storage.UploadImage(ctx, "organizations", fh)
	if err != nil {
		return nil, err
	}
	org.LogoURL = url
	if err := s.Repo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrganizationService) ListStaff(ctx context.Context, orgID uint) ([]model.User, error) {
	return s.UserRepo.ListByOrganization(ctx, orgID, model.Staff, model.Admin)
}

// AddStaff moves an existing account into the organization as staff.
func (s *OrganizationService) AddStaff(ctx context.Context, orgID uint, email string) (*model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	if user.OrganizationID != nil && *user.OrganizationID != orgID {
		return nil, fmt.Errorf("%w: user belongs to another organization", util.ErrConflict)
	}
	role := model.Staff
	if user.Role == model.Admin && user.OrganizationID != nil {
		role = model.Admin
	}
	if err := s.UserRepo.JoinOrganization(ctx, user.ID, orgID, role); err != nil {
		return nil, err
	}
	user.OrganizationID = &orgID
	user.Role = role
	return user, nil
}
