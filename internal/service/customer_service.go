package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"context"
	"strings"
)

type CustomerService struct {
	Repo *repository.CustomerRepository
	Orgs *OrganizationService
}

func NewCustomerService(repo *repository.CustomerRepository, orgs *OrganizationService) *CustomerService {
	return &CustomerService{Repo: repo, Orgs: orgs}
}

type CaptureCustomerRequest struct {
	Email  string `json:"email" binding:"required,email,max=150"`
	Name   string `json:"name" binding:"max=150"`
	Source string `json:"source" binding:"max=50"`
}

type CustomerPage struct {
	Items []model.Customer `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// Capture records an email for the organization behind orgSlug. Capturing
// the same email again returns the existing customer.
func (s *CustomerService) Capture(ctx context.Context, orgSlug string, req CaptureCustomerRequest) (*model.Customer, error) {
	org, err := s.Orgs.GetBySlug(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	c := &model.Customer{
		OrganizationID: org.ID,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Name:           req.Name,
		Source:         req.Source,
	}
	if err := s.Repo.Capture(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CustomerService) List(ctx context.Context, orgID uint, page, limit int) (*CustomerPage, error) {
	page, limit = pageBounds(page, limit)
	items, total, err := s.Repo.List(ctx, orgID, page, limit)
	if err != nil {
		return nil, err
	}
	return &CustomerPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *CustomerService) Delete(ctx context.Context, orgID, id uint) error {
	if err := s.Repo.Delete(ctx, orgID, id); err != nil {
		return notFound(err, "customer")
	}
	return nil
}
