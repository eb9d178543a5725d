package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"bizbox_backend/pkg/logger"
	"bizbox_backend/pkg/monitoring"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CommerceService struct {
	Repo     *repository.CommerceRepository
	Storage  *StorageService
	Payments PaymentVerifier
	Events   EventPublisher
	Notifier UserNotifier
	Currency string
}

// UserNotifier stores and delivers a notification to one user.
type UserNotifier interface {
	Notify(ctx context.Context, userID uint, orgID *uint, title, body, link string) (*model.Notification, error)
}

func NewCommerceService(repo *repository.CommerceRepository, storage *StorageService, payments PaymentVerifier, events EventPublisher, currency string) *CommerceService {
	return &CommerceService{Repo: repo, Storage: storage, Payments: payments, Events: events, Currency: currency}
}

type CreateProductRequest struct {
	Kind        string `json:"kind" binding:"omitempty,oneof=product service video"`
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
	Price       int64  `json:"price" binding:"min=0"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	Active      *bool  `json:"active"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=200"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" binding:"omitempty,min=0"`
	Active      *bool   `json:"active"`
}

func (s *CommerceService) CreateProduct(ctx context.Context, orgID uint, req CreateProductRequest) (*model.Product, error) {
	p := &model.Product{
		OrganizationID: orgID,
		Kind:           req.Kind,
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		Currency:       strings.ToUpper(req.Currency),
		Active:         true,
	}
	if p.Kind == "" {
		p.Kind = model.ProductKindProduct
	}
	if p.Currency == "" {
		p.Currency = s.Currency
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CommerceService) GetProduct(ctx context.Context, orgID, id uint) (*model.Product, error) {
	p, err := s.Repo.FindProduct(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

// ListProducts lists the organization's catalog; non-staff callers only see
// active products.
func (s *CommerceService) ListProducts(ctx context.Context, orgID uint, kind string, activeOnly bool) ([]model.Product, error) {
	return s.Repo.ListProducts(ctx, orgID, kind, activeOnly)
}

func (s *CommerceService) UpdateProduct(ctx context.Context, orgID, id uint, req UpdateProductRequest) (*model.Product, error) {
	p, err := s.GetProduct(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if err := s.Repo.UpdateProduct(ctx, p, fields); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, orgID, id)
}

func (s *CommerceService) DeleteProduct(ctx context.Context, orgID, id uint) error {
	if err := s.Repo.DeleteProduct(ctx, orgID, id); err != nil {
		return notFound(err, "product")
	}
	return nil
}

func (s *CommerceService) UploadProductImage(ctx context.Context, orgID, id uint, fh *multipart.FileHeader) (*model.Product, error) {
	p, err := s.GetProduct(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	url, err := s.Storage.UploadImage(ctx, fmt.Sprintf("products/%d", orgID), fh)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateProduct(ctx, p, map[string]interface{}{"image_url": url}); err != nil {
		return nil, err
	}
	p.ImageURL = url
	return p, nil
}

// UploadProductVideo stores the video, a thumbnail grabbed one second in
// and the probed duration. The product becomes a video product.
func (s *CommerceService) UploadProductVideo(ctx context.Context, orgID, id uint, fh *multipart.FileHeader) (*model.Product, error) {
	p, err := s.GetProduct(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !util.HasAllowedExtension(fh.Filename, util.AllowedVideoExtensions) {
		return nil, fmt.Errorf("%w: unsupported video type", util.ErrInvalidInput)
	}

	tmpDir, err := os.MkdirTemp("", "bizbox-video-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	videoPath := filepath.Join(tmpDir, "source"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := saveMultipart(fh, videoPath); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"kind": model.ProductKindVideo}
	info, err := util.GetVideoInfo(videoPath)
	if err != nil {
		logger.Log.Warn("Probe product video failed", zap.Uint("productId", p.ID), zap.Error(err))
	} else {
		fields["video_duration"] = info.Duration
	}

	prefix := fmt.Sprintf("products/%d", orgID)
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = util.MimeOctetStream
	}
	videoURL, err := s.Storage.UploadFile(ctx, util.ObjectName(prefix, fh.Filename), videoPath, contentType)
	if err != nil {
		return nil, err
	}
	fields["video_url"] = videoURL

	thumbPath := filepath.Join(tmpDir, "thumb.jpg")
	if err := util.GenerateThumbnail(videoPath, thumbPath, "00:00:01"); err != nil {
		logger.Log.Warn("Generate thumbnail failed", zap.Uint("productId", p.ID), zap.Error(err))
	} else if thumbURL, err := s.Storage.UploadFile(ctx, util.ObjectName(prefix, "thumb.jpg"), thumbPath, "image/jpeg"); err == nil {
		fields["thumbnail_url"] = thumbURL
	} else {
		logger.Log.Warn("Upload thumbnail failed", zap.Uint("productId", p.ID), zap.Error(err))
	}

	if err := s.Repo.UpdateProduct(ctx, p, fields); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, orgID, id)
}

func saveMultipart(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, src)
	return err
}

type CheckoutRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  int  `json:"quantity" binding:"omitempty,min=1,max=1000"`
}

// Checkout opens a pending order whose reference is handed to the payment
// gateway by the client.
func (s *CommerceService) Checkout(ctx context.Context, userID, orgID uint, req CheckoutRequest) (*model.Order, error) {
	p, err := s.GetProduct(ctx, orgID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: product is not for sale", util.ErrInvalidInput)
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}

	order := &model.Order{
		OrganizationID: orgID,
		UserID:         userID,
		ProductID:      p.ID,
		Quantity:       qty,
		Amount:         p.Price * int64(qty),
		Currency:       p.Currency,
		Reference:      strings.ReplaceAll(uuid.New().String(), "-", ""),
		Status:         model.OrderPending,
	}
	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	order.Product = p
	return order, nil
}

func (s *CommerceService) ListOrdersForUser(ctx context.Context, userID uint) ([]model.Order, error) {
	return s.Repo.ListOrdersForUser(ctx, userID)
}

func (s *CommerceService) ListOrdersForOrganization(ctx context.Context, orgID uint, status string) ([]model.Order, error) {
	return s.Repo.ListOrdersForOrganization(ctx, orgID, status)
}

// Verify asks the gateway about the order's reference. A successful payment
// of the full amount marks the order paid; anything else marks it failed.
// Orders that already left pending are returned unchanged.
func (s *CommerceService) Verify(ctx context.Context, userID uint, reference string) (*model.Order, error) {
	order, err := s.Repo.FindOrderByReference(ctx, reference)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if userID > 0 && order.UserID != userID {
		return nil, fmt.Errorf("order: %w", util.ErrNotFound)
	}
	if order.Status != model.OrderPending {
		return order, nil
	}
	if err := s.settle(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *CommerceService) settle(ctx context.Context, order *model.Order) error {
	verification, err := s.Payments.Verify(ctx, order.Reference)
	if err != nil {
		monitoring.PaymentsVerified.WithLabelValues("error").Inc()
		return err
	}

	status := model.OrderFailed
	var paidAt *time.Time
	if verification.Paid && verification.Amount == order.Amount {
		status = model.OrderPaid
		paidAt = verification.PaidAt
		if paidAt == nil {
			now := time.Now()
			paidAt = &now
		}
	} else if verification.Paid {
		logger.Log.Warn("Payment amount mismatch",
			zap.String("reference", order.Reference),
			zap.Int64("expected", order.Amount),
			zap.Int64("paid", verification.Amount))
	}

	changed, err := s.Repo.SetOrderStatus(ctx, order, status, paidAt)
	if err != nil {
		return err
	}
	if !changed {
		fresh, err := s.Repo.FindOrderByReference(ctx, order.Reference)
		if err != nil {
			return err
		}
		*order = *fresh
		return nil
	}
	monitoring.PaymentsVerified.WithLabelValues(status).Inc()

	if s.Events != nil {
		if err := s.Events.Publish(ctx, UserNotificationsTopic(order.UserID), Event{Op: "order.updated", Data: order}); err != nil {
			logger.Log.Warn("Publish order update failed", zap.String("reference", order.Reference), zap.Error(err))
		}
	}
	if s.Notifier != nil && status == model.OrderPaid {
		orgID := order.OrganizationID
		body := fmt.Sprintf("We received your payment for order %s.", order.Reference)
		if _, err := s.Notifier.Notify(ctx, order.UserID, &orgID, "Payment received", body, "/orders"); err != nil {
			logger.Log.Warn("Payment notification failed", zap.String("reference", order.Reference), zap.Error(err))
		}
	}
	return nil
}

// ReconcilePending re-verifies orders left pending for longer than maxAge.
// Gateway failures keep the order pending for the next run.
func (s *CommerceService) ReconcilePending(ctx context.Context, maxAge time.Duration) (int, error) {
	orders, err := s.Repo.FindStalePending(ctx, time.Now().Add(-maxAge), 50)
	if err != nil {
		return 0, err
	}
	settled := 0
	for i := range orders {
		if err := s.settle(ctx, &orders[i]); err != nil {
			logger.Log.Warn("Reconcile order failed", zap.String("reference", orders[i].Reference), zap.Error(err))
			continue
		}
		settled++
	}
	return settled, nil
}
