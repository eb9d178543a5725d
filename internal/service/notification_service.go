package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"bizbox_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type NotificationService struct {
	Repo     *repository.NotificationRepository
	UserRepo *repository.UserRepository
	Push     PushSender
	Events   EventPublisher
	Presence PresenceChecker
}

// PresenceChecker reports whether a user currently holds a live socket.
type PresenceChecker interface {
	IsUserOnline(ctx context.Context, userID uint) bool
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, push PushSender, events EventPublisher, presence PresenceChecker) *NotificationService {
	return &NotificationService{Repo: repo, UserRepo: userRepo, Push: push, Events: events, Presence: presence}
}

type CreateNotificationRequest struct {
	UserID      uint       `json:"userId" binding:"required"`
	Title       string     `json:"title" binding:"required,max=255"`
	Body        string     `json:"body"`
	Link        string     `json:"link" binding:"omitempty,max=255"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// Create stores a notification for a member of orgID. Future-dated
// notifications wait for the scheduler; the rest are dispatched now.
func (s *NotificationService) Create(ctx context.Context, orgID uint, req CreateNotificationRequest) (*model.Notification, error) {
	user, err := s.UserRepo.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if user.OrgID() != orgID {
		return nil, fmt.Errorf("user: %w", util.ErrNotFound)
	}

	n := &model.Notification{
		UserID:      user.ID,
		Title:       req.Title,
		Body:        req.Body,
		Link:        req.Link,
		ScheduledAt: req.ScheduledAt,
	}
	if orgID > 0 {
		n.OrganizationID = &orgID
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if n.ScheduledAt == nil || !n.ScheduledAt.After(time.Now()) {
		if err := s.dispatch(ctx, n, user); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Notify is used by other services to tell a user something right away.
func (s *NotificationService) Notify(ctx context.Context, userID uint, orgID *uint, title, body, link string) (*model.Notification, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	n := &model.Notification{OrganizationID: orgID, UserID: userID, Title: title, Body: body, Link: link}
	if err := s.Repo.Create(ctx, n); err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, n, user); err != nil {
		return nil, err
	}
	return n, nil
}

// dispatch marks the notification delivered, then pushes it to the device
// of an offline user and publishes it to the user's feed. A notification is
// dispatched at most once.
func (s *NotificationService) dispatch(ctx context.Context, n *model.Notification, user *model.User) error {
	now := time.Now()
	won, err := s.Repo.MarkDelivered(ctx, n.ID, now)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	n.DeliveredAt = &now

	online := s.Presence != nil && s.Presence.IsUserOnline(ctx, user.ID)
	if user.DeviceToken != "" && !online && s.Push != nil {
		if err := s.Push.Send(ctx, user.DeviceToken, n.Title, n.Body); err != nil {
			logger.Log.Warn("Push delivery failed", zap.Uint("notificationId", n.ID), zap.Error(err))
		}
	}
	if s.Events != nil {
		if err := s.Events.Publish(ctx, UserNotificationsTopic(user.ID), Event{Op: "notification.created", Data: n}); err != nil {
			logger.Log.Warn("Publish notification failed", zap.Uint("notificationId", n.ID), zap.Error(err))
		}
	}
	return nil
}

// DispatchDue delivers scheduled notifications whose time has come and
// returns how many were attempted.
func (s *NotificationService) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.Repo.FindDue(ctx, now, 100)
	if err != nil {
		return 0, err
	}
	for i := range due {
		n := &due[i]
		user, err := s.UserRepo.FindByID(ctx, n.UserID)
		if err != nil {
			logger.Log.Warn("Recipient of scheduled notification missing", zap.Uint("notificationId", n.ID), zap.Error(err))
			continue
		}
		if err := s.dispatch(ctx, n, user); err != nil {
			logger.Log.Error("Dispatch notification failed", zap.Uint("notificationId", n.ID), zap.Error(err))
		}
	}
	return len(due), nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool) ([]model.Notification, error) {
	return s.Repo.ListForUser(ctx, userID, unreadOnly)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	if err := s.Repo.MarkRead(ctx, userID, id); err != nil {
		return notFound(err, "notification")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		return notFound(err, "notification")
	}
	return nil
}

type notificationOp struct {
	ID uint `json:"id"`
}

// HandleReadOp serves the "notification.read" socket op.
func (s *NotificationService) HandleReadOp(ctx context.Context, client *HubClient, data json.RawMessage) (string, interface{}, error) {
	var op notificationOp
	if err := json.Unmarshal(data, &op); err != nil || op.ID == 0 {
		return "", nil, util.ErrInvalidInput
	}
	if err := s.MarkRead(ctx, client.UserID, op.ID); err != nil {
		return "", nil, err
	}
	n, err := s.Repo.FindForUser(ctx, client.UserID, op.ID)
	if err != nil {
		return "", nil, notFound(err, "notification")
	}
	return UserNotificationsTopic(client.UserID), n, nil
}

// HandleDeleteOp serves the "notification.delete" socket op.
func (s *NotificationService) HandleDeleteOp(ctx context.Context, client *HubClient, data json.RawMessage) (string, interface{}, error) {
	var op notificationOp
	if err := json.Unmarshal(data, &op); err != nil || op.ID == 0 {
		return "", nil, util.ErrInvalidInput
	}
	if err := s.Delete(ctx, client.UserID, op.ID); err != nil {
		return "", nil, err
	}
	return UserNotificationsTopic(client.UserID), op, nil
}
