package service

import (
	"bizbox_backend/internal/config"
	"bizbox_backend/pkg/logger"
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const jobTimeout = time.Minute

// Scheduler runs the periodic background jobs: delivery of scheduled
// notifications and reconciliation of stale pending orders.
type Scheduler struct {
	scheduler     *gocron.Scheduler
	notifications *NotificationService
	commerce      *CommerceService
	cfg           config.SchedulerConfig
}

func NewScheduler(notifications *NotificationService, commerce *CommerceService, cfg config.SchedulerConfig) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:     s,
		notifications: notifications,
		commerce:      commerce,
		cfg:           cfg,
	}
}

func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		logger.Log.Info("Scheduler disabled")
		return nil
	}

	every := s.cfg.NotificationIntervalSec
	if every <= 0 {
		every = 60
	}
	if _, err := s.scheduler.Every(every).Seconds().Do(s.dispatchNotifications); err != nil {
		return err
	}

	payEvery := s.cfg.PaymentIntervalMin
	if payEvery <= 0 {
		payEvery = 10
	}
	if _, err := s.scheduler.Every(payEvery).Minutes().Do(s.reconcileOrders); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	logger.Log.Info("Scheduler started",
		zap.Int("notificationIntervalSec", every),
		zap.Int("paymentIntervalMin", payEvery))
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) dispatchNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.notifications.DispatchDue(ctx, time.Now())
	if err != nil {
		logger.Log.Error("Dispatch scheduled notifications failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Log.Info("Dispatched scheduled notifications", zap.Int("count", n))
	}
}

func (s *Scheduler) reconcileOrders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	age := time.Duration(s.cfg.PendingOrderAgeMin) * time.Minute
	if age <= 0 {
		age = 15 * time.Minute
	}
	n, err := s.commerce.ReconcilePending(ctx, age)
	if err != nil {
		logger.Log.Error("Reconcile pending orders failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Log.Info("Reconciled pending orders", zap.Int("count", n))
	}
}
