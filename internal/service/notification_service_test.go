package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/testutil"
	"bizbox_backend/internal/util"
	"context"
	"errors"
	"testing"
	"time"
)

type recordingPush struct {
	tokens []string
}

func (p *recordingPush) Send(_ context.Context, token, _, _ string) error {
	p.tokens = append(p.tokens, token)
	return nil
}

type staticPresence map[uint]bool

func (p staticPresence) IsUserOnline(_ context.Context, userID uint) bool {
	return p[userID]
}

type notificationFixture struct {
	svc    *NotificationService
	push   *recordingPush
	events *recordingPublisher
	org    *model.Organization
	user   *model.User
}

func newNotificationFixture(t *testing.T, presence staticPresence) *notificationFixture {
	t.Helper()
	db := testutil.NewDB(t)
	org := testutil.CreateOrganization(t, db, "acme")
	user := testutil.CreateUser(t, db, "member@acme.test", model.Learner, org.ID)
	if err := db.Model(user).Update("device_token", "device-1").Error; err != nil {
		t.Fatalf("set device token: %v", err)
	}

	f := &notificationFixture{push: &recordingPush{}, events: &recordingPublisher{}, org: org, user: user}
	f.svc = NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		f.push, f.events, presence,
	)
	return f
}

func TestCreateNotificationDispatchesNow(t *testing.T) {
	f := newNotificationFixture(t, nil)
	ctx := context.Background()

	n, err := f.svc.Create(ctx, f.org.ID, CreateNotificationRequest{UserID: f.user.ID, Title: "Welcome"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.DeliveredAt == nil {
		t.Error("expected notification delivered")
	}
	if len(f.push.tokens) != 1 || f.push.tokens[0] != "device-1" {
		t.Errorf("expected one push to device-1, got %v", f.push.tokens)
	}
	events := f.events.all()
	if len(events) != 1 || events[0].topic != UserNotificationsTopic(f.user.ID) {
		t.Errorf("unexpected events %+v", events)
	}

	list, err := f.svc.List(ctx, f.user.ID, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 unread notification, got %d", len(list))
	}
}

func TestCreateNotificationSkipsPushWhenOnline(t *testing.T) {
	f := newNotificationFixture(t, nil)
	f.svc.Presence = staticPresence{f.user.ID: true}

	if _, err := f.svc.Create(context.Background(), f.org.ID, CreateNotificationRequest{UserID: f.user.ID, Title: "Hi"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(f.push.tokens) != 0 {
		t.Errorf("expected no push for an online user, got %v", f.push.tokens)
	}
	if len(f.events.all()) != 1 {
		t.Error("expected the feed event regardless of presence")
	}
}

func TestScheduledNotificationWaitsForDispatch(t *testing.T) {
	f := newNotificationFixture(t, nil)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	n, err := f.svc.Create(ctx, f.org.ID, CreateNotificationRequest{UserID: f.user.ID, Title: "Later", ScheduledAt: &at})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.DeliveredAt != nil || len(f.events.all()) != 0 {
		t.Fatal("scheduled notification was dispatched early")
	}
	if list, _ := f.svc.List(ctx, f.user.ID, false); len(list) != 0 {
		t.Errorf("undelivered notification listed: %+v", list)
	}

	count, err := f.svc.DispatchDue(ctx, time.Now())
	if err != nil || count != 0 {
		t.Fatalf("expected nothing due yet, got %d, %v", count, err)
	}

	count, err = f.svc.DispatchDue(ctx, at.Add(time.Minute))
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if count != 1 || len(f.events.all()) != 1 {
		t.Errorf("expected one dispatch, got count %d and %d events", count, len(f.events.all()))
	}

	count, _ = f.svc.DispatchDue(ctx, at.Add(time.Minute))
	if count != 0 || len(f.push.tokens) != 1 {
		t.Errorf("notification dispatched twice: count %d, pushes %d", count, len(f.push.tokens))
	}
}

func TestCreateNotificationForeignUser(t *testing.T) {
	f := newNotificationFixture(t, nil)

	_, err := f.svc.Create(context.Background(), f.org.ID+1, CreateNotificationRequest{UserID: f.user.ID, Title: "x"})
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationReadAndDelete(t *testing.T) {
	f := newNotificationFixture(t, nil)
	ctx := context.Background()

	n, err := f.svc.Notify(ctx, f.user.ID, &f.org.ID, "Order paid", "", "/orders")
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	client := &HubClient{UserID: f.user.ID}

	topic, payload, err := f.svc.HandleReadOp(ctx, client, []byte(`{"id":`+uintString(n.ID)+`}`))
	if err != nil {
		t.Fatalf("HandleReadOp: %v", err)
	}
	if read, ok := payload.(*model.Notification); !ok || !read.Read || topic != UserNotificationsTopic(f.user.ID) {
		t.Errorf("unexpected read op result %q %+v", topic, payload)
	}

	if _, _, err := f.svc.HandleReadOp(ctx, &HubClient{UserID: f.user.ID + 1}, []byte(`{"id":`+uintString(n.ID)+`}`)); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
	if _, _, err := f.svc.HandleDeleteOp(ctx, client, []byte(`{}`)); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := f.svc.HandleDeleteOp(ctx, client, []byte(`{"id":`+uintString(n.ID)+`}`)); err != nil {
		t.Fatalf("HandleDeleteOp: %v", err)
	}
	if err := f.svc.Delete(ctx, f.user.ID, n.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
