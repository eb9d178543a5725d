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

type fakeVerifier struct {
	result *PaymentVerification
	err    error
	calls  int
}

func (v *fakeVerifier) Verify(_ context.Context, reference string) (*PaymentVerification, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	out := *v.result
	out.Reference = reference
	return &out, nil
}

type commerceFixture struct {
	svc      *CommerceService
	repo     *repository.CommerceRepository
	verifier *fakeVerifier
	events   *recordingPublisher
	org      *model.Organization
	buyer    *model.User
	product  *model.Product
}

func newCommerceFixture(t *testing.T) *commerceFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &commerceFixture{
		repo:     repository.NewCommerceRepository(db),
		verifier: &fakeVerifier{result: &PaymentVerification{}},
		events:   &recordingPublisher{},
	}
	f.org = testutil.CreateOrganization(t, db, "shop")
	f.buyer = testutil.CreateUser(t, db, "buyer@shop.test", model.Learner, f.org.ID)
	f.svc = NewCommerceService(f.repo, nil, f.verifier, f.events, "NGN")

	var err error
	f.product, err = f.svc.CreateProduct(context.Background(), f.org.ID, CreateProductRequest{Name: "Mug", Price: 2500})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return f
}

func (f *commerceFixture) checkout(t *testing.T, qty int) *model.Order {
	t.Helper()
	order, err := f.svc.Checkout(context.Background(), f.buyer.ID, f.org.ID, CheckoutRequest{ProductID: f.product.ID, Quantity: qty})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	return order
}

func TestCreateProductDefaults(t *testing.T) {
	f := newCommerceFixture(t)
	if f.product.Kind != model.ProductKindProduct || f.product.Currency != "NGN" || !f.product.Active {
		t.Errorf("unexpected defaults %+v", f.product)
	}

	inactive := false
	p, err := f.svc.CreateProduct(context.Background(), f.org.ID, CreateProductRequest{Name: "Draft", Active: &inactive})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	stored, err := f.svc.GetProduct(context.Background(), f.org.ID, p.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if stored.Active {
		t.Error("expected inactive product to stay inactive")
	}

	active, err := f.svc.ListProducts(context.Background(), f.org.ID, "", true)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(active) != 1 || active[0].ID != f.product.ID {
		t.Errorf("expected only the active product, got %+v", active)
	}
}

func TestCheckout(t *testing.T) {
	f := newCommerceFixture(t)

	order := f.checkout(t, 3)
	if order.Amount != 7500 || order.Status != model.OrderPending || order.Currency != "NGN" {
		t.Errorf("unexpected order %+v", order)
	}
	if len(order.Reference) != 32 {
		t.Errorf("expected 32 character reference, got %q", order.Reference)
	}
	if f.checkout(t, 0).Quantity != 1 {
		t.Error("expected quantity to default to 1")
	}

	inactive := false
	if _, err := f.svc.UpdateProduct(context.Background(), f.org.ID, f.product.ID, UpdateProductRequest{Active: &inactive}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	_, err := f.svc.Checkout(context.Background(), f.buyer.ID, f.org.ID, CheckoutRequest{ProductID: f.product.ID})
	if !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for inactive product, got %v", err)
	}
	_, err = f.svc.Checkout(context.Background(), f.buyer.ID, f.org.ID+1, CheckoutRequest{ProductID: f.product.ID})
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound from another organization, got %v", err)
	}
}

func TestVerifyOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		result PaymentVerification
		want   string
	}{
		{name: "paid in full", result: PaymentVerification{Paid: true, Amount: 2500}, want: model.OrderPaid},
		{name: "amount mismatch", result: PaymentVerification{Paid: true, Amount: 100}, want: model.OrderFailed},
		{name: "not paid", result: PaymentVerification{Paid: false}, want: model.OrderFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newCommerceFixture(t)
			order := f.checkout(t, 1)
			f.verifier.result = &tc.result

			got, err := f.svc.Verify(context.Background(), f.buyer.ID, order.Reference)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if got.Status != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got.Status)
			}
			if (got.PaidAt != nil) != (tc.want == model.OrderPaid) {
				t.Errorf("unexpected paidAt %v", got.PaidAt)
			}
			events := f.events.all()
			if len(events) != 1 || events[0].event.Op != "order.updated" {
				t.Errorf("unexpected events %+v", events)
			}
		})
	}
}

func TestVerifySettledOrderIsNoop(t *testing.T) {
	f := newCommerceFixture(t)
	order := f.checkout(t, 1)
	f.verifier.result = &PaymentVerification{Paid: true, Amount: 2500}

	if _, err := f.svc.Verify(context.Background(), f.buyer.ID, order.Reference); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	f.verifier.result = &PaymentVerification{Paid: false}
	got, err := f.svc.Verify(context.Background(), f.buyer.ID, order.Reference)
	if err != nil {
		t.Fatalf("Verify again: %v", err)
	}
	if got.Status != model.OrderPaid || f.verifier.calls != 1 {
		t.Errorf("expected paid order left alone, got %s after %d calls", got.Status, f.verifier.calls)
	}
}

func TestVerifyOwnershipAndGatewayErrors(t *testing.T) {
	f := newCommerceFixture(t)
	order := f.checkout(t, 1)
	ctx := context.Background()

	if _, err := f.svc.Verify(ctx, f.buyer.ID+1, order.Reference); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
	if _, err := f.svc.Verify(ctx, f.buyer.ID, "missing"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown reference, got %v", err)
	}

	f.verifier.err = util.ErrUpstream
	if _, err := f.svc.Verify(ctx, f.buyer.ID, order.Reference); !errors.Is(err, util.ErrUpstream) {
		t.Errorf("expected gateway error, got %v", err)
	}
	stored, err := f.repo.FindOrderByReference(ctx, order.Reference)
	if err != nil {
		t.Fatalf("FindOrderByReference: %v", err)
	}
	if stored.Status != model.OrderPending {
		t.Errorf("expected order to stay pending, got %s", stored.Status)
	}
}

func TestReconcilePending(t *testing.T) {
	f := newCommerceFixture(t)
	order := f.checkout(t, 2)
	f.verifier.result = &PaymentVerification{Paid: true, Amount: 5000}
	ctx := context.Background()

	if n, err := f.svc.ReconcilePending(ctx, time.Hour); err != nil || n != 0 {
		t.Fatalf("expected fresh orders skipped, got %d, %v", n, err)
	}
	n, err := f.svc.ReconcilePending(ctx, -time.Minute)
	if err != nil {
		t.Fatalf("ReconcilePending: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 settled order, got %d", n)
	}
	stored, _ := f.repo.FindOrderByReference(ctx, order.Reference)
	if stored.Status != model.OrderPaid {
		t.Errorf("expected paid, got %s", stored.Status)
	}
}

type recordingNotifier struct {
	titles []string
	users  []uint
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint, _ *uint, title, _, _ string) (*model.Notification, error) {
	n.titles = append(n.titles, title)
	n.users = append(n.users, userID)
	return &model.Notification{UserID: userID, Title: title}, nil
}

func TestPaidOrderNotifiesBuyer(t *testing.T) {
	f := newCommerceFixture(t)
	notifier := &recordingNotifier{}
	f.svc.Notifier = notifier

	failed := f.checkout(t, 1)
	if _, err := f.svc.Verify(context.Background(), f.buyer.ID, failed.Reference); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(notifier.titles) != 0 {
		t.Fatalf("failed payment notified: %v", notifier.titles)
	}

	paid := f.checkout(t, 2)
	f.verifier.result = &PaymentVerification{Paid: true, Amount: 5000}
	if _, err := f.svc.Verify(context.Background(), f.buyer.ID, paid.Reference); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(notifier.users) != 1 || notifier.users[0] != f.buyer.ID {
		t.Errorf("expected one notification for buyer %d, got %v", f.buyer.ID, notifier.users)
	}
}
