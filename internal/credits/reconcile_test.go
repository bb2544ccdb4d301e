package credits

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"housesale_back_end/internal/models"
)

func createGatewayOrder(t *testing.T, f *fixture, req CreateOrderRequest) *CreateOrderResult {
	t.Helper()
	if req.UserID == "" {
		req.UserID = "user-1"
	}
	if req.PackageKey == "" {
		req.PackageKey = "vip_single"
	}
	res, err := f.svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	return res
}

// MockLock simulates a reconcile lock held (or not) by another request
type MockLock struct {
	Held     bool
	Err      error
	Released int
}

func (m *MockLock) Acquire(ctx context.Context, orderID string, ttl time.Duration) (func(), bool, error) {
	if m.Err != nil {
		return nil, false, m.Err
	}
	if m.Held {
		return nil, false, nil
	}
	return func() { m.Released++ }, true, nil
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("Given the gateway reports PAID When reconciling by code Then credits are applied once", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{PackageKey: "combo_boost"})
		f.gateway.Status = GatewayPaid

		res, err := f.svc.Reconcile(ctx, OrderRef{OrderCode: created.PayOSOrderCode})

		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if res.Status != models.OrderPaid || !res.Order.IsCreditsApplied || res.Order.PayOSStatus != "PAID" {
			t.Errorf("unexpected order %+v", res.Order)
		}
		if res.User.VipCredits != 10 || res.User.PremiumCredits != 3 {
			t.Errorf("user credits = %d/%d", res.User.VipCredits, res.User.PremiumCredits)
		}
		if f.notifier.Count() != 1 {
			t.Errorf("notifications = %d", f.notifier.Count())
		}
	})

	t.Run("Given a paid order When reconciling again Then the gateway is not asked and nothing changes", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{})
		f.gateway.Status = GatewayPaid
		if _, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID}); err != nil {
			t.Fatalf("first Reconcile failed: %v", err)
		}
		f.gateway.Status = GatewayCancelled

		for i := 0; i < 3; i++ {
			res, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID})
			if err != nil {
				t.Fatalf("Reconcile %d failed: %v", i, err)
			}
			if res.Status != models.OrderPaid || res.User.VipCredits != 1 {
				t.Errorf("state changed: %s / %d", res.Status, res.User.VipCredits)
			}
		}
		if f.gateway.InfoCalls != 1 || f.ledger.Applies != 1 || f.notifier.Count() != 1 {
			t.Errorf("info calls = %d applies = %d notifications = %d", f.gateway.InfoCalls, f.ledger.Applies, f.notifier.Count())
		}
	})

	t.Run("Given the gateway reports CANCELLED When reconciling Then the order is cancelled for good", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{})
		f.gateway.Status = GatewayCancelled

		res, err := f.svc.Reconcile(ctx, OrderRef{OrderCode: created.PayOSOrderCode})
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if res.Status != models.OrderCancelled || res.Order.IsCreditsApplied {
			t.Errorf("unexpected order %+v", res.Order)
		}

		f.gateway.Status = GatewayPaid
		res, err = f.svc.Reconcile(ctx, OrderRef{OrderCode: created.PayOSOrderCode})
		if err != nil {
			t.Fatalf("second Reconcile failed: %v", err)
		}
		if res.Status != models.OrderCancelled || res.Order.IsCreditsApplied || f.ledger.Applies != 0 {
			t.Errorf("cancelled order must stay cancelled: %+v", res.Order)
		}
	})

	t.Run("Given EXPIRED or FAILED When reconciling Then the order is cancelled", func(t *testing.T) {
		for _, status := range []GatewayStatus{GatewayExpired, GatewayFailed} {
			f := newFixture()
			created := createGatewayOrder(t, f, CreateOrderRequest{})
			f.gateway.Status = status

			res, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID})

			if err != nil {
				t.Fatalf("%s: %v", status, err)
			}
			if res.Status != models.OrderCancelled {
				t.Errorf("%s: status = %s", status, res.Status)
			}
		}
	})

	t.Run("Given the gateway still reports PENDING When reconciling Then nothing is written", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{})
		f.gateway.Status = "PROCESSING"

		res, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID})

		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if res.Status != models.OrderPending || f.orders.Transitions != 0 {
			t.Errorf("status = %s transitions = %d", res.Status, f.orders.Transitions)
		}
	})

	t.Run("Given the gateway cannot be reached When reconciling Then a gateway error is returned and the order is untouched", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{})
		f.gateway.InfoErr = errors.New("context deadline exceeded")

		_, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID})

		if !errors.Is(err, ErrGateway) {
			t.Fatalf("expected ErrGateway, got %v", err)
		}
		stored := f.orders.Orders[created.Order.ID]
		if stored.Status != models.OrderPending || f.orders.Transitions != 0 {
			t.Errorf("order mutated: %+v", stored)
		}
	})

	t.Run("Given neither identifier When reconciling Then returns a validation error", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.Reconcile(ctx, OrderRef{})

		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("Given unknown identifiers When reconciling Then returns not found", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.Reconcile(ctx, OrderRef{OrderID: "nope", OrderCode: 42})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Given a stale order id and a valid code When reconciling Then the code is used", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{})

		res, err := f.svc.Reconcile(ctx, OrderRef{OrderID: "stale", OrderCode: created.PayOSOrderCode})

		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if res.Order.ID != created.Order.ID {
			t.Errorf("resolved %s, want %s", res.Order.ID, created.Order.ID)
		}
	})

	t.Run("Given another user's order When the caller confirms Then returns forbidden", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{})
		f.gateway.Status = GatewayPaid

		_, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID, UserID: "user-2"})

		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if f.gateway.InfoCalls != 0 {
			t.Errorf("gateway must not be asked for a foreign order")
		}
	})

	t.Run("Given the ledger fails after the order is paid When reconciling again Then credits are applied once", func(t *testing.T) {
		f := newFixture(activeCoupon("MINUS5K", models.CouponTypeAmount, 5000))
		created := createGatewayOrder(t, f, CreateOrderRequest{CouponCode: "MINUS5K"})
		f.gateway.Status = GatewayPaid
		f.ledger.ApplyErr = ErrMockStorage

		if _, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID}); !errors.Is(err, ErrMockStorage) {
			t.Fatalf("expected storage error, got %v", err)
		}
		stored := f.orders.Orders[created.Order.ID]
		if stored.Status != models.OrderPaid || stored.IsCreditsApplied {
			t.Fatalf("expected paid without credits, got %+v", stored)
		}

		f.ledger.ApplyErr = nil
		res, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID})

		if err != nil {
			t.Fatalf("recovery Reconcile failed: %v", err)
		}
		if !res.Order.IsCreditsApplied || res.User.VipCredits != 1 {
			t.Errorf("unexpected recovery result %+v / %+v", res.Order, res.User)
		}
		if f.gateway.InfoCalls != 1 {
			t.Errorf("recovery must not ask the gateway again, info calls = %d", f.gateway.InfoCalls)
		}
		if f.coupons.Items["MINUS5K"].TimesUsed != 1 {
			t.Errorf("coupon usage = %d", f.coupons.Items["MINUS5K"].TimesUsed)
		}
	})

	t.Run("Given the reconcile lock is held When reconciling Then current state is returned without asking the gateway", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{})
		f.gateway.Status = GatewayPaid
		f.svc.lock = &MockLock{Held: true}

		res, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID})

		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if res.Status != models.OrderPending || f.gateway.InfoCalls != 0 {
			t.Errorf("status = %s info calls = %d", res.Status, f.gateway.InfoCalls)
		}
	})

	t.Run("Given the lock backend fails When reconciling Then reconciliation proceeds", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{})
		f.gateway.Status = GatewayPaid
		f.svc.lock = &MockLock{Err: errors.New("redis: connection refused")}

		res, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID})

		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if res.Status != models.OrderPaid {
			t.Errorf("status = %s", res.Status)
		}
	})

	t.Run("Given an acquired lock When reconciling Then it is released", func(t *testing.T) {
		f := newFixture()
		created := createGatewayOrder(t, f, CreateOrderRequest{})
		lock := &MockLock{}
		f.svc.lock = lock

		if _, err := f.svc.Reconcile(ctx, OrderRef{OrderID: created.Order.ID}); err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if lock.Released != 1 {
			t.Errorf("released = %d", lock.Released)
		}
	})
}

func TestService_Reconcile_Concurrent(t *testing.T) {
	ctx := context.Background()
	const callers = 32

	f := newFixture(activeCoupon("MINUS5K", models.CouponTypeAmount, 5000))
	created := createGatewayOrder(t, f, CreateOrderRequest{PackageKey: "combo_boost", CouponCode: "MINUS5K"})
	f.gateway.Status = GatewayPaid

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// moitié webhook (code), moitié retour utilisateur (id + propriétaire)
			ref := OrderRef{OrderCode: created.PayOSOrderCode}
			if i%2 == 0 {
				ref = OrderRef{OrderID: created.Order.ID, UserID: "user-1"}
			}
			res, err := f.svc.Reconcile(ctx, ref)
			if err != nil {
				errs <- err
				return
			}
			if res.Status != models.OrderPaid {
				errs <- errors.New("caller saw status " + string(res.Status))
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	user := f.ledger.Users["user-1"]
	if user.VipCredits != 10 || user.PremiumCredits != 3 {
		t.Errorf("user credited %d/%d, want 10/3", user.VipCredits, user.PremiumCredits)
	}
	if f.ledger.Applies != 1 || f.orders.Transitions != 1 {
		t.Errorf("applies = %d transitions = %d", f.ledger.Applies, f.orders.Transitions)
	}
	if f.notifier.Count() != 1 || f.coupons.Items["MINUS5K"].TimesUsed != 1 {
		t.Errorf("notifications = %d coupon usage = %d", f.notifier.Count(), f.coupons.Items["MINUS5K"].TimesUsed)
	}
	if !f.orders.Orders[created.Order.ID].IsCreditsApplied {
		t.Errorf("isCreditsApplied not set")
	}
}

func TestService_Reconcile_PendingFreeOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.orders.Orders["free-1"] = models.CreditOrder{
		ID:            "free-1",
		UserID:        "user-1",
		Items:         []models.CreditOrderItem{{PackageKey: "vip_single", VipCredits: 1, Quantity: 1, UnitPrice: 25000, TotalPrice: 25000}},
		Subtotal:      25000,
		TotalAmount:   0,
		Status:        models.OrderPending,
		PaymentMethod: models.PaymentMethodFree,
	}

	res, err := f.svc.Reconcile(ctx, OrderRef{OrderID: "free-1"})

	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if res.Status != models.OrderPaid || !res.Order.IsCreditsApplied || res.User.VipCredits != 1 {
		t.Errorf("unexpected result %+v", res.Order)
	}
	if f.gateway.InfoCalls != 0 {
		t.Errorf("free order must not reach the gateway")
	}
}

func TestService_Reconcile_CreditedAndSpentDuringApply(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	created := createGatewayOrder(t, f, CreateOrderRequest{PackageKey: "vip_single"})
	f.gateway.Status = GatewayPaid

	// entre la lecture et l'écriture : un autre appel crédite la commande,
	// puis le module annonces dépense ce crédit
	fired := false
	f.ledger.BeforeCAS = func() {
		if fired {
			return
		}
		fired = true
		if _, err := f.ledger.ApplyOrderCredits(ctx, "user-1", created.Order.ID, 1, 0); err != nil {
			t.Errorf("concurrent credit failed: %v", err)
		}
		f.ledger.Spend("user-1", 1, 0)
	}

	res, err := f.svc.Reconcile(ctx, OrderRef{OrderCode: created.PayOSOrderCode})

	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if res.User.VipCredits != 0 || f.ledger.Users["user-1"].VipCredits != 0 {
		t.Errorf("vip = %d, want 0 (credited once then spent)", f.ledger.Users["user-1"].VipCredits)
	}
	if f.ledger.Applies != 1 || !f.ledger.IsCredited("user-1", created.Order.ID) {
		t.Errorf("applies = %d", f.ledger.Applies)
	}
	if !res.Order.IsCreditsApplied || f.notifier.Count() != 1 {
		t.Errorf("applied = %v notifications = %d", res.Order.IsCreditsApplied, f.notifier.Count())
	}
}
