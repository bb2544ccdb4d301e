package credits

import (
	"context"
	"errors"
	"testing"

	"housesale_back_end/internal/models"
)

func TestService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Given vip_single without coupon When ordering Then a pending gateway order is created", func(t *testing.T) {
		f := newFixture()

		res, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: "vip_single"})

		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		if res.Mode != ModeGateway || res.Status != models.OrderPending {
			t.Errorf("mode/status = %s/%s", res.Mode, res.Status)
		}
		if res.Order.Subtotal != 25000 || res.Order.TotalAmount != 25000 {
			t.Errorf("subtotal/total = %d/%d", res.Order.Subtotal, res.Order.TotalAmount)
		}
		if res.CheckoutURL == "" || res.PayOSOrderCode != 1001 {
			t.Errorf("checkout = %q code = %d", res.CheckoutURL, res.PayOSOrderCode)
		}
		if f.gateway.CreateCalls != 1 || f.gateway.LastCheckout.Amount != 25000 {
			t.Errorf("gateway called %d times with %+v", f.gateway.CreateCalls, f.gateway.LastCheckout)
		}
		stored := f.orders.Orders[res.Order.ID]
		if stored.Status != models.OrderPending || stored.IsCreditsApplied || stored.GatewayRef != "link-abc" {
			t.Errorf("unexpected stored order %+v", stored)
		}
		if stored.Items[0].Quantity != 1 || stored.Items[0].VipCredits != 1 {
			t.Errorf("unexpected item %+v", stored.Items[0])
		}
	})

	t.Run("Given a quantity When ordering Then item credits are line totals", func(t *testing.T) {
		f := newFixture()

		res, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: "combo_boost", Quantity: 3})

		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		item := res.Order.Items[0]
		if item.VipCredits != 30 || item.PremiumCredits != 9 || item.UnitPrice != 399000 || item.TotalPrice != 1197000 {
			t.Errorf("unexpected item %+v", item)
		}
	})

	t.Run("Given a coupon below its minimum When ordering Then the order is refused with the reason", func(t *testing.T) {
		hs10 := activeCoupon("HS10", models.CouponTypePercent, 10)
		hs10.MaxDiscount = int64Ptr(100000)
		hs10.MinOrderAmount = 100000
		f := newFixture(hs10)

		_, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: "vip_single", CouponCode: "hs10"})

		if !errors.Is(err, ErrInvalidCoupon) {
			t.Fatalf("expected ErrInvalidCoupon, got %v", err)
		}
		if len(f.orders.Orders) != 0 || f.gateway.CreateCalls != 0 {
			t.Errorf("no order or session expected")
		}
	})

	t.Run("Given a coupon covering the whole order When ordering Then it is paid immediately without the gateway", func(t *testing.T) {
		f := newFixture(activeCoupon("FREE50", models.CouponTypeAmount, 50000))

		res, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: "half_vip", CouponCode: "FREE50"})

		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		if res.Mode != ModeFree || res.Status != models.OrderPaid || res.CheckoutURL != "" {
			t.Errorf("unexpected result %+v", res)
		}
		if res.Order.CouponDiscount != 50000 || res.Order.TotalAmount != 0 || !res.Order.IsCreditsApplied {
			t.Errorf("unexpected order %+v", res.Order)
		}
		if res.Order.PaymentMethod != models.PaymentMethodFree || res.Order.PayOSOrderCode != 0 {
			t.Errorf("free order must not carry a gateway code: %+v", res.Order)
		}
		if res.User.VipCredits != 2 || f.ledger.Users["user-1"].VipCredits != 2 {
			t.Errorf("user credits = %d", res.User.VipCredits)
		}
		if f.gateway.CreateCalls != 0 || f.gateway.InfoCalls != 0 {
			t.Errorf("gateway must not be called")
		}
		if f.coupons.Items["FREE50"].TimesUsed != 1 || f.notifier.Count() != 1 {
			t.Errorf("usage = %d notifications = %d", f.coupons.Items["FREE50"].TimesUsed, f.notifier.Count())
		}
	})

	t.Run("Given a payable amount below the minimum When ordering Then returns a validation error", func(t *testing.T) {
		f := newFixture(activeCoupon("P99", models.CouponTypePercent, 99))

		_, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: "vip_single", CouponCode: "P99"})

		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("Given an invalid quantity When ordering Then returns a validation error", func(t *testing.T) {
		f := newFixture()
		for _, qty := range []int{-1, 101} {
			_, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: "vip_single", Quantity: qty})
			if !errors.Is(err, ErrValidation) {
				t.Errorf("qty %d: expected ErrValidation, got %v", qty, err)
			}
		}
	})

	t.Run("Given an unknown or inactive package When ordering Then returns not found", func(t *testing.T) {
		f := newFixture()
		for _, key := range []string{"ghost", "retired"} {
			_, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: key})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("%s: expected ErrNotFound, got %v", key, err)
			}
		}
	})

	t.Run("Given the gateway is down When ordering Then the order stays pending and a gateway error is returned", func(t *testing.T) {
		f := newFixture()
		f.gateway.CreateFunc = func(req CheckoutRequest) (*CheckoutSession, error) {
			return nil, errors.New("dial tcp: i/o timeout")
		}

		_, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: "vip_single"})

		if !errors.Is(err, ErrGateway) {
			t.Fatalf("expected ErrGateway, got %v", err)
		}
		if len(f.orders.Orders) != 1 {
			t.Fatalf("expected the order to be kept, got %d", len(f.orders.Orders))
		}
		for _, o := range f.orders.Orders {
			if o.Status != models.OrderPending {
				t.Errorf("status = %s", o.Status)
			}
		}
	})

	t.Run("Given an order code collision When ordering Then a new code is generated", func(t *testing.T) {
		f := newFixture()
		f.orders.ByCode[1001] = "someone-else"

		res, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: "vip_single"})

		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		if res.PayOSOrderCode != 1002 || f.gateway.LastCheckout.OrderCode != 1002 {
			t.Errorf("code = %d", res.PayOSOrderCode)
		}
	})

	t.Run("Given a created order When the catalog price changes Then the order keeps its snapshot", func(t *testing.T) {
		f := newFixture()
		res, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PackageKey: "vip_single", Quantity: 2})
		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}

		pkg := f.packages.Items["vip_single"]
		pkg.Price = 30000
		pkg.VipCredits = 5
		if err := f.svc.SavePackage(ctx, &pkg); err != nil {
			t.Fatalf("SavePackage failed: %v", err)
		}

		got, _ := f.orders.GetOrder(ctx, res.Order.ID)
		if got.Items[0].UnitPrice != 25000 || got.TotalAmount != 50000 || got.Items[0].VipCredits != 2 {
			t.Errorf("snapshot changed: %+v", got)
		}
	})

	t.Run("Given an unknown user When ordering Then returns not found", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "ghost", PackageKey: "vip_single"})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestService_ListPackages(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	pkgs, err := f.svc.ListPackages(ctx)
	if err != nil {
		t.Fatalf("ListPackages failed: %v", err)
	}
	for _, p := range pkgs {
		if !p.Sellable() {
			t.Errorf("unsellable package listed: %s", p.Key)
		}
	}
	if len(pkgs) != 4 {
		t.Errorf("expected 4 sellable packages, got %d", len(pkgs))
	}

	all, _ := f.svc.AdminListPackages(ctx)
	if len(all) != 5 {
		t.Errorf("admin view should include inactive packages, got %d", len(all))
	}
}

func TestService_SavePackage(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a package without credits When saved Then returns a validation error", func(t *testing.T) {
		f := newFixture()

		err := f.svc.SavePackage(ctx, &models.CreditPackage{Key: "empty", Label: "Rỗng", Price: 1000})

		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("Given an existing package When saved Then createdAt is preserved", func(t *testing.T) {
		f := newFixture()
		created := testNow.AddDate(0, -1, 0)
		pkg := f.packages.Items["vip_single"]
		pkg.CreatedAt = created
		f.packages.Items["vip_single"] = pkg

		update := pkg
		update.CreatedAt = testNow
		if err := f.svc.SavePackage(ctx, &update); err != nil {
			t.Fatalf("SavePackage failed: %v", err)
		}
		if !f.packages.Items["vip_single"].CreatedAt.Equal(created) {
			t.Errorf("createdAt overwritten")
		}
	})
}
