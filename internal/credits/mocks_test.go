package credits

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"housesale_back_end/internal/models"
)

var ErrMockStorage = errors.New("mock storage error")

// MockPackages implements PackageRepository for testing
type MockPackages struct {
	mu    sync.Mutex
	Items map[string]models.CreditPackage
}

func NewMockPackages(pkgs ...models.CreditPackage) *MockPackages {
	m := &MockPackages{Items: map[string]models.CreditPackage{}}
	for _, p := range pkgs {
		m.Items[p.Key] = p
	}
	return m
}

func (m *MockPackages) ListPackages(ctx context.Context, includeInactive bool) ([]models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CreditPackage
	for _, p := range m.Items {
		if includeInactive || p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockPackages) GetPackage(ctx context.Context, key string) (*models.CreditPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Items[key]
	if !ok {
		return nil, NotFoundError("Gói tin không hợp lệ")
	}
	return &p, nil
}

func (m *MockPackages) SavePackage(ctx context.Context, pkg *models.CreditPackage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[pkg.Key] = *pkg
	return nil
}

func (m *MockPackages) DeletePackage(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Items, key)
	return nil
}

// MockCoupons implements CouponRepository for testing
type MockCoupons struct {
	mu    sync.Mutex
	Items map[string]models.Coupon
	// IncrementCalls compte les appels à IncrementUsage
	IncrementCalls int
}

func NewMockCoupons(coupons ...models.Coupon) *MockCoupons {
	m := &MockCoupons{Items: map[string]models.Coupon{}}
	for _, c := range coupons {
		m.Items[c.Code] = c
	}
	return m
}

func (m *MockCoupons) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Items[code]
	if !ok {
		return nil, NotFoundError("Coupon không tồn tại")
	}
	return &c, nil
}

func (m *MockCoupons) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Coupon
	for _, c := range m.Items {
		out = append(out, c)
	}
	return out, nil
}

func (m *MockCoupons) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Items[c.Code]; ok {
		return ConflictError("Mã giảm giá đã tồn tại")
	}
	m.Items[c.Code] = *c
	return nil
}

func (m *MockCoupons) UpdateCoupon(ctx context.Context, c *models.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[c.Code] = *c
	return nil
}

func (m *MockCoupons) DeleteCoupon(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Items, code)
	return nil
}

func (m *MockCoupons) IncrementUsage(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IncrementCalls++
	c, ok := m.Items[code]
	if !ok {
		return NotFoundError("Coupon không tồn tại")
	}
	c.TimesUsed++
	m.Items[code] = c
	return nil
}

// MockOrders implements OrderRepository with the same guarded-write semantics
// as the lightweight transactions of the Scylla repository.
type MockOrders struct {
	mu     sync.Mutex
	Orders map[string]models.CreditOrder
	ByCode map[int64]string

	CreateFunc  func(order *models.CreditOrder) error
	Transitions int
}

func NewMockOrders() *MockOrders {
	return &MockOrders{Orders: map[string]models.CreditOrder{}, ByCode: map[int64]string{}}
}

func clone(o models.CreditOrder) models.CreditOrder {
	o.Items = append([]models.CreditOrderItem(nil), o.Items...)
	return o
}

func (m *MockOrders) CreateOrder(ctx context.Context, order *models.CreditOrder) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(order); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.PayOSOrderCode > 0 {
		if _, taken := m.ByCode[order.PayOSOrderCode]; taken {
			return ConflictError("order code taken")
		}
		m.ByCode[order.PayOSOrderCode] = order.ID
	}
	m.Orders[order.ID] = clone(*order)
	return nil
}

func (m *MockOrders) GetOrder(ctx context.Context, id string) (*models.CreditOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return nil, NotFoundError("Không tìm thấy đơn hàng")
	}
	o = clone(o)
	return &o, nil
}

func (m *MockOrders) GetOrderByCode(ctx context.Context, code int64) (*models.CreditOrder, error) {
	m.mu.Lock()
	id, ok := m.ByCode[code]
	m.mu.Unlock()
	if !ok {
		return nil, NotFoundError("Không tìm thấy đơn hàng")
	}
	return m.GetOrder(ctx, id)
}

func (m *MockOrders) AttachCheckout(ctx context.Context, id string, checkout CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return NotFoundError("Không tìm thấy đơn hàng")
	}
	o.CheckoutURL = checkout.CheckoutURL
	o.GatewayRef = checkout.Reference
	o.QRCode = checkout.QRCode
	o.PayOSStatus = string(GatewayPending)
	o.PayOSRaw = checkout.Raw
	m.Orders[id] = o
	return nil
}

func (m *MockOrders) TransitionOrder(ctx context.Context, id string, to models.OrderStatus, gatewayStatus, raw string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return false, NotFoundError("Không tìm thấy đơn hàng")
	}
	if o.Status != models.OrderPending {
		return false, nil
	}
	m.Transitions++
	o.Status = to
	o.PayOSStatus = gatewayStatus
	o.PayOSRaw = raw
	o.UpdatedAt = time.Now()
	m.Orders[id] = o
	return true, nil
}

func (m *MockOrders) MarkCreditsApplied(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return false, NotFoundError("Không tìm thấy đơn hàng")
	}
	if o.Status != models.OrderPaid || o.IsCreditsApplied {
		return false, nil
	}
	o.IsCreditsApplied = true
	m.Orders[id] = o
	return true, nil
}

func (m *MockOrders) ListOrdersByUser(ctx context.Context, userID string) ([]models.CreditOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CreditOrder
	for _, o := range m.Orders {
		if o.UserID == userID {
			out = append(out, clone(o))
		}
	}
	return out, nil
}

func (m *MockOrders) ListOrders(ctx context.Context) ([]models.CreditOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CreditOrder
	for _, o := range m.Orders {
		out = append(out, clone(o))
	}
	return out, nil
}

// MockLedger implements Ledger like the Scylla store: read the row, then
// compare-and-set on the counters and the set of credited orders.
type MockLedger struct {
	mu       sync.Mutex
	Users    map[string]models.User
	Credited map[string]map[string]bool // user → commandes créditées
	Applies  int
	ApplyErr error
	// BeforeCAS s'exécute entre la lecture et l'écriture conditionnelle
	BeforeCAS func()
}

func NewMockLedger(users ...models.User) *MockLedger {
	m := &MockLedger{Users: map[string]models.User{}, Credited: map[string]map[string]bool{}}
	for _, u := range users {
		m.Users[u.ID] = u
	}
	return m
}

func (m *MockLedger) GetUser(ctx context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[userID]
	if !ok {
		return nil, NotFoundError("User not found")
	}
	return &u, nil
}

// Spend simule la consommation de crédits par le module annonces
func (m *MockLedger) Spend(userID string, vip, premium int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.Users[userID]
	u.VipCredits -= vip
	u.PremiumCredits -= premium
	m.Users[userID] = u
}

func (m *MockLedger) IsCredited(userID, orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Credited[userID][orderID]
}

func (m *MockLedger) ApplyOrderCredits(ctx context.Context, userID, orderID string, vip, premium int) (*models.User, error) {
	for attempt := 0; attempt < 10; attempt++ {
		m.mu.Lock()
		if m.ApplyErr != nil {
			m.mu.Unlock()
			return nil, m.ApplyErr
		}
		read, ok := m.Users[userID]
		if !ok {
			m.mu.Unlock()
			return nil, NotFoundError("User not found")
		}
		readSet := maps.Clone(m.Credited[userID])
		hook := m.BeforeCAS
		m.mu.Unlock()

		if readSet[orderID] {
			return &read, nil
		}
		if hook != nil {
			hook()
		}

		m.mu.Lock()
		cur := m.Users[userID]
		if cur.VipCredits != read.VipCredits || cur.PremiumCredits != read.PremiumCredits ||
			!maps.Equal(m.Credited[userID], readSet) {
			m.mu.Unlock()
			continue
		}
		m.Applies++
		cur.VipCredits += vip
		cur.PremiumCredits += premium
		m.Users[userID] = cur
		if m.Credited[userID] == nil {
			m.Credited[userID] = map[string]bool{}
		}
		m.Credited[userID][orderID] = true
		m.mu.Unlock()
		return &cur, nil
	}
	return nil, ConflictError("ledger: trop de tentatives concurrentes")
}

// MockGateway implements Gateway for testing
type MockGateway struct {
	mu           sync.Mutex
	CreateFunc   func(req CheckoutRequest) (*CheckoutSession, error)
	Status       GatewayStatus
	InfoErr      error
	CreateCalls  int
	InfoCalls    int
	LastCheckout CheckoutRequest
}

func (m *MockGateway) Method() string { return models.PaymentMethodPayOS }

func (m *MockGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	m.LastCheckout = req
	if m.CreateFunc != nil {
		return m.CreateFunc(req)
	}
	return &CheckoutSession{
		CheckoutURL: "https://pay.payos.vn/web/abc",
		Reference:   "link-abc",
		QRCode:      "00020101021238570010A000000727",
		Raw:         `{"status":"PENDING"}`,
	}, nil
}

func (m *MockGateway) PaymentInfo(ctx context.Context, ref PaymentRef) (*PaymentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalls++
	if m.InfoErr != nil {
		return nil, m.InfoErr
	}
	status := m.Status
	if status == "" {
		status = GatewayPending
	}
	return &PaymentInfo{Status: status, Raw: `{"status":"` + string(status) + `"}`}, nil
}

// MockNotifier records settled orders
type MockNotifier struct {
	mu      sync.Mutex
	Settled []models.CreditOrder
}

func (m *MockNotifier) OrderSettled(ctx context.Context, order *models.CreditOrder, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settled = append(m.Settled, *order)
	return nil
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Settled)
}

type fixture struct {
	svc      *Service
	packages *MockPackages
	coupons  *MockCoupons
	orders   *MockOrders
	ledger   *MockLedger
	gateway  *MockGateway
	notifier *MockNotifier
}

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func defaultPackages() []models.CreditPackage {
	return []models.CreditPackage{
		{Key: "vip_single", Label: "1 tin VIP", VipCredits: 1, Price: 25000, ProductType: "single", IsActive: true, SortOrder: 1},
		{Key: "premium_single", Label: "1 tin Premium", PremiumCredits: 1, Price: 100000, ProductType: "single", IsActive: true, SortOrder: 2},
		{Key: "combo_boost", Label: "Combo tăng tốc (3 Premium, 10 VIP)", VipCredits: 10, PremiumCredits: 3, Price: 399000, ProductType: "combo", IsActive: true, SortOrder: 4},
		{Key: "half_vip", Label: "Gói 50k", VipCredits: 2, Price: 50000, ProductType: "single", IsActive: true, SortOrder: 5},
		{Key: "retired", Label: "Gói cũ", VipCredits: 3, Price: 60000, ProductType: "single", IsActive: false, SortOrder: 9},
	}
}

func newFixture(coupons ...models.Coupon) *fixture {
	f := &fixture{
		packages: NewMockPackages(defaultPackages()...),
		coupons:  NewMockCoupons(coupons...),
		orders:   NewMockOrders(),
		ledger:   NewMockLedger(models.User{ID: "user-1", Email: "seller@example.com"}, models.User{ID: "user-2"}),
		gateway:  &MockGateway{},
		notifier: &MockNotifier{},
	}
	f.svc = NewService(Deps{
		Packages: f.packages,
		Coupons:  f.coupons,
		Orders:   f.orders,
		Ledger:   f.ledger,
		Gateway:  f.gateway,
		Notifier: f.notifier,
	}, Config{})
	f.svc.now = func() time.Time { return testNow }
	f.svc.dispatch = func(fn func()) { fn() }

	var seq int64
	var mu sync.Mutex
	f.svc.orderCode = func() int64 {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return 1000 + seq
	}
	return f
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }
