package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/models"
)

const maxOrderCodeAttempts = 5

type OrderMode string

const (
	ModeFree    OrderMode = "free"
	ModeGateway OrderMode = "gateway"
)

type CreateOrderRequest struct {
	UserID     string
	PackageKey string
	Quantity   int
	CouponCode string
}

type CreateOrderResult struct {
	Mode           OrderMode
	Status         models.OrderStatus
	Order          *models.CreditOrder
	CheckoutURL    string
	ClientSecret   string
	PayOSOrderCode int64
	User           *models.User
}

// CreateOrder construit une commande pending à partir du package et du coupon,
// puis soit la règle immédiatement (montant 0), soit ouvre une session de paiement.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.UserID == "" {
		return nil, ValidationError("Thiếu người dùng")
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 || qty > s.cfg.MaxQuantity {
		return nil, ValidationError(fmt.Sprintf("Số lượng phải từ 1 đến %d", s.cfg.MaxQuantity))
	}

	user, err := s.ledger.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	pkg, err := s.getSellablePackage(ctx, req.PackageKey)
	if err != nil {
		return nil, err
	}

	subtotal := pkg.Price * int64(qty)
	var couponCode string
	var discount int64
	if NormalizeCouponCode(req.CouponCode) != "" {
		coupon, v, err := s.resolveCoupon(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		couponCode = coupon.Code
		discount = v.DiscountAmount
	}
	total := max(0, subtotal-discount)

	if total > 0 && total < s.cfg.MinPayableAmount {
		return nil, ValidationError(fmt.Sprintf("Đơn hàng tối thiểu %sđ", FormatVND(s.cfg.MinPayableAmount)))
	}

	now := s.now()
	order := &models.CreditOrder{
		ID:     uuid.NewString(),
		UserID: user.ID,
		Items: []models.CreditOrderItem{{
			PackageKey:     pkg.Key,
			Label:          pkg.Label,
			VipCredits:     pkg.VipCredits * qty,
			PremiumCredits: pkg.PremiumCredits * qty,
			UnitPrice:      pkg.Price,
			Quantity:       qty,
			TotalPrice:     subtotal,
		}},
		Subtotal:       subtotal,
		CouponCode:     couponCode,
		CouponDiscount: discount,
		TotalAmount:    total,
		Status:         models.OrderPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	logger := log.WithFields(log.Fields{"order_id": order.ID, "user_id": order.UserID})

	if total == 0 {
		order.PaymentMethod = models.PaymentMethodFree
		if err := s.orders.CreateOrder(ctx, order); err != nil {
			return nil, err
		}
		logger.Info("🎟️ Commande couverte par le coupon, règlement immédiat")
		res, err := s.settle(ctx, order, models.OrderPaid, "FREE", "")
		if err != nil {
			return nil, err
		}
		return &CreateOrderResult{Mode: ModeFree, Status: res.Status, Order: res.Order, User: res.User}, nil
	}

	order.PaymentMethod = s.gateway.Method()
	if err := s.insertWithOrderCode(ctx, order); err != nil {
		return nil, err
	}
	logger = logger.WithField("order_code", order.PayOSOrderCode)

	session, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		OrderID:     order.ID,
		OrderCode:   order.PayOSOrderCode,
		Amount:      total,
		Description: s.cfg.Description,
		Items: []CheckoutItem{{
			Name:     truncate(pkg.Label, 25),
			Quantity: qty,
			Price:    total,
		}},
		BuyerEmail: user.Email,
	})
	if err != nil {
		// la commande reste pending : elle pourra être réconciliée ou abandonnée
		logger.WithError(err).Error("❌ Création de la session de paiement échouée")
		if errors.Is(err, ErrGateway) {
			return nil, err
		}
		return nil, GatewayError("Không tạo được link thanh toán", err)
	}

	if err := s.orders.AttachCheckout(ctx, order.ID, *session); err != nil {
		return nil, fmt.Errorf("attach checkout: %w", err)
	}
	order.GatewayRef = session.Reference
	order.CheckoutURL = session.CheckoutURL
	order.QRCode = session.QRCode
	order.PayOSStatus = string(GatewayPending)
	order.PayOSRaw = session.Raw

	logger.Infof("💳 Session de paiement créée (%s)", order.PaymentMethod)

	return &CreateOrderResult{
		Mode:           ModeGateway,
		Status:         order.Status,
		Order:          order,
		CheckoutURL:    session.CheckoutURL,
		ClientSecret:   session.ClientSecret,
		PayOSOrderCode: order.PayOSOrderCode,
		User:           user,
	}, nil
}

// insertWithOrderCode persiste la commande avec un code numérique unique,
// en régénérant le code tant que l'index signale une collision.
func (s *Service) insertWithOrderCode(ctx context.Context, order *models.CreditOrder) error {
	for attempt := 0; attempt < maxOrderCodeAttempts; attempt++ {
		order.PayOSOrderCode = s.orderCode()
		err := s.orders.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		log.WithField("order_code", order.PayOSOrderCode).Warn("⚠️ Collision de code commande, nouvel essai")
	}
	return ConflictError("Không tạo được mã đơn hàng, vui lòng thử lại")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
