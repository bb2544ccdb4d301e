package credits

import (
	"context"
	"time"

	"housesale_back_end/internal/models"
)

// PackageRepository est le catalogue des packages (éditable par l'admin)
type PackageRepository interface {
	ListPackages(ctx context.Context, includeInactive bool) ([]models.CreditPackage, error)
	GetPackage(ctx context.Context, key string) (*models.CreditPackage, error)
	SavePackage(ctx context.Context, pkg *models.CreditPackage) error
	DeletePackage(ctx context.Context, key string) error
}

type CouponRepository interface {
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	CreateCoupon(ctx context.Context, coupon *models.Coupon) error
	UpdateCoupon(ctx context.Context, coupon *models.Coupon) error
	DeleteCoupon(ctx context.Context, code string) error
	// IncrementUsage ajoute 1 à times_used (compare-and-set)
	IncrementUsage(ctx context.Context, code string) error
}

// OrderRepository persiste les commandes. Les transitions d'état sont des
// écritures conditionnelles : elles ne s'appliquent que si la précondition
// est encore vraie au moment de l'écriture.
type OrderRepository interface {
	// CreateOrder retourne ErrConflict si le payos_order_code est déjà pris
	CreateOrder(ctx context.Context, order *models.CreditOrder) error
	GetOrder(ctx context.Context, id string) (*models.CreditOrder, error)
	GetOrderByCode(ctx context.Context, code int64) (*models.CreditOrder, error)
	AttachCheckout(ctx context.Context, id string, checkout CheckoutSession) error
	// TransitionOrder applique pending → to. false si la commande n'était plus pending.
	TransitionOrder(ctx context.Context, id string, to models.OrderStatus, gatewayStatus, raw string) (bool, error)
	// MarkCreditsApplied applique is_credits_applied false → true sur une commande paid.
	MarkCreditsApplied(ctx context.Context, id string) (bool, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.CreditOrder, error)
	ListOrders(ctx context.Context) ([]models.CreditOrder, error)
}

// Ledger porte les compteurs vipCredits / premiumCredits de l'utilisateur
type Ledger interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// ApplyOrderCredits crédite une commande au plus une fois (idempotent sur orderID)
	ApplyOrderCredits(ctx context.Context, userID, orderID string, vip, premium int) (*models.User, error)
}

// ReconcileLock évite que des réconciliations simultanées d'une même commande
// interrogent toutes la passerelle. La correction ne dépend pas de ce verrou.
type ReconcileLock interface {
	Acquire(ctx context.Context, orderID string, ttl time.Duration) (release func(), ok bool, err error)
}

// Notifier reçoit les commandes réglées (paid ou cancelled)
type Notifier interface {
	OrderSettled(ctx context.Context, order *models.CreditOrder, user *models.User) error
}
