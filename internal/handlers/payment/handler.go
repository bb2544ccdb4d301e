package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/middleware"
	"housesale_back_end/internal/models"
	"housesale_back_end/internal/repository"
)

// CreditsService est la surface du module crédits utilisée par les handlers
type CreditsService interface {
	ListPackages(ctx context.Context) ([]models.CreditPackage, error)
	AdminListPackages(ctx context.Context) ([]models.CreditPackage, error)
	SavePackage(ctx context.Context, pkg *models.CreditPackage) error
	DeletePackage(ctx context.Context, key string) error

	ValidateCoupon(ctx context.Context, code string, amount int64) (*models.CouponValidation, error)
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	CreateCoupon(ctx context.Context, c *models.Coupon) error
	UpdateCoupon(ctx context.Context, code string, c *models.Coupon) error
	DeleteCoupon(ctx context.Context, code string) error

	CreateOrder(ctx context.Context, req credits.CreateOrderRequest) (*credits.CreateOrderResult, error)
	Reconcile(ctx context.Context, ref credits.OrderRef) (*credits.ReconcileResult, error)

	History(ctx context.Context, userID string) ([]models.CreditOrder, error)
	Balance(ctx context.Context, userID string) (*models.User, error)
	UserOrder(ctx context.Context, userID, orderID string) (*models.CreditOrder, error)
	AdminListOrders(ctx context.Context, q credits.OrderQuery) (*credits.OrderPage, error)
	Stats(ctx context.Context) (*credits.OrderStats, error)
}

// OrderSubscriber ouvre un abonnement Redis au statut d'une commande
type OrderSubscriber interface {
	Subscribe(ctx context.Context, orderID string) *redis.PubSub
}

type AuditReader interface {
	ListAuditLogs(ctx context.Context, f repository.AuditFilter) ([]models.AuditLog, error)
}

type Options struct {
	PayOSChecksumKey    string
	StripeWebhookSecret string
	Subscriber          OrderSubscriber
	Audit               AuditReader
}

type Handler struct {
	svc  CreditsService
	opts Options
}

func New(svc CreditsService, opts Options) *Handler {
	return &Handler{svc: svc, opts: opts}
}

// statusFor traduit une erreur métier en code HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, credits.ErrValidation), errors.Is(err, credits.ErrInvalidCoupon):
		return http.StatusBadRequest
	case errors.Is(err, credits.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, credits.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, credits.ErrGateway):
		return http.StatusBadGateway
	case errors.Is(err, credits.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := credits.Message(err)
	if status == http.StatusInternalServerError || msg == "" {
		log.WithError(err).Errorf("❌ %s %s", c.Request.Method, c.FullPath())
		if msg == "" {
			msg = "Lỗi máy chủ, vui lòng thử lại sau"
		}
	}
	c.Set(middleware.AuditErrorKey, msg)

	body := gin.H{"error": msg}
	var e *credits.Error
	if errors.As(err, &e) {
		body["code"] = e.Kind
	}
	c.JSON(status, body)
}
