package credits

import (
	"context"

	"housesale_back_end/internal/models"
)

// GatewayStatus est le statut brut de la passerelle, normalisé en majuscules
type GatewayStatus string

const (
	GatewayPending   GatewayStatus = "PENDING"
	GatewayPaid      GatewayStatus = "PAID"
	GatewayCancelled GatewayStatus = "CANCELLED"
	GatewayExpired   GatewayStatus = "EXPIRED"
	GatewayFailed    GatewayStatus = "FAILED"
)

// Target retourne l'état de commande visé, ou false si rien ne doit changer
func (s GatewayStatus) Target() (models.OrderStatus, bool) {
	switch s {
	case GatewayPaid:
		return models.OrderPaid, true
	case GatewayCancelled, GatewayExpired, GatewayFailed:
		return models.OrderCancelled, true
	}
	return "", false
}

type CheckoutItem struct {
	Name     string
	Quantity int
	Price    int64
}

type CheckoutRequest struct {
	OrderID     string
	OrderCode   int64
	Amount      int64
	Description string
	Items       []CheckoutItem
	BuyerEmail  string
}

type CheckoutSession struct {
	CheckoutURL  string
	ClientSecret string // Stripe uniquement
	Reference    string // paymentLinkId payOS ou PaymentIntent Stripe
	QRCode       string // payload VietQR payOS
	Raw          string
}

type PaymentRef struct {
	OrderCode int64
	Reference string
}

type PaymentInfo struct {
	Status GatewayStatus
	Raw    string
}

// Gateway est l'adaptateur vers le prestataire de paiement. Toute erreur
// retournée signifie "impossible de demander", jamais "refusé".
type Gateway interface {
	Method() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	PaymentInfo(ctx context.Context, ref PaymentRef) (*PaymentInfo, error)
}
