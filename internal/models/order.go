package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

const (
	PaymentMethodPayOS  = "payos"
	PaymentMethodStripe = "stripe"
	PaymentMethodFree   = "coupon_free"
)

// CreditOrderItem est une copie figée du package au moment de la commande.
// VipCredits / PremiumCredits sont les totaux de la ligne (crédits × quantité).
type CreditOrderItem struct {
	PackageKey     string `json:"packageKey"`
	Label          string `json:"label"`
	VipCredits     int    `json:"vipCredits"`
	PremiumCredits int    `json:"premiumCredits"`
	UnitPrice      int64  `json:"unitPrice"`
	Quantity       int    `json:"quantity"`
	TotalPrice     int64  `json:"totalPrice"`
}

type CreditOrder struct {
	ID               string            `json:"id"`
	UserID           string            `json:"userId"`
	Items            []CreditOrderItem `json:"items"`
	Subtotal         int64             `json:"subtotal"`
	CouponCode       string            `json:"couponCode,omitempty"`
	CouponDiscount   int64             `json:"couponDiscount"`
	TotalAmount      int64             `json:"totalAmount"`
	Status           OrderStatus       `json:"status"`
	PaymentMethod    string            `json:"paymentMethod"`
	PayOSOrderCode   int64             `json:"payosOrderCode,omitempty"`
	GatewayRef       string            `json:"gatewayRef,omitempty"`
	CheckoutURL      string            `json:"checkoutUrl,omitempty"`
	QRCode           string            `json:"-"`
	PayOSStatus      string            `json:"payosStatus,omitempty"`
	PayOSRaw         string            `json:"-"`
	IsCreditsApplied bool              `json:"isCreditsApplied"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Credits retourne la somme des crédits de toutes les lignes
func (o CreditOrder) Credits() (vip, premium int) {
	for _, item := range o.Items {
		vip += item.VipCredits
		premium += item.PremiumCredits
	}
	return vip, premium
}

func (o CreditOrder) IsTerminal() bool {
	return o.Status == OrderPaid || o.Status == OrderCancelled
}
