package stripepay

import (
	"context"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/models"
)

// Gateway implémente credits.Gateway avec des PaymentIntents Stripe.
// Le VND est une devise sans décimales : le montant est envoyé tel quel.
type Gateway struct {
	currency string
	create   func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	get      func(string, *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func NewGateway(secretKey string) *Gateway {
	stripe.Key = secretKey
	return &Gateway{
		currency: "vnd",
		create:   paymentintent.New,
		get:      paymentintent.Get,
	}
}

func (g *Gateway) Method() string { return models.PaymentMethodStripe }

func (g *Gateway) CreateCheckout(ctx context.Context, req credits.CheckoutRequest) (*credits.CheckoutSession, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(req.Description),
		Metadata: map[string]string{
			"order_id":   req.OrderID,
			"order_code": strconv.FormatInt(req.OrderCode, 10),
		},
	}
	if req.BuyerEmail != "" {
		params.ReceiptEmail = stripe.String(req.BuyerEmail)
	}

	intent, err := g.create(params)
	if err != nil {
		log.WithError(err).Error("❌ Erreur Stripe")
		return nil, credits.GatewayError("Không tạo được thanh toán Stripe", err)
	}
	log.Infof("💳 PaymentIntent créé : %s (%dđ) pour la commande %s", intent.ID, req.Amount, req.OrderID)

	return &credits.CheckoutSession{
		ClientSecret: intent.ClientSecret,
		Reference:    intent.ID,
	}, nil
}

func (g *Gateway) PaymentInfo(ctx context.Context, ref credits.PaymentRef) (*credits.PaymentInfo, error) {
	if ref.Reference == "" {
		return nil, credits.GatewayError("Đơn hàng không có PaymentIntent", nil)
	}
	intent, err := g.get(ref.Reference, nil)
	if err != nil {
		return nil, credits.GatewayError("Không kiểm tra được trạng thái Stripe", err)
	}
	info := &credits.PaymentInfo{Status: intentStatus(intent.Status)}
	if intent.LastResponse != nil {
		info.Raw = string(intent.LastResponse.RawJSON)
	}
	return info, nil
}

func intentStatus(s stripe.PaymentIntentStatus) credits.GatewayStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return credits.GatewayPaid
	case stripe.PaymentIntentStatusCanceled:
		return credits.GatewayCancelled
	}
	return credits.GatewayPending
}
