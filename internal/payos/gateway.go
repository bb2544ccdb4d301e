package payos

import (
	"context"
	"strings"
	"time"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/models"
)

const maxDescriptionLen = 25

// Gateway adapte le client payOS au port credits.Gateway
type Gateway struct {
	client    *Client
	returnURL string
	cancelURL string
	linkTTL   time.Duration
	now       func() time.Time
}

func NewGateway(client *Client, returnURL, cancelURL string, linkTTL time.Duration) *Gateway {
	return &Gateway{
		client:    client,
		returnURL: returnURL,
		cancelURL: cancelURL,
		linkTTL:   linkTTL,
		now:       time.Now,
	}
}

func (g *Gateway) Method() string { return models.PaymentMethodPayOS }

func (g *Gateway) CreateCheckout(ctx context.Context, req credits.CheckoutRequest) (*credits.CheckoutSession, error) {
	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, Item{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	pr := PaymentRequest{
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: truncate(req.Description, maxDescriptionLen),
		BuyerEmail:  req.BuyerEmail,
		Items:       items,
		CancelURL:   g.cancelURL,
		ReturnURL:   g.returnURL,
	}
	if g.linkTTL > 0 {
		pr.ExpiredAt = g.now().Add(g.linkTTL).Unix()
	}

	link, raw, err := g.client.CreatePaymentLink(ctx, pr)
	if err != nil {
		return nil, credits.GatewayError("Không tạo được link thanh toán payOS", err)
	}
	return &credits.CheckoutSession{
		CheckoutURL: link.CheckoutURL,
		Reference:   link.PaymentLinkID,
		QRCode:      link.QRCode,
		Raw:         string(raw),
	}, nil
}

func (g *Gateway) PaymentInfo(ctx context.Context, ref credits.PaymentRef) (*credits.PaymentInfo, error) {
	if ref.OrderCode <= 0 {
		return nil, credits.GatewayError("Đơn hàng không có mã payOS", nil)
	}
	info, raw, err := g.client.GetPaymentLink(ctx, ref.OrderCode)
	if err != nil {
		return nil, credits.GatewayError("Không kiểm tra được trạng thái payOS", err)
	}
	return &credits.PaymentInfo{
		Status: credits.GatewayStatus(strings.ToUpper(info.Status)),
		Raw:    string(raw),
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
