package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/models"
)

type mailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ReceiptNotifier envoie un e-mail au propriétaire quand sa commande est réglée
type ReceiptNotifier struct {
	mailer mailSender
	appURL string
}

func NewReceiptNotifier(mailer mailSender, appURL string) *ReceiptNotifier {
	return &ReceiptNotifier{mailer: mailer, appURL: appURL}
}

func (n *ReceiptNotifier) OrderSettled(ctx context.Context, order *models.CreditOrder, user *models.User) error {
	if user == nil || user.Email == "" {
		return nil
	}
	subject := getStatusEmailSubject(order.Status)
	html, err := generateStatusEmailHTML(order, user, n.appURL)
	if err != nil {
		return err
	}

	if err := n.mailer.Send(ctx, user.Email, subject, html); err != nil {
		log.Printf("❌ Erreur envoi email statut: %v", err)
		return err
	}

	log.Printf("📧 Email de statut envoyé: %s → %s", order.Status, user.Email)
	return nil
}

func getStatusEmailSubject(status models.OrderStatus) string {
	switch status {
	case models.OrderPaid:
		return "✅ Thanh toán thành công - Gói tin đã được cộng"
	case models.OrderCancelled:
		return "❌ Đơn hàng đã bị huỷ"
	default:
		return "📋 Cập nhật đơn hàng"
	}
}

func getStatusMessage(status models.OrderStatus) string {
	switch status {
	case models.OrderPaid:
		return "Thanh toán của bạn đã được xác nhận. Lượt đăng tin đã được cộng vào tài khoản."
	case models.OrderCancelled:
		return "Đơn hàng đã bị huỷ hoặc hết hạn thanh toán. Bạn chưa bị trừ tiền."
	default:
		return "Trạng thái đơn hàng của bạn đã được cập nhật."
	}
}

func getStatusIcon(status models.OrderStatus) string {
	switch status {
	case models.OrderPaid:
		return "✅"
	case models.OrderCancelled:
		return "❌"
	default:
		return "📋"
	}
}

func getStatusColor(status models.OrderStatus) string {
	switch status {
	case models.OrderPaid:
		return "#10b981" // Green
	case models.OrderCancelled:
		return "#ef4444" // Red
	default:
		return "#6b7280" // Gray
	}
}

type receiptLine struct {
	Label    string
	Quantity int
	Credits  string
	Total    string
}

type receiptData struct {
	Icon           string
	Color          string
	Message        string
	Username       string
	OrderRef       string
	Lines          []receiptLine
	Subtotal       string
	CouponCode     string
	Discount       string
	Total          string
	Paid           bool
	VipCredits     int
	PremiumCredits int
	AccountURL     string
}

func generateStatusEmailHTML(order *models.CreditOrder, user *models.User, appURL string) (string, error) {
	data := receiptData{
		Icon:           getStatusIcon(order.Status),
		Color:          getStatusColor(order.Status),
		Message:        getStatusMessage(order.Status),
		Username:       user.Username,
		OrderRef:       shortRef(order),
		Subtotal:       credits.FormatVND(order.Subtotal),
		CouponCode:     order.CouponCode,
		Discount:       credits.FormatVND(order.CouponDiscount),
		Total:          credits.FormatVND(order.TotalAmount),
		Paid:           order.Status == models.OrderPaid,
		VipCredits:     user.VipCredits,
		PremiumCredits: user.PremiumCredits,
		AccountURL:     appURL + "/account/credits",
	}
	for _, it := range order.Items {
		data.Lines = append(data.Lines, receiptLine{
			Label:    it.Label,
			Quantity: it.Quantity,
			Credits:  fmt.Sprintf("%d VIP / %d Premium", it.VipCredits, it.PremiumCredits),
			Total:    credits.FormatVND(it.TotalPrice),
		})
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}

func shortRef(order *models.CreditOrder) string {
	if order.PayOSOrderCode > 0 {
		return fmt.Sprintf("#%d", order.PayOSOrderCode)
	}
	if len(order.ID) >= 8 {
		return "#" + order.ID[:8]
	}
	return "#" + order.ID
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html lang="vi">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Đơn hàng {{.OrderRef}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5f5f5;">
    <table role="presentation" style="width: 100%; border-collapse: collapse; background-color: #f5f5f5;">
        <tr>
            <td style="padding: 40px 20px;">
                <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
                    <tr>
                        <td style="background-color: {{.Color}}; padding: 40px 30px; text-align: center; border-radius: 12px 12px 0 0;">
                            <h1 style="margin: 0; color: #ffffff; font-size: 28px;">{{.Icon}} Đơn hàng {{.OrderRef}}</h1>
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 30px;">
                            <p style="color: #333333; font-size: 16px;">Xin chào {{if .Username}}{{.Username}}{{else}}bạn{{end}},</p>
                            <p style="color: #333333; font-size: 16px; line-height: 1.6;">{{.Message}}</p>
                            <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
                                <thead>
                                    <tr style="background-color: #f0f0f0;">
                                        <th style="padding: 10px; text-align: left;">Gói</th>
                                        <th style="padding: 10px; text-align: left;">SL</th>
                                        <th style="padding: 10px; text-align: left;">Lượt tin</th>
                                        <th style="padding: 10px; text-align: right;">Thành tiền</th>
                                    </tr>
                                </thead>
                                <tbody>
                                    {{range .Lines}}<tr>
                                        <td style="padding: 10px;">{{.Label}}</td>
                                        <td style="padding: 10px;">{{.Quantity}}</td>
                                        <td style="padding: 10px;">{{.Credits}}</td>
                                        <td style="padding: 10px; text-align: right;">{{.Total}}đ</td>
                                    </tr>{{end}}
                                </tbody>
                                <tfoot>
                                    <tr><td colspan="3" style="padding: 10px; text-align: right;">Tạm tính:</td><td style="padding: 10px; text-align: right;">{{.Subtotal}}đ</td></tr>
                                    {{if .CouponCode}}<tr><td colspan="3" style="padding: 10px; text-align: right;">Mã {{.CouponCode}}:</td><td style="padding: 10px; text-align: right;">-{{.Discount}}đ</td></tr>{{end}}
                                    <tr><td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Tổng:</td><td style="padding: 10px; text-align: right; font-weight: bold;">{{.Total}}đ</td></tr>
                                </tfoot>
                            </table>
                            {{if .Paid}}<p style="color: #333333; font-size: 16px;">Số dư hiện tại: <strong>{{.VipCredits}} tin VIP</strong>, <strong>{{.PremiumCredits}} tin Premium</strong>.</p>{{end}}
                            <p style="text-align: center; margin: 30px 0;">
                                <a href="{{.AccountURL}}" style="display: inline-block; padding: 14px 32px; background-color: {{.Color}}; color: #ffffff; text-decoration: none; border-radius: 8px; font-weight: 600;">Xem tài khoản</a>
                            </p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>
`))
