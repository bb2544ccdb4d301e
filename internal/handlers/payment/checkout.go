package payment

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/models"
)

type createOrderRequest struct {
	PackageKey string `json:"packageKey"`
	Quantity   int    `json:"quantity"`
	CouponCode string `json:"couponCode"`
}

// CreateOrder crée une commande de crédits. Montant nul : réglée immédiatement.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ"})
		return
	}

	res, err := h.svc.CreateOrder(c.Request.Context(), credits.CreateOrderRequest{
		UserID:     c.GetString("user_id"),
		PackageKey: req.PackageKey,
		Quantity:   req.Quantity,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if res.Mode == credits.ModeFree {
		c.JSON(http.StatusOK, gin.H{
			"mode":   res.Mode,
			"status": res.Status,
			"order":  res.Order,
			"user":   res.User,
		})
		return
	}

	body := gin.H{
		"mode":           res.Mode,
		"status":         res.Status,
		"provider":       res.Order.PaymentMethod,
		"orderId":        res.Order.ID,
		"payosOrderCode": res.PayOSOrderCode,
		"totalAmount":    res.Order.TotalAmount,
	}
	if res.CheckoutURL != "" {
		body["checkoutUrl"] = res.CheckoutURL
	}
	if res.ClientSecret != "" {
		body["clientSecret"] = res.ClientSecret
	}
	c.JSON(http.StatusOK, body)
}

// orderCode accepte un nombre ou une chaîne (la page de retour le lit dans l'URL)
type orderCode int64

func (o *orderCode) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*o = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*o = orderCode(v)
	return nil
}

// ConfirmPayOS est appelé par la page de retour : le statut est toujours
// relu auprès de la passerelle, jamais déduit des paramètres de l'URL.
func (h *Handler) ConfirmPayOS(c *gin.Context) {
	var req struct {
		OrderCode orderCode `json:"orderCode"`
		OrderID   string    `json:"orderId"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ"})
			return
		}
	}
	if req.OrderCode == 0 {
		if v, err := strconv.ParseInt(c.Query("orderCode"), 10, 64); err == nil {
			req.OrderCode = orderCode(v)
		}
	}
	if req.OrderID == "" {
		req.OrderID = strings.TrimSpace(c.Query("orderId"))
	}

	res, err := h.svc.Reconcile(c.Request.Context(), credits.OrderRef{
		OrderID:   req.OrderID,
		OrderCode: int64(req.OrderCode),
		UserID:    c.GetString("user_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reconcileBody(res))
}

func reconcileBody(res *credits.ReconcileResult) gin.H {
	return gin.H{
		"status":  res.Status,
		"order":   res.Order,
		"user":    res.User,
		"pending": res.Status == models.OrderPending,
	}
}
