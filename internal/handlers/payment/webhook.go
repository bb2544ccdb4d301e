package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/payos"
	"housesale_back_end/internal/stripepay"
)

const maxWebhookBody = int64(65536)

// PayOSWebhook vérifie la signature puis réconcilie par orderCode. Le statut
// annoncé par le webhook est ignoré : la réconciliation interroge l'API.
func (h *Handler) PayOSWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không đọc được dữ liệu"})
		return
	}

	data, err := payos.VerifyWebhook(h.opts.PayOSChecksumKey, payload)
	if err != nil {
		log.WithError(err).Warn("❌ Webhook payOS rejeté")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chữ ký không hợp lệ"})
		return
	}
	logger := log.WithField("order_code", data.OrderCode)
	logger.Infof("📥 Webhook payOS reçu (code %s)", data.Code)

	res, err := h.svc.Reconcile(c.Request.Context(), credits.OrderRef{OrderCode: data.OrderCode})
	switch {
	case errors.Is(err, credits.ErrNotFound):
		// webhook de test envoyé par payOS à l'enregistrement de l'URL
		logger.Info("ℹ️ Webhook payOS pour une commande inconnue, ignoré")
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	case err != nil:
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": res.Status})
}

// StripeWebhook traite les événements payment_intent.*
func (h *Handler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	// sans secret, seuls les tests acceptent des événements non signés
	if h.opts.StripeWebhookSecret == "" && gin.Mode() != gin.TestMode {
		log.Error("❌ STRIPE_WEBHOOK_SECRET manquant, événement rejeté")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
		return
	}
	ev, err := stripepay.ParseWebhook(payload, c.GetHeader("Stripe-Signature"), h.opts.StripeWebhookSecret)
	switch {
	case errors.Is(err, stripepay.ErrIgnoredEvent):
		c.Status(http.StatusOK)
		return
	case err != nil:
		log.WithError(err).Warn("❌ Signature Stripe invalide")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
		return
	}
	log.Printf("📥 Événement Stripe reçu : %s (%s)", ev.Type, ev.PaymentIntentID)

	_, err = h.svc.Reconcile(c.Request.Context(), credits.OrderRef{OrderID: ev.OrderID, OrderCode: ev.OrderCode})
	if err != nil && !errors.Is(err, credits.ErrNotFound) && !errors.Is(err, credits.ErrValidation) {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
