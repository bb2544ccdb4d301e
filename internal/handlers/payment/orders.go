package payment

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/cache"
	"housesale_back_end/internal/models"
	"housesale_back_end/internal/utils"
)

// History liste les commandes de l'utilisateur, plus récentes d'abord
func (h *Handler) History(c *gin.Context) {
	orders, err := h.svc.History(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *Handler) Balance(c *gin.Context) {
	user, err := h.svc.Balance(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"vipCredits":     user.VipCredits,
		"premiumCredits": user.PremiumCredits,
	})
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.svc.UserOrder(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// OrderQR renvoie le QR VietQR de la commande en PNG
func (h *Handler) OrderQR(c *gin.Context) {
	order, err := h.svc.UserOrder(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if order.QRCode == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Đơn hàng không có mã QR"})
		return
	}

	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	if size < 64 || size > 1024 {
		size = 256
	}
	png, err := utils.QRCodePNG(order.QRCode, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// l'origine est déjà filtrée par CORS et le JWT
		return true
	},
}

const pingInterval = 30 * time.Second

// OrderWebSocket pousse le statut d'une commande à la page de retour
// jusqu'à ce qu'elle soit payée ou annulée
func (h *Handler) OrderWebSocket(c *gin.Context) {
	if h.opts.Subscriber == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Tính năng tạm thời không khả dụng"})
		return
	}
	order, err := h.svc.UserOrder(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("❌ Erreur upgrade WebSocket")
		return
	}
	defer conn.Close()

	user, _ := h.svc.Balance(c.Request.Context(), order.UserID)
	current := cache.NewOrderStatusEvent(order, user, order.UpdatedAt)
	if err := conn.WriteJSON(current); err != nil || order.IsTerminal() {
		return
	}

	ctx := c.Request.Context()
	pubsub := h.opts.Subscriber.Subscribe(ctx, order.ID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	// la commande a pu être réglée entre la lecture et l'abonnement
	if again, err := h.svc.UserOrder(ctx, order.UserID, order.ID); err == nil && again.IsTerminal() {
		user, _ := h.svc.Balance(ctx, order.UserID)
		_ = conn.WriteJSON(cache.NewOrderStatusEvent(again, user, again.UpdatedAt))
		closeWith(conn, again.Status)
		return
	}

	// lecture pour détecter la fermeture côté client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev cache.OrderStatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.WithError(err).Debug("Erreur envoi WebSocket")
				return
			}
			if settled(ev) {
				closeWith(conn, ev.Status)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}

func settled(ev cache.OrderStatusEvent) bool {
	return ev.Status == models.OrderCancelled || ev.Status == models.OrderPaid && ev.CreditsApplied
}

func closeWith(conn *websocket.Conn, status models.OrderStatus) {
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(status)))
}
