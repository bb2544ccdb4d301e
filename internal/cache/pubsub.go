package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"housesale_back_end/internal/models"
)

// OrderStatusEvent est publié sur order_status:<orderId> à chaque règlement
type OrderStatusEvent struct {
	OrderID        string             `json:"orderId"`
	Status         models.OrderStatus `json:"status"`
	CreditsApplied bool               `json:"isCreditsApplied"`
	VipCredits     int                `json:"vipCredits"`
	PremiumCredits int                `json:"premiumCredits"`
	SettledAt      time.Time          `json:"settledAt"`
}

func OrderChannel(orderID string) string {
	return "order_status:" + orderID
}

// OrderEvents publie le statut des commandes réglées pour les clients
// connectés en websocket (page de retour payOS)
type OrderEvents struct {
	rdb *redis.Client
	now func() time.Time
}

func NewOrderEvents(rdb *redis.Client) *OrderEvents {
	return &OrderEvents{rdb: rdb, now: time.Now}
}

func NewOrderStatusEvent(order *models.CreditOrder, user *models.User, at time.Time) OrderStatusEvent {
	ev := OrderStatusEvent{
		OrderID:        order.ID,
		Status:         order.Status,
		CreditsApplied: order.IsCreditsApplied,
		SettledAt:      at,
	}
	if user != nil {
		ev.VipCredits = user.VipCredits
		ev.PremiumCredits = user.PremiumCredits
	}
	return ev
}

func (e *OrderEvents) OrderSettled(ctx context.Context, order *models.CreditOrder, user *models.User) error {
	data, err := json.Marshal(NewOrderStatusEvent(order, user, e.now()))
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, OrderChannel(order.ID), data).Err()
}

// Subscribe ouvre un abonnement au canal d'une commande. L'appelant ferme le PubSub.
func (e *OrderEvents) Subscribe(ctx context.Context, orderID string) *redis.PubSub {
	return e.rdb.Subscribe(ctx, OrderChannel(orderID))
}
