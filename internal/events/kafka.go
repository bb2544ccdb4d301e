package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/models"
)

const DefaultTopic = "credits.applied"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CreditsApplied est le message publié quand une commande a crédité un compte
type CreditsApplied struct {
	OrderID        string    `json:"orderId"`
	OrderCode      int64     `json:"orderCode,omitempty"`
	UserID         string    `json:"userId"`
	PaymentMethod  string    `json:"paymentMethod"`
	TotalAmount    int64     `json:"totalAmount"`
	CouponCode     string    `json:"couponCode,omitempty"`
	VipCredits     int       `json:"vipCredits"`
	PremiumCredits int       `json:"premiumCredits"`
	BalanceVip     int       `json:"balanceVip"`
	BalancePremium int       `json:"balancePremium"`
	AppliedAt      time.Time `json:"appliedAt"`
}

// Publisher envoie les événements crédits sur Kafka
type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // même user → même partition
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(w *kafka.Writer) *Publisher {
	return &Publisher{writer: w, now: time.Now}
}

// OrderSettled ne publie que les commandes payées et créditées
func (p *Publisher) OrderSettled(ctx context.Context, order *models.CreditOrder, user *models.User) error {
	if order.Status != models.OrderPaid || !order.IsCreditsApplied {
		return nil
	}
	vip, premium := order.Credits()
	ev := CreditsApplied{
		OrderID:        order.ID,
		OrderCode:      order.PayOSOrderCode,
		UserID:         order.UserID,
		PaymentMethod:  order.PaymentMethod,
		TotalAmount:    order.TotalAmount,
		CouponCode:     order.CouponCode,
		VipCredits:     vip,
		PremiumCredits: premium,
		AppliedAt:      p.now(),
	}
	if user != nil {
		ev.BalanceVip = user.VipCredits
		ev.BalancePremium = user.PremiumCredits
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal credits event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(order.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "order_id", Value: []byte(order.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish credits event: %w", err)
	}
	log.WithField("order_id", order.ID).Debug("📤 Événement credits.applied publié")
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
