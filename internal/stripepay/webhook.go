package stripepay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

var ErrIgnoredEvent = errors.New("stripe: event ignored")

// WebhookEvent est la partie utile d'un événement payment_intent.*
type WebhookEvent struct {
	Type            string
	PaymentIntentID string
	OrderID         string
	OrderCode       int64
}

// ParseWebhook vérifie la signature Stripe puis extrait la commande visée.
// Sans secret, la signature n'est pas vérifiée : réservé aux tests, le serveur exige le secret.
func ParseWebhook(payload []byte, sigHeader, secret string) (*WebhookEvent, error) {
	var event stripe.Event
	if secret == "" {
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("stripe: invalid json: %w", err)
		}
	} else {
		var err error
		event, err = webhook.ConstructEvent(payload, sigHeader, secret)
		if err != nil {
			return nil, err
		}
	}

	if !strings.HasPrefix(string(event.Type), "payment_intent.") || event.Data == nil {
		return nil, ErrIgnoredEvent
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
	}
	ev := &WebhookEvent{
		Type:            string(event.Type),
		PaymentIntentID: pi.ID,
		OrderID:         pi.Metadata["order_id"],
	}
	if code := pi.Metadata["order_code"]; code != "" {
		ev.OrderCode, _ = strconv.ParseInt(code, 10, 64)
	}
	return ev, nil
}
