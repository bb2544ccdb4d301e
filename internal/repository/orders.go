package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/models"
)

// OrderStore persiste les commandes de crédits. Toutes les transitions d'état
// passent par des transactions légères (IF ...) : une seule écriture gagne.
type OrderStore struct {
	session *gocql.Session
}

func NewOrderStore(session *gocql.Session) *OrderStore {
	return &OrderStore{session: session}
}

func orderNotFound() error {
	return credits.NotFoundError("Không tìm thấy đơn hàng tương ứng")
}

func parseOrderID(id string) (gocql.UUID, error) {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return gocql.UUID{}, orderNotFound()
	}
	return uid, nil
}

// CreateOrder réserve d'abord le code passerelle (index unique), puis écrit la commande
func (s *OrderStore) CreateOrder(ctx context.Context, o *models.CreditOrder) error {
	uid, err := gocql.ParseUUID(o.ID)
	if err != nil {
		return fmt.Errorf("order id %q: %w", o.ID, err)
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	if o.PayOSOrderCode > 0 {
		applied, err := s.session.Query(qInsertOrderCode, o.PayOSOrderCode, uid).
			WithContext(ctx).MapScanCAS(map[string]interface{}{})
		if err != nil {
			return fmt.Errorf("reserve order code: %w", err)
		}
		if !applied {
			return credits.ConflictError(fmt.Sprintf("order code %d already used", o.PayOSOrderCode))
		}
	}

	applied, err := s.session.Query(qInsertOrder,
		uid, o.UserID, string(items), o.Subtotal, o.CouponCode, o.CouponDiscount, o.TotalAmount, string(o.Status),
		o.PaymentMethod, o.PayOSOrderCode, o.GatewayRef, o.CheckoutURL, o.QRCode, o.PayOSStatus, o.PayOSRaw,
		o.IsCreditsApplied, o.CreatedAt, o.UpdatedAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	if !applied {
		return credits.ConflictError("order id already exists")
	}

	if err := s.session.Query(qInsertOrderByUser, o.UserID, o.CreatedAt, uid).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("index order by user: %w", err)
	}
	return nil
}

func scanOrder(scan func(dest ...interface{}) error) (*models.CreditOrder, error) {
	var (
		o      models.CreditOrder
		uid    gocql.UUID
		items  string
		status string
	)
	err := scan(&uid, &o.UserID, &items, &o.Subtotal, &o.CouponCode, &o.CouponDiscount, &o.TotalAmount, &status,
		&o.PaymentMethod, &o.PayOSOrderCode, &o.GatewayRef, &o.CheckoutURL, &o.QRCode, &o.PayOSStatus, &o.PayOSRaw,
		&o.IsCreditsApplied, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.ID = uid.String()
	o.Status = models.OrderStatus(status)
	if items != "" {
		if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
			return nil, fmt.Errorf("decode items of order %s: %w", o.ID, err)
		}
	}
	return &o, nil
}

func (s *OrderStore) GetOrder(ctx context.Context, id string) (*models.CreditOrder, error) {
	uid, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}
	q := s.session.Query(qSelectOrder, uid).WithContext(ctx)
	o, err := scanOrder(q.Scan)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, orderNotFound()
		}
		return nil, err
	}
	return o, nil
}

func (s *OrderStore) GetOrderByCode(ctx context.Context, code int64) (*models.CreditOrder, error) {
	var uid gocql.UUID
	if err := s.session.Query(qSelectOrderByCode, code).WithContext(ctx).Scan(&uid); err != nil {
		if err == gocql.ErrNotFound {
			return nil, orderNotFound()
		}
		return nil, err
	}
	return s.GetOrder(ctx, uid.String())
}

// AttachCheckout enregistre la session de paiement. Si la commande a déjà été
// réglée entre-temps, seules les références sont ajoutées.
func (s *OrderStore) AttachCheckout(ctx context.Context, id string, cs credits.CheckoutSession) error {
	uid, err := parseOrderID(id)
	if err != nil {
		return err
	}
	applied, err := s.session.Query(qAttachCheckout,
		cs.Reference, cs.CheckoutURL, cs.QRCode, string(credits.GatewayPending), cs.Raw, time.Now(),
		uid, string(models.OrderPending),
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("attach checkout: %w", err)
	}
	if applied {
		return nil
	}

	applied, err = s.session.Query(qAttachCheckoutRefs, cs.Reference, cs.CheckoutURL, cs.QRCode, uid).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("attach checkout refs: %w", err)
	}
	if !applied {
		return orderNotFound()
	}
	return nil
}

func (s *OrderStore) TransitionOrder(ctx context.Context, id string, to models.OrderStatus, gatewayStatus, raw string) (bool, error) {
	uid, err := parseOrderID(id)
	if err != nil {
		return false, err
	}
	prev := map[string]interface{}{}
	applied, err := s.session.Query(qTransitionOrder,
		string(to), gatewayStatus, raw, time.Now(), uid, string(models.OrderPending),
	).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, fmt.Errorf("transition order %s: %w", id, err)
	}
	if !applied {
		log.WithFields(log.Fields{"order_id": id, "current": prev["status"]}).Debug("Transition ignorée")
	}
	return applied, nil
}

func (s *OrderStore) MarkCreditsApplied(ctx context.Context, id string) (bool, error) {
	uid, err := parseOrderID(id)
	if err != nil {
		return false, err
	}
	applied, err := s.session.Query(qMarkCreditsApplied, time.Now(), uid, string(models.OrderPaid)).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return false, fmt.Errorf("mark credits applied %s: %w", id, err)
	}
	return applied, nil
}

func (s *OrderStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.CreditOrder, error) {
	iter := s.session.Query(qSelectUserOrders, userID).WithContext(ctx).Iter()
	var ids []gocql.UUID
	var uid gocql.UUID
	for iter.Scan(&uid) {
		ids = append(ids, uid)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}

	orders := make([]models.CreditOrder, 0, len(ids))
	for _, id := range ids {
		o, err := s.GetOrder(ctx, id.String())
		if err != nil {
			if errors.Is(err, credits.ErrNotFound) {
				continue // index orphelin
			}
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (s *OrderStore) ListOrders(ctx context.Context) ([]models.CreditOrder, error) {
	iter := s.session.Query(qSelectOrders).WithContext(ctx).Iter()
	var orders []models.CreditOrder
	for {
		o, err := scanOrder(func(dest ...interface{}) error {
			if !iter.Scan(dest...) {
				return gocql.ErrNotFound
			}
			return nil
		})
		if err == gocql.ErrNotFound {
			break
		}
		if err != nil {
			iter.Close()
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}
