package credits

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/models"
)

// OrderRef identifie une commande par son id interne ou par son code passerelle.
// UserID restreint la réconciliation au propriétaire (vide pour le webhook).
type OrderRef struct {
	OrderID   string
	OrderCode int64
	UserID    string
}

type ReconcileResult struct {
	Status models.OrderStatus
	Order  *models.CreditOrder
	User   *models.User
}

// Reconcile demande à la passerelle le statut réel d'une commande et
// l'applique au plus une fois. Rappelable sans risque, y compris en parallèle.
func (s *Service) Reconcile(ctx context.Context, ref OrderRef) (*ReconcileResult, error) {
	order, err := s.findOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ref.UserID != "" && order.UserID != ref.UserID {
		return nil, ForbiddenError("Bạn không có quyền với đơn hàng này")
	}
	return s.reconcileOrder(ctx, order)
}

func (s *Service) findOrder(ctx context.Context, ref OrderRef) (*models.CreditOrder, error) {
	if ref.OrderID == "" && ref.OrderCode <= 0 {
		return nil, ValidationError("Thiếu orderCode hoặc orderId để xác nhận thanh toán")
	}
	if ref.OrderID != "" {
		order, err := s.orders.GetOrder(ctx, ref.OrderID)
		if err == nil {
			return order, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	if ref.OrderCode > 0 {
		order, err := s.orders.GetOrderByCode(ctx, ref.OrderCode)
		if err == nil {
			return order, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, NotFoundError("Không tìm thấy đơn hàng tương ứng")
}

func (s *Service) reconcileOrder(ctx context.Context, order *models.CreditOrder) (*ReconcileResult, error) {
	logger := log.WithFields(log.Fields{"order_id": order.ID, "order_code": order.PayOSOrderCode})

	switch {
	case order.Status == models.OrderPaid && !order.IsCreditsApplied:
		// arrêt entre le passage à paid et le crédit : on termine le travail
		logger.Warn("⚠️ Commande payée sans crédits appliqués, reprise")
		return s.applyCredits(ctx, order)
	case order.IsTerminal():
		return s.result(ctx, order)
	case order.TotalAmount == 0:
		return s.settle(ctx, order, models.OrderPaid, "FREE", "")
	}

	if s.lock != nil {
		release, ok, err := s.lock.Acquire(ctx, order.ID, s.cfg.LockTTL)
		switch {
		case err != nil:
			logger.WithError(err).Warn("⚠️ Verrou de réconciliation indisponible, on continue sans")
		case !ok:
			// une autre requête interroge déjà la passerelle
			logger.Debug("Réconciliation déjà en cours")
			return s.refresh(ctx, order.ID)
		default:
			defer release()
		}
	}

	info, err := s.gateway.PaymentInfo(ctx, PaymentRef{OrderCode: order.PayOSOrderCode, Reference: order.GatewayRef})
	if err != nil {
		logger.WithError(err).Error("❌ Impossible d'interroger la passerelle")
		if errors.Is(err, ErrGateway) {
			return nil, err
		}
		return nil, GatewayError("Không kiểm tra được trạng thái thanh toán", err)
	}

	target, ok := info.Status.Target()
	if !ok {
		logger.Debugf("Paiement toujours %s", info.Status)
		return s.result(ctx, order)
	}
	return s.settle(ctx, order, target, string(info.Status), info.Raw)
}

// settle passe la commande de pending à target par écriture conditionnelle,
// puis crédite si elle est payée. Le perdant de la course relit l'état courant.
func (s *Service) settle(ctx context.Context, order *models.CreditOrder, target models.OrderStatus, gatewayStatus, raw string) (*ReconcileResult, error) {
	logger := log.WithFields(log.Fields{"order_id": order.ID, "user_id": order.UserID})

	won, err := s.orders.TransitionOrder(ctx, order.ID, target, gatewayStatus, raw)
	if err != nil {
		return nil, err
	}
	fresh, err := s.orders.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		logger.Debugf("Transition perdue, statut actuel %s", fresh.Status)
	} else {
		logger.Infof("🔄 Commande %s → %s", order.ID, target)
	}

	if fresh.Status == models.OrderPaid && !fresh.IsCreditsApplied {
		return s.applyCredits(ctx, fresh)
	}

	res, err := s.result(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if won && fresh.Status == models.OrderCancelled {
		s.notify(ctx, fresh, res.User)
	}
	return res, nil
}

// applyCredits crédite le ledger (idempotent par commande) puis lève le drapeau
// is_credits_applied. Seul l'appelant qui lève le drapeau déclenche les effets.
func (s *Service) applyCredits(ctx context.Context, order *models.CreditOrder) (*ReconcileResult, error) {
	logger := log.WithFields(log.Fields{"order_id": order.ID, "user_id": order.UserID})
	vip, premium := order.Credits()

	user, err := s.ledger.ApplyOrderCredits(ctx, order.UserID, order.ID, vip, premium)
	if err != nil {
		logger.WithError(err).Error("❌ Crédit du compte échoué")
		return nil, err
	}

	flipped, err := s.orders.MarkCreditsApplied(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	fresh, err := s.orders.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	if flipped {
		logger.Infof("✅ Crédits appliqués : +%d VIP, +%d Premium", vip, premium)
		if fresh.CouponCode != "" {
			if err := s.coupons.IncrementUsage(ctx, fresh.CouponCode); err != nil {
				logger.WithError(err).Warnf("⚠️ Compteur d'utilisation du coupon %s non mis à jour", fresh.CouponCode)
			}
		}
		s.notify(ctx, fresh, user)
	}

	return &ReconcileResult{Status: fresh.Status, Order: fresh, User: user}, nil
}

// notify part après le changement d'état, sur un contexte détaché de la
// requête : SMTP et Kafka ne retardent pas la réponse au webhook.
func (s *Service) notify(ctx context.Context, order *models.CreditOrder, user *models.User) {
	if s.notifier == nil {
		return
	}
	o := *order
	var u *models.User
	if user != nil {
		cp := *user
		u = &cp
	}
	detached := context.WithoutCancel(ctx)
	s.dispatch(func() {
		nctx, cancel := context.WithTimeout(detached, notifyTimeout)
		defer cancel()
		if err := s.notifier.OrderSettled(nctx, &o, u); err != nil {
			log.WithField("order_id", o.ID).WithError(err).Warn("⚠️ Notification de commande échouée")
		}
	})
}

func (s *Service) refresh(ctx context.Context, orderID string) (*ReconcileResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.result(ctx, order)
}

func (s *Service) result(ctx context.Context, order *models.CreditOrder) (*ReconcileResult, error) {
	user, err := s.ledger.GetUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{Status: order.Status, Order: order, User: user}, nil
}
