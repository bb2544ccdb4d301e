package credits

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"housesale_back_end/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// History retourne les commandes de l'utilisateur, la plus récente d'abord
func (s *Service) History(ctx context.Context, userID string) ([]models.CreditOrder, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(orders)
	return orders, nil
}

// Balance retourne les compteurs VIP / Premium de l'utilisateur
func (s *Service) Balance(ctx context.Context, userID string) (*models.User, error) {
	return s.ledger.GetUser(ctx, userID)
}

// UserOrder retourne une commande appartenant à l'utilisateur
func (s *Service) UserOrder(ctx context.Context, userID, orderID string) (*models.CreditOrder, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ForbiddenError("Bạn không có quyền với đơn hàng này")
	}
	return order, nil
}

type OrderQuery struct {
	Search string
	Page   int
	Limit  int
}

type OrderPage struct {
	Items []models.CreditOrder `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// AdminListOrders pagine toutes les commandes, filtrées par id, utilisateur,
// coupon ou code passerelle (insensible à la casse)
func (s *Service) AdminListOrders(ctx context.Context, q OrderQuery) (*OrderPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageLimit
	}
	q.Limit = min(q.Limit, maxPageLimit)

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(orders)

	search := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := orders[:0]
	for _, o := range orders {
		if search == "" || orderMatches(o, search) {
			filtered = append(filtered, o)
		}
	}

	page := &OrderPage{Items: []models.CreditOrder{}, Total: len(filtered), Page: q.Page, Limit: q.Limit}
	start := (q.Page - 1) * q.Limit
	if start < len(filtered) {
		end := min(start+q.Limit, len(filtered))
		page.Items = filtered[start:end]
	}
	return page, nil
}

func orderMatches(o models.CreditOrder, search string) bool {
	fields := []string{o.ID, o.UserID, o.CouponCode, o.PaymentMethod}
	if o.PayOSOrderCode > 0 {
		fields = append(fields, strconv.FormatInt(o.PayOSOrderCode, 10))
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

type OrderStats struct {
	TotalOrders        int                        `json:"totalOrders"`
	PaidOrders         int                        `json:"paidOrders"`
	Revenue            int64                      `json:"revenue"`
	DiscountGranted    int64                      `json:"discountGranted"`
	VipCreditsSold     int                        `json:"vipCreditsSold"`
	PremiumCreditsSold int                        `json:"premiumCreditsSold"`
	ByStatus           map[models.OrderStatus]int `json:"byStatus"`
}

// Stats agrège les commandes pour le tableau de bord admin
func (s *Service) Stats(ctx context.Context) (*OrderStats, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	stats := &OrderStats{ByStatus: map[models.OrderStatus]int{}}
	for _, o := range orders {
		stats.TotalOrders++
		stats.ByStatus[o.Status]++
		if o.Status != models.OrderPaid {
			continue
		}
		stats.PaidOrders++
		stats.Revenue += o.TotalAmount
		stats.DiscountGranted += o.CouponDiscount
		vip, premium := o.Credits()
		stats.VipCreditsSold += vip
		stats.PremiumCreditsSold += premium
	}
	return stats, nil
}

func sortNewestFirst(orders []models.CreditOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
