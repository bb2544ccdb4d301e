package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/models"
)

const maxCASRetries = 10

type CouponStore struct {
	session *gocql.Session
}

func NewCouponStore(session *gocql.Session) *CouponStore {
	return &CouponStore{session: session}
}

func couponDest(c *models.Coupon) []interface{} {
	return []interface{}{&c.Code, &c.Type, &c.Value, &c.MinOrderAmount, &c.MaxDiscount, &c.StartDate, &c.EndDate,
		&c.ExpiresAt, &c.IsActive, &c.IsLocked, &c.MaxUses, &c.TimesUsed, &c.Description, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt}
}

func (s *CouponStore) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := s.session.Query(qSelectCoupon, code).WithContext(ctx).Scan(couponDest(&c)...); err != nil {
		return nil, wrapNotFound(err, "Mã giảm giá không tồn tại")
	}
	return &c, nil
}

func (s *CouponStore) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	iter := s.session.Query(qSelectCoupons).WithContext(ctx).Iter()
	var coupons []models.Coupon
	var c models.Coupon
	for iter.Scan(couponDest(&c)...) {
		coupons = append(coupons, c)
		c = models.Coupon{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

func (s *CouponStore) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	applied, err := s.session.Query(qInsertCoupon,
		c.Code, c.Type, c.Value, c.MinOrderAmount, c.MaxDiscount, c.StartDate, c.EndDate, c.ExpiresAt,
		c.IsActive, c.IsLocked, c.MaxUses, c.TimesUsed, c.Description, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}
	if !applied {
		return credits.ConflictError("Mã giảm giá đã tồn tại")
	}
	return nil
}

func (s *CouponStore) UpdateCoupon(ctx context.Context, c *models.Coupon) error {
	applied, err := s.session.Query(qUpdateCoupon,
		c.Type, c.Value, c.MinOrderAmount, c.MaxDiscount, c.StartDate, c.EndDate, c.ExpiresAt,
		c.IsActive, c.IsLocked, c.MaxUses, c.Description, c.UpdatedAt, c.Code,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	if !applied {
		return credits.NotFoundError("Coupon không tồn tại")
	}
	return nil
}

func (s *CouponStore) DeleteCoupon(ctx context.Context, code string) error {
	return s.session.Query(qDeleteCoupon, code).WithContext(ctx).Exec()
}

// IncrementUsage : lecture puis compare-and-set sur times_used
func (s *CouponStore) IncrementUsage(ctx context.Context, code string) error {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		var used *int
		if err := s.session.Query(qSelectCouponUse, code).WithContext(ctx).Scan(&used); err != nil {
			return wrapNotFound(err, "Coupon không tồn tại")
		}
		next := 1
		if used != nil {
			next = *used + 1
		}
		applied, err := s.session.Query(qIncrementCoupon, next, time.Now(), code, used).
			WithContext(ctx).MapScanCAS(map[string]interface{}{})
		if err != nil {
			return fmt.Errorf("increment coupon usage: %w", err)
		}
		if applied {
			return nil
		}
	}
	return credits.ConflictError("times_used: trop de tentatives concurrentes")
}
