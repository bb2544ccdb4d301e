package credits

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"housesale_back_end/internal/models"
)

// NormalizeCouponCode : trim + majuscules
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// EvaluateCoupon applique les règles métier d'un coupon à un montant.
// Fonction pure : aucune écriture, timesUsed n'est pas touché.
func EvaluateCoupon(c *models.Coupon, amount int64, now time.Time) (*models.CouponValidation, error) {
	if amount < 0 {
		return nil, ValidationError("Số tiền không hợp lệ")
	}
	if !c.IsActive {
		return nil, InvalidCouponError("Mã giảm giá đã bị tắt / không còn hiệu lực")
	}
	if c.IsLocked {
		return nil, InvalidCouponError("Mã giảm giá đã bị khoá bởi quản trị viên")
	}
	if c.StartDate != nil && c.StartDate.After(now) {
		return nil, InvalidCouponError("Mã giảm giá chưa đến thời gian áp dụng")
	}
	if (c.EndDate != nil && c.EndDate.Before(now)) || (c.ExpiresAt != nil && c.ExpiresAt.Before(now)) {
		return nil, InvalidCouponError("Mã giảm giá đã hết hạn")
	}
	if c.MinOrderAmount > 0 && amount < c.MinOrderAmount {
		return nil, InvalidCouponError(fmt.Sprintf("Đơn hàng cần tối thiểu %sđ để dùng mã này", FormatVND(c.MinOrderAmount)))
	}
	if c.MaxUses != nil && c.TimesUsed >= *c.MaxUses {
		return nil, InvalidCouponError("Mã giảm giá đã dùng hết lượt cho phép")
	}

	var discount int64
	switch c.Type {
	case models.CouponTypePercent:
		discount = int64(math.Round(float64(amount) * c.Value / 100))
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case models.CouponTypeAmount:
		discount = int64(math.Round(c.Value))
	default:
		return nil, InvalidCouponError("Loại mã giảm giá không hợp lệ")
	}

	discount = max(0, min(discount, amount))

	return &models.CouponValidation{
		Coupon:         c.Summary(),
		DiscountAmount: discount,
		FinalAmount:    amount - discount,
	}, nil
}

// ValidateCoupon est l'aperçu au checkout : lookup + EvaluateCoupon
func (s *Service) ValidateCoupon(ctx context.Context, code string, amount int64) (*models.CouponValidation, error) {
	_, v, err := s.resolveCoupon(ctx, code, amount)
	return v, err
}

func (s *Service) resolveCoupon(ctx context.Context, code string, amount int64) (*models.Coupon, *models.CouponValidation, error) {
	code = NormalizeCouponCode(code)
	if code == "" {
		return nil, nil, ValidationError("Thiếu mã giảm giá")
	}
	coupon, err := s.coupons.GetCoupon(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, NotFoundError("Mã giảm giá không tồn tại")
		}
		return nil, nil, err
	}
	v, err := EvaluateCoupon(coupon, amount, s.now())
	if err != nil {
		return nil, nil, err
	}
	return coupon, v, nil
}

// FormatVND formate un montant à la vietnamienne : 100000 → "100.000"
func FormatVND(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// ---- admin ----

func (s *Service) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.ListCoupons(ctx)
}

func (s *Service) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	return s.coupons.GetCoupon(ctx, NormalizeCouponCode(code))
}

func validateCouponInput(c *models.Coupon) error {
	c.Code = NormalizeCouponCode(c.Code)
	switch {
	case c.Code == "":
		return ValidationError("Thiếu dữ liệu mã giảm giá")
	case c.Type != models.CouponTypePercent && c.Type != models.CouponTypeAmount:
		return ValidationError("Loại mã giảm giá không hợp lệ")
	case c.Value < 0:
		return ValidationError("Giá trị giảm không hợp lệ")
	case c.Type == models.CouponTypePercent && c.Value > 100:
		return ValidationError("Phần trăm giảm phải từ 0 đến 100")
	case c.MinOrderAmount < 0:
		return ValidationError("Đơn tối thiểu không hợp lệ")
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return ValidationError("Ngày kết thúc phải sau ngày bắt đầu")
	}
	// 0 = pas de plafond / pas de limite
	if c.MaxDiscount != nil && *c.MaxDiscount <= 0 {
		c.MaxDiscount = nil
	}
	if c.Type != models.CouponTypePercent {
		c.MaxDiscount = nil
	}
	if c.MaxUses != nil && *c.MaxUses <= 0 {
		c.MaxUses = nil
	}
	return nil
}

// CreateCoupon crée un coupon (admin). Conflict si le code existe déjà.
func (s *Service) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	if err := validateCouponInput(c); err != nil {
		return err
	}
	now := s.now()
	c.TimesUsed = 0
	c.CreatedAt = now
	c.UpdatedAt = now
	return s.coupons.CreateCoupon(ctx, c)
}

// UpdateCoupon remplace les champs éditables ; timesUsed et createdAt sont conservés
func (s *Service) UpdateCoupon(ctx context.Context, code string, c *models.Coupon) error {
	existing, err := s.coupons.GetCoupon(ctx, NormalizeCouponCode(code))
	if err != nil {
		return err
	}
	c.Code = existing.Code
	if err := validateCouponInput(c); err != nil {
		return err
	}
	c.TimesUsed = existing.TimesUsed
	c.CreatedAt = existing.CreatedAt
	c.CreatedBy = existing.CreatedBy
	c.UpdatedAt = s.now()
	return s.coupons.UpdateCoupon(ctx, c)
}

func (s *Service) DeleteCoupon(ctx context.Context, code string) error {
	code = NormalizeCouponCode(code)
	if _, err := s.coupons.GetCoupon(ctx, code); err != nil {
		return err
	}
	return s.coupons.DeleteCoupon(ctx, code)
}
