package models

import "time"

const (
	CouponTypePercent = "percent"
	CouponTypeAmount  = "amount"
)

type Coupon struct {
	Code           string     `json:"code"` // toujours en majuscules
	Type           string     `json:"type"` // "percent", "amount"
	Value          float64    `json:"value"`
	MinOrderAmount int64      `json:"minOrderAmount"`
	MaxDiscount    *int64     `json:"maxDiscount,omitempty"` // plafond, type percent uniquement
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	IsActive       bool       `json:"isActive"`
	IsLocked       bool       `json:"isLocked"`
	MaxUses        *int       `json:"maxUses,omitempty"`
	TimesUsed      int        `json:"timesUsed"`
	Description    string     `json:"description,omitempty"`
	CreatedBy      string     `json:"createdBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CouponSummary est la vue renvoyée au checkout
type CouponSummary struct {
	Code           string  `json:"code"`
	Type           string  `json:"type"`
	Value          float64 `json:"value"`
	MinOrderAmount int64   `json:"minOrderAmount"`
	MaxDiscount    *int64  `json:"maxDiscount,omitempty"`
}

func (c Coupon) Summary() CouponSummary {
	return CouponSummary{
		Code:           c.Code,
		Type:           c.Type,
		Value:          c.Value,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscount:    c.MaxDiscount,
	}
}

type CouponValidation struct {
	Coupon         CouponSummary `json:"coupon"`
	DiscountAmount int64         `json:"discountAmount"`
	FinalAmount    int64         `json:"finalAmount"`
}
