package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"housesale_back_end/internal/middleware"
	"housesale_back_end/internal/models"
)

// ValidateCoupon prévisualise une remise au checkout. Ne consomme pas d'utilisation.
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req struct {
		Code   string `json:"code"`
		Amount int64  `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ"})
		return
	}

	res, err := h.svc.ValidateCoupon(c.Request.Context(), req.Code, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":          true,
		"coupon":         res.Coupon,
		"discountAmount": res.DiscountAmount,
		"finalAmount":    res.FinalAmount,
	})
}

func (h *Handler) ListCoupons(c *gin.Context) {
	coupons, err := h.svc.ListCoupons(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if coupons == nil {
		coupons = []models.Coupon{}
	}
	c.JSON(http.StatusOK, gin.H{"coupons": coupons, "total": len(coupons)})
}

func (h *Handler) GetCoupon(c *gin.Context) {
	coupon, err := h.svc.GetCoupon(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

// CreateCoupon - Créer un nouveau coupon (Admin seulement)
func (h *Handler) CreateCoupon(c *gin.Context) {
	var coupon models.Coupon
	if err := c.ShouldBindJSON(&coupon); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}
	coupon.CreatedBy = c.GetString("user_id")

	if err := h.svc.CreateCoupon(c.Request.Context(), &coupon); err != nil {
		respondError(c, err)
		return
	}
	c.Set(middleware.AuditResourceIDKey, coupon.Code)
	c.Set(middleware.AuditNewValueKey, coupon)
	c.JSON(http.StatusCreated, gin.H{"coupon": coupon})
}

func (h *Handler) UpdateCoupon(c *gin.Context) {
	var coupon models.Coupon
	if err := c.ShouldBindJSON(&coupon); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	if err := h.svc.UpdateCoupon(c.Request.Context(), c.Param("code"), &coupon); err != nil {
		respondError(c, err)
		return
	}
	c.Set(middleware.AuditNewValueKey, coupon)
	c.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

func (h *Handler) DeleteCoupon(c *gin.Context) {
	if err := h.svc.DeleteCoupon(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã xoá mã giảm giá"})
}
