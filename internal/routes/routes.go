package routes

import (
	"github.com/gin-gonic/gin"

	"housesale_back_end/internal/handlers/payment"
	"housesale_back_end/internal/middleware"
	"housesale_back_end/internal/utils"
)

type Deps struct {
	Payment   *payment.Handler
	JWTSecret string
	Limiter   middleware.Counter
	Auditor   *utils.Auditor
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := d.Payment
	auth := middleware.AuthRequired(d.JWTSecret)
	audit := func(action, resource, param string) gin.HandlerFunc {
		return middleware.AuditCriticalActions(d.Auditor, action, resource, param)
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// webhooks : authentifiés par signature, hors rate limit
	hooks := r.Group("/api/credits/webhook")
	hooks.POST("/payos", h.PayOSWebhook)
	hooks.POST("/stripe", h.StripeWebhook)

	api := r.Group("/api")
	api.Use(middleware.APIRateLimit(d.Limiter))

	// Credits
	creditsGroup := api.Group("/credits")
	{
		creditsGroup.GET("/packages", h.ListPackages)

		user := creditsGroup.Group("", auth)
		user.POST("/create-order", middleware.CreateOrderRateLimit(d.Limiter), h.CreateOrder)
		user.POST("/confirm-payos", middleware.ConfirmPaymentRateLimit(d.Limiter), h.ConfirmPayOS)
		user.GET("/history", h.History)
		user.GET("/balance", h.Balance)
		user.GET("/orders/:id", h.GetOrder)
		user.GET("/orders/:id/qr", h.OrderQR)
		user.GET("/orders/:id/ws", h.OrderWebSocket)

		admin := creditsGroup.Group("/admin", auth, middleware.RequireAdmin)
		admin.GET("/packages", h.AdminListPackages)
		admin.PUT("/packages/:key", audit(utils.ACTION_PACKAGE_SAVE, utils.RESOURCE_PACKAGE, "key"), h.SavePackage)
		admin.DELETE("/packages/:key", audit(utils.ACTION_PACKAGE_DELETE, utils.RESOURCE_PACKAGE, "key"), h.DeletePackage)
		admin.GET("/orders", h.AdminOrders)
		admin.POST("/orders/:id/reconcile", audit(utils.ACTION_ORDER_RECONCILE, utils.RESOURCE_ORDER, "id"), h.AdminReconcile)
		admin.GET("/stats", h.Stats)
		admin.GET("/audit-logs", h.AuditLogs)
	}

	// Coupons
	coupons := api.Group("/coupons", auth)
	{
		coupons.POST("/validate", middleware.ValidateCouponRateLimit(d.Limiter), h.ValidateCoupon)

		admin := coupons.Group("", middleware.RequireAdmin)
		admin.GET("", h.ListCoupons)
		admin.GET("/:code", h.GetCoupon)
		admin.POST("", audit(utils.ACTION_COUPON_CREATE, utils.RESOURCE_COUPON, ""), h.CreateCoupon)
		admin.PUT("/:code", audit(utils.ACTION_COUPON_UPDATE, utils.RESOURCE_COUPON, "code"), h.UpdateCoupon)
		admin.DELETE("/:code", audit(utils.ACTION_COUPON_DELETE, utils.RESOURCE_COUPON, "code"), h.DeleteCoupon)
	}
}
