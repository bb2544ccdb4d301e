package payment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/middleware"
	"housesale_back_end/internal/repository"
)

// AdminOrders pagine toutes les commandes (?search=&page=&limit=)
func (h *Handler) AdminOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	res, err := h.svc.AdminListOrders(c.Request.Context(), credits.OrderQuery{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AuditLogs récupère les logs d'audit avec filtres
func (h *Handler) AuditLogs(c *gin.Context) {
	if h.opts.Audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Audit indisponible"})
		return
	}

	f := repository.AuditFilter{
		UserID:     c.Query("user_id"),
		Action:     c.Query("action"),
		Resource:   c.Query("resource"),
		ResourceID: c.Query("resource_id"),
	}
	if s := c.Query("success"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			f.Success = &b
		}
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.opts.Audit.ListAuditLogs(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// AdminReconcile relance la réconciliation d'une commande (support client)
func (h *Handler) AdminReconcile(c *gin.Context) {
	res, err := h.svc.Reconcile(c.Request.Context(), credits.OrderRef{OrderID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Set(middleware.AuditNewValueKey, gin.H{"status": res.Status, "isCreditsApplied": res.Order.IsCreditsApplied})
	c.JSON(http.StatusOK, reconcileBody(res))
}
