package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"housesale_back_end/internal/middleware"
	"housesale_back_end/internal/models"
)

// ListPackages retourne les packages vendables (public)
func (h *Handler) ListPackages(c *gin.Context) {
	pkgs, err := h.svc.ListPackages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if pkgs == nil {
		pkgs = []models.CreditPackage{}
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

func (h *Handler) AdminListPackages(c *gin.Context) {
	pkgs, err := h.svc.AdminListPackages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if pkgs == nil {
		pkgs = []models.CreditPackage{}
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs, "total": len(pkgs)})
}

// SavePackage crée ou remplace un package (PUT /admin/packages/:key)
func (h *Handler) SavePackage(c *gin.Context) {
	var pkg models.CreditPackage
	if err := c.ShouldBindJSON(&pkg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}
	pkg.Key = c.Param("key")

	if err := h.svc.SavePackage(c.Request.Context(), &pkg); err != nil {
		respondError(c, err)
		return
	}
	c.Set(middleware.AuditNewValueKey, pkg)
	c.JSON(http.StatusOK, gin.H{"package": pkg})
}

func (h *Handler) DeletePackage(c *gin.Context) {
	if err := h.svc.DeletePackage(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã xoá gói tin"})
}
