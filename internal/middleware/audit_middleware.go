package middleware

import (
	"github.com/gin-gonic/gin"

	"housesale_back_end/internal/utils"
)

// Clés posées par les handlers admin pour enrichir l'audit
const (
	AuditResourceIDKey = "audit_resource_id"
	AuditNewValueKey   = "audit_new_value"
	AuditErrorKey      = "audit_error"
)

// AuditCriticalActions audite une route admin après traitement
func AuditCriticalActions(auditor *utils.Auditor, action, resource, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		resourceID := c.Param(param)
		if resourceID == "" {
			resourceID = c.GetString(AuditResourceIDKey)
		}
		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			newValue, _ := c.Get(AuditNewValueKey)
			auditor.LogAction(c, action, resource, resourceID, nil, newValue)
		} else {
			auditor.LogFailedAction(c, action, resource, resourceID, c.GetString(AuditErrorKey))
		}
	}
}
