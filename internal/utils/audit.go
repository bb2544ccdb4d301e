package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/models"
)

type AuditWriter interface {
	InsertAuditLog(ctx context.Context, l *models.AuditLog) error
}

// Auditor enregistre les actions admin dans audit_logs, en arrière-plan
type Auditor struct {
	store   AuditWriter
	timeout time.Duration
}

func NewAuditor(store AuditWriter) *Auditor {
	return &Auditor{store: store, timeout: 5 * time.Second}
}

// LogAction enregistre une action réussie dans les logs d'audit
func (a *Auditor) LogAction(c *gin.Context, action, resource, resourceID string, oldValue, newValue interface{}) {
	a.write(BuildAuditLog(c, action, resource, resourceID, oldValue, newValue, true, ""))
}

// LogFailedAction enregistre une action échouée dans les logs d'audit
func (a *Auditor) LogFailedAction(c *gin.Context, action, resource, resourceID, errorMsg string) {
	a.write(BuildAuditLog(c, action, resource, resourceID, nil, nil, false, errorMsg))
}

// write ne reçoit que des valeurs copiées : le gin.Context est recyclé après la requête
func (a *Auditor) write(entry models.AuditLog) {
	if a == nil || a.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.store.InsertAuditLog(ctx, &entry); err != nil {
			log.Printf("❌ Erreur enregistrement log audit: %v", err)
		}
	}()
}

// BuildAuditLog construit l'entrée à partir de la requête en cours
func BuildAuditLog(c *gin.Context, action, resource, resourceID string, oldValue, newValue interface{}, success bool, errorMsg string) models.AuditLog {
	return models.AuditLog{
		ID:         gocql.TimeUUID(),
		UserID:     c.GetString("user_id"),
		UserEmail:  c.GetString("email"),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		OldValue:   marshalValue(oldValue),
		NewValue:   marshalValue(newValue),
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
		Success:    success,
		ErrorMsg:   errorMsg,
		Timestamp:  time.Now(),
		SessionID:  c.GetHeader("X-Session-ID"),
	}
}

func marshalValue(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Actions d'audit prédéfinies
const (
	// Actions coupons
	ACTION_COUPON_CREATE = "coupon.create"
	ACTION_COUPON_UPDATE = "coupon.update"
	ACTION_COUPON_DELETE = "coupon.delete"

	// Actions packages
	ACTION_PACKAGE_SAVE   = "package.save"
	ACTION_PACKAGE_DELETE = "package.delete"

	// Actions commandes
	ACTION_ORDER_RECONCILE = "order.reconcile"
)

// Resources d'audit
const (
	RESOURCE_COUPON  = "coupon"
	RESOURCE_PACKAGE = "credit_package"
	RESOURCE_ORDER   = "credit_order"
)
