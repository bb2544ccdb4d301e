package models

import (
	"time"

	"github.com/gocql/gocql"
)

// AuditLog représente un log d'audit pour tracer les actions admin
type AuditLog struct {
	ID         gocql.UUID `json:"id"`
	UserID     string     `json:"user_id"`
	UserEmail  string     `json:"user_email"`
	Action     string     `json:"action"`
	Resource   string     `json:"resource"`
	ResourceID string     `json:"resource_id,omitempty"`
	OldValue   string     `json:"old_value,omitempty"`
	NewValue   string     `json:"new_value,omitempty"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	Success    bool       `json:"success"`
	ErrorMsg   string     `json:"error_msg,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	SessionID  string     `json:"session_id,omitempty"`
}
