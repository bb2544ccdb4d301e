package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gocql/gocql"

	"housesale_back_end/internal/models"
)

const maxAuditLimit = 500

// AuditFilter restreint la lecture des logs d'audit. Les champs vides sont ignorés.
type AuditFilter struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Success    *bool
	Limit      int
}

// AuditStore écrit et lit la table audit_logs (keyspace users)
type AuditStore struct {
	session *gocql.Session
}

func NewAuditStore(session *gocql.Session) *AuditStore {
	return &AuditStore{session: session}
}

func (s *AuditStore) InsertAuditLog(ctx context.Context, l *models.AuditLog) error {
	return s.session.Query(qInsertAuditLog,
		l.ID, l.UserID, l.UserEmail, l.Action, l.Resource, l.ResourceID, l.OldValue, l.NewValue,
		l.IPAddress, l.UserAgent, l.Success, l.ErrorMsg, l.Timestamp, l.SessionID,
	).WithContext(ctx).Exec()
}

// buildAuditQuery construit la requête dynamiquement à partir du filtre
func buildAuditQuery(f AuditFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if f.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, f.Action)
	}
	if f.Resource != "" {
		conditions = append(conditions, "resource = ?")
		args = append(args, f.Resource)
	}
	if f.ResourceID != "" {
		conditions = append(conditions, "resource_id = ?")
		args = append(args, f.ResourceID)
	}
	if f.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *f.Success)
	}

	limit := f.Limit
	if limit <= 0 || limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	query := qSelectAuditLog
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if len(conditions) > 0 {
		query += " ALLOW FILTERING"
	}
	return query, args
}

// ListAuditLogs retourne les logs les plus récents d'abord
func (s *AuditStore) ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	query, args := buildAuditQuery(f)
	iter := s.session.Query(query, args...).WithContext(ctx).Iter()

	var logs []models.AuditLog
	var l models.AuditLog
	for iter.Scan(&l.ID, &l.UserID, &l.UserEmail, &l.Action, &l.Resource, &l.ResourceID,
		&l.OldValue, &l.NewValue, &l.IPAddress, &l.UserAgent, &l.Success, &l.ErrorMsg,
		&l.Timestamp, &l.SessionID) {
		logs = append(logs, l)
		l = models.AuditLog{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	return logs, nil
}
