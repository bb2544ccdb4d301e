package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/models"
)

// ledgerRow est l'état lu des colonnes de crédit d'une ligne users
type ledgerRow struct {
	Vip      *int
	Premium  *int
	Credited []string
}

// ledgerTable isole les trois requêtes du ledger
type ledgerTable interface {
	selectUser(ctx context.Context, uid gocql.UUID) (*models.User, error)
	selectLedger(ctx context.Context, uid gocql.UUID) (ledgerRow, error)
	// applyCredits n'écrit que si la ligne vaut encore cur, credited_orders compris
	applyCredits(ctx context.Context, uid gocql.UUID, cur ledgerRow, vip, premium int, orderID string) (bool, error)
}

// LedgerStore porte les compteurs vip_credits / premium_credits de la table users.
// credited_orders garde la trace des commandes déjà créditées.
type LedgerStore struct {
	table ledgerTable
}

func NewLedgerStore(session *gocql.Session) *LedgerStore {
	return &LedgerStore{table: &scyllaLedger{session: session}}
}

func userNotFound() error { return credits.NotFoundError("User not found") }

func (s *LedgerStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	uid, err := gocql.ParseUUID(userID)
	if err != nil {
		return nil, userNotFound()
	}
	return s.table.selectUser(ctx, uid)
}

// ApplyOrderCredits ajoute les crédits d'une commande, au plus une fois.
// Compare-and-set sur les compteurs et sur credited_orders : un autre crédit
// de la même commande entre la lecture et l'écriture fait toujours échouer la condition.
func (s *LedgerStore) ApplyOrderCredits(ctx context.Context, userID, orderID string, vip, premium int) (*models.User, error) {
	uid, err := gocql.ParseUUID(userID)
	if err != nil {
		return nil, userNotFound()
	}
	logger := log.WithFields(log.Fields{"user_id": userID, "order_id": orderID})

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		cur, err := s.table.selectLedger(ctx, uid)
		if err != nil {
			return nil, err
		}
		if slices.Contains(cur.Credited, orderID) {
			logger.Debug("Commande déjà créditée")
			return s.table.selectUser(ctx, uid)
		}

		applied, err := s.table.applyCredits(ctx, uid, cur, vip, premium, orderID)
		if err != nil {
			return nil, fmt.Errorf("apply credits: %w", err)
		}
		if applied {
			return s.table.selectUser(ctx, uid)
		}
		logger.Debugf("Ligne modifiée en parallèle, nouvel essai (%d)", attempt+1)
	}
	return nil, credits.ConflictError("ledger: trop de tentatives concurrentes")
}

type scyllaLedger struct {
	session *gocql.Session
}

func (l *scyllaLedger) selectUser(ctx context.Context, uid gocql.UUID) (*models.User, error) {
	var (
		u       = models.User{ID: uid.String()}
		vip     *int
		premium *int
	)
	if err := l.session.Query(qSelectUser, uid).WithContext(ctx).
		Scan(&u.Email, &u.Username, &u.Role, &vip, &premium); err != nil {
		if err == gocql.ErrNotFound {
			return nil, userNotFound()
		}
		return nil, err
	}
	u.VipCredits = deref(vip)
	u.PremiumCredits = deref(premium)
	return &u, nil
}

func (l *scyllaLedger) selectLedger(ctx context.Context, uid gocql.UUID) (ledgerRow, error) {
	var row ledgerRow
	if err := l.session.Query(qSelectLedger, uid).WithContext(ctx).Scan(&row.Vip, &row.Premium, &row.Credited); err != nil {
		if err == gocql.ErrNotFound {
			return row, userNotFound()
		}
		return row, err
	}
	return row, nil
}

func (l *scyllaLedger) applyCredits(ctx context.Context, uid gocql.UUID, cur ledgerRow, vip, premium int, orderID string) (bool, error) {
	return l.session.Query(qApplyCredits, applyCreditsArgs(uid, cur, vip, premium, orderID)...).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
}

// applyCreditsArgs lie les valeurs de qApplyCredits. Un ensemble vide est lu
// comme null par Scylla : la condition doit alors porter sur null.
func applyCreditsArgs(uid gocql.UUID, cur ledgerRow, vip, premium int, orderID string) []interface{} {
	var credited interface{}
	if len(cur.Credited) > 0 {
		credited = cur.Credited
	}
	return []interface{}{
		deref(cur.Vip) + vip, deref(cur.Premium) + premium, []string{orderID},
		uid,
		cur.Vip, cur.Premium, credited,
	}
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
