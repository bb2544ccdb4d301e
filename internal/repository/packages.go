package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gocql/gocql"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/models"
)

// wrapNotFound traduit gocql.ErrNotFound en erreur métier
func wrapNotFound(err error, msg string) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return credits.NotFoundError(msg)
	}
	return err
}

// PackageStore est le catalogue des packages sur ScyllaDB
type PackageStore struct {
	session *gocql.Session
}

func NewPackageStore(session *gocql.Session) *PackageStore {
	return &PackageStore{session: session}
}

func packageDest(p *models.CreditPackage) []interface{} {
	return []interface{}{&p.Key, &p.Label, &p.Description, &p.VipCredits, &p.PremiumCredits, &p.Price,
		&p.ProductType, &p.IsActive, &p.SortOrder, &p.Tags, &p.CreatedAt, &p.UpdatedAt}
}

func (s *PackageStore) ListPackages(ctx context.Context, includeInactive bool) ([]models.CreditPackage, error) {
	iter := s.session.Query(qSelectPackages).WithContext(ctx).Iter()
	var pkgs []models.CreditPackage
	var p models.CreditPackage
	for iter.Scan(packageDest(&p)...) {
		if includeInactive || p.IsActive {
			pkgs = append(pkgs, p)
		}
		p = models.CreditPackage{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].SortOrder != pkgs[j].SortOrder {
			return pkgs[i].SortOrder < pkgs[j].SortOrder
		}
		return pkgs[i].Key < pkgs[j].Key
	})
	return pkgs, nil
}

func (s *PackageStore) GetPackage(ctx context.Context, key string) (*models.CreditPackage, error) {
	var p models.CreditPackage
	if err := s.session.Query(qSelectPackage, key).WithContext(ctx).Scan(packageDest(&p)...); err != nil {
		return nil, wrapNotFound(err, "Gói tin không hợp lệ")
	}
	return &p, nil
}

func (s *PackageStore) SavePackage(ctx context.Context, p *models.CreditPackage) error {
	return s.session.Query(qUpsertPackage,
		p.Key, p.Label, p.Description, p.VipCredits, p.PremiumCredits, p.Price,
		p.ProductType, p.IsActive, p.SortOrder, p.Tags, p.CreatedAt, p.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (s *PackageStore) DeletePackage(ctx context.Context, key string) error {
	return s.session.Query(qDeletePackage, key).WithContext(ctx).Exec()
}
