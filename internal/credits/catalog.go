package credits

import (
	"context"
	"strings"

	"housesale_back_end/internal/models"
)

// ListPackages retourne les packages vendables, triés par sort_order
func (s *Service) ListPackages(ctx context.Context) ([]models.CreditPackage, error) {
	pkgs, err := s.packages.ListPackages(ctx, false)
	if err != nil {
		return nil, err
	}
	sellable := make([]models.CreditPackage, 0, len(pkgs))
	for _, p := range pkgs {
		if p.Sellable() {
			sellable = append(sellable, p)
		}
	}
	return sellable, nil
}

// AdminListPackages retourne tout le catalogue, y compris les packages inactifs
func (s *Service) AdminListPackages(ctx context.Context) ([]models.CreditPackage, error) {
	return s.packages.ListPackages(ctx, true)
}

func (s *Service) getSellablePackage(ctx context.Context, key string) (*models.CreditPackage, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ValidationError("Thiếu mã gói tin")
	}
	pkg, err := s.packages.GetPackage(ctx, key)
	if err != nil {
		return nil, err
	}
	if !pkg.Sellable() {
		return nil, NotFoundError("Gói tin không hợp lệ")
	}
	return pkg, nil
}

// SavePackage crée ou met à jour un package (admin)
func (s *Service) SavePackage(ctx context.Context, pkg *models.CreditPackage) error {
	pkg.Key = strings.TrimSpace(pkg.Key)
	pkg.Label = strings.TrimSpace(pkg.Label)
	switch {
	case pkg.Key == "":
		return ValidationError("Thiếu mã gói tin")
	case pkg.Label == "":
		return ValidationError("Thiếu tên gói tin")
	case pkg.Price < 0:
		return ValidationError("Giá gói tin không hợp lệ")
	case pkg.VipCredits < 0 || pkg.PremiumCredits < 0:
		return ValidationError("Số tin không hợp lệ")
	case pkg.VipCredits == 0 && pkg.PremiumCredits == 0:
		return ValidationError("Gói tin phải có ít nhất 1 tin VIP hoặc Premium")
	}
	if pkg.ProductType == "" {
		pkg.ProductType = "single"
	}

	now := s.now()
	if existing, err := s.packages.GetPackage(ctx, pkg.Key); err == nil {
		pkg.CreatedAt = existing.CreatedAt
	} else if !isNotFound(err) {
		return err
	} else {
		pkg.CreatedAt = now
	}
	pkg.UpdatedAt = now
	return s.packages.SavePackage(ctx, pkg)
}

func (s *Service) DeletePackage(ctx context.Context, key string) error {
	if _, err := s.packages.GetPackage(ctx, key); err != nil {
		return err
	}
	return s.packages.DeletePackage(ctx, key)
}
