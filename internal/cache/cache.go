package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/credits"
	"housesale_back_end/internal/models"
)

const PackageCacheTTL = 10 * time.Minute

const (
	packagesActiveKey = "credit_packages:active"
	packagesAllKey    = "credit_packages:all"
	packageKeyPrefix  = "credit_package:"
)

// PackageCache met en cache Redis le catalogue des packages.
// Redis indisponible n'est jamais bloquant : on lit alors la base.
type PackageCache struct {
	next credits.PackageRepository
	rdb  *redis.Client
	ttl  time.Duration
}

func NewPackageCache(next credits.PackageRepository, rdb *redis.Client) *PackageCache {
	return &PackageCache{next: next, rdb: rdb, ttl: PackageCacheTTL}
}

func (c *PackageCache) ListPackages(ctx context.Context, includeInactive bool) ([]models.CreditPackage, error) {
	key := packagesActiveKey
	if includeInactive {
		key = packagesAllKey
	}

	// 1. Essayer le cache Redis
	var pkgs []models.CreditPackage
	if c.get(ctx, key, &pkgs) {
		return pkgs, nil
	}

	// 2. Récupérer de ScyllaDB
	pkgs, err := c.next.ListPackages(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	// 3. Mettre en cache
	c.set(ctx, key, pkgs)
	return pkgs, nil
}

func (c *PackageCache) GetPackage(ctx context.Context, key string) (*models.CreditPackage, error) {
	var pkg models.CreditPackage
	if c.get(ctx, packageKeyPrefix+key, &pkg) {
		return &pkg, nil
	}
	p, err := c.next.GetPackage(ctx, key)
	if err != nil {
		return nil, err
	}
	c.set(ctx, packageKeyPrefix+key, p)
	return p, nil
}

func (c *PackageCache) SavePackage(ctx context.Context, pkg *models.CreditPackage) error {
	if err := c.next.SavePackage(ctx, pkg); err != nil {
		return err
	}
	c.invalidate(ctx, pkg.Key)
	return nil
}

func (c *PackageCache) DeletePackage(ctx context.Context, key string) error {
	if err := c.next.DeletePackage(ctx, key); err != nil {
		return err
	}
	c.invalidate(ctx, key)
	return nil
}

func (c *PackageCache) get(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).Debugf("Cache Redis indisponible pour %s", key)
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *PackageCache) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.WithError(err).Debugf("Écriture cache %s ignorée", key)
	}
}

// invalidate supprime le package et les deux listes
func (c *PackageCache) invalidate(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, packagesActiveKey, packagesAllKey, packageKeyPrefix+key).Err(); err != nil {
		log.WithError(err).Warnf("⚠️ Invalidation du cache package %s échouée", key)
	}
}
