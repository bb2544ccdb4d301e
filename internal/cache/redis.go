package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// releaseScript ne supprime le verrou que s'il appartient encore à l'appelant
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ReconcileLock est un verrou Redis (SET NX + TTL) par commande
type ReconcileLock struct {
	rdb *redis.Client
}

func NewReconcileLock(rdb *redis.Client) *ReconcileLock {
	return &ReconcileLock{rdb: rdb}
}

func lockKey(orderID string) string {
	return fmt.Sprintf("reconcile_lock:%s", orderID)
}

func (l *ReconcileLock) Acquire(ctx context.Context, orderID string, ttl time.Duration) (func(), bool, error) {
	key := lockKey(orderID)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// le contexte de la requête peut déjà être annulé
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(relCtx, l.rdb, []string{key}, token).Err(); err != nil {
			log.WithError(err).Warnf("⚠️ Libération du verrou %s échouée", key)
		}
	}
	return release, true, nil
}

// --- Rate Limiting ---

// RateLimiter compte les requêtes par clé sur une fenêtre fixe
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// IncrementRateLimit incrémente le compteur et retourne sa nouvelle valeur
func (r *RateLimiter) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// TTL retourne le temps restant avant la remise à zéro du compteur
func (r *RateLimiter) TTL(ctx context.Context, key string) time.Duration {
	ttl, err := r.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}
