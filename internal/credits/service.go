package credits

import (
	"math/rand"
	"time"
)

const (
	DefaultMinPayableAmount = 1000
	DefaultMaxQuantity      = 100
	DefaultLockTTL          = 15 * time.Second
	notifyTimeout           = 30 * time.Second
	maxOrderCode            = 1<<53 - 1
)

// Config regroupe les réglages du module crédits
type Config struct {
	MinPayableAmount int64
	MaxQuantity      int
	Description      string // description envoyée à la passerelle (≤ 25 caractères pour payOS)
	LockTTL          time.Duration
}

// Deps regroupe les collaborateurs du service. Lock et Notifier sont optionnels.
type Deps struct {
	Packages PackageRepository
	Coupons  CouponRepository
	Orders   OrderRepository
	Ledger   Ledger
	Gateway  Gateway
	Lock     ReconcileLock
	Notifier Notifier
}

type Service struct {
	packages PackageRepository
	coupons  CouponRepository
	orders   OrderRepository
	ledger   Ledger
	gateway  Gateway
	lock     ReconcileLock
	notifier Notifier
	cfg      Config

	now       func() time.Time
	orderCode func() int64
	dispatch  func(func())
}

func NewService(deps Deps, cfg Config) *Service {
	if cfg.MinPayableAmount <= 0 {
		cfg.MinPayableAmount = DefaultMinPayableAmount
	}
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = DefaultMaxQuantity
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.Description == "" {
		cfg.Description = "Mua goi tin"
	}
	s := &Service{
		packages: deps.Packages,
		coupons:  deps.Coupons,
		orders:   deps.Orders,
		ledger:   deps.Ledger,
		gateway:  deps.Gateway,
		lock:     deps.Lock,
		notifier: deps.Notifier,
		cfg:      cfg,
		now:      time.Now,
		dispatch: goDispatch,
	}
	s.orderCode = s.newOrderCode
	return s
}

// goDispatch lance les notifications hors de la requête (webhook, confirm)
func goDispatch(fn func()) { go fn() }

// newOrderCode produit un code numérique positif < 2^53 (contrainte payOS).
// L'unicité est garantie par l'index IF NOT EXISTS, pas par ce générateur.
func (s *Service) newOrderCode() int64 {
	code := s.now().UnixMilli()*100 + rand.Int63n(100)
	return code % maxOrderCode
}
