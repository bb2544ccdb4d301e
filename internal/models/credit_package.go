package models

import "time"

// CreditPackage est un lot de crédits vendable (tin VIP / Premium)
type CreditPackage struct {
	Key            string    `json:"key"`
	Label          string    `json:"label"`
	Description    string    `json:"description,omitempty"`
	VipCredits     int       `json:"vipCredits"`
	PremiumCredits int       `json:"premiumCredits"`
	Price          int64     `json:"price"`       // VND, prix d'une unité
	ProductType    string    `json:"productType"` // "single", "combo"
	IsActive       bool      `json:"isActive"`
	SortOrder      int       `json:"sortOrder"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Sellable indique si le package peut être commandé
func (p CreditPackage) Sellable() bool {
	return p.IsActive && p.Price >= 0 && (p.VipCredits > 0 || p.PremiumCredits > 0)
}
