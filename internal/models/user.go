package models

// User ne porte ici que ce dont le module crédits a besoin.
// VipCredits / PremiumCredits ne sont modifiés que par la réconciliation.
type User struct {
	ID             string `json:"user_id"`
	Username       string `json:"username,omitempty"`
	Email          string `json:"email"`
	Role           string `json:"role,omitempty"`
	VipCredits     int    `json:"vipCredits"`
	PremiumCredits int    `json:"premiumCredits"`
}
