package models

import "time"

// Asset represents an ad platform entity (campaign, ad set or ad) with a controllable budget
type Asset struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ProductID  string    `json:"product_id"`
	Platform   string    `json:"platform"`    // "facebook", "google", "tiktok"
	ExternalID string    `json:"external_id"` // id on the ad platform
	AssetType  string    `json:"asset_type"`  // "campaign", "adset", "ad"
	Name       string    `json:"name"`
	Budget     float64   `json:"budget"` // last known budget, used by the dry-run provider
	BudgetType string    `json:"budget_type"`
	IsActive   bool      `json:"is_active"`
	Status     int       `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AssetStatusEnabled is the status value of an asset the engine may act on
const AssetStatusEnabled = 1

// IsRunnable reports whether rules may be evaluated against the asset
func (a *Asset) IsRunnable() bool {
	return a.IsActive && a.Status == AssetStatusEnabled
}

// Credential is a stored ad platform credential for one user
type Credential struct {
	Platform    string            `json:"platform"`
	UserID      string            `json:"user_id"`
	AccessToken string            `json:"-"`
	AccountID   string            `json:"account_id"`
	Extra       map[string]string `json:"extra,omitempty"`
}
