package models

// AssetType represents the category of an asset
type AssetType string

const (
	AssetTypeCash       AssetType = "cash"
	AssetTypeProperty   AssetType = "property"
	AssetTypeVehicle    AssetType = "vehicle"
	AssetTypeInvestment AssetType = "investment"
)

// Asset is a valuation snapshot (activo) contributing positively to net
// worth. Its lifecycle is independent from debts.
type Asset struct {
	Base
	UserID   uint      `gorm:"not null;index" json:"user_id"`
	Name     string    `gorm:"not null" json:"name"`
	Type     AssetType `gorm:"not null" json:"type"`
	Value    float64   `gorm:"not null" json:"value"`
	Currency string    `gorm:"size:3;not null;default:'COP'" json:"currency"`
	Notes    string    `json:"notes,omitempty"`
}
