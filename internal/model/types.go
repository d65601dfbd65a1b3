package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*
memo. every row is scoped by the auth provider's user id (a uuid string).
Primary keys are uuid strings assigned in BeforeCreate so the same models work on postgres and mysql.
*/

type Profile struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type APIKey struct {
	ID              string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string    `gorm:"type:varchar(36);uniqueIndex" json:"user_id"`
	KrakenAPIKey    string    `gorm:"column:kraken_api_key" json:"-"`
	KrakenAPISecret string    `gorm:"column:kraken_api_secret" json:"-"` // AES ciphertext
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (a *APIKey) BeforeCreate(tx *gorm.DB) error {
	a.ID = newID(a.ID)
	return nil
}

type ManualAsset struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	AssetType string    `gorm:"type:varchar(16);default:manual" json:"asset_type"`
	Quantity  float64   `json:"quantity"`
	CostBasis float64   `json:"cost_basis"` // total paid
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *ManualAsset) BeforeCreate(tx *gorm.DB) error {
	m.ID = newID(m.ID)
	return nil
}

type AssetCostBasis struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);uniqueIndex:idx_cost_basis_key" json:"user_id"`
	Symbol    string    `gorm:"type:varchar(32);uniqueIndex:idx_cost_basis_key" json:"symbol"`
	AssetType string    `gorm:"type:varchar(16);uniqueIndex:idx_cost_basis_key" json:"asset_type"`
	CostBasis float64   `json:"cost_basis"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AssetCostBasis) TableName() string {
	return "asset_cost_basis"
}

func (a *AssetCostBasis) BeforeCreate(tx *gorm.DB) error {
	a.ID = newID(a.ID)
	return nil
}

// Key matches the lookup key used during valuation.
func (a AssetCostBasis) Key() string {
	return CostBasisKey(a.Symbol, a.AssetType)
}

func CostBasisKey(symbol, assetType string) string {
	return symbol + ":" + assetType
}

type Portfolio struct {
	ID          string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string           `gorm:"type:varchar(36);uniqueIndex:idx_portfolio_name" json:"user_id"`
	Name        string           `gorm:"type:varchar(128);uniqueIndex:idx_portfolio_name" json:"name"`
	Description *string          `json:"description"`
	IsDefault   bool             `gorm:"column:is_default;default:false" json:"is_default"`
	Assets      []PortfolioAsset `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (p *Portfolio) BeforeCreate(tx *gorm.DB) error {
	p.ID = newID(p.ID)
	return nil
}

type PortfolioAsset struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PortfolioID string    `gorm:"type:varchar(36);index" json:"portfolio_id"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	AssetType   string    `gorm:"type:varchar(16)" json:"asset_type"`
	Quantity    float64   `json:"quantity"`
	CostBasis   float64   `json:"cost_basis"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *PortfolioAsset) BeforeCreate(tx *gorm.DB) error {
	p.ID = newID(p.ID)
	return nil
}

// Holding maps a portfolio asset onto the manual-asset shape used for valuation.
func (p PortfolioAsset) Holding(userID string) ManualAsset {
	return ManualAsset{
		ID:        p.ID,
		UserID:    userID,
		Symbol:    p.Symbol,
		Name:      p.Name,
		AssetType: p.AssetType,
		Quantity:  p.Quantity,
		CostBasis: p.CostBasis,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type SavedAnalysis struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string         `gorm:"type:varchar(36);index" json:"user_id"`
	Symbol    string         `json:"symbol"`
	Name      string         `json:"name"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *SavedAnalysis) BeforeCreate(tx *gorm.DB) error {
	s.ID = newID(s.ID)
	return nil
}

type PortfolioReview struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string         `gorm:"type:varchar(36);index" json:"user_id"`
	Data      datatypes.JSON `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

func (r *PortfolioReview) BeforeCreate(tx *gorm.DB) error {
	r.ID = newID(r.ID)
	return nil
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
