package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products for listings and sales breakdowns
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:150;not null;uniqueIndex" json:"title"`
	Products  []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product represents a sellable item with its stock on hand
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Title         string          `gorm:"size:150;not null;uniqueIndex" json:"title"`
	CategoryID    *uint           `gorm:"index" json:"category_id,omitempty"`
	Category      *Category       `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Qty           int             `gorm:"not null;default:0" json:"qty"` // Never negative
	Value         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"value"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"discount_value"` // 0 = no promo
	FinalValue    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"final_value"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"purchase_price"` // Last known unit cost
	Active        bool            `gorm:"default:true" json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ApplyPricing derives FinalValue from the list and promo prices.
// Every write path that touches Value or DiscountValue must call it.
func (p *Product) ApplyPricing() {
	if p.DiscountValue.IsPositive() {
		p.FinalValue = p.DiscountValue
	} else {
		p.FinalValue = p.Value
	}
}

// HasDiscount reports whether a promo price is active
func (p *Product) HasDiscount() bool {
	return p.DiscountValue.IsPositive()
}

// IsOutOfStock reports whether nothing is left on hand
func (p *Product) IsOutOfStock() bool {
	return p.Qty <= 0
}

// IsLowStock reports whether the quantity is under the given threshold
func (p *Product) IsLowStock(threshold int) bool {
	return p.Qty < threshold
}

// StockValue is the purchase value of the quantity on hand
func (p *Product) StockValue() decimal.Decimal {
	return p.PurchasePrice.Mul(decimal.NewFromInt(int64(p.Qty)))
}
