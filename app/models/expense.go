package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Canonical expense type used by replenishments
const (
	ReplenishmentTypeName        = "Approvisionnement"
	ReplenishmentTypeDescription = "Achat de marchandises pour le stock"
	ReplenishmentTypeColor       = "#28a745"
	DefaultExpenseTypeColor      = "#007bff"
)

// ExpenseType categorizes expenses
type ExpenseType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `gorm:"size:7;not null" json:"color"` // Hex, e.g. #007bff
	Active      bool      `gorm:"default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expense records money spent by the shop
type Expense struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ExpenseTypeID uint            `gorm:"not null;index" json:"expense_type_id"`
	ExpenseType   *ExpenseType    `gorm:"constraint:OnDelete:RESTRICT" json:"expense_type,omitempty"`
	Description   string          `gorm:"size:200;not null" json:"description"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"` // > 0
	Date          time.Time       `gorm:"type:date;not null;index" json:"date"`
	Supplier      string          `gorm:"size:150" json:"supplier"`
	Reference     string          `gorm:"size:50" json:"reference"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedByID   *uint           `json:"created_by_id,omitempty"`
	CreatedBy     *User           `gorm:"constraint:OnDelete:SET NULL" json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
