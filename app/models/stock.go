package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType classifies a stock ledger entry
type MovementType string

const (
	MovementIn         MovementType = "ENTREE"           // Replenishment
	MovementSale       MovementType = "SORTIE_VENTE"     // Sold through an order
	MovementLoss       MovementType = "SORTIE_PERTE"     // Breakage, theft, expiry
	MovementAdjustUp   MovementType = "AJUSTEMENT_PLUS"  // Manual correction or sale reversal
	MovementAdjustDown MovementType = "AJUSTEMENT_MOINS" // Manual correction
)

// MovementTypes lists every ledger entry type
var MovementTypes = []MovementType{MovementIn, MovementSale, MovementLoss, MovementAdjustUp, MovementAdjustDown}

func (t MovementType) String() string {
	return string(t)
}

// Valid reports whether t is a known movement type
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementSale, MovementLoss, MovementAdjustUp, MovementAdjustDown:
		return true
	}
	return false
}

// IsInbound reports whether entries of this type add stock
func (t MovementType) IsInbound() bool {
	switch t {
	case MovementIn, MovementAdjustUp:
		return true
	case MovementSale, MovementLoss, MovementAdjustDown:
		return false
	}
	return false
}

// Label returns the display name of the movement type
func (t MovementType) Label() string {
	switch t {
	case MovementIn:
		return "Entrée (Approvisionnement)"
	case MovementSale:
		return "Sortie (Vente)"
	case MovementLoss:
		return "Sortie (Perte/Casse)"
	case MovementAdjustUp:
		return "Ajustement +"
	case MovementAdjustDown:
		return "Ajustement -"
	}
	return string(t)
}

// BadgeColor is the UI color class for the movement type
func (t MovementType) BadgeColor() string {
	switch t {
	case MovementIn:
		return "success"
	case MovementSale:
		return "primary"
	case MovementLoss:
		return "danger"
	case MovementAdjustUp:
		return "info"
	case MovementAdjustDown:
		return "warning"
	}
	return "secondary"
}

func (t *MovementType) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*t = MovementType(v)
	case []byte:
		*t = MovementType(v)
	default:
		return fmt.Errorf("cannot scan %T into MovementType", value)
	}
	return nil
}

func (t MovementType) Value() (driver.Value, error) {
	return string(t), nil
}

// StockMovement is an append-only ledger row recording one quantity change
type StockMovement struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	ProductID   uint                `gorm:"not null;index" json:"product_id"`
	Product     *Product            `gorm:"constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Type        MovementType        `gorm:"size:20;not null;index" json:"type"`
	Quantity    int                 `gorm:"not null" json:"quantity"` // Positive in, negative out
	StockBefore int                 `gorm:"not null" json:"stock_before"`
	StockAfter  int                 `gorm:"not null" json:"stock_after"`
	UnitCost    decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"unit_cost"`
	TotalCost   decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"total_cost"`
	OrderID     *uint               `gorm:"index" json:"order_id,omitempty"`
	Order       *Order              `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	ExpenseID   *uint               `gorm:"index" json:"expense_id,omitempty"`
	Expense     *Expense            `gorm:"constraint:OnDelete:SET NULL" json:"expense,omitempty"`
	Description string              `gorm:"type:text" json:"description"`
	MovedAt     time.Time           `gorm:"not null;index" json:"moved_at"`
	CreatedByID *uint               `json:"created_by_id,omitempty"`
	CreatedBy   *User               `gorm:"constraint:OnDelete:SET NULL" json:"created_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ComputeTotalCost sets TotalCost = |Quantity| * UnitCost when a cost is known
func (m *StockMovement) ComputeTotalCost() {
	if !m.UnitCost.Valid {
		m.TotalCost = decimal.NullDecimal{}
		return
	}
	qty := decimal.NewFromInt(int64(m.Quantity)).Abs()
	m.TotalCost = decimal.NewNullDecimal(qty.Mul(m.UnitCost.Decimal))
}

// AbsQuantity is the unsigned size of the movement
func (m *StockMovement) AbsQuantity() int {
	if m.Quantity < 0 {
		return -m.Quantity
	}
	return m.Quantity
}
