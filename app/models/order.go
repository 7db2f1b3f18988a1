package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod represents how an installment was paid
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentMobile PaymentMethod = "mobile"
	PaymentBank   PaymentMethod = "bank"
	PaymentCredit PaymentMethod = "credit"
	PaymentOther  PaymentMethod = "other"
)

// PaymentMethods lists every accepted method in display order
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentMobile, PaymentBank, PaymentCredit, PaymentOther}

func (m PaymentMethod) String() string {
	return string(m)
}

// Valid reports whether m is one of the known methods
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentMobile, PaymentBank, PaymentCredit, PaymentOther:
		return true
	}
	return false
}

// Label returns the human readable name shown on receipts
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCash:
		return "Espèces"
	case PaymentMobile:
		return "Mobile Money"
	case PaymentBank:
		return "Virement bancaire"
	case PaymentCredit:
		return "Crédit"
	case PaymentOther:
		return "Autre"
	}
	return string(m)
}

func (m *PaymentMethod) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*m = PaymentMethod(v)
	case []byte:
		*m = PaymentMethod(v)
	case nil:
		*m = ""
	default:
		return fmt.Errorf("cannot scan %T into PaymentMethod", value)
	}
	return nil
}

func (m PaymentMethod) Value() (driver.Value, error) {
	return string(m), nil
}

// Order is a cart/invoice whose totals derive from its items and whose
// paid flag derives from its payments
type Order struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Date       time.Time       `gorm:"type:date;not null;index" json:"date"` // Business date
	Title      string          `gorm:"size:100;not null;uniqueIndex" json:"title"`
	Value      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"value"`
	Discount   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"discount"`
	FinalValue decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"final_value"`
	IsPaid     bool            `gorm:"not null;index" json:"is_paid"` // Refreshed on payment events only
	ClientID   *uint           `gorm:"index" json:"client_id,omitempty"`
	Client     *Client         `gorm:"constraint:OnDelete:SET NULL" json:"client,omitempty"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Payments   []Payment       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payments"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Recompute sets Value and FinalValue from the loaded items
func (o *Order) Recompute() {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].TotalPrice)
	}
	o.Value = total
	o.FinalValue = o.Value.Sub(o.Discount)
}

// TotalPayments sums the loaded payments
func (o *Order) TotalPayments() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// RemainingAmount is the unpaid balance, never negative
func (o *Order) RemainingAmount() decimal.Decimal {
	remaining := o.FinalValue.Sub(o.TotalPayments())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsFullyPaid is false for an order with nothing billed
func (o *Order) IsFullyPaid() bool {
	if !o.FinalValue.IsPositive() {
		return false
	}
	return !o.RemainingAmount().IsPositive()
}

// PaymentPercentage is the paid share of FinalValue, capped at 100
func (o *Order) PaymentPercentage() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if !o.FinalValue.IsPositive() {
		return hundred
	}
	pct := o.TotalPayments().Div(o.FinalValue).Mul(hundred)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct.Round(2)
}

// ItemCount is the number of units across all lines
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Qty
	}
	return count
}

// DisplayNumber formats the title for receipts
func (o *Order) DisplayNumber() string {
	return DisplayOrderNumber(o.Title)
}

// OrderNumberPrefix is the marker of generated order titles
const OrderNumberPrefix = "CMD-"

// IsAutoGeneratedNumber reports whether title has the CMD-YYYYMMDD-HHMM-NNN shape
func IsAutoGeneratedNumber(title string) bool {
	return strings.HasPrefix(title, OrderNumberPrefix) && len(strings.Split(title, "-")) == 4
}

// DisplayOrderNumber turns CMD-20241215-1430-001 into CMD-2024/12/15-14:30-001.
// Titles that were not generated are returned unchanged.
func DisplayOrderNumber(title string) string {
	if !IsAutoGeneratedNumber(title) {
		return title
	}
	parts := strings.Split(title, "-")
	date, clock := parts[1], parts[2]
	if len(date) != 8 || len(clock) != 4 {
		return title
	}
	return fmt.Sprintf("CMD-%s/%s/%s-%s:%s-%s", date[:4], date[4:6], date[6:], clock[:2], clock[2:], parts[3])
}

// OrderItem is one product line of an order
type OrderItem struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"not null;index" json:"order_id"`
	ProductID     uint            `gorm:"not null;index" json:"product_id"`
	Product       *Product        `gorm:"constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Qty           int             `gorm:"not null" json:"qty"` // >= 1
	Price         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`          // Snapshot at add time
	DiscountPrice decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"discount_price"` // Snapshot at add time
	FinalPrice    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"final_price"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ApplyPricing derives FinalPrice and TotalPrice from the snapshot and Qty
func (i *OrderItem) ApplyPricing() {
	if i.DiscountPrice.IsPositive() {
		i.FinalPrice = i.DiscountPrice
	} else {
		i.FinalPrice = i.Price
	}
	i.TotalPrice = i.FinalPrice.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Payment is one installment received for an order
type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Date      time.Time       `gorm:"type:date;not null" json:"date"`
	Method    PaymentMethod   `gorm:"size:50;not null" json:"method"`
	Note      string          `gorm:"size:200" json:"note"`
	CreatedAt time.Time       `json:"created_at"`
}
