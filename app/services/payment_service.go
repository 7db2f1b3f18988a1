package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentInput is one installment received for an order
type PaymentInput struct {
	Amount decimal.Decimal
	Method models.PaymentMethod // Defaults to cash
	Date   time.Time            // Defaults to today
	Note   string
}

// PaymentResult is the payment with the refreshed order status
type PaymentResult struct {
	Payment   *models.Payment `json:"payment,omitempty"`
	Order     *models.Order   `json:"order"`
	IsPaid    bool            `json:"is_paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   decimal.Decimal `json:"percent"`
}

// PaymentService records installments and keeps Order.IsPaid in sync with them
type PaymentService struct {
	BaseService
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{BaseService: NewBaseService(db)}
}

// refreshPaidFlag re-derives is_paid from the stored payments
func refreshPaidFlag(tx *gorm.DB, orderID uint) (*models.Order, error) {
	order, err := loadOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	paid := order.IsFullyPaid()
	if paid != order.IsPaid {
		if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("is_paid", paid).Error; err != nil {
			return nil, fmt.Errorf("failed to update payment status: %w", err)
		}
		order.IsPaid = paid
	}
	return order, nil
}

func paymentResult(order *models.Order, payment *models.Payment) *PaymentResult {
	return &PaymentResult{
		Payment:   payment,
		Order:     order,
		IsPaid:    order.IsPaid,
		Remaining: order.RemainingAmount(),
		Percent:   order.PaymentPercentage(),
	}
}

// AddPayment records an installment. An amount above the remaining balance is
// rejected and nothing is written.
func (s *PaymentService) AddPayment(orderID uint, in PaymentInput) (*PaymentResult, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, validationf(ErrInvalidAmount, "payment amount must be at least 0.01")
	}
	method := models.PaymentMethod(strings.TrimSpace(string(in.Method)))
	if method == "" {
		method = models.PaymentCash
	}
	if !method.Valid() {
		return nil, validationf(ErrInvalidPaymentMethod, "unknown payment method %q", in.Method)
	}

	date := in.Date
	if date.IsZero() {
		date = s.today()
	}

	var result *PaymentResult
	err := s.WithTransaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}

		remaining := order.RemainingAmount()
		if amount.GreaterThan(remaining) {
			return validationf(ErrPaymentExceedsBalance, "payment of %s exceeds the remaining %s",
				amount.StringFixed(2), remaining.StringFixed(2))
		}

		payment := models.Payment{
			OrderID: orderID,
			Amount:  amount,
			Date:    businessDate(date),
			Method:  method,
			Note:    strings.TrimSpace(in.Note),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		order, err = refreshPaidFlag(tx, orderID)
		if err != nil {
			return err
		}
		result = paymentResult(order, &payment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Payment of %s (%s) on order %s, remaining %s",
		result.Payment.Amount.StringFixed(2), method, result.Order.Title, result.Remaining.StringFixed(2))
	s.notify(EventPaymentRecorded, result)
	return result, nil
}

// DeletePayment removes an installment of orderID and refreshes the paid flag
func (s *PaymentService) DeletePayment(orderID, paymentID uint) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.WithTransaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Where("id = ? AND order_id = ?", paymentID, orderID).First(&payment).Error; err != nil {
			return translateDBError(err, fmt.Sprintf("payment %d of order %d", paymentID, orderID))
		}
		if err := tx.Delete(&payment).Error; err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}

		order, err := refreshPaidFlag(tx, orderID)
		if err != nil {
			return err
		}
		result = paymentResult(order, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(EventPaymentRecorded, result)
	return result, nil
}

// ListPayments returns the installments of an order, newest first
func (s *PaymentService) ListPayments(orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := s.db.Where("order_id = ?", orderID).
		Order("date DESC, created_at DESC, id DESC").
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
