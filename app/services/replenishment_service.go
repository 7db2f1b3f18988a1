package services

import (
	"fmt"
	"log"
	"time"

	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReplenishmentInput is a purchase of stock
type ReplenishmentInput struct {
	ProductID   uint
	Qty         int
	UnitCost    decimal.Decimal
	Description string // Expense description, defaults to "Approvisionnement <product>"
	Supplier    string
	Reference   string
	Date        time.Time
	ActorID     *uint
}

// ReplenishmentResult holds the three rows written by one replenishment
type ReplenishmentResult struct {
	Expense  *models.Expense       `json:"expense"`
	Movement *models.StockMovement `json:"movement"`
	Product  *models.Product       `json:"product"`
}

// ReplenishmentService books stock purchases: expense, stock increase and
// ledger entry are written together or not at all
type ReplenishmentService struct {
	BaseService
}

// NewReplenishmentService creates a new replenishment service
func NewReplenishmentService(db *gorm.DB) *ReplenishmentService {
	return &ReplenishmentService{BaseService: NewBaseService(db)}
}

// CreateReplenishment records a purchase of in.Qty units at in.UnitCost
func (s *ReplenishmentService) CreateReplenishment(in ReplenishmentInput) (*ReplenishmentResult, error) {
	if in.Qty <= 0 {
		return nil, validationf(ErrInvalidQuantity, "quantity must be positive")
	}
	unitCost := in.UnitCost.Round(2)
	if !unitCost.IsPositive() {
		return nil, validationf(ErrInvalidAmount, "unit cost must be at least 0.01")
	}

	date := in.Date
	if date.IsZero() {
		date = s.today()
	}
	result := &ReplenishmentResult{}

	err := s.WithTransaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, in.ProductID).Error; err != nil {
			return translateDBError(err, "product")
		}

		expenseType, err := getOrCreateType(tx, models.ReplenishmentTypeName,
			models.ReplenishmentTypeDescription, models.ReplenishmentTypeColor)
		if err != nil {
			return err
		}

		description := in.Description
		if description == "" {
			description = fmt.Sprintf("Approvisionnement %s", product.Title)
		}
		expense := models.Expense{
			ExpenseTypeID: expenseType.ID,
			Description:   description,
			Amount:        unitCost.Mul(decimal.NewFromInt(int64(in.Qty))),
			Date:          businessDate(date),
			Supplier:      in.Supplier,
			Reference:     in.Reference,
			CreatedByID:   in.ActorID,
		}
		if err := tx.Create(&expense).Error; err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}
		expense.ExpenseType = expenseType

		if !product.PurchasePrice.Equal(unitCost) {
			if err := tx.Model(&product).Update("purchase_price", unitCost).Error; err != nil {
				return fmt.Errorf("failed to update purchase price: %w", err)
			}
			product.PurchasePrice = unitCost
		}

		movement, err := applyStockDelta(tx, &product, in.Qty, MovementInput{
			Type:        models.MovementIn,
			UnitCost:    &unitCost,
			ExpenseID:   &expense.ID,
			ActorID:     in.ActorID,
			Description: fmt.Sprintf("Approvisionnement de %d unités", in.Qty),
			MovedAt:     s.clock(),
		})
		if err != nil {
			return err
		}

		result.Expense = &expense
		result.Movement = movement
		result.Product = &product
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Replenishment: +%d %s at %s (expense %d)", in.Qty, result.Product.Title,
		unitCost.StringFixed(2), result.Expense.ID)
	s.notify(EventStockChanged, result.Product)
	s.notify(EventExpenseRecorded, result.Expense)
	return result, nil
}

// ListReplenishments returns ENTREE ledger rows with their expense, newest first
func (s *ReplenishmentService) ListReplenishments(from, to *time.Time, limit int) ([]models.StockMovement, error) {
	query := s.db.Preload("Product").Preload("Expense").Preload("CreatedBy").
		Where("type = ?", models.MovementIn)
	if from != nil {
		query = query.Where("moved_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("moved_at < ?", to.UTC())
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var movements []models.StockMovement
	if err := query.Order("moved_at DESC, id DESC").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to list replenishments: %w", err)
	}
	return movements, nil
}
