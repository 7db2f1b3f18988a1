package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementInput describes one ledger row. Quantity, StockBefore and StockAfter
// are filled by applyStockDelta for the usual paths.
type MovementInput struct {
	ProductID   uint
	Type        models.MovementType
	Quantity    int
	StockBefore int
	StockAfter  int
	UnitCost    *decimal.Decimal
	OrderID     *uint
	ExpenseID   *uint
	ActorID     *uint
	Description string
	MovedAt     time.Time
}

// appendMovement is the single insert path of the stock ledger. Rows are never updated.
func appendMovement(tx *gorm.DB, in MovementInput) (*models.StockMovement, error) {
	if !in.Type.Valid() {
		return nil, validationf(ErrInvalidInput, "unknown movement type %q", in.Type)
	}
	if in.Quantity == 0 {
		return nil, validationf(ErrInvalidQuantity, "a stock movement cannot be empty")
	}
	if in.StockAfter-in.StockBefore != in.Quantity {
		return nil, fmt.Errorf("inconsistent movement: %d -> %d for quantity %d", in.StockBefore, in.StockAfter, in.Quantity)
	}
	if in.Type.IsInbound() != (in.Quantity > 0) {
		return nil, fmt.Errorf("movement %s cannot carry quantity %d", in.Type, in.Quantity)
	}

	movedAt := in.MovedAt
	if movedAt.IsZero() {
		movedAt = time.Now()
	}

	movement := models.StockMovement{
		ProductID:   in.ProductID,
		Type:        in.Type,
		Quantity:    in.Quantity,
		StockBefore: in.StockBefore,
		StockAfter:  in.StockAfter,
		OrderID:     in.OrderID,
		ExpenseID:   in.ExpenseID,
		Description: in.Description,
		MovedAt:     movedAt.UTC(),
		CreatedByID: in.ActorID,
	}
	if in.UnitCost != nil {
		movement.UnitCost = decimal.NewNullDecimal(*in.UnitCost)
	}
	movement.ComputeTotalCost()

	if err := tx.Create(&movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}
	return &movement, nil
}

// applyStockDelta moves product.Qty by delta and appends the matching ledger row
// inside tx. It refuses to take the quantity below zero.
func applyStockDelta(tx *gorm.DB, product *models.Product, delta int, in MovementInput) (*models.StockMovement, error) {
	before := product.Qty
	after := before + delta
	if after < 0 {
		return nil, outOfStock(product, -delta)
	}

	if err := tx.Model(product).Update("qty", after).Error; err != nil {
		return nil, fmt.Errorf("failed to update stock of product %d: %w", product.ID, err)
	}
	product.Qty = after

	in.ProductID = product.ID
	in.Quantity = delta
	in.StockBefore = before
	in.StockAfter = after
	return appendMovement(tx, in)
}

func outOfStock(product *models.Product, requested int) error {
	return validationf(ErrOutOfStock, "insufficient stock for %q: %d available, %d requested", product.Title, product.Qty, requested)
}

// AdjustAction is a manual quick-stock action
type AdjustAction string

const (
	AdjustAdd    AdjustAction = "add"
	AdjustRemove AdjustAction = "remove"
	AdjustSet    AdjustAction = "set"
)

// AdjustInput is a manual stock correction
type AdjustInput struct {
	ProductID uint
	Action    AdjustAction
	Qty       int
	UnitCost  *decimal.Decimal // add only: routes through a replenishment
	Reason    string
	Supplier  string
	Reference string
	ActorID   *uint
}

// AdjustResult is the outcome of AdjustStock. Movement is nil for a no-op set.
type AdjustResult struct {
	Product       *models.Product       `json:"product"`
	Movement      *models.StockMovement `json:"movement,omitempty"`
	Replenishment *ReplenishmentResult  `json:"replenishment,omitempty"`
}

// MovementFilter narrows ListMovements
type MovementFilter struct {
	ProductID *uint
	Type      models.MovementType
	From      *time.Time
	To        *time.Time
	Limit     int
}

// StockService owns manual adjustments, losses and ledger queries
type StockService struct {
	BaseService
	replenishments *ReplenishmentService
}

// NewStockService creates a new stock service
func NewStockService(db *gorm.DB, replenishments *ReplenishmentService) *StockService {
	return &StockService{
		BaseService:    NewBaseService(db),
		replenishments: replenishments,
	}
}

// AdjustStock applies a quick add/remove/set. An add with a unit cost is a
// purchase and goes through the replenishment workflow so an expense is recorded.
func (s *StockService) AdjustStock(in AdjustInput) (*AdjustResult, error) {
	switch in.Action {
	case AdjustAdd, AdjustRemove:
		if in.Qty <= 0 {
			return nil, validationf(ErrInvalidQuantity, "quantity must be positive")
		}
	case AdjustSet:
		if in.Qty < 0 {
			return nil, validationf(ErrInvalidQuantity, "quantity cannot be negative")
		}
	default:
		return nil, validationf(ErrInvalidAction, "unknown stock action %q", in.Action)
	}

	if in.Action == AdjustAdd && in.UnitCost != nil {
		if s.replenishments == nil {
			return nil, fmt.Errorf("replenishment workflow not configured")
		}
		res, err := s.replenishments.CreateReplenishment(ReplenishmentInput{
			ProductID:   in.ProductID,
			Qty:         in.Qty,
			UnitCost:    *in.UnitCost,
			Description: in.Reason,
			Supplier:    in.Supplier,
			Reference:   in.Reference,
			ActorID:     in.ActorID,
		})
		if err != nil {
			return nil, err
		}
		return &AdjustResult{Product: res.Product, Movement: res.Movement, Replenishment: res}, nil
	}

	result := &AdjustResult{}
	err := s.WithTransaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, in.ProductID).Error; err != nil {
			return translateDBError(err, "product")
		}

		var delta int
		switch in.Action {
		case AdjustAdd:
			delta = in.Qty
		case AdjustRemove:
			if product.Qty < in.Qty {
				return outOfStock(&product, in.Qty)
			}
			delta = -in.Qty
		case AdjustSet:
			delta = in.Qty - product.Qty
		}

		result.Product = &product
		if delta == 0 {
			return nil
		}

		movementType := models.MovementAdjustUp
		if delta < 0 {
			movementType = models.MovementAdjustDown
		}
		description := in.Reason
		if description == "" {
			description = adjustDescription(in.Action, in.Qty)
		}

		movement, err := applyStockDelta(tx, &product, delta, MovementInput{
			Type:        movementType,
			ActorID:     in.ActorID,
			Description: description,
			MovedAt:     s.clock(),
		})
		if err != nil {
			return err
		}
		result.Movement = movement
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Stock %s on product %d: now %d", in.Action, result.Product.ID, result.Product.Qty)
	s.notify(EventStockChanged, result.Product)
	return result, nil
}

func adjustDescription(action AdjustAction, qty int) string {
	switch action {
	case AdjustAdd:
		return fmt.Sprintf("Ajout manuel de %d unités", qty)
	case AdjustRemove:
		return fmt.Sprintf("Retrait manuel de %d unités", qty)
	case AdjustSet:
		return fmt.Sprintf("Stock défini à %d unités", qty)
	}
	return ""
}

// RecordLoss writes off broken, expired or stolen units
func (s *StockService) RecordLoss(productID uint, qty int, reason string, actorID *uint) (*models.StockMovement, error) {
	if qty <= 0 {
		return nil, validationf(ErrInvalidQuantity, "quantity must be positive")
	}

	var movement *models.StockMovement
	var product models.Product
	err := s.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, productID).Error; err != nil {
			return translateDBError(err, "product")
		}

		var unitCost *decimal.Decimal
		if product.PurchasePrice.IsPositive() {
			cost := product.PurchasePrice
			unitCost = &cost
		}
		if reason == "" {
			reason = fmt.Sprintf("Perte de %d unités", qty)
		}

		var err error
		movement, err = applyStockDelta(tx, &product, -qty, MovementInput{
			Type:        models.MovementLoss,
			UnitCost:    unitCost,
			ActorID:     actorID,
			Description: reason,
			MovedAt:     s.clock(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(EventStockChanged, &product)
	return movement, nil
}

// ListMovements returns ledger rows, newest first
func (s *StockService) ListMovements(filter MovementFilter) ([]models.StockMovement, error) {
	query := s.db.Preload("Product").Preload("Expense").Preload("CreatedBy")
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		if !filter.Type.Valid() {
			return nil, validationf(ErrInvalidInput, "unknown movement type %q", filter.Type)
		}
		query = query.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		query = query.Where("moved_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("moved_at < ?", filter.To.UTC())
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var movements []models.StockMovement
	if err := query.Order("moved_at DESC, id DESC").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}

// LedgerConsistent reports whether the newest ledger row of a product matches its quantity.
// A product without any movement is consistent.
func (s *StockService) LedgerConsistent(productID uint) (bool, error) {
	var product models.Product
	if err := s.db.First(&product, productID).Error; err != nil {
		return false, translateDBError(err, "product")
	}

	var last models.StockMovement
	err := s.db.Where("product_id = ?", productID).Order("id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load last movement: %w", err)
	}
	return last.StockAfter == product.Qty, nil
}

// MovementTotals sums quantities and costs per movement type over a period
type MovementTotals struct {
	Type      models.MovementType `json:"type"`
	Label     string              `json:"label"`
	Count     int64               `json:"count"`
	Quantity  int64               `json:"quantity"`
	TotalCost decimal.Decimal     `json:"total_cost"`
}

// TotalsByType aggregates the ledger between from and to
func (s *StockService) TotalsByType(from, to time.Time) ([]MovementTotals, error) {
	var movements []models.StockMovement
	if err := s.db.Where("moved_at >= ? AND moved_at < ?", from.UTC(), to.UTC()).Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to load movements: %w", err)
	}

	byType := make(map[models.MovementType]*MovementTotals)
	for _, t := range models.MovementTypes {
		byType[t] = &MovementTotals{Type: t, Label: t.Label(), TotalCost: decimal.Zero}
	}
	for _, m := range movements {
		totals, ok := byType[m.Type]
		if !ok {
			continue
		}
		totals.Count++
		totals.Quantity += int64(m.AbsQuantity())
		if m.TotalCost.Valid {
			totals.TotalCost = totals.TotalCost.Add(m.TotalCost.Decimal)
		}
	}

	result := make([]MovementTotals, 0, len(models.MovementTypes))
	for _, t := range models.MovementTypes {
		result = append(result, *byType[t])
	}
	return result, nil
}
