package services

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ExpenseInput is a new expense entry
type ExpenseInput struct {
	ExpenseTypeID uint
	Description   string
	Amount        decimal.Decimal
	Date          time.Time
	Supplier      string
	Reference     string
	Notes         string
	ActorID       *uint
}

// ExpenseFilter narrows ListExpenses
type ExpenseFilter struct {
	ExpenseTypeID *uint
	From          *time.Time
	To            *time.Time
	Search        string
	Limit         int
}

// ExpenseTypeTotal is the spend of one category over a period
type ExpenseTypeTotal struct {
	ExpenseTypeID uint            `json:"expense_type_id"`
	Name          string          `json:"name"`
	Color         string          `json:"color"`
	Count         int64           `json:"count"`
	Total         decimal.Decimal `json:"total"`
}

// ExpenseService handles the expense ledger
type ExpenseService struct {
	BaseService
}

// NewExpenseService creates a new expense service
func NewExpenseService(db *gorm.DB) *ExpenseService {
	return &ExpenseService{BaseService: NewBaseService(db)}
}

// getOrCreateType resolves a category by name inside tx
func getOrCreateType(tx *gorm.DB, name, description, color string) (*models.ExpenseType, error) {
	var et models.ExpenseType
	err := tx.Where("name = ?", name).First(&et).Error
	if err == nil {
		return &et, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load expense type %s: %w", name, err)
	}

	if color == "" {
		color = models.DefaultExpenseTypeColor
	}
	et = models.ExpenseType{Name: name, Description: description, Color: color, Active: true}
	if err := tx.Create(&et).Error; err != nil {
		return nil, translateDBError(err, "expense type")
	}
	return &et, nil
}

// GetOrCreateType returns the named category, creating it with the given defaults
func (s *ExpenseService) GetOrCreateType(name, description, color string) (*models.ExpenseType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf(ErrInvalidInput, "expense type name is required")
	}
	return getOrCreateType(s.db, name, description, color)
}

// CreateType adds a new category; names are unique
func (s *ExpenseService) CreateType(et *models.ExpenseType) error {
	et.Name = strings.TrimSpace(et.Name)
	if et.Name == "" {
		return validationf(ErrInvalidInput, "expense type name is required")
	}
	if et.Color == "" {
		et.Color = models.DefaultExpenseTypeColor
	}
	if !hexColor.MatchString(et.Color) {
		return validationf(ErrInvalidInput, "color must be a hex value like #007bff")
	}
	et.Active = true
	if err := s.db.Create(et).Error; err != nil {
		return translateDBError(err, "expense type "+et.Name)
	}
	return nil
}

// SetTypeActive enables or disables a category without touching its history
func (s *ExpenseService) SetTypeActive(id uint, active bool) error {
	res := s.db.Model(&models.ExpenseType{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update expense type: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("expense type %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListTypes returns categories ordered by name
func (s *ExpenseService) ListTypes(activeOnly bool) ([]models.ExpenseType, error) {
	query := s.db.Order("name")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var types []models.ExpenseType
	if err := query.Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list expense types: %w", err)
	}
	return types, nil
}

// CreateExpense records money spent outside the replenishment workflow
func (s *ExpenseService) CreateExpense(in ExpenseInput) (*models.Expense, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, validationf(ErrInvalidAmount, "amount must be at least 0.01")
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return nil, validationf(ErrInvalidInput, "description is required")
	}

	date := in.Date
	if date.IsZero() {
		date = s.today()
	}

	expense := models.Expense{
		ExpenseTypeID: in.ExpenseTypeID,
		Description:   in.Description,
		Amount:        amount,
		Date:          businessDate(date),
		Supplier:      in.Supplier,
		Reference:     in.Reference,
		Notes:         in.Notes,
		CreatedByID:   in.ActorID,
	}

	err := s.WithTransaction(func(tx *gorm.DB) error {
		var et models.ExpenseType
		if err := tx.First(&et, in.ExpenseTypeID).Error; err != nil {
			return translateDBError(err, "expense type")
		}
		if err := tx.Create(&expense).Error; err != nil {
			return translateDBError(err, "expense")
		}
		expense.ExpenseType = &et
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Expense recorded: %s %s (%s)", expense.Amount.StringFixed(2), expense.Description, expense.ExpenseType.Name)
	s.notify(EventExpenseRecorded, &expense)
	return &expense, nil
}

// ListExpenses returns expenses newest first
func (s *ExpenseService) ListExpenses(filter ExpenseFilter) ([]models.Expense, error) {
	query := s.db.Preload("ExpenseType").Preload("CreatedBy")
	if filter.ExpenseTypeID != nil {
		query = query.Where("expense_type_id = ?", *filter.ExpenseTypeID)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", businessDate(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("date <= ?", businessDate(*filter.To))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(description) LIKE ? OR LOWER(supplier) LIKE ? OR LOWER(reference) LIKE ?", like, like, like)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var expenses []models.Expense
	if err := query.Order("date DESC, created_at DESC, id DESC").Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// TotalBetween sums expenses dated in [from, to]
func (s *ExpenseService) TotalBetween(from, to time.Time) (decimal.Decimal, error) {
	return sumColumn(s.db.Model(&models.Expense{}).
		Where("date >= ? AND date <= ?", businessDate(from), businessDate(to)), "amount")
}

// TotalsByType returns the biggest categories over [from, to]; limit <= 0 returns all
func (s *ExpenseService) TotalsByType(from, to time.Time, limit int) ([]ExpenseTypeTotal, error) {
	query := s.db.Table("expenses").
		Select("expense_types.id AS expense_type_id, expense_types.name AS name, expense_types.color AS color, COUNT(expenses.id) AS count, COALESCE(SUM(expenses.amount), 0) AS total").
		Joins("JOIN expense_types ON expense_types.id = expenses.expense_type_id").
		Where("expenses.date >= ? AND expenses.date <= ?", businessDate(from), businessDate(to)).
		Group("expense_types.id, expense_types.name, expense_types.color").
		Order("total DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var totals []ExpenseTypeTotal
	if err := query.Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}
	for i := range totals {
		totals[i].Total = totals[i].Total.Round(2)
	}
	return totals, nil
}

// sumColumn runs COALESCE(SUM(column), 0) on query. SQLite may hand back a float.
func sumColumn(query *gorm.DB, column string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := query.Select(fmt.Sprintf("COALESCE(SUM(%s), 0)", column)).Row().Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s: %w", column, err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}
