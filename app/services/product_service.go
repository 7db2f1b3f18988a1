package services

import (
	"fmt"
	"strings"

	"ShopPOS/app/config"
	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductService handles product and category operations
type ProductService struct {
	BaseService
	settings config.ShopSettings
}

// NewProductService creates a new product service
func NewProductService(db *gorm.DB, settings config.ShopSettings) *ProductService {
	return &ProductService{
		BaseService: NewBaseService(db),
		settings:    settings,
	}
}

func validateProduct(product *models.Product) error {
	product.Title = strings.TrimSpace(product.Title)
	if product.Title == "" {
		return validationf(ErrInvalidInput, "product title is required")
	}
	if product.Value.IsNegative() || product.DiscountValue.IsNegative() || product.PurchasePrice.IsNegative() {
		return validationf(ErrInvalidAmount, "prices cannot be negative")
	}
	if product.Qty < 0 {
		return validationf(ErrInvalidQuantity, "quantity cannot be negative")
	}
	product.Value = product.Value.Round(2)
	product.DiscountValue = product.DiscountValue.Round(2)
	product.PurchasePrice = product.PurchasePrice.Round(2)
	product.ApplyPricing()
	return nil
}

// GetAllProducts gets all active products
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	var products []models.Product

	err := s.db.Preload("Category").
		Where("active = ?", true).
		Order("title").
		Find(&products).Error

	return products, err
}

// GetProductsByCategory gets active products of a category
func (s *ProductService) GetProductsByCategory(categoryID uint) ([]models.Product, error) {
	var products []models.Product

	err := s.db.Where("category_id = ? AND active = ?", categoryID, true).
		Order("title").
		Find(&products).Error

	return products, err
}

// GetProduct gets a single product by ID
func (s *ProductService) GetProduct(id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.Preload("Category").First(&product, id).Error; err != nil {
		return nil, translateDBError(err, fmt.Sprintf("product %d", id))
	}
	return &product, nil
}

// CreateProduct creates a new product. Opening stock is booked as an adjustment
// so the ledger starts from the product's first quantity.
func (s *ProductService) CreateProduct(product *models.Product, actorID *uint) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	opening := product.Qty
	product.Qty = 0
	product.Active = true

	err := s.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return translateDBError(err, "product "+product.Title)
		}
		if opening == 0 {
			return nil
		}
		_, err := applyStockDelta(tx, product, opening, MovementInput{
			Type:        models.MovementAdjustUp,
			ActorID:     actorID,
			Description: "Stock initial",
			MovedAt:     s.clock(),
		})
		return err
	})
	if err != nil {
		product.Qty = opening
		return err
	}

	s.notify(EventStockChanged, product)
	return nil
}

// UpdateProduct updates a product. A quantity change is booked as a manual adjustment.
func (s *ProductService) UpdateProduct(product *models.Product, actorID *uint) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	err := s.WithTransaction(func(tx *gorm.DB) error {
		var current models.Product
		if err := tx.First(&current, product.ID).Error; err != nil {
			return translateDBError(err, "product")
		}

		if err := tx.Model(&current).Updates(map[string]interface{}{
			"title":          product.Title,
			"category_id":    product.CategoryID,
			"value":          product.Value,
			"discount_value": product.DiscountValue,
			"final_value":    product.FinalValue,
			"purchase_price": product.PurchasePrice,
			"active":         product.Active,
		}).Error; err != nil {
			return translateDBError(err, "product "+product.Title)
		}

		delta := product.Qty - current.Qty
		if delta == 0 {
			return nil
		}
		movementType := models.MovementAdjustUp
		if delta < 0 {
			movementType = models.MovementAdjustDown
		}
		_, err := applyStockDelta(tx, &current, delta, MovementInput{
			Type:        movementType,
			ActorID:     actorID,
			Description: fmt.Sprintf("Stock modifié de %d à %d", current.Qty, product.Qty),
			MovedAt:     s.clock(),
		})
		return err
	})
	if err != nil {
		return err
	}

	s.notify(EventStockChanged, product)
	return nil
}

// DeleteProduct deletes a product that no order line references.
// Its ledger rows go with it.
func (s *ProductService) DeleteProduct(id uint) error {
	return s.WithTransaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, id).Error; err != nil {
			return translateDBError(err, "product")
		}

		var lines int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&lines).Error; err != nil {
			return fmt.Errorf("failed to check order items: %w", err)
		}
		if lines > 0 {
			return validationf(ErrProductInUse, "%q is used by %d order lines; deactivate it instead", product.Title, lines)
		}

		if err := tx.Where("product_id = ?", id).Delete(&models.StockMovement{}).Error; err != nil {
			return fmt.Errorf("failed to delete stock movements: %w", err)
		}
		return tx.Delete(&product).Error
	})
}

// Categories

// GetAllCategories gets all categories
func (s *ProductService) GetAllCategories() ([]models.Category, error) {
	var categories []models.Category
	err := s.db.Order("title").Find(&categories).Error
	return categories, err
}

// CreateCategory creates a new category
func (s *ProductService) CreateCategory(category *models.Category) (*models.Category, error) {
	category.Title = strings.TrimSpace(category.Title)
	if category.Title == "" {
		return nil, validationf(ErrInvalidInput, "category title is required")
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, translateDBError(err, "category "+category.Title)
	}
	return category, nil
}

// UpdateCategory renames a category
func (s *ProductService) UpdateCategory(category *models.Category) (*models.Category, error) {
	category.Title = strings.TrimSpace(category.Title)
	if category.Title == "" {
		return nil, validationf(ErrInvalidInput, "category title is required")
	}
	res := s.db.Model(&models.Category{}).Where("id = ?", category.ID).Update("title", category.Title)
	if res.Error != nil {
		return nil, translateDBError(res.Error, "category "+category.Title)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("category %d: %w", category.ID, ErrNotFound)
	}
	return category, nil
}

// DeleteCategory deletes a category; its products are left uncategorized
func (s *ProductService) DeleteCategory(id uint) error {
	return s.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach products: %w", err)
		}
		return tx.Delete(&models.Category{}, id).Error
	})
}

// Search

// SearchProducts searches active products by title or category
func (s *ProductService) SearchProducts(query string) ([]models.Product, error) {
	var products []models.Product

	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := s.db.Preload("Category").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Where("(LOWER(products.title) LIKE ? OR LOWER(categories.title) LIKE ?) AND products.active = ?", like, like, true).
		Order("products.title").
		Find(&products).Error

	return products, err
}

// GetLowStockProducts gets in-stock products under the shop's low stock threshold
func (s *ProductService) GetLowStockProducts() ([]models.Product, error) {
	var products []models.Product

	err := s.db.Preload("Category").
		Where("qty > 0 AND qty < ? AND active = ?", s.settings.LowStockThreshold, true).
		Order("qty ASC, title").
		Find(&products).Error

	return products, err
}

// GetOutOfStockProducts gets products with nothing left
func (s *ProductService) GetOutOfStockProducts() ([]models.Product, error) {
	var products []models.Product

	err := s.db.Preload("Category").
		Where("qty <= 0 AND active = ?", true).
		Order("title").
		Find(&products).Error

	return products, err
}

// InventorySummary holds aggregated inventory statistics
type InventorySummary struct {
	TotalProducts int             `json:"total_products"`
	LowStock      int             `json:"low_stock"`
	OutOfStock    int             `json:"out_of_stock"`
	UnitsInStock  int             `json:"units_in_stock"`
	StockValue    decimal.Decimal `json:"stock_value"`
}

// GetInventorySummary returns aggregated inventory statistics over active products
func (s *ProductService) GetInventorySummary() (*InventorySummary, error) {
	var products []models.Product
	if err := s.db.Where("active = ?", true).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	summary := &InventorySummary{StockValue: decimal.Zero}
	for i := range products {
		p := &products[i]
		summary.TotalProducts++
		switch {
		case p.IsOutOfStock():
			summary.OutOfStock++
		case p.IsLowStock(s.settings.LowStockThreshold):
			summary.LowStock++
		}
		if p.Qty > 0 {
			summary.UnitsInStock += p.Qty
			summary.StockValue = summary.StockValue.Add(p.StockValue())
		}
	}
	return summary, nil
}
