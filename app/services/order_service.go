package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemAction is a line edit coming from the order screen
type ItemAction string

const (
	ItemAdd    ItemAction = "add"
	ItemRemove ItemAction = "remove"
	ItemDelete ItemAction = "delete"
)

// OrderInput holds the fields of a new order. A blank Title is generated.
type OrderInput struct {
	Date     time.Time
	Title    string
	Discount decimal.Decimal
	ClientID *uint
}

// OrderUpdate changes header fields; nil means unchanged
type OrderUpdate struct {
	Date        *time.Time
	Title       *string // Blank regenerates the number
	Discount    *decimal.Decimal
	ClientID    *uint
	ClearClient bool
}

// OrderFilter narrows ListOrders and OrderTotals
type OrderFilter struct {
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	IsPaid   *bool
	ClientID *uint
	Limit    int
	Offset   int
}

// AddItemResult is returned by AddItem
type AddItemResult struct {
	Item  *models.OrderItem `json:"item"`
	Order *models.Order     `json:"order"`
}

// OrderTotalsResult sums a filtered set of orders
type OrderTotalsResult struct {
	Count     int64           `json:"count"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
}

// CategorySales is the quantity and income of one category
type CategorySales struct {
	CategoryID *uint           `json:"category_id"`
	Category   string          `json:"category"`
	Qty        int             `json:"qty"`
	Income     decimal.Decimal `json:"income"`
}

// OrderService keeps order totals, product stock and the sales ledger consistent
type OrderService struct {
	BaseService
}

// NewOrderService creates a new order service
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{BaseService: NewBaseService(db)}
}

// loadOrder reads an order with items, products, payments and client
func loadOrder(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("order_items.id") }).
		Preload("Items.Product").
		Preload("Payments", func(q *gorm.DB) *gorm.DB { return q.Order("date DESC, created_at DESC, id DESC") }).
		Preload("Client").
		First(&order, orderID).Error
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("order %d", orderID))
	}
	return &order, nil
}

// recomputeOrder persists Value and FinalValue from the current items.
// It never touches IsPaid.
func recomputeOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	order, err := loadOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	order.Recompute()

	if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"value":       order.Value,
		"final_value": order.FinalValue,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to save order totals: %w", err)
	}
	return order, nil
}

// GetOrder returns an order with its items and payments
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	return loadOrder(s.db, orderID)
}

// CreateOrder creates an empty order, numbering it when no title is given
func (s *OrderService) CreateOrder(in OrderInput) (*models.Order, error) {
	if in.Discount.IsNegative() {
		return nil, validationf(ErrInvalidAmount, "discount cannot be negative")
	}

	date := in.Date
	if date.IsZero() {
		date = s.today()
	}

	order := models.Order{
		Date:     businessDate(date),
		Title:    strings.TrimSpace(in.Title),
		Discount: in.Discount.Round(2),
		ClientID: in.ClientID,
	}
	order.Recompute()

	err := s.WithTransaction(func(tx *gorm.DB) error {
		if order.ClientID != nil {
			var client models.Client
			if err := tx.First(&client, *order.ClientID).Error; err != nil {
				return translateDBError(err, "client")
			}
		}

		if order.Title == "" {
			title, err := GenerateOrderNumber(tx, order.Date, 0, s.clock())
			if err != nil {
				return err
			}
			order.Title = title
		}

		if err := tx.Create(&order).Error; err != nil {
			return translateDBError(err, "order "+order.Title)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order created: %s (ID %d)", order.Title, order.ID)
	created, err := s.GetOrder(order.ID)
	if err != nil {
		return nil, err
	}
	s.notify(EventOrderUpdated, created)
	return created, nil
}

// UpdateOrder changes header fields. A discount change recomputes the totals.
func (s *OrderService) UpdateOrder(orderID uint, upd OrderUpdate) (*models.Order, error) {
	if upd.Discount != nil && upd.Discount.IsNegative() {
		return nil, validationf(ErrInvalidAmount, "discount cannot be negative")
	}

	var order *models.Order
	err := s.WithTransaction(func(tx *gorm.DB) error {
		existing, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if upd.Date != nil {
			existing.Date = businessDate(*upd.Date)
			changes["date"] = existing.Date
		}
		if upd.Title != nil {
			title := strings.TrimSpace(*upd.Title)
			if title == "" {
				title, err = GenerateOrderNumber(tx, existing.Date, existing.ID, s.clock())
				if err != nil {
					return err
				}
			}
			changes["title"] = title
		}
		if upd.ClearClient {
			changes["client_id"] = nil
		} else if upd.ClientID != nil {
			var client models.Client
			if err := tx.First(&client, *upd.ClientID).Error; err != nil {
				return translateDBError(err, "client")
			}
			changes["client_id"] = *upd.ClientID
		}
		if upd.Discount != nil {
			changes["discount"] = upd.Discount.Round(2)
		}

		if len(changes) > 0 {
			if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(changes).Error; err != nil {
				return translateDBError(err, "order")
			}
		}

		order, err = recomputeOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(EventOrderUpdated, order)
	return order, nil
}

// RecomputeOrder re-derives Value and FinalValue from the stored items
func (s *OrderService) RecomputeOrder(orderID uint) (*models.Order, error) {
	var order *models.Order
	err := s.WithTransaction(func(tx *gorm.DB) error {
		var err error
		order, err = recomputeOrder(tx, orderID)
		return err
	})
	return order, err
}

// addItem is the sale path: check stock, create or grow the line, take the
// units out of stock with a SORTIE_VENTE row, then recompute. snapshot, when
// set, replaces the current product prices on a new line.
func addItem(tx *gorm.DB, order *models.Order, productID uint, deltaQty int, snapshot *models.OrderItem, actorID *uint, now time.Time) (*models.OrderItem, error) {
	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		return nil, translateDBError(err, "product")
	}
	if product.Qty < deltaQty {
		return nil, outOfStock(&product, deltaQty)
	}

	var item models.OrderItem
	err := tx.Where("order_id = ? AND product_id = ?", order.ID, productID).First(&item).Error
	switch {
	case err == nil:
		item.Qty += deltaQty
		item.ApplyPricing()
		if err := tx.Model(&item).Updates(map[string]interface{}{
			"qty":         item.Qty,
			"final_price": item.FinalPrice,
			"total_price": item.TotalPrice,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to update order item: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.OrderItem{
			OrderID:       order.ID,
			ProductID:     productID,
			Qty:           deltaQty,
			Price:         product.Value,
			DiscountPrice: product.DiscountValue,
		}
		if snapshot != nil {
			item.Price = snapshot.Price
			item.DiscountPrice = snapshot.DiscountPrice
		}
		item.ApplyPricing()
		if err := tx.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to load order item: %w", err)
	}

	if _, err := applyStockDelta(tx, &product, -deltaQty, MovementInput{
		Type:        models.MovementSale,
		OrderID:     &order.ID,
		ActorID:     actorID,
		Description: fmt.Sprintf("Vente - Commande %s", order.Title),
		MovedAt:     now,
	}); err != nil {
		return nil, err
	}

	item.Product = &product
	return &item, nil
}

// AddItem puts deltaQty units of a product on an order
func (s *OrderService) AddItem(orderID, productID uint, deltaQty int, actorID *uint) (*AddItemResult, error) {
	if deltaQty <= 0 {
		return nil, validationf(ErrInvalidQuantity, "quantity must be positive")
	}

	result := &AddItemResult{}
	err := s.WithTransaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return translateDBError(err, "order")
		}

		item, err := addItem(tx, &order, productID, deltaQty, nil, actorID, s.clock())
		if err != nil {
			return err
		}
		result.Item = item

		result.Order, err = recomputeOrder(tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(EventOrderUpdated, result.Order)
	s.notify(EventStockChanged, result.Item.Product)
	return result, nil
}

// ModifyItem applies a line action. remove takes one unit back into stock but
// never goes below one unit; only delete drops the line.
func (s *OrderService) ModifyItem(itemID uint, action ItemAction, actorID *uint) (*models.Order, error) {
	switch action {
	case ItemAdd:
		var item models.OrderItem
		if err := s.db.First(&item, itemID).Error; err != nil {
			return nil, translateDBError(err, "order item")
		}
		res, err := s.AddItem(item.OrderID, item.ProductID, 1, actorID)
		if err != nil {
			return nil, err
		}
		return res.Order, nil
	case ItemRemove:
		return s.removeOne(itemID, actorID)
	case ItemDelete:
		return s.DeleteItem(itemID, actorID)
	}
	return nil, validationf(ErrInvalidAction, "unknown item action %q", action)
}

// removeOne decrements a line by one unit, floored at one.
// A line already at one unit is left untouched and no stock is returned.
func (s *OrderService) removeOne(itemID uint, actorID *uint) (*models.Order, error) {
	var order *models.Order
	var product *models.Product
	err := s.WithTransaction(func(tx *gorm.DB) error {
		var item models.OrderItem
		if err := tx.First(&item, itemID).Error; err != nil {
			return translateDBError(err, "order item")
		}

		if item.Qty > 1 {
			var parent models.Order
			if err := tx.First(&parent, item.OrderID).Error; err != nil {
				return translateDBError(err, "order")
			}

			item.Qty--
			item.ApplyPricing()
			if err := tx.Model(&item).Updates(map[string]interface{}{
				"qty":         item.Qty,
				"final_price": item.FinalPrice,
				"total_price": item.TotalPrice,
			}).Error; err != nil {
				return fmt.Errorf("failed to update order item: %w", err)
			}

			var p models.Product
			if err := tx.First(&p, item.ProductID).Error; err != nil {
				return translateDBError(err, "product")
			}
			if _, err := applyStockDelta(tx, &p, 1, MovementInput{
				Type:        models.MovementAdjustUp,
				OrderID:     &parent.ID,
				ActorID:     actorID,
				Description: fmt.Sprintf("Retour article - Commande %s", parent.Title),
				MovedAt:     s.clock(),
			}); err != nil {
				return err
			}
			product = &p
		}

		var err error
		order, err = recomputeOrder(tx, item.OrderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(EventOrderUpdated, order)
	if product != nil {
		s.notify(EventStockChanged, product)
	}
	return order, nil
}

// returnItemStock puts a whole line back into stock with a reversal row
func returnItemStock(tx *gorm.DB, item *models.OrderItem, orderID *uint, description string, actorID *uint, now time.Time) (*models.Product, error) {
	var product models.Product
	if err := tx.First(&product, item.ProductID).Error; err != nil {
		return nil, translateDBError(err, "product")
	}
	if item.Qty <= 0 {
		return &product, nil
	}
	if _, err := applyStockDelta(tx, &product, item.Qty, MovementInput{
		Type:        models.MovementAdjustUp,
		OrderID:     orderID,
		ActorID:     actorID,
		Description: description,
		MovedAt:     now,
	}); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteItem returns the line's full quantity to stock, drops it and recomputes the order
func (s *OrderService) DeleteItem(itemID uint, actorID *uint) (*models.Order, error) {
	var order *models.Order
	var product *models.Product
	err := s.WithTransaction(func(tx *gorm.DB) error {
		var item models.OrderItem
		if err := tx.First(&item, itemID).Error; err != nil {
			return translateDBError(err, "order item")
		}
		var parent models.Order
		if err := tx.First(&parent, item.OrderID).Error; err != nil {
			return translateDBError(err, "order")
		}

		var err error
		product, err = returnItemStock(tx, &item, &parent.ID,
			fmt.Sprintf("Annulation vente - Commande %s", parent.Title), actorID, s.clock())
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.OrderItem{}, item.ID).Error; err != nil {
			return fmt.Errorf("failed to delete order item: %w", err)
		}

		order, err = recomputeOrder(tx, parent.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(EventOrderUpdated, order)
	s.notify(EventStockChanged, product)
	return order, nil
}

// DeleteOrder removes an order with its payments, returning every line to stock
func (s *OrderService) DeleteOrder(orderID uint, actorID *uint) error {
	var title string
	err := s.WithTransaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		title = order.Title

		for i := range order.Items {
			if _, err := returnItemStock(tx, &order.Items[i], nil,
				fmt.Sprintf("Annulation vente - Commande %s supprimée", order.Title), actorID, s.clock()); err != nil {
				return err
			}
		}

		if err := tx.Where("order_id = ?", orderID).Delete(&models.Payment{}).Error; err != nil {
			return fmt.Errorf("failed to delete payments: %w", err)
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
		if err := tx.Delete(&models.Order{}, orderID).Error; err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Order deleted: %s (ID %d)", title, orderID)
	s.notify(EventOrderDeleted, map[string]interface{}{"id": orderID, "title": title})
	return nil
}

// DuplicateOrder copies an order's lines into a new unpaid order dated today.
// Lines keep their price snapshot and go through the sale path, so the copy
// fails as a whole when stock is short.
func (s *OrderService) DuplicateOrder(orderID uint, actorID *uint) (*models.Order, error) {
	var newID uint
	err := s.WithTransaction(func(tx *gorm.DB) error {
		source, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}

		copyOrder := models.Order{
			Date:     s.today(),
			ClientID: source.ClientID,
		}
		copyOrder.Title, err = GenerateOrderNumber(tx, copyOrder.Date, 0, s.clock())
		if err != nil {
			return err
		}
		copyOrder.Recompute()
		if err := tx.Create(&copyOrder).Error; err != nil {
			return translateDBError(err, "order")
		}

		for i := range source.Items {
			line := source.Items[i]
			if _, err := addItem(tx, &copyOrder, line.ProductID, line.Qty, &line, actorID, s.clock()); err != nil {
				return err
			}
		}

		newID = copyOrder.ID
		_, err = recomputeOrder(tx, copyOrder.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(newID)
	if err != nil {
		return nil, err
	}
	log.Printf("Order %d duplicated as %s", orderID, order.Title)
	s.notify(EventOrderUpdated, order)
	return order, nil
}

func (s *OrderService) filtered(filter OrderFilter) *gorm.DB {
	query := s.db.Model(&models.Order{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if filter.DateFrom != nil {
		query = query.Where("date >= ?", businessDate(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("date <= ?", businessDate(*filter.DateTo))
	}
	if filter.IsPaid != nil {
		query = query.Where("is_paid = ?", *filter.IsPaid)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	return query
}

// ListOrders returns orders newest first
func (s *OrderService) ListOrders(filter OrderFilter) ([]models.Order, error) {
	query := s.filtered(filter).
		Preload("Client").
		Preload("Payments").
		Order("date DESC, id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// OrderTotals sums the filtered orders: total billed, paid orders and the rest
func (s *OrderService) OrderTotals(filter OrderFilter) (*OrderTotalsResult, error) {
	var orders []models.Order
	if err := s.filtered(filter).Select("id", "final_value", "is_paid").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	res := &OrderTotalsResult{Total: decimal.Zero, Paid: decimal.Zero}
	for _, o := range orders {
		res.Count++
		res.Total = res.Total.Add(o.FinalValue)
		if o.IsPaid {
			res.Paid = res.Paid.Add(o.FinalValue)
		}
	}
	res.Remaining = res.Total.Sub(res.Paid)
	return res, nil
}

// CategoryBreakdown returns units and income per product category for the filtered orders
func (s *OrderService) CategoryBreakdown(filter OrderFilter) ([]CategorySales, error) {
	var orderIDs []uint
	if err := s.filtered(filter).Pluck("id", &orderIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if len(orderIDs) == 0 {
		return []CategorySales{}, nil
	}

	var items []models.OrderItem
	if err := s.db.Preload("Product.Category").Where("order_id IN ?", orderIDs).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	index := map[string]*CategorySales{}
	var ordered []string
	for _, item := range items {
		key, name := "none", "Sans catégorie"
		var categoryID *uint
		if item.Product != nil && item.Product.Category != nil {
			key = fmt.Sprintf("%d", item.Product.Category.ID)
			name = item.Product.Category.Title
			categoryID = item.Product.CategoryID
		}
		entry, ok := index[key]
		if !ok {
			entry = &CategorySales{CategoryID: categoryID, Category: name, Income: decimal.Zero}
			index[key] = entry
			ordered = append(ordered, key)
		}
		entry.Qty += item.Qty
		entry.Income = entry.Income.Add(item.TotalPrice)
	}

	result := make([]CategorySales, 0, len(ordered))
	for _, key := range ordered {
		result = append(result, *index[key])
	}
	return result, nil
}
