package services

import (
	"sync"
	"testing"
	"time"

	"ShopPOS/app/config"
	"ShopPOS/app/database"
	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 12, 15, 14, 30, 0, 0, time.UTC)

type recordedEvent struct {
	Event   string
	Payload interface{}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Notify(event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Event: event, Payload: payload})
}

func (r *eventRecorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func testSettings() config.ShopSettings {
	return config.ShopSettings{
		Name:              "Boutique Test",
		Phone:             "+220 700 0000",
		CurrencyLabel:     "GMD",
		LowStockThreshold: 5,
	}
}

// newTestServices opens a private migrated database with a fixed clock
func newTestServices(t *testing.T) (*Services, *gorm.DB, *eventRecorder) {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	svc := NewServices(db, testSettings())
	svc.SetClock(func() time.Time { return testNow })
	rec := &eventRecorder{}
	svc.SetNotifier(rec)
	return svc, db, rec
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustProduct(t *testing.T, svc *Services, title, price string, qty int) *models.Product {
	t.Helper()
	p := &models.Product{Title: title, Value: d(price), Qty: qty}
	if err := svc.Products.CreateProduct(p, nil); err != nil {
		t.Fatalf("create product %s: %v", title, err)
	}
	return p
}

func mustOrder(t *testing.T, svc *Services) *models.Order {
	t.Helper()
	order, err := svc.Orders.CreateOrder(OrderInput{})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func reloadProduct(t *testing.T, db *gorm.DB, id uint) models.Product {
	t.Helper()
	var p models.Product
	if err := db.First(&p, id).Error; err != nil {
		t.Fatalf("reload product %d: %v", id, err)
	}
	return p
}

func movementsOf(t *testing.T, db *gorm.DB, productID uint) []models.StockMovement {
	t.Helper()
	var ms []models.StockMovement
	if err := db.Where("product_id = ?", productID).Order("id").Find(&ms).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	return ms
}

// assertOrderInvariants checks the stored totals against the stored lines
func assertOrderInvariants(t *testing.T, db *gorm.DB, orderID uint) models.Order {
	t.Helper()
	order, err := loadOrder(db, orderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	sum := decimal.Zero
	for _, item := range order.Items {
		final := item.Price
		if item.DiscountPrice.IsPositive() {
			final = item.DiscountPrice
		}
		if !item.FinalPrice.Equal(final) {
			t.Fatalf("item %d: final price %s, want %s", item.ID, item.FinalPrice, final)
		}
		if !item.TotalPrice.Equal(final.Mul(decimal.NewFromInt(int64(item.Qty)))) {
			t.Fatalf("item %d: total %s for %d x %s", item.ID, item.TotalPrice, item.Qty, final)
		}
		sum = sum.Add(item.TotalPrice)
	}
	if !order.Value.Equal(sum) {
		t.Fatalf("order value %s, sum of lines %s", order.Value, sum)
	}
	if !order.FinalValue.Equal(order.Value.Sub(order.Discount)) {
		t.Fatalf("final value %s != %s - %s", order.FinalValue, order.Value, order.Discount)
	}
	if order.IsPaid && (!order.FinalValue.IsPositive() || order.RemainingAmount().IsPositive()) {
		t.Fatalf("order flagged paid with final %s remaining %s", order.FinalValue, order.RemainingAmount())
	}
	return *order
}
