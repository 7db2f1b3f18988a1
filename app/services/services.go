package services

import (
	"time"

	"ShopPOS/app/config"

	"gorm.io/gorm"
)

// Services bundles every domain service over one database
type Services struct {
	Orders         *OrderService
	Payments       *PaymentService
	Stock          *StockService
	Replenishments *ReplenishmentService
	Expenses       *ExpenseService
	Products       *ProductService
	Clients        *ClientService
	Users          *UserService
	Dashboard      *DashboardService
	Receipts       *ReceiptService
	Sheets         *SheetsService
}

// NewServices wires the services with the shop settings
func NewServices(db *gorm.DB, settings config.ShopSettings) *Services {
	replenishments := NewReplenishmentService(db)
	return &Services{
		Orders:         NewOrderService(db),
		Payments:       NewPaymentService(db),
		Stock:          NewStockService(db, replenishments),
		Replenishments: replenishments,
		Expenses:       NewExpenseService(db),
		Products:       NewProductService(db, settings),
		Clients:        NewClientService(db),
		Users:          NewUserService(db),
		Dashboard:      NewDashboardService(db, settings),
		Receipts:       NewReceiptService(db, settings),
		Sheets:         NewSheetsService(db),
	}
}

func (s *Services) each(fn func(b *BaseService)) {
	for _, b := range []*BaseService{
		&s.Orders.BaseService,
		&s.Payments.BaseService,
		&s.Stock.BaseService,
		&s.Replenishments.BaseService,
		&s.Expenses.BaseService,
		&s.Products.BaseService,
		&s.Clients.BaseService,
		&s.Users.BaseService,
		&s.Dashboard.BaseService,
		&s.Receipts.BaseService,
		&s.Sheets.BaseService,
	} {
		fn(b)
	}
}

// SetNotifier routes post-commit events of every service to n
func (s *Services) SetNotifier(n Notifier) {
	s.each(func(b *BaseService) { b.SetNotifier(n) })
}

// SetClock replaces the wall clock of every service
func (s *Services) SetClock(now func() time.Time) {
	s.each(func(b *BaseService) { b.SetClock(now) })
}
