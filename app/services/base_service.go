package services

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

// Events pushed to connected clients after a commit
const (
	EventOrderUpdated    = "order_update"
	EventOrderDeleted    = "order_deleted"
	EventPaymentRecorded = "payment_update"
	EventStockChanged    = "stock_update"
	EventExpenseRecorded = "expense_new"
)

// Notifier receives domain events once the transaction that produced them committed
type Notifier interface {
	Notify(event string, payload interface{})
}

// BaseService provides common functionality for all services
type BaseService struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
}

// NewBaseService creates a new base service instance
func NewBaseService(db *gorm.DB) BaseService {
	return BaseService{db: db, now: time.Now}
}

// GetDB returns the database connection
func (b *BaseService) GetDB() *gorm.DB {
	return b.db
}

// SetNotifier sets the event sink (the websocket hub in production)
func (b *BaseService) SetNotifier(n Notifier) {
	b.notifier = n
}

// SetClock replaces the wall clock (useful for testing)
func (b *BaseService) SetClock(now func() time.Time) {
	b.now = now
}

// EnsureDB checks if database is initialized and returns an error if not
func (b *BaseService) EnsureDB() error {
	if b.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return nil
}

// WithTransaction executes a function within a database transaction.
// fn must only use tx: the SQLite pool holds a single connection.
func (b *BaseService) WithTransaction(fn func(tx *gorm.DB) error) error {
	if err := b.EnsureDB(); err != nil {
		return err
	}
	return b.db.Transaction(fn)
}

func (b *BaseService) clock() time.Time {
	if b.now == nil {
		return time.Now()
	}
	return b.now()
}

// today is the business date: local midnight stored as UTC calendar day
func (b *BaseService) today() time.Time {
	return businessDate(b.clock())
}

func (b *BaseService) notify(event string, payload interface{}) {
	if b.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Notifier panic on %s: %v", event, r)
		}
	}()
	b.notifier.Notify(event, payload)
}

// businessDate truncates t to its calendar day
func businessDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
