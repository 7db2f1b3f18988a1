package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"ShopPOS/app/config"
	"ShopPOS/app/models"
	"ShopPOS/app/security"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// gormConfig is shared by both drivers
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	}
}

// Open connects to the configured driver without migrating
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return openPostgres(cfg)
	case "sqlite", "":
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.URL != "" {
		log.Printf("Using DATABASE_URL for database connection")
	} else {
		log.Printf("Built database connection: host=%s port=%d dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
	}

	gc := gormConfig()
	gc.PrepareStmt = true

	conn, err := gorm.Open(postgres.Open(cfg.DSN()), gc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return conn, nil
}

// Initialize opens the database, runs migrations and seeds reference data
func Initialize(cfg *config.AppConfig) error {
	conn, err := Open(cfg.Database)
	if err != nil {
		return err
	}
	db = conn

	if err := RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := SeedInitialData(db); err != nil {
		log.Printf("Warning: failed to seed initial data: %v", err)
	}

	return nil
}

// Models lists every table in dependency order
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Client{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.ExpenseType{},
		&models.Expense{},
		&models.StockMovement{},
		&models.GoogleSheetsConfig{},
	}
}

// RunMigrations creates or updates all tables
func RunMigrations(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	createIndexes(conn)
	return nil
}

// createIndexes adds composite indexes used by dashboards and the ledger
func createIndexes(conn *gorm.DB) {
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_stock_movements_product_moved ON stock_movements(product_id, moved_at)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_order_items_order_product ON order_items(order_id, product_id)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_payments_order_date ON payments(order_id, date)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_expenses_type_date ON expenses(expense_type_id, date)")
}

// SeedInitialData creates the canonical expense types and a first manager account
func SeedInitialData(conn *gorm.DB) error {
	expenseTypes := []models.ExpenseType{
		{Name: models.ReplenishmentTypeName, Description: models.ReplenishmentTypeDescription, Color: models.ReplenishmentTypeColor, Active: true},
		{Name: "Loyer", Description: "Loyer du local", Color: "#6f42c1", Active: true},
		{Name: "Électricité", Description: "Factures d'électricité", Color: "#fd7e14", Active: true},
		{Name: "Transport", Description: "Frais de transport et livraison", Color: "#17a2b8", Active: true},
		{Name: "Divers", Description: "Autres dépenses", Color: models.DefaultExpenseTypeColor, Active: true},
	}

	for _, et := range expenseTypes {
		var count int64
		conn.Model(&models.ExpenseType{}).Where("name = ?", et.Name).Count(&count)
		if count == 0 {
			if err := conn.Create(&et).Error; err != nil {
				return fmt.Errorf("failed to seed expense type %s: %w", et.Name, err)
			}
		}
	}

	var userCount int64
	conn.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		password := os.Getenv("ADMIN_PASSWORD")
		if password == "" {
			password = "admin123"
			log.Printf("Warning: ADMIN_PASSWORD not set, seeding manager account with the default password")
		}
		hashed, err := security.HashPassword(password)
		if err != nil {
			return err
		}
		admin := models.User{
			Username: "admin",
			Password: hashed,
			FullName: "Administrateur",
			Role:     models.RoleManager,
			IsActive: true,
		}
		if err := conn.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed manager account: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
