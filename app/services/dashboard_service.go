package services

import (
	"fmt"
	"strings"
	"time"

	"ShopPOS/app/config"
	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardService handles dashboard statistics operations
type DashboardService struct {
	BaseService
	settings config.ShopSettings
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB, settings config.ShopSettings) *DashboardService {
	return &DashboardService{
		BaseService: NewBaseService(db),
		settings:    settings,
	}
}

// DashboardStats represents the home dashboard
type DashboardStats struct {
	Date string `json:"date"`

	// Sales
	TodaySales      decimal.Decimal  `json:"today_sales"`
	TodayOrders     int64            `json:"today_orders"`
	YesterdaySales  decimal.Decimal  `json:"yesterday_sales"`
	SalesEvolution  decimal.Decimal  `json:"sales_evolution"` // Percent vs yesterday
	WeekSales       decimal.Decimal  `json:"week_sales"`
	WeekOrders      int64            `json:"week_orders"`
	MonthSales      decimal.Decimal  `json:"month_sales"`
	MonthOrders     int64            `json:"month_orders"`
	AverageBasket   decimal.Decimal  `json:"average_basket"`
	UnpaidTotal     decimal.Decimal  `json:"unpaid_total"`
	TopSellingItems []TopSellingItem `json:"top_selling_items"`
	RecentOrders    []models.Order   `json:"recent_orders"`

	// Stock
	LowStockCount   int64 `json:"low_stock_count"`
	OutOfStockCount int64 `json:"out_of_stock_count"`
	UnitsInStock    int64 `json:"units_in_stock"`
	StockAlert      bool  `json:"stock_alert"`

	// Expenses and margin
	TodayExpenses       decimal.Decimal        `json:"today_expenses"`
	MonthExpenses       decimal.Decimal        `json:"month_expenses"`
	TopExpenseTypes     []ExpenseTypeTotal     `json:"top_expense_types"`
	ReplenishmentSpend  decimal.Decimal        `json:"replenishment_spend"`
	GrossProfit         decimal.Decimal        `json:"gross_profit"`
	ProfitMargin        decimal.Decimal        `json:"profit_margin"`
	ExpensesRatio       decimal.Decimal        `json:"expenses_ratio"`
	RecentMovements     []models.StockMovement `json:"recent_movements"`
	MonthMovementTotals []MovementTotals       `json:"month_movement_totals"`

	// Preformatted with the shop currency
	Labels map[string]string `json:"labels"`
}

// TopSellingItem represents a top selling product
type TopSellingItem struct {
	ProductID    uint            `json:"product_id"`
	ProductTitle string          `json:"product_title"`
	Quantity     int             `json:"quantity"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// SalesChartData is one day of the sales chart
type SalesChartData struct {
	Date   string          `json:"date"`
	Sales  decimal.Decimal `json:"sales"`
	Orders int64           `json:"orders"`
}

func (s *DashboardService) salesBetween(from, to time.Time) (decimal.Decimal, int64, error) {
	query := s.db.Model(&models.Order{}).Where("date >= ? AND date <= ?", from, to)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to count orders: %w", err)
	}
	total, err := sumColumn(s.db.Model(&models.Order{}).Where("date >= ? AND date <= ?", from, to), "final_value")
	return total, count, err
}

// percentOf returns part/whole*100 rounded to one decimal, zero when whole is not positive
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(1)
}

// GetDashboardStats retrieves all dashboard statistics for the current business day
func (s *DashboardService) GetDashboardStats() (*DashboardStats, error) {
	today := s.today()
	yesterday := today.AddDate(0, 0, -1)
	weekStart := today.AddDate(0, 0, -6)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := &DashboardStats{Date: today.Format("02/01/2006")}
	var err error

	if stats.TodaySales, stats.TodayOrders, err = s.salesBetween(today, today); err != nil {
		return nil, err
	}
	if stats.YesterdaySales, _, err = s.salesBetween(yesterday, yesterday); err != nil {
		return nil, err
	}
	if stats.WeekSales, stats.WeekOrders, err = s.salesBetween(weekStart, today); err != nil {
		return nil, err
	}
	if stats.MonthSales, stats.MonthOrders, err = s.salesBetween(monthStart, today); err != nil {
		return nil, err
	}

	switch {
	case stats.YesterdaySales.IsPositive():
		stats.SalesEvolution = stats.TodaySales.Sub(stats.YesterdaySales).
			Div(stats.YesterdaySales).Mul(decimal.NewFromInt(100)).Round(1)
	case stats.TodaySales.IsPositive():
		stats.SalesEvolution = decimal.NewFromInt(100)
	default:
		stats.SalesEvolution = decimal.Zero
	}

	stats.AverageBasket = decimal.Zero
	if stats.TodayOrders > 0 {
		stats.AverageBasket = stats.TodaySales.Div(decimal.NewFromInt(stats.TodayOrders)).Round(2)
	}

	if stats.UnpaidTotal, err = sumColumn(s.db.Model(&models.Order{}).Where("is_paid = ?", false), "final_value"); err != nil {
		return nil, err
	}

	if stats.TopSellingItems, err = s.topSellingItems(5); err != nil {
		return nil, err
	}
	if err := s.db.Preload("Client").Order("date DESC, id DESC").Limit(5).Find(&stats.RecentOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent orders: %w", err)
	}

	// Stock
	threshold := s.settings.LowStockThreshold
	s.db.Model(&models.Product{}).Where("active = ? AND qty < ?", true, threshold).Count(&stats.LowStockCount)
	s.db.Model(&models.Product{}).Where("active = ? AND qty <= 0", true).Count(&stats.OutOfStockCount)
	s.db.Model(&models.Product{}).Where("active = ? AND qty > 0", true).
		Select("COALESCE(SUM(qty), 0)").Row().Scan(&stats.UnitsInStock)
	stats.StockAlert = stats.LowStockCount > 0 || stats.OutOfStockCount > 0

	// Expenses
	expenses := NewExpenseService(s.db)
	if stats.TodayExpenses, err = expenses.TotalBetween(today, today); err != nil {
		return nil, err
	}
	if stats.MonthExpenses, err = expenses.TotalBetween(monthStart, today); err != nil {
		return nil, err
	}
	if stats.TopExpenseTypes, err = expenses.TotalsByType(monthStart, today, 3); err != nil {
		return nil, err
	}
	if stats.ReplenishmentSpend, err = sumColumn(s.db.Model(&models.Expense{}).
		Joins("JOIN expense_types ON expense_types.id = expenses.expense_type_id").
		Where("expenses.date >= ? AND expenses.date <= ?", monthStart, today).
		Where("expense_types.name = ?", models.ReplenishmentTypeName), "expenses.amount"); err != nil {
		return nil, err
	}

	stats.GrossProfit = stats.MonthSales.Sub(stats.ReplenishmentSpend)
	stats.ProfitMargin = percentOf(stats.GrossProfit, stats.MonthSales)
	stats.ExpensesRatio = percentOf(stats.MonthExpenses, stats.MonthSales)

	if err := s.db.Preload("Product").Order("moved_at DESC, id DESC").Limit(5).Find(&stats.RecentMovements).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent movements: %w", err)
	}
	stock := &StockService{BaseService: s.BaseService}
	if stats.MonthMovementTotals, err = stock.TotalsByType(monthStart, today.AddDate(0, 0, 1)); err != nil {
		return nil, err
	}

	stats.Labels = map[string]string{
		"today_sales":     s.FormatMoney(stats.TodaySales),
		"yesterday_sales": s.FormatMoney(stats.YesterdaySales),
		"week_sales":      s.FormatMoney(stats.WeekSales),
		"month_sales":     s.FormatMoney(stats.MonthSales),
		"average_basket":  s.FormatMoney(stats.AverageBasket),
		"unpaid_total":    s.FormatMoney(stats.UnpaidTotal),
		"today_expenses":  s.FormatMoney(stats.TodayExpenses),
		"month_expenses":  s.FormatMoney(stats.MonthExpenses),
		"gross_profit":    s.FormatMoney(stats.GrossProfit),
		"sales_evolution": fmt.Sprintf("%+.1f%%", stats.SalesEvolution.InexactFloat64()),
	}

	return stats, nil
}

func (s *DashboardService) topSellingItems(limit int) ([]TopSellingItem, error) {
	var items []TopSellingItem
	err := s.db.Table("order_items").
		Select("order_items.product_id AS product_id, products.title AS product_title, SUM(order_items.qty) AS quantity, COALESCE(SUM(order_items.total_price), 0) AS revenue").
		Joins("JOIN products ON products.id = order_items.product_id").
		Group("order_items.product_id, products.title").
		Order("quantity DESC").
		Limit(limit).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load top products: %w", err)
	}
	for i := range items {
		items[i].Revenue = items[i].Revenue.Round(2)
	}
	return items, nil
}

// GetSalesChartData returns billed totals per business day over the last days days
func (s *DashboardService) GetSalesChartData(days int) ([]SalesChartData, error) {
	if days <= 0 {
		days = 7
	}
	today := s.today()
	from := today.AddDate(0, 0, -(days - 1))

	var orders []models.Order
	if err := s.db.Select("id", "date", "final_value").
		Where("date >= ? AND date <= ?", from, today).
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	byDay := make(map[string]*SalesChartData, days)
	result := make([]SalesChartData, days)
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i).Format("2006-01-02")
		result[i] = SalesChartData{Date: day, Sales: decimal.Zero}
		byDay[day] = &result[i]
	}
	for _, o := range orders {
		if entry, ok := byDay[o.Date.Format("2006-01-02")]; ok {
			entry.Sales = entry.Sales.Add(o.FinalValue)
			entry.Orders++
		}
	}
	return result, nil
}

// FormatMoney renders an amount with thousands separators and the shop currency, e.g. "12,500 GMD"
func (s *DashboardService) FormatMoney(amount decimal.Decimal) string {
	return FormatMoney(amount, s.settings.CurrencyLabel)
}

// FormatMoney renders amount rounded to units with comma thousands separators
func FormatMoney(amount decimal.Decimal, currency string) string {
	digits := amount.Round(0).Abs().String()
	var b strings.Builder
	if amount.Round(0).IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if currency != "" {
		b.WriteByte(' ')
		b.WriteString(currency)
	}
	return b.String()
}
