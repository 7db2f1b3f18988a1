package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"gorm.io/gorm"
)

const defaultSheetName = "Rapports"

var reportHeaders = []interface{}{
	"date",
	"ventes",
	"encaisse",
	"impaye",
	"commandes",
	"articles_vendus",
	"panier_moyen",
	"depenses",
	"approvisionnements",
	"detail_produits",
}

// SheetsService exports the daily report to a Google spreadsheet
type SheetsService struct {
	BaseService
}

// NewSheetsService creates a new Google Sheets export service
func NewSheetsService(db *gorm.DB) *SheetsService {
	return &SheetsService{BaseService: NewBaseService(db)}
}

// GetConfig retrieves the export configuration, creating the default one
func (s *SheetsService) GetConfig() (*models.GoogleSheetsConfig, error) {
	var config models.GoogleSheetsConfig
	err := s.db.First(&config).Error
	if err == nil {
		return &config, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	config = models.GoogleSheetsConfig{
		SheetName:      defaultSheetName,
		SyncInterval:   60,
		SyncMode:       models.SyncModeDaily,
		SyncTime:       "23:00",
		LastSyncStatus: "pending",
	}
	if err := s.db.Create(&config).Error; err != nil {
		return nil, fmt.Errorf("failed to create default config: %w", err)
	}
	return &config, nil
}

// SaveConfig saves the export configuration
func (s *SheetsService) SaveConfig(config *models.GoogleSheetsConfig) error {
	if config.SheetName == "" {
		config.SheetName = defaultSheetName
	}
	if config.SyncMode != models.SyncModeInterval && config.SyncMode != models.SyncModeDaily {
		return validationf(ErrInvalidInput, "unknown sync mode %q", config.SyncMode)
	}
	if config.ID == 0 {
		return s.db.Create(config).Error
	}
	return s.db.Save(config).Error
}

func newSheetsClient(ctx context.Context, config *models.GoogleSheetsConfig) (*sheets.Service, error) {
	if config.PrivateKey == "" || config.SpreadsheetID == "" {
		return nil, fmt.Errorf("missing credentials or spreadsheet ID")
	}
	creds, err := google.CredentialsFromJSON(ctx, []byte(config.PrivateKey), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// TestConnection checks that the spreadsheet is reachable with the configured key
func (s *SheetsService) TestConnection(ctx context.Context, config *models.GoogleSheetsConfig) error {
	srv, err := newSheetsClient(ctx, config)
	if err != nil {
		return err
	}
	if _, err := srv.Spreadsheets.Get(config.SpreadsheetID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to access spreadsheet: %w", err)
	}
	return nil
}

// ProductDetail is the sales of one product on the report day
type ProductDetail struct {
	Product  string          `json:"produit"`
	Quantity int             `json:"quantite"`
	Total    decimal.Decimal `json:"total"`
}

// ReportData is one row of the daily report
type ReportData struct {
	Date           string          `json:"date"`
	Sales          decimal.Decimal `json:"ventes"`
	Collected      decimal.Decimal `json:"encaisse"`
	Unpaid         decimal.Decimal `json:"impaye"`
	Orders         int64           `json:"commandes"`
	ItemsSold      int64           `json:"articles_vendus"`
	AverageTicket  decimal.Decimal `json:"panier_moyen"`
	Expenses       decimal.Decimal `json:"depenses"`
	Replenishments decimal.Decimal `json:"approvisionnements"`
	Products       []ProductDetail `json:"detail_produits"`
}

// GenerateDailyReport aggregates the orders, payments and expenses of one business day
func (s *SheetsService) GenerateDailyReport(date time.Time) (*ReportData, error) {
	day := businessDate(date)
	report := &ReportData{
		Date:     day.Format("2006-01-02"),
		Products: []ProductDetail{},
	}
	var err error

	orders := s.db.Model(&models.Order{}).Where("date = ?", day)
	if err := orders.Count(&report.Orders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	if report.Sales, err = sumColumn(s.db.Model(&models.Order{}).Where("date = ?", day), "final_value"); err != nil {
		return nil, err
	}
	if report.Unpaid, err = sumColumn(s.db.Model(&models.Order{}).Where("date = ? AND is_paid = ?", day, false), "final_value"); err != nil {
		return nil, err
	}
	if report.Collected, err = sumColumn(s.db.Model(&models.Payment{}).Where("date = ?", day), "amount"); err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.date = ?", day).
		Select("COALESCE(SUM(order_items.qty), 0)").
		Row().Scan(&report.ItemsSold); err != nil {
		return nil, fmt.Errorf("failed to count items sold: %w", err)
	}

	report.AverageTicket = decimal.Zero
	if report.Orders > 0 {
		report.AverageTicket = report.Sales.Div(decimal.NewFromInt(report.Orders)).Round(2)
	}

	if report.Expenses, err = sumColumn(s.db.Model(&models.Expense{}).Where("date = ?", day), "amount"); err != nil {
		return nil, err
	}
	if report.Replenishments, err = sumColumn(s.db.Model(&models.Expense{}).
		Joins("JOIN expense_types ON expense_types.id = expenses.expense_type_id").
		Where("expenses.date = ? AND expense_types.name = ?", day, models.ReplenishmentTypeName), "expenses.amount"); err != nil {
		return nil, err
	}

	if err := s.db.Table("order_items").
		Select("products.title AS product, SUM(order_items.qty) AS quantity, COALESCE(SUM(order_items.total_price), 0) AS total").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.date = ?", day).
		Group("products.id, products.title").
		Order("total DESC").
		Scan(&report.Products).Error; err != nil {
		return nil, fmt.Errorf("failed to load product detail: %w", err)
	}
	for i := range report.Products {
		report.Products[i].Total = report.Products[i].Total.Round(2)
	}

	return report, nil
}

// Row renders the report as spreadsheet cells, in reportHeaders order
func (r *ReportData) Row() ([]interface{}, error) {
	products, err := json.Marshal(r.Products)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal products: %w", err)
	}
	return []interface{}{
		r.Date,
		r.Sales.StringFixed(2),
		r.Collected.StringFixed(2),
		r.Unpaid.StringFixed(2),
		r.Orders,
		r.ItemsSold,
		r.AverageTicket.StringFixed(2),
		r.Expenses.StringFixed(2),
		r.Replenishments.StringFixed(2),
		string(products),
	}, nil
}

func lastColumn() string {
	return string(rune('A' + len(reportHeaders) - 1))
}

// findExistingRowIndex returns the 1-based row holding date, or -1
func findExistingRowIndex(ctx context.Context, srv *sheets.Service, config *models.GoogleSheetsConfig, date string) (int, error) {
	resp, err := srv.Spreadsheets.Values.Get(config.SpreadsheetID, fmt.Sprintf("%s!A:A", config.SheetName)).Context(ctx).Do()
	if err != nil {
		return -1, err
	}
	for i, row := range resp.Values {
		if len(row) > 0 {
			if value, ok := row[0].(string); ok && value == date {
				return i + 1, nil
			}
		}
	}
	return -1, nil
}

// ensureHeaders writes the header row when it is missing or short
func ensureHeaders(ctx context.Context, srv *sheets.Service, config *models.GoogleSheetsConfig) error {
	headerRange := fmt.Sprintf("%s!A1:%s1", config.SheetName, lastColumn())
	resp, err := srv.Spreadsheets.Values.Get(config.SpreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) >= len(reportHeaders) {
		return nil
	}
	_, err = srv.Spreadsheets.Values.Update(config.SpreadsheetID, headerRange,
		&sheets.ValueRange{Values: [][]interface{}{reportHeaders}}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

// SendReport writes the report row, replacing the row of the same date when present
func (s *SheetsService) SendReport(ctx context.Context, config *models.GoogleSheetsConfig, report *ReportData) error {
	if !config.IsEnabled {
		return fmt.Errorf("Google Sheets export is disabled")
	}

	srv, err := newSheetsClient(ctx, config)
	if err != nil {
		return err
	}
	if err := ensureHeaders(ctx, srv, config); err != nil {
		return fmt.Errorf("failed to ensure headers: %w", err)
	}

	row, err := report.Row()
	if err != nil {
		return err
	}
	valueRange := &sheets.ValueRange{Values: [][]interface{}{row}}

	rowIndex, err := findExistingRowIndex(ctx, srv, config, report.Date)
	if err != nil {
		return fmt.Errorf("failed to check existing row: %w", err)
	}

	if rowIndex > 0 {
		target := fmt.Sprintf("%s!A%d:%s%d", config.SheetName, rowIndex, lastColumn(), rowIndex)
		_, err = srv.Spreadsheets.Values.Update(config.SpreadsheetID, target, valueRange).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("unable to update data: %w", err)
		}
	} else {
		target := fmt.Sprintf("%s!A:%s", config.SheetName, lastColumn())
		_, err = srv.Spreadsheets.Values.Append(config.SpreadsheetID, target, valueRange).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("unable to append data: %w", err)
		}
	}
	return nil
}

// recordSync stores the outcome of a sync attempt
func (s *SheetsService) recordSync(config *models.GoogleSheetsConfig, syncErr error) {
	now := s.clock()
	updates := map[string]interface{}{"last_sync_at": now}
	if syncErr != nil {
		updates["last_sync_status"] = "error"
		updates["last_sync_error"] = syncErr.Error()
	} else {
		updates["last_sync_status"] = "success"
		updates["last_sync_error"] = ""
		updates["total_syncs"] = gorm.Expr("total_syncs + 1")
	}
	s.db.Model(&models.GoogleSheetsConfig{}).Where("id = ?", config.ID).Updates(updates)
}

// SyncDate generates and sends the report of one day
func (s *SheetsService) SyncDate(ctx context.Context, date time.Time) error {
	config, err := s.GetConfig()
	if err != nil {
		return err
	}
	if !config.IsEnabled {
		return fmt.Errorf("Google Sheets export is disabled")
	}

	report, err := s.GenerateDailyReport(date)
	if err != nil {
		s.recordSync(config, err)
		return fmt.Errorf("failed to generate report: %w", err)
	}
	if err := s.SendReport(ctx, config, report); err != nil {
		s.recordSync(config, err)
		return fmt.Errorf("failed to send report: %w", err)
	}
	s.recordSync(config, nil)
	return nil
}

// SyncNow sends today's report
func (s *SheetsService) SyncNow(ctx context.Context) error {
	return s.SyncDate(ctx, s.today())
}
