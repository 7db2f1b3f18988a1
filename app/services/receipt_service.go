package services

import (
	"fmt"
	"strings"

	"ShopPOS/app/config"
	"ShopPOS/app/models"

	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

const (
	defaultQRSize = 256
	receiptWidth  = 42
)

// ReceiptService renders order receipts and their QR code
type ReceiptService struct {
	BaseService
	settings config.ShopSettings
}

// NewReceiptService creates a new receipt service
func NewReceiptService(db *gorm.DB, settings config.ShopSettings) *ReceiptService {
	return &ReceiptService{
		BaseService: NewBaseService(db),
		settings:    settings,
	}
}

// QRPayload is the text encoded in an order's QR code
func (s *ReceiptService) QRPayload(order *models.Order) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		s.settings.Name,
		order.DisplayNumber(),
		order.FinalValue.StringFixed(2),
		order.RemainingAmount().StringFixed(2),
	)
}

// QRCode returns a PNG QR code for an order
func (s *ReceiptService) QRCode(orderID uint, size int) ([]byte, error) {
	order, err := loadOrder(s.db, orderID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = defaultQRSize
	}

	qr, err := qrcode.New(s.QRPayload(order), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	qr.DisableBorder = false

	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}

// ReceiptText renders a fixed width text receipt
func (s *ReceiptService) ReceiptText(orderID uint) (string, error) {
	order, err := loadOrder(s.db, orderID)
	if err != nil {
		return "", err
	}
	currency := s.settings.CurrencyLabel

	var b strings.Builder
	line := strings.Repeat("-", receiptWidth)
	center := func(text string) {
		pad := (receiptWidth - len([]rune(text))) / 2
		if pad < 0 {
			pad = 0
		}
		b.WriteString(strings.Repeat(" ", pad) + text + "\n")
	}
	row := func(left, right string) {
		gap := receiptWidth - len([]rune(left)) - len([]rune(right))
		if gap < 1 {
			gap = 1
		}
		b.WriteString(left + strings.Repeat(" ", gap) + right + "\n")
	}

	if s.settings.Name != "" {
		center(s.settings.Name)
	}
	if s.settings.Address != "" {
		center(s.settings.Address)
	}
	if s.settings.Phone != "" {
		center("Tel: " + s.settings.Phone)
	}
	b.WriteString(line + "\n")
	row("Commande", order.DisplayNumber())
	row("Date", order.Date.Format("02/01/2006"))
	if order.Client != nil {
		row("Client", order.Client.Name)
	}
	b.WriteString(line + "\n")

	for _, item := range order.Items {
		title := fmt.Sprintf("Produit %d", item.ProductID)
		if item.Product != nil {
			title = item.Product.Title
		}
		b.WriteString(title + "\n")
		row(fmt.Sprintf("  %d x %s", item.Qty, item.FinalPrice.StringFixed(0)), FormatMoney(item.TotalPrice, ""))
	}

	b.WriteString(line + "\n")
	row("Sous-total", FormatMoney(order.Value, currency))
	if order.Discount.IsPositive() {
		row("Remise", "-"+FormatMoney(order.Discount, currency))
	}
	row("TOTAL", FormatMoney(order.FinalValue, currency))
	for _, p := range order.Payments {
		row(p.Method.Label()+" "+p.Date.Format("02/01"), FormatMoney(p.Amount, currency))
	}
	row("Reste à payer", FormatMoney(order.RemainingAmount(), currency))
	b.WriteString(line + "\n")
	center("Merci de votre visite")

	return b.String(), nil
}
