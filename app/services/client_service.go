package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ShopPOS/app/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const clientSearchLimit = 10

// ClientStats summarizes a client's order history
type ClientStats struct {
	TotalOrders   int64           `json:"total_orders"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	LastOrderDate *time.Time      `json:"last_order_date,omitempty"`
}

// ClientService handles customers
type ClientService struct {
	BaseService
}

// NewClientService creates a new client service
func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{BaseService: NewBaseService(db)}
}

func normalizeClient(client *models.Client) error {
	client.Name = strings.TrimSpace(client.Name)
	client.Phone = strings.ReplaceAll(strings.TrimSpace(client.Phone), " ", "")
	if client.Name == "" {
		return validationf(ErrInvalidInput, "client name is required")
	}
	if client.Phone == "" {
		return validationf(ErrInvalidInput, "client phone is required")
	}
	return nil
}

// CreateClient registers a client; phone numbers are unique
func (s *ClientService) CreateClient(client *models.Client) error {
	if err := normalizeClient(client); err != nil {
		return err
	}
	client.IsActive = true
	if err := s.db.Create(client).Error; err != nil {
		return translateDBError(err, "client with phone "+client.Phone)
	}
	return nil
}

// UpdateClient changes name, phone and active flag
func (s *ClientService) UpdateClient(client *models.Client) error {
	if err := normalizeClient(client); err != nil {
		return err
	}
	res := s.db.Model(&models.Client{}).Where("id = ?", client.ID).Updates(map[string]interface{}{
		"name":      client.Name,
		"phone":     client.Phone,
		"is_active": client.IsActive,
	})
	if res.Error != nil {
		return translateDBError(res.Error, "client with phone "+client.Phone)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("client %d: %w", client.ID, ErrNotFound)
	}
	return nil
}

// GetClient gets a client by ID
func (s *ClientService) GetClient(id uint) (*models.Client, error) {
	var client models.Client
	if err := s.db.First(&client, id).Error; err != nil {
		return nil, translateDBError(err, fmt.Sprintf("client %d", id))
	}
	return &client, nil
}

// SearchByPhone returns active clients whose phone contains fragment, newest first
func (s *ClientService) SearchByPhone(fragment string) ([]models.Client, error) {
	fragment = strings.ReplaceAll(strings.TrimSpace(fragment), " ", "")
	if fragment == "" {
		return []models.Client{}, nil
	}

	var clients []models.Client
	err := s.db.Where("is_active = ? AND phone LIKE ?", true, "%"+fragment+"%").
		Order("created_at DESC, id DESC").
		Limit(clientSearchLimit).
		Find(&clients).Error
	return clients, err
}

// ClientStats returns order count, billed total and last order date of a client
func (s *ClientService) ClientStats(clientID uint) (*ClientStats, error) {
	if _, err := s.GetClient(clientID); err != nil {
		return nil, err
	}

	stats := &ClientStats{}
	query := s.db.Model(&models.Order{}).Where("client_id = ?", clientID)
	if err := query.Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	total, err := sumColumn(s.db.Model(&models.Order{}).Where("client_id = ?", clientID), "final_value")
	if err != nil {
		return nil, err
	}
	stats.TotalSpent = total

	var last models.Order
	err = s.db.Where("client_id = ?", clientID).Order("date DESC, id DESC").First(&last).Error
	switch {
	case err == nil:
		stats.LastOrderDate = &last.Date
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load last order: %w", err)
	}
	return stats, nil
}
