package models

import (
	"time"
)

// GoogleSheetsConfig holds the daily report export settings
type GoogleSheetsConfig struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Enable/Disable
	IsEnabled bool `json:"is_enabled"`

	// Google Service Account Credentials
	ServiceAccountEmail string `json:"service_account_email"`
	PrivateKey          string `gorm:"type:text" json:"private_key"` // JSON key file content

	// Spreadsheet Configuration
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name"` // Tab name (default: "Rapports")

	// Sync Settings
	AutoSync     bool   `json:"auto_sync"`
	SyncInterval int    `json:"sync_interval"` // Minutes
	SyncTime     string `json:"sync_time"`     // Daily sync time, "23:00"
	SyncMode     string `json:"sync_mode"`     // "interval" or "daily"

	// Status
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus string     `json:"last_sync_status"` // "success", "error", "pending"
	LastSyncError  string     `gorm:"type:text" json:"last_sync_error,omitempty"`
	TotalSyncs     int        `json:"total_syncs"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sync modes
const (
	SyncModeInterval = "interval"
	SyncModeDaily    = "daily"
)
