package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"ShopPOS/app/security"
)

const (
	appDirName     = "ShopPOS"
	configFileName = "config.json"
)

// AppConfig holds all application configuration
type AppConfig struct {
	// Database Configuration
	Database DatabaseConfig `json:"database"`

	// Shop settings injected into services
	Shop ShopSettings `json:"shop"`

	// HTTP / websocket server
	Server ServerConfig `json:"server"`

	// System Configuration
	System SystemConfig `json:"system"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver     string `json:"driver"` // "postgres" or "sqlite"
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Database   string `json:"database"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	SSLMode    string `json:"ssl_mode"`
	SQLitePath string `json:"sqlite_path"`
	URL        string `json:"-"` // DATABASE_URL, env only
}

// ShopSettings are the values formatting and thresholds depend on.
// They are passed explicitly to the services that need them.
type ShopSettings struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Address           string `json:"address"`
	CurrencyLabel     string `json:"currency_label"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// ServerConfig holds the REST/websocket listener settings
type ServerConfig struct {
	Port         string `json:"port"`
	AnnounceMDNS bool   `json:"announce_mdns"`
}

// SystemConfig holds system settings
type SystemConfig struct {
	DataPath string `json:"data_path"`
	LogDir   string `json:"log_dir"`
}

// Defaults returns the settings used when no config file exists
func Defaults() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Driver:     "sqlite",
			Host:       "localhost",
			Port:       5432,
			Database:   "shoppos",
			Username:   "postgres",
			SSLMode:    "disable",
			SQLitePath: "./data/shop.db",
		},
		Shop: ShopSettings{
			Name:              "Ma Boutique",
			CurrencyLabel:     "GMD",
			LowStockThreshold: 5,
		},
		Server: ServerConfig{
			Port:         "8080",
			AnnounceMDNS: true,
		},
		System: SystemConfig{
			LogDir: "",
		},
	}
}

// GetConfigDir returns the directory holding config.json and the key file.
// SHOP_CONFIG_DIR overrides the per-user default.
func GetConfigDir() (string, error) {
	if dir := os.Getenv("SHOP_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("could not determine home directory: %w", herr)
		}
		base = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(base, appDirName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func vault() (*security.Vault, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	return security.NewVault(dir), nil
}

// LoadConfig reads config.json (falling back to defaults when absent),
// decrypts sensitive fields and applies environment overrides
func LoadConfig() (*AppConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := Defaults()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// Defaults + env only
	case err != nil:
		return nil, fmt.Errorf("could not read config file: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file: %w", err)
		}
		v, err := vault()
		if err != nil {
			return nil, err
		}
		cfg.decryptSensitiveFields(v)
	}

	cfg.ApplyEnv()
	cfg.normalize()

	return cfg, nil
}

// SaveConfig saves configuration to config.json after encrypting sensitive fields
func SaveConfig(cfg *AppConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	v, err := vault()
	if err != nil {
		return err
	}

	// Encrypt a copy so the caller keeps plain values
	cfgCopy := *cfg
	if err := cfgCopy.encryptSensitiveFields(v); err != nil {
		return fmt.Errorf("could not encrypt sensitive fields: %w", err)
	}

	data, err := json.MarshalIndent(&cfgCopy, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides file values with environment variables.
// DATABASE_URL wins over the individual DB_* variables.
func (cfg *AppConfig) ApplyEnv() {
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
		if os.Getenv("DB_DRIVER") == "" {
			cfg.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.Username = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("MDNS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Server.AnnounceMDNS = enabled
		}
	}
	if v := os.Getenv("CURRENCY_LABEL"); v != "" {
		cfg.Shop.CurrencyLabel = v
	}
	if v := os.Getenv("LOW_STOCK_THRESHOLD"); v != "" {
		if threshold, err := strconv.Atoi(v); err == nil {
			cfg.Shop.LowStockThreshold = threshold
		}
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.System.LogDir = v
	}
}

func (cfg *AppConfig) normalize() {
	if cfg.Shop.CurrencyLabel == "" {
		cfg.Shop.CurrencyLabel = "GMD"
	}
	if cfg.Shop.LowStockThreshold <= 0 {
		cfg.Shop.LowStockThreshold = 5
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
}

// encryptSensitiveFields encrypts sensitive configuration fields
func (cfg *AppConfig) encryptSensitiveFields(v *security.Vault) error {
	if cfg.Database.Password == "" {
		return nil
	}
	encrypted, err := v.Encrypt(cfg.Database.Password)
	if err != nil {
		return fmt.Errorf("could not encrypt database password: %w", err)
	}
	cfg.Database.Password = encrypted
	return nil
}

// decryptSensitiveFields leaves plain text values as-is (hand-edited files)
func (cfg *AppConfig) decryptSensitiveFields(v *security.Vault) {
	if cfg.Database.Password != "" {
		cfg.Database.Password = v.DecryptOrPlain(cfg.Database.Password)
	}
}

// DSN builds the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode)
}
