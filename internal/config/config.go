package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration
type Config struct {
	Port          string
	DBConn        string
	LogLevel      string
	JWTSecret     string
	HMACSecret    string
	EncryptionKey string

	// LoanTermMonths amortizes the requested loan into a monthly payment
	LoanTermMonths int

	// BureauURL is the SOAP endpoint of the external credit model. Empty disables it.
	BureauURL string

	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SenderEmail   string
	ReviewerEmail string

	RetentionSchedule string
	RetentionDays     int
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=loans sslmode=disable"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		HMACSecret:    getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		EncryptionKey: getEnv("ENCRYPTION_KEY", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		BureauURL:     getEnv("BUREAU_URL", ""),

		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", "noreply@gasp.local"),
		ReviewerEmail: getEnv("REVIEWER_EMAIL", ""),

		RetentionSchedule: getEnv("RETENTION_SCHEDULE", "@daily"),
	}

	var err error
	if cfg.LoanTermMonths, err = getEnvInt("LOAN_TERM_MONTHS", 60); err != nil {
		return nil, err
	}
	if cfg.LoanTermMonths <= 0 {
		return nil, fmt.Errorf("LOAN_TERM_MONTHS must be positive, got %d", cfg.LoanTermMonths)
	}
	if cfg.RetentionDays, err = getEnvInt("RETENTION_DAYS", 90); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if _, err := cfg.EncryptionKeyBytes(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EncryptionKeyBytes decodes the hex encryption key and checks it is a valid AES key size
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	}
	return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24 or 32 bytes, got %d", len(key))
}

// PersistenceEnabled reports whether a database connection string is configured
func (c *Config) PersistenceEnabled() bool {
	return strings.TrimSpace(c.DBConn) != ""
}

// NotificationsEnabled reports whether reviewer notifications can be sent
func (c *Config) NotificationsEnabled() bool {
	return c.SMTPHost != "" && c.ReviewerEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
