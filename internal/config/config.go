package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Wallet   WalletConfig
	APNs     APNsConfig
	CRM      CRMConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	APIKey       string
	AllowOrigins string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type WalletConfig struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	OrganizationName   string
	WebServiceURL      string
}

type APNsConfig struct {
	Enabled      bool
	CertPath     string
	CertPassword string
	Production   bool
}

type CRMConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	apnsEnabled, _ := strconv.ParseBool(getEnv("APNS_ENABLED", "false"))
	apnsProduction, _ := strconv.ParseBool(getEnv("APNS_PRODUCTION", "false"))
	crmEnabled, _ := strconv.ParseBool(getEnv("CRM_ENABLED", "false"))

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			APIKey:       getEnv("API_KEY", "dev-api-key"),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "punchcard"),
			Password: getEnv("DB_PASSWORD", "punchcard"),
			Name:     getEnv("DB_NAME", "punchcard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Wallet: WalletConfig{
			PassTypeIdentifier: getEnv("WALLET_PASS_TYPE_ID", "pass.com.punchcard.card"),
			TeamIdentifier:     getEnv("WALLET_TEAM_ID", ""),
			OrganizationName:   getEnv("WALLET_ORG_NAME", "Punchcard"),
			WebServiceURL:      getEnv("WALLET_WEB_SERVICE_URL", "http://localhost:8080/wallet"),
		},
		APNs: APNsConfig{
			Enabled:      apnsEnabled,
			CertPath:     getEnv("APNS_CERT_PATH", ""),
			CertPassword: getEnv("APNS_CERT_PASSWORD", ""),
			Production:   apnsProduction,
		},
		CRM: CRMConfig{
			Enabled: crmEnabled,
			BaseURL: getEnv("CRM_BASE_URL", ""),
			APIKey:  getEnv("CRM_API_KEY", ""),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Outbox worker cadence
const (
	OutboxPollInterval = 3 * time.Second
	OutboxBatchSize    = 50
	OutboxMaxAttempts  = 5
)
