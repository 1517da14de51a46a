package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	CORS      CORSConfig
	Payment   PaymentConfig
	Mail      MailConfig
	S3        S3Config
	Assistant AssistantConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	BaseURL     string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	Secret     string
	CookieName string
	Expiry     time.Duration
	Secure     bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type PaymentConfig struct {
	Stripe StripeConfig
	PayPal PayPalConfig
}

type StripeConfig struct {
	SecretKey string
	BaseURL   string
}

type PayPalConfig struct {
	ClientID  string
	Secret    string
	BaseURL   string
	ReturnURL string
	CancelURL string
}

type MailConfig struct {
	FromAddress  string
	FromName     string
	CompanyEmail string
	Primary      SMTPConfig
	Fallback     SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type AssistantConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			BaseURL:     getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "verdantleaf"),
			Password: getEnv("DB_PASSWORD", "verdantleaf"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", "change-me-in-production"),
			CookieName: getEnv("SESSION_COOKIE_NAME", "vl_session"),
			Expiry:     parseDuration(getEnv("SESSION_EXPIRY", "168h")),
			Secure:     getEnv("SESSION_COOKIE_SECURE", "false") == "true",
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Payment: PaymentConfig{
			Stripe: StripeConfig{
				SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
				BaseURL:   getEnv("STRIPE_BASE_URL", "https://api.stripe.com/v1"),
			},
			PayPal: PayPalConfig{
				ClientID:  getEnv("PAYPAL_CLIENT_ID", ""),
				Secret:    getEnv("PAYPAL_SECRET", ""),
				BaseURL:   getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
				ReturnURL: getEnv("PAYPAL_RETURN_URL", "http://localhost:3000/checkout/paypal/return"),
				CancelURL: getEnv("PAYPAL_CANCEL_URL", "http://localhost:3000/checkout/paypal/cancel"),
			},
		},
		Mail: MailConfig{
			FromAddress:  getEnv("MAIL_FROM_ADDRESS", "orders@verdantleaf.example"),
			FromName:     getEnv("MAIL_FROM_NAME", "Verdantleaf"),
			CompanyEmail: getEnv("MAIL_COMPANY_ADDRESS", "hello@verdantleaf.example"),
			Primary: SMTPConfig{
				Host:     getEnv("SMTP_HOST", ""),
				Port:     getEnv("SMTP_PORT", "587"),
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
			},
			Fallback: SMTPConfig{
				Host:     getEnv("SMTP_FALLBACK_HOST", ""),
				Port:     getEnv("SMTP_FALLBACK_PORT", "587"),
				Username: getEnv("SMTP_FALLBACK_USERNAME", ""),
				Password: getEnv("SMTP_FALLBACK_PASSWORD", ""),
			},
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "verdantleaf-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Assistant: AssistantConfig{
			APIKey:  getEnv("ASSISTANT_API_KEY", ""),
			BaseURL: getEnv("ASSISTANT_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("ASSISTANT_MODEL", "gpt-4o-mini"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default 168h", s)
		return 168 * time.Hour
	}
	return duration
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		result = append(result, s[i:end])
		i = end + 1
	}
	return result
}
