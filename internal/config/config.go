// Package config loads mess-service settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the mess service.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`
	QRSecret  string        `mapstructure:"QR_SECRET"`
	OTPTTL    time.Duration `mapstructure:"OTP_TTL"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	NotifyExchange string `mapstructure:"NOTIFY_EXCHANGE"`

	RazorpayBaseURL   string `mapstructure:"RAZORPAY_BASE_URL"`
	RazorpayKeyID     string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `mapstructure:"RAZORPAY_KEY_SECRET"`
	PaymentCurrency   string `mapstructure:"PAYMENT_CURRENCY"`

	PurchaseMinElapsedDays int    `mapstructure:"PURCHASE_MIN_ELAPSED_DAYS"`
	MessTimezone           string `mapstructure:"MESS_TIMEZONE"`
	EnforceMealWindow      bool   `mapstructure:"ENFORCE_MEAL_WINDOW"`

	ExpireJobSchedule   string `mapstructure:"EXPIRE_JOB_SCHEDULE"`
	ReminderJobSchedule string `mapstructure:"REMINDER_JOB_SCHEDULE"`
}

var keys = []string{
	"SERVER_PORT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"JWT_SECRET", "JWT_TTL", "QR_SECRET", "OTP_TTL",
	"RABBITMQ_URL", "NOTIFY_EXCHANGE",
	"RAZORPAY_BASE_URL", "RAZORPAY_KEY_ID", "RAZORPAY_KEY_SECRET", "PAYMENT_CURRENCY",
	"PURCHASE_MIN_ELAPSED_DAYS", "MESS_TIMEZONE", "ENFORCE_MEAL_WINDOW",
	"EXPIRE_JOB_SCHEDULE", "REMINDER_JOB_SCHEDULE",
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real env vars win.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("JWT_TTL", "720h")
	viper.SetDefault("OTP_TTL", "10m")
	viper.SetDefault("NOTIFY_EXCHANGE", "mess.events")
	viper.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com")
	viper.SetDefault("PAYMENT_CURRENCY", "INR")
	viper.SetDefault("PURCHASE_MIN_ELAPSED_DAYS", 5)
	viper.SetDefault("MESS_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("ENFORCE_MEAL_WINDOW", false)
	viper.SetDefault("EXPIRE_JOB_SCHEDULE", "5 0 * * 1")    // Mondays at 00:05.
	viper.SetDefault("REMINDER_JOB_SCHEDULE", "0 18 * * 5") // Fridays at 18:00.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, k := range keys {
		_ = viper.BindEnv(k)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if strings.TrimSpace(c.QRSecret) == "" {
		errs = append(errs, errors.New("QR_SECRET is required"))
	}
	if strings.TrimSpace(c.DBName) == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.PurchaseMinElapsedDays <= 0 {
		errs = append(errs, fmt.Errorf("PURCHASE_MIN_ELAPSED_DAYS must be positive, got %d", c.PurchaseMinElapsedDays))
	}
	if _, err := time.LoadLocation(c.MessTimezone); err != nil {
		errs = append(errs, fmt.Errorf("MESS_TIMEZONE %q: %w", c.MessTimezone, err))
	}
	return errors.Join(errs...)
}

// Location returns the mess timezone; callers run after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.MessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PaymentsEnabled reports whether gateway credentials are configured.
func (c *Config) PaymentsEnabled() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}
