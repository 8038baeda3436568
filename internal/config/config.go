package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StateBackendFile  = "file"
	StateBackendRedis = "redis"

	defaultAdminContact = "6281234567890"
)

// Config holds all application configuration
type Config struct {
	AppPort string `envconfig:"APP_PORT" default:"8080"`
	AppEnv  string `envconfig:"APP_ENV" default:"development"`

	// Conversation state + pending orders
	StateBackend string        `envconfig:"STATE_BACKEND" default:"file"`
	StateDir     string        `envconfig:"STATE_DIR" default:"."`
	StateTTL     time.Duration `envconfig:"STATE_TTL" default:"24h"`

	// Redis
	RedisURL      string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	// Ledger database
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"joki"`
	DBURL      string `envconfig:"DB_URL"`

	// WhatsApp
	WhatsAppToken         string `envconfig:"WHATSAPP_TOKEN"`
	WhatsAppPhoneNumberID string `envconfig:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppVerifyToken   string `envconfig:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppAppSecret     string `envconfig:"WHATSAPP_APP_SECRET"` // verifies X-Hub-Signature-256 when set

	// Midtrans
	MidtransServerKey    string `envconfig:"MIDTRANS_SERVER_KEY"`
	MidtransIsProduction bool   `envconfig:"MIDTRANS_IS_PRODUCTION" default:"false"`

	// Operators
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`
	AdminContact      string `envconfig:"ADMIN_CONTACT"`
	QRISImageURL      string `envconfig:"QRIS_IMAGE_URL" default:"https://placehold.co/400x400/FFF/000?text=QRIS+ANDA"`

	// Ops event feed
	JWTSecret string `envconfig:"JWT_SECRET" default:"change-this-secret-in-production"`
}

var instance *Config

// Load initializes and returns the singleton Config instance
func Load() (*Config, error) {
	if instance != nil {
		return instance, nil
	}

	// Load .env file if it exists (for local development)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment variables: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	instance = cfg
	return instance, nil
}

// Get returns the singleton Config instance (must call Load first)
func Get() *Config {
	if instance == nil {
		panic("config not loaded: call config.Load() first")
	}
	return instance
}

func (c *Config) finalize() error {
	switch c.StateBackend {
	case StateBackendFile, StateBackendRedis:
	default:
		return fmt.Errorf("invalid STATE_BACKEND %q: want %q or %q", c.StateBackend, StateBackendFile, StateBackendRedis)
	}

	// Railway-style DATABASE_URL wins over the individual DB_* parts
	if c.DBURL == "" {
		if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
			c.DBURL = databaseURL
		}
	}
	if c.DBURL == "" {
		c.DBURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	}
	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// AdminContactLink returns the wa.me link of the customer-support contact
func (c *Config) AdminContactLink() string {
	return ContactLink(c.AdminContact)
}

// ContactLink builds a wa.me link from a phone number in any notation
func ContactLink(contact string) string {
	number := nonDigits.ReplaceAllString(contact, "")
	if number == "" {
		number = defaultAdminContact
	}
	return "https://wa.me/" + number
}
